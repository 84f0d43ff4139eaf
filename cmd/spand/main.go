package main

import (
	"flag"
	"os"
	"time"

	"spanfs/pkg/engine"
	"spanfs/pkg/log"
	"spanfs/pkg/metadata"
	"spanfs/pkg/pool"
	"spanfs/pkg/provider"
	"spanfs/pkg/server"
)

const (
	version = "1.0.0"

	dirPerm = 0750
)

func main() {
	// Initialize logger first
	_ = log.Logger

	addr := flag.String("addr", ":8080", "Listen address")
	dbPath := flag.String("db", "build/spanfs.db", "Metadata database path")
	tempDir := flag.String("temp", "build/temp", "Staging directory for downloads")
	webDir := flag.String("web", "web", "Web assets directory path")
	debug := flag.Bool("debug", false, "Enable debug logging")

	retryMax := flag.Int("retry-max", 3, "Max retries per provider request")
	requestTimeout := flag.Duration("request-timeout", 2*time.Minute, "Per-request provider timeout")
	probeTimeout := flag.Duration("probe-timeout", pool.DefaultProbeTimeout, "Capacity probe timeout")

	googleID := flag.String("google-client-id", os.Getenv("SPANFS_GOOGLE_CLIENT_ID"), "Google OAuth client id")
	googleSecret := flag.String("google-client-secret", os.Getenv("SPANFS_GOOGLE_CLIENT_SECRET"), "Google OAuth client secret")
	dropboxID := flag.String("dropbox-client-id", os.Getenv("SPANFS_DROPBOX_CLIENT_ID"), "Dropbox OAuth client id")
	dropboxSecret := flag.String("dropbox-client-secret", os.Getenv("SPANFS_DROPBOX_CLIENT_SECRET"), "Dropbox OAuth client secret")
	onedriveID := flag.String("onedrive-client-id", os.Getenv("SPANFS_ONEDRIVE_CLIENT_ID"), "OneDrive OAuth client id")
	onedriveSecret := flag.String("onedrive-client-secret", os.Getenv("SPANFS_ONEDRIVE_CLIENT_SECRET"), "OneDrive OAuth client secret")
	flag.Parse()

	if *debug {
		log.SetDebugMode()
	}

	if err := os.MkdirAll(*tempDir, dirPerm); err != nil {
		log.Fatal().Err(err).Str("temp_dir", *tempDir).Msg("Failed to create temp directory")
	}
	if _, err := os.Stat(*webDir); os.IsNotExist(err) {
		log.Fatal().Str("web_dir", *webDir).Msg("Web directory does not exist")
	}

	store, err := metadata.NewStore(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("Failed to open metadata store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close metadata store")
		}
	}()

	clientOpts := provider.ClientOptions{
		RetryMax: *retryMax,
		Timeout:  *requestTimeout,
	}
	refresher := provider.NewRefresher(store, provider.NewClient(clientOpts))

	adapters := []provider.Adapter{
		provider.NewGoogleDrive(*googleID, *googleSecret, refresher, clientOpts),
		provider.NewDropbox(*dropboxID, *dropboxSecret, refresher, clientOpts),
		provider.NewOneDrive(*onedriveID, *onedriveSecret, refresher, clientOpts),
	}

	accountPool := pool.New(store, adapters, *probeTimeout)
	placementEngine := engine.New(store, accountPool)

	srv := server.New(*tempDir, *webDir, version, placementEngine, store)
	if err := srv.Start(*addr); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}

	os.Exit(0)
}
