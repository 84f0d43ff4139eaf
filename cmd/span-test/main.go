// span-test is a round-trip smoke client for a running spand server: it links
// nothing, assumes accounts are already in place, and verifies that a random
// payload survives upload, info, download and delete.
package main

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
)

const defaultTimeout = 2 * time.Minute

type client struct {
	baseURL string
	userID  string
	http    *http.Client
}

func (c *client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("X-User-ID", c.userID)
	return c.http.Do(req)
}

func (c *client) upload(name string, payload []byte) (int64, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return 0, err
	}
	if _, err := part.Write(payload); err != nil {
		return 0, err
	}
	if err := writer.Close(); err != nil {
		return 0, err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/file/upload", body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("upload returned status %d: %s", resp.StatusCode, text)
	}

	var response struct {
		FileID int64 `json:"file_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, err
	}
	return response.FileID, nil
}

func (c *client) download(fileID int64) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/file/%d/download", c.baseURL, fileID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *client) info(fileID int64) (int, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/file/%d/info", c.baseURL, fileID), nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("info returned status %d", resp.StatusCode)
	}

	var response struct {
		Chunks []json.RawMessage `json:"chunks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, err
	}
	return len(response.Chunks), nil
}

func (c *client) delete(fileID int64) error {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/file/%d/delete", c.baseURL, fileID), nil)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delete returned status %d", resp.StatusCode)
	}
	return nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func main() {
	serverURL := flag.String("server", "http://127.0.0.1:8080", "Server base URL")
	userID := flag.String("user", "smoke-test", "User id to operate as")
	size := flag.Int("size", 1024*1024, "Payload size in bytes")
	timeout := flag.Duration("timeout", defaultTimeout, "HTTP client timeout")
	flag.Parse()

	c := &client{
		baseURL: *serverURL,
		userID:  *userID,
		http:    &http.Client{Timeout: *timeout},
	}

	payload := make([]byte, *size)
	if _, err := rand.Read(payload); err != nil {
		fmt.Fprintf(os.Stderr, "generate payload: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Uploading %s as user %q...\n", humanize.Bytes(uint64(*size)), *userID)
	fileID, err := c.upload("smoke-test.bin", payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "upload: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Uploaded as file %d\n", fileID)

	chunks, err := c.info(fileID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "info: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Placed in %d chunk(s)\n", chunks)

	downloaded, err := c.download(fileID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "download: %v\n", err)
		os.Exit(1)
	}
	if digest(downloaded) != digest(payload) {
		fmt.Fprintln(os.Stderr, "FAIL: downloaded bytes differ from uploaded bytes")
		os.Exit(1)
	}
	fmt.Println("Round trip verified")

	if err := c.delete(fileID); err != nil {
		fmt.Fprintf(os.Stderr, "delete: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Deleted, all checks passed")
}
