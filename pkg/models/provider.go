package models

import "fmt"

// Provider identifies one external cloud-storage service.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderDropbox  Provider = "dropbox"
	ProviderOneDrive Provider = "onedrive"
)

// AllProviders lists the known provider types in a fixed order.
var AllProviders = []Provider{ProviderGoogle, ProviderDropbox, ProviderOneDrive}

// ParseProvider converts a string into a known Provider.
func ParseProvider(s string) (Provider, error) {
	p := Provider(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown provider %q", s)
	}
	return p, nil
}

// Valid reports whether the provider is one of the known types.
func (p Provider) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderDropbox, ProviderOneDrive:
		return true
	}
	return false
}
