package pwsdk

import (
	"strings"

	"github.com/zalando/go-keyring"
)

const keyringService = "pwrun"

// normalizeKey converts a baseURL into a stable key name for keyring storage.
// Trailing slashes are trimmed and the value lowercased to avoid accidental
// duplicates like https://example.com/ and https://example.com.
func normalizeKey(baseURL string) string {
	s := strings.TrimSpace(baseURL)
	s = strings.TrimRight(s, "/")
	s = strings.ToLower(s)
	return s
}

// SaveAPIKey stores the API key in the OS keyring under the normalized
// baseURL key so multiple platform deployments can hold separate credentials.
func SaveAPIKey(baseURL, apiKey string) error {
	return keyring.Set(keyringService, normalizeKey(baseURL), apiKey)
}

// LoadAPIKey retrieves the API key stored for the given baseURL. If no key is
// found the underlying keyring error is returned.
func LoadAPIKey(baseURL string) (string, error) {
	return keyring.Get(keyringService, normalizeKey(baseURL))
}

// DeleteAPIKey removes the credential for the given baseURL from the OS
// keyring. It is a convenience for logout flows.
func DeleteAPIKey(baseURL string) error {
	return keyring.Delete(keyringService, normalizeKey(baseURL))
}

// ResolveAPIKey returns the credential to use for a config: the explicit
// config/env value wins, then the OS keyring. An empty string means no
// credential is available.
func ResolveAPIKey(cfg *Config) string {
	if cfg.APIKey != "" {
		return cfg.APIKey
	}
	if key, err := LoadAPIKey(cfg.BaseURL); err == nil {
		return key
	}
	return ""
}
