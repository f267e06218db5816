// Package extras validates the provider-extras map with security guardrails:
// secret-like keys are blocked and size limits are enforced so a scenario
// cannot smuggle credentials or oversized payloads into a request body.
package extras

import (
	"encoding/json"
	"fmt"
	"strings"
)

// blockedKeys are refused case-insensitively to prevent accidental
// credential leakage through the pass-through map.
var blockedKeys = map[string]bool{
	"api_key":       true,
	"api_secret":    true,
	"secret":        true,
	"token":         true,
	"password":      true,
	"authorization": true,
	"secret_key":    true,
	"access_token":  true,
	"refresh_token": true,
}

const (
	// MaxKeys is the maximum number of keys allowed in extras.
	MaxKeys = 10
	// MaxSize is the maximum JSON-serialized size of extras in bytes.
	MaxSize = 4096
)

// Validate checks the extras map against the blocked-key list, the key
// count limit, and the serialized size limit. A nil error means the map is
// safe to merge into a provider request.
func Validate(extras map[string]any) error {
	for key := range extras {
		if blockedKeys[strings.ToLower(key)] {
			return fmt.Errorf(
				"extras key %q is blocked because it looks like a secret or credential; configure secrets via environment variables instead",
				key)
		}
	}

	if len(extras) > MaxKeys {
		return fmt.Errorf("extras has %d keys, exceeding the limit of %d", len(extras), MaxKeys)
	}

	serialized, err := json.Marshal(extras)
	if err != nil {
		return fmt.Errorf("extras is not JSON-serializable: %w", err)
	}
	if len(serialized) > MaxSize {
		return fmt.Errorf("extras serialized size is %d bytes, exceeding the limit of %d bytes", len(serialized), MaxSize)
	}

	return nil
}
