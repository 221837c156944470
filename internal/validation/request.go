package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var metadataKeyRegex = regexp.MustCompile(`^[a-z0-9_.-]{1,120}$`)

var reservedMetadataKeys = map[string]struct{}{
	"id":         {},
	"status":     {},
	"created_at": {},
	"updated_at": {},
}

// ValidateMetadataKey validates metadata key format and reserved names.
func ValidateMetadataKey(key string) error {
	if !metadataKeyRegex.MatchString(key) {
		return fmt.Errorf("metadata key must be 1-120 characters and contain only lowercase letters, numbers, dots, hyphens, and underscores")
	}

	if strings.HasPrefix(key, ".") || strings.HasSuffix(key, ".") {
		return fmt.Errorf("metadata key cannot start or end with a dot")
	}

	if _, exists := reservedMetadataKeys[key]; exists {
		return fmt.Errorf("metadata key is reserved")
	}

	return nil
}

// ValidateRealmURL validates a realm URL. The wildcard "*" addresses every
// reachable realm. Server-relative paths ("/shared/calendar") are accepted
// alongside absolute URLs.
func ValidateRealmURL(realmURL string) error {
	if realmURL == "*" {
		return nil
	}
	if realmURL == "" {
		return fmt.Errorf("realm URL is required")
	}
	if strings.HasPrefix(realmURL, "/") {
		if strings.ContainsAny(realmURL, " \t\n") {
			return fmt.Errorf("realm path must not contain whitespace")
		}
		return nil
	}

	u, err := url.Parse(realmURL)
	if err != nil {
		return fmt.Errorf("realm URL is not a valid URL: %w", err)
	}

	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("realm URL scheme must be http, https, ws, or wss")
	}

	if u.Host == "" {
		return fmt.Errorf("realm URL must include a host")
	}

	return nil
}

var userIDRegex = regexp.MustCompile(`^[A-Za-z0-9_.@-]{1,120}$`)

// ValidateTargetUserID validates a target user identifier. The wildcard "*"
// addresses every user.
func ValidateTargetUserID(userID string) error {
	if userID == "*" {
		return nil
	}
	if !userIDRegex.MatchString(userID) {
		return fmt.Errorf("user ID must be 1-120 characters and contain only letters, numbers, dots, hyphens, underscores, and @")
	}
	return nil
}
