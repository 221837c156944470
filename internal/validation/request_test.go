package validation

import "testing"

func TestValidateMetadataKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  string
		ok   bool
	}{
		{name: "valid plain", key: "department", ok: true},
		{name: "valid dotted", key: "org.team", ok: true},
		{name: "valid with digits", key: "tier2", ok: true},
		{name: "valid underscore", key: "night_shift", ok: true},
		{name: "empty", key: "", ok: false},
		{name: "uppercase", key: "Department", ok: false},
		{name: "space", key: "night shift", ok: false},
		{name: "symbol", key: "team!", ok: false},
		{name: "leading dot", key: ".team", ok: false},
		{name: "trailing dot", key: "team.", ok: false},
		{name: "reserved id", key: "id", ok: false},
		{name: "reserved status", key: "status", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateMetadataKey(tc.key)
			if tc.ok && err != nil {
				t.Fatalf("expected valid key, got error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected invalid key, got nil error")
			}
		})
	}
}

func TestValidateRealmURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		ok   bool
	}{
		{name: "wildcard", url: "*", ok: true},
		{name: "wss realm", url: "wss://realm.example.com/db", ok: true},
		{name: "https realm", url: "https://realm.example.com", ok: true},
		{name: "ws realm with port", url: "ws://localhost:8080/sync", ok: true},
		{name: "server-relative path", url: "/shared/calendar", ok: true},
		{name: "path with whitespace", url: "/shared cal", ok: false},
		{name: "empty", url: "", ok: false},
		{name: "no scheme", url: "realm.example.com", ok: false},
		{name: "bad scheme", url: "ftp://realm.example.com", ok: false},
		{name: "scheme only", url: "wss://", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRealmURL(tc.url)
			if tc.ok && err != nil {
				t.Fatalf("expected valid realm URL, got error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected invalid realm URL, got nil error")
			}
		})
	}
}

func TestValidateTargetUserID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		userID string
		ok     bool
	}{
		{name: "wildcard", userID: "*", ok: true},
		{name: "plain", userID: "alice", ok: true},
		{name: "email style", userID: "alice@example.com", ok: true},
		{name: "uuid style", userID: "8e7f6a6e-1f2b-4c3d-9e8f-7a6b5c4d3e2f", ok: true},
		{name: "empty", userID: "", ok: false},
		{name: "space", userID: "alice smith", ok: false},
		{name: "symbol", userID: "alice!", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTargetUserID(tc.userID)
			if tc.ok && err != nil {
				t.Fatalf("expected valid user ID, got error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected invalid user ID, got nil error")
			}
		})
	}
}
