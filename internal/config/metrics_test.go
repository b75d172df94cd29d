package config

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFailureArea(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "none", err: nil, want: "none"},
		{name: "env file", err: errors.New("load env file: permission denied"), want: "env_file"},
		{name: "parse", err: errors.New("parse environment: AUTO_CHECKOUT_MAX_DURATION: invalid duration"), want: "parse"},
		{name: "database", err: errors.New("validate config: DATABASE_URL is required"), want: "database"},
		{name: "first key wins", err: errors.New("validate config: JWT_ACCESS_SECRET must be at least 32 bytes\nREAPER_SCHEDULE is invalid"), want: "auth"},
		{name: "cap is reaper", err: errors.New("validate config: AUTO_CHECKOUT_MAX_DURATION must be positive"), want: "reaper"},
		{name: "cloudinary", err: errors.New("validate config: CLOUDINARY_URL is required for the cloudinary evidence backend"), want: "evidence"},
		{name: "unknown", err: errors.New("validate config: something odd"), want: "other"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := failureArea(tc.err); got != tc.want {
				t.Fatalf("failureArea()=%q want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeProfile(t *testing.T) {
	if got := normalizeProfile("  ProD  "); got != "prod" {
		t.Fatalf("expected prod, got %q", got)
	}
	if got := normalizeProfile("   "); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}

func FuzzFailureArea(f *testing.F) {
	f.Add("validate config: DATABASE_URL is required")
	f.Add("parse environment: x")
	f.Add("")
	f.Add(strings.Repeat("SMTP_", 512))

	f.Fuzz(func(t *testing.T, raw string) {
		got := failureArea(errors.New(raw))
		if got == "" || got == "none" {
			t.Fatalf("non-nil error must map to a named area, got %q", got)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("area must be valid UTF-8: %q", got)
		}
	})
}
