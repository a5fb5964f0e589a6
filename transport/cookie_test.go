package transport

import (
	"path/filepath"
	"testing"
)

func TestLoadOrCreateSecretPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.key")

	first, err := loadOrCreateSecret(path)
	if err != nil {
		t.Fatalf("loadOrCreateSecret() error: %v", err)
	}
	if len(first) != secretSize {
		t.Fatalf("len(secret) = %d want %d", len(first), secretSize)
	}

	second, err := loadOrCreateSecret(path)
	if err != nil {
		t.Fatalf("loadOrCreateSecret() reload error: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("reloaded secret differs from the persisted one")
	}
}

func TestSignAndVerifyCookieRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	value := signCookie(secret, "sid-123")

	id, ok := verifyCookie(secret, value)
	if !ok || id != "sid-123" {
		t.Fatalf("verifyCookie() = (%q, %v) want (sid-123, true)", id, ok)
	}
}

func TestVerifyCookieRejectsTampering(t *testing.T) {
	secret := []byte("test-secret")
	value := signCookie(secret, "sid-123")

	cases := []string{
		value + "x",
		"sid-456" + value[len("sid-123"):],
		"garbage",
		"",
	}
	for _, c := range cases {
		if _, ok := verifyCookie(secret, c); ok {
			t.Fatalf("verifyCookie(%q) = true, want false", c)
		}
	}
}

func TestVerifyCookieRejectsWrongSecret(t *testing.T) {
	value := signCookie([]byte("secret-a"), "sid-123")
	if _, ok := verifyCookie([]byte("secret-b"), value); ok {
		t.Fatalf("verifyCookie() with wrong secret = true, want false")
	}
}
