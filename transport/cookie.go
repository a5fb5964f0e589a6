package transport

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const cookieName = "sid"

const secretSize = 128

// loadOrCreateSecret reads the signing secret from path, generating and
// persisting a fresh one if the file does not exist. This is a boot step,
// not runtime state, so restarts keep validating previously issued
// cookies.
func loadOrCreateSecret(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		secret, decodeErr := hex.DecodeString(strings.TrimSpace(string(data)))
		if decodeErr != nil {
			return nil, fmt.Errorf("transport: decode session secret at %s: %w", path, decodeErr)
		}
		return secret, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("transport: read session secret at %s: %w", path, err)
	}

	secret := make([]byte, secretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("transport: generate session secret: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(secret)), 0600); err != nil {
		return nil, fmt.Errorf("transport: persist session secret at %s: %w", path, err)
	}
	return secret, nil
}

// signCookie produces a tamper-evident cookie value "<id>.<signature>" for
// sessionID. The cookie is readable by client script (not HttpOnly), so an
// unsigned id could otherwise be forged.
func signCookie(secret []byte, sessionID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(sessionID))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return sessionID + "." + sig
}

// verifyCookie splits and checks a cookie value produced by signCookie,
// returning the session id if the signature matches.
func verifyCookie(secret []byte, value string) (string, bool) {
	i := strings.LastIndex(value, ".")
	if i < 0 {
		return "", false
	}
	sessionID := value[:i]
	expected := signCookie(secret, sessionID)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(value)) != 1 {
		return "", false
	}
	return sessionID, true
}
