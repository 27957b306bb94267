package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"
)

// APICreds holds the L2 credentials returned by the CLOB auth endpoints.
type APICreds struct {
	Key        string
	Secret     string // base64url-encoded
	Passphrase string
}

// L2Headers builds the authenticated headers for a CLOB L2 request. The
// signature is HMAC-SHA256 over timestamp+method+path+body, keyed with the
// base64url-decoded secret.
func (c *APICreds) L2Headers(address, method, path, body string) map[string]string {
	return c.L2HeadersAt(address, method, path, body, time.Now().Unix())
}

// L2HeadersAt is L2Headers with an explicit Unix timestamp for deterministic
// signatures.
func (c *APICreds) L2HeadersAt(address, method, path, body string, unixTS int64) map[string]string {
	ts := strconv.FormatInt(unixTS, 10)

	key, err := base64.URLEncoding.DecodeString(c.Secret)
	if err != nil {
		// A malformed secret produces a rejected signature, not a panic.
		key = []byte(c.Secret)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(ts + method + path + body))
	sig := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	return map[string]string{
		"POLY_ADDRESS":    address,
		"POLY_API_KEY":    c.Key,
		"POLY_TIMESTAMP":  ts,
		"POLY_PASSPHRASE": c.Passphrase,
		"POLY_SIGNATURE":  sig,
	}
}

// String redacts the secret fields for logging.
func (c *APICreds) String() string {
	redact := func(s string) string {
		if len(s) <= 4 {
			return "****"
		}
		return s[:4] + "****"
	}
	return fmt.Sprintf("APICreds{key=%s, secret=%s}", redact(c.Key), redact(c.Secret))
}
