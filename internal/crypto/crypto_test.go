package crypto

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestL2HeadersDeterministic(t *testing.T) {
	creds := &APICreds{
		Key:        "test-key",
		Secret:     base64urlOf(t, "super-secret"),
		Passphrase: "pass",
	}

	h1 := creds.L2HeadersAt("0xabc", "POST", "/order", `{"a":1}`, 1700000000)
	h2 := creds.L2HeadersAt("0xabc", "POST", "/order", `{"a":1}`, 1700000000)

	if h1["POLY_SIGNATURE"] == "" {
		t.Fatal("empty signature")
	}
	if h1["POLY_SIGNATURE"] != h2["POLY_SIGNATURE"] {
		t.Errorf("signature not deterministic: %q vs %q", h1["POLY_SIGNATURE"], h2["POLY_SIGNATURE"])
	}
	if h1["POLY_TIMESTAMP"] != "1700000000" {
		t.Errorf("timestamp = %q", h1["POLY_TIMESTAMP"])
	}
	if h1["POLY_ADDRESS"] != "0xabc" || h1["POLY_API_KEY"] != "test-key" || h1["POLY_PASSPHRASE"] != "pass" {
		t.Errorf("unexpected identity headers: %v", h1)
	}

	h3 := creds.L2HeadersAt("0xabc", "POST", "/order", `{"a":2}`, 1700000000)
	if h1["POLY_SIGNATURE"] == h3["POLY_SIGNATURE"] {
		t.Error("different bodies produced identical signatures")
	}
}

func TestCredsStringRedacts(t *testing.T) {
	creds := &APICreds{Key: "abcdef123456", Secret: "zyxwvu987654"}
	s := creds.String()
	if strings.Contains(s, "123456") || strings.Contains(s, "987654") {
		t.Errorf("String leaked credentials: %s", s)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "hunter2")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}

	got, err := DecryptKey(blob, "hunter2")
	if err != nil {
		t.Fatalf("DecryptKey: %v", err)
	}
	if got != testKeyHex {
		t.Errorf("round trip mismatch: got %s", got)
	}

	if _, err := DecryptKey(blob, "wrong"); err == nil {
		t.Error("DecryptKey succeeded with wrong password")
	}
}

func TestEncryptKeyRejectsBadInput(t *testing.T) {
	if _, err := EncryptKey(testKeyHex, ""); err == nil {
		t.Error("empty password accepted")
	}
	if _, err := EncryptKey("not-hex", "pw"); err == nil {
		t.Error("non-hex key accepted")
	}
	if _, err := EncryptKey("abcd", "pw"); err == nil {
		t.Error("short key accepted")
	}
}

func TestLoadKeyPrefersRawKey(t *testing.T) {
	got, err := LoadKey(KeySource{RawPrivateKey: "0x" + testKeyHex})
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	if got != testKeyHex {
		t.Errorf("LoadKey = %s, want %s", got, testKeyHex)
	}

	if _, err := LoadKey(KeySource{}); err == nil {
		t.Error("LoadKey succeeded with no source")
	}
}

func TestLoadKeyFromEncryptedFile(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "pw")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}
	path := filepath.Join(t.TempDir(), "key.json")
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := LoadKey(KeySource{EncryptedKeyPath: path, KeyPassword: "pw"})
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	if got != testKeyHex {
		t.Errorf("LoadKey = %s", got)
	}
}

func TestSignerAddressAndSignatures(t *testing.T) {
	s, err := NewSigner(testKeyHex, 137)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	// Well-known address for this test vector key.
	if got := s.Address().Hex(); got != "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23" {
		t.Errorf("Address = %s", got)
	}

	sig, err := s.SignAuth(1700000000, 0)
	if err != nil {
		t.Fatalf("SignAuth: %v", err)
	}
	if !strings.HasPrefix(sig, "0x") || len(sig) != 2+130 {
		t.Errorf("malformed auth signature %q (len %d)", sig, len(sig))
	}

	order := OrderPayload{
		Salt:          "12345",
		Maker:         s.Address().Hex(),
		Signer:        s.Address().Hex(),
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenID:       "71321045679252212594626385532706912750332728571942532289631379312455583992563",
		MakerAmount:   "4500000",
		TakerAmount:   "10000000",
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		Side:          0,
		SignatureType: 2,
	}
	osig, err := s.SignOrder(order)
	if err != nil {
		t.Fatalf("SignOrder: %v", err)
	}
	if !strings.HasPrefix(osig, "0x") || len(osig) != 2+130 {
		t.Errorf("malformed order signature %q", osig)
	}

	osig2, err := s.SignOrder(order)
	if err != nil {
		t.Fatalf("SignOrder repeat: %v", err)
	}
	if osig != osig2 {
		t.Error("order signing not deterministic")
	}
}

func TestSignOrderRejectsBadNumbers(t *testing.T) {
	s, err := NewSigner(testKeyHex, 137)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	_, err = s.SignOrder(OrderPayload{Salt: "not-a-number"})
	if err == nil {
		t.Error("SignOrder accepted invalid salt")
	}
}

func base64urlOf(t *testing.T, s string) string {
	t.Helper()
	return base64.URLEncoding.EncodeToString([]byte(s))
}
