// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
)

const ServiceAccountEmail = "reader@sheetpeek-test.iam.gserviceaccount.com"

// ServiceAccountJSON returns a syntactically valid service-account key whose
// token endpoint is tokenURI.
func ServiceAccountJSON(t *testing.T, tokenURI string) []byte {
	t.Helper()

	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(pk)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	b, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     "sheetpeek-test",
		"private_key_id": "k1",
		"private_key":    string(pemKey),
		"client_email":   ServiceAccountEmail,
		"client_id":      "1234567890",
		"token_uri":      tokenURI,
	})
	if err != nil {
		t.Fatalf("marshal service account: %v", err)
	}
	return b
}

// WriteServiceAccount writes a key from ServiceAccountJSON into a temp dir
// and returns its path.
func WriteServiceAccount(t *testing.T, tokenURI string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "service-account-key.json")
	if err := os.WriteFile(path, ServiceAccountJSON(t, tokenURI), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return path
}
