package gpg

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

func newTestEntity(t *testing.T) *openpgp.Entity {
	t.Helper()

	entity, err := openpgp.NewEntity("cauldron test", "", "test@example.com", nil)
	if err != nil {
		t.Fatalf("Failed to create test key: %v", err)
	}
	return entity
}

func armoredPublicKey(t *testing.T, entity *openpgp.Entity) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := entity.Serialize(w); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func signFile(t *testing.T, entity *openpgp.Entity, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path) //nolint:gosec // test file
	if err != nil {
		t.Fatal(err)
	}
	var sig bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&sig, entity, bytes.NewReader(data), nil); err != nil {
		t.Fatalf("Failed to sign: %v", err)
	}
	return sig.Bytes()
}

func writeArchive(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "CUnit-2.1-3.tar.bz2")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVerifier_VerifySignature_FromURL(t *testing.T) {
	entity := newTestEntity(t)
	archive := writeArchive(t, "release archive bytes")
	sig := signFile(t, entity, archive)
	pub := armoredPublicKey(t, entity)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/KEYS":
			_, _ = w.Write(pub)
		case "/archive.sig":
			_, _ = w.Write(sig)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	v := NewVerifier(WithHTTPClient(server.Client()))
	if err := v.ImportKeysFromURL(context.Background(), server.URL+"/KEYS"); err != nil {
		t.Fatalf("ImportKeysFromURL() error = %v", err)
	}
	if v.KeyringSize() != 1 {
		t.Errorf("KeyringSize() = %d, want 1", v.KeyringSize())
	}

	if err := v.VerifySignature(context.Background(), archive, server.URL+"/archive.sig"); err != nil {
		t.Errorf("VerifySignature() error = %v", err)
	}
}

func TestVerifier_VerifySignature_Tampered(t *testing.T) {
	entity := newTestEntity(t)
	archive := writeArchive(t, "release archive bytes")
	sigPath := filepath.Join(t.TempDir(), "archive.sig")
	if err := os.WriteFile(sigPath, signFile(t, entity, archive), 0600); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(archive, []byte("tampered"), 0600); err != nil {
		t.Fatal(err)
	}

	v := NewVerifier()
	v.AddKeys(openpgp.EntityList{entity})
	err := v.VerifySignatureFromFile(archive, sigPath)
	if err == nil {
		t.Fatal("Expected verification failure for tampered file")
	}
	if !strings.Contains(err.Error(), "signature verification failed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestVerifier_ImportKeys_Keyserver(t *testing.T) {
	entity := newTestEntity(t)
	pub := armoredPublicKey(t, entity)
	fingerprint := fmt.Sprintf("%X", entity.PrimaryKey.Fingerprint)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/vks/v1/by-fingerprint/"+fingerprint {
			_, _ = w.Write(pub)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	v := NewVerifier(WithKeyservers(server.URL), WithHTTPClient(server.Client()))
	if err := v.ImportKeys(context.Background(), []string{strings.ToLower(fingerprint)}); err != nil {
		t.Fatalf("ImportKeys() error = %v", err)
	}
	if v.KeyringSize() != 1 {
		t.Errorf("KeyringSize() = %d, want 1", v.KeyringSize())
	}

	if err := v.ImportKeys(context.Background(), []string{"0000000000000000"}); err == nil {
		t.Error("ImportKeys() should fail for an unknown key")
	}
}

func TestVerifier_ImportKeyFromFile_NonexistentFile(t *testing.T) {
	v := NewVerifier()

	err := v.ImportKeyFromFile("/nonexistent/key.asc")

	if err == nil {
		t.Fatal("Expected error for nonexistent file, got nil")
	}

	if !strings.Contains(err.Error(), "failed to open key file") {
		t.Errorf("Expected 'failed to open key file' error, got: %v", err)
	}
}

func TestVerifier_ImportKeyFromFile_Invalid(t *testing.T) {
	v := NewVerifier()
	keyPath := filepath.Join(t.TempDir(), "empty.asc")
	if err := os.WriteFile(keyPath, []byte("not a gpg key"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := v.ImportKeyFromFile(keyPath); err == nil {
		t.Fatal("Expected error for invalid key file, got nil")
	}
}

func TestVerifier_NoKeys(t *testing.T) {
	v := NewVerifier()
	if err := v.VerifySignatureFromFile("a", "b"); err == nil {
		t.Error("Expected error with empty keyring")
	}

	v.AddKeys(openpgp.EntityList{newTestEntity(t)})
	v.ClearKeyring()
	if v.KeyringSize() != 0 {
		t.Errorf("KeyringSize() after clear = %d, want 0", v.KeyringSize())
	}
}
