// Package gpg verifies detached OpenPGP signatures of source archives.
package gpg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
)

const (
	maxKeysSize      = 10 * 1024 * 1024
	maxSignatureSize = 10 * 1024
	armorPrefix      = "-----BEGIN PGP SIGNATURE-----"
)

// DefaultKeyservers are queried in order when importing keys by ID
var DefaultKeyservers = []string{
	"https://keys.openpgp.org",
	"https://keyserver.ubuntu.com",
}

// Verifier holds an in-memory keyring and checks signatures against it
type Verifier struct {
	keyring    openpgp.EntityList
	keyservers []string
	httpClient *http.Client
}

// Option configures a Verifier
type Option func(*Verifier)

// WithKeyservers replaces the keyservers used by ImportKeys
func WithKeyservers(servers ...string) Option {
	return func(v *Verifier) { v.keyservers = servers }
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) { v.httpClient = c }
}

// NewVerifier creates a new GPG verifier
func NewVerifier(opts ...Option) *Verifier {
	v := &Verifier{
		keyring:    make(openpgp.EntityList, 0),
		keyservers: DefaultKeyservers,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ImportKeys imports keys by fingerprint or long key ID, trying each keyserver
func (v *Verifier) ImportKeys(ctx context.Context, keyIDs []string) error {
	if len(keyIDs) == 0 {
		return fmt.Errorf("no key IDs provided")
	}

	for _, keyID := range keyIDs {
		if keyID == "" {
			continue
		}
		if err := v.importKey(ctx, strings.ToUpper(keyID)); err != nil {
			return err
		}
	}
	return nil
}

func (v *Verifier) importKey(ctx context.Context, keyID string) error {
	var lastErr error
	for _, server := range v.keyservers {
		urls := []string{
			fmt.Sprintf("%s/vks/v1/by-fingerprint/%s", server, keyID),
			fmt.Sprintf("%s/pks/lookup?op=get&search=0x%s", server, keyID),
		}
		for _, url := range urls {
			data, err := v.fetch(ctx, url, maxKeysSize)
			if err != nil {
				lastErr = err
				continue
			}
			keys, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
			if err != nil {
				lastErr = err
				continue
			}
			// A keyserver may answer with unrelated keys
			if !containsKey(keys, keyID) {
				lastErr = fmt.Errorf("no keys found matching fingerprint %s", keyID)
				continue
			}
			v.keyring = append(v.keyring, keys...)
			return nil
		}
	}
	return fmt.Errorf("failed to import key %s from all keyservers: %w", keyID, lastErr)
}

func containsKey(keys openpgp.EntityList, keyID string) bool {
	for _, entity := range keys {
		fingerprint := fmt.Sprintf("%X", entity.PrimaryKey.Fingerprint)
		if fingerprint == keyID || (len(keyID) >= 16 && strings.HasSuffix(fingerprint, keyID)) {
			return true
		}
	}
	return false
}

// ImportKeysFromURL imports every key of an armored KEYS file
func (v *Verifier) ImportKeysFromURL(ctx context.Context, keysURL string) error {
	data, err := v.fetch(ctx, keysURL, maxKeysSize)
	if err != nil {
		return fmt.Errorf("failed to download KEYS file: %w", err)
	}
	return v.importArmored(bytes.NewReader(data))
}

// ImportKeyFromFile imports an armored or binary key file
func (v *Verifier) ImportKeyFromFile(keyPath string) error {
	//nolint:gosec // G304: keyPath is user-provided for GPG key import
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("failed to open key file: %w", err)
	}

	keys, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		keys, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
	}
	if len(keys) == 0 {
		return fmt.Errorf("no keys found in file")
	}

	v.keyring = append(v.keyring, keys...)
	return nil
}

func (v *Verifier) importArmored(r io.Reader) error {
	keys, err := openpgp.ReadArmoredKeyRing(r)
	if err != nil {
		return fmt.Errorf("failed to parse KEYS file: %w", err)
	}
	if len(keys) == 0 {
		return fmt.Errorf("no keys found in KEYS file")
	}
	v.keyring = append(v.keyring, keys...)
	return nil
}

// VerifySignature downloads a detached signature and checks filePath against it
func (v *Verifier) VerifySignature(ctx context.Context, filePath, sigURL string) error {
	if len(v.keyring) == 0 {
		return fmt.Errorf("no GPG keys imported, call ImportKeys first")
	}

	sig, err := v.fetch(ctx, sigURL, maxSignatureSize)
	if err != nil {
		return fmt.Errorf("failed to download signature: %w", err)
	}
	return v.check(filePath, sig)
}

// VerifySignatureFromFile checks filePath against a local detached signature
func (v *Verifier) VerifySignatureFromFile(filePath, sigPath string) error {
	if len(v.keyring) == 0 {
		return fmt.Errorf("no GPG keys imported, call ImportKeys first")
	}

	//nolint:gosec // G304: sigPath is user-provided for GPG verification
	sig, err := os.ReadFile(sigPath)
	if err != nil {
		return fmt.Errorf("failed to open signature file: %w", err)
	}
	return v.check(filePath, sig)
}

func (v *Verifier) check(filePath string, sig []byte) error {
	if len(sig) < 10 {
		return fmt.Errorf("signature file too small to be valid GPG signature")
	}

	//nolint:gosec // G304: filePath is the downloaded archive
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	if bytes.HasPrefix(sig, []byte(armorPrefix)) {
		_, err = openpgp.CheckArmoredDetachedSignature(v.keyring, f, bytes.NewReader(sig), nil)
	} else {
		_, err = openpgp.CheckDetachedSignature(v.keyring, f, bytes.NewReader(sig), nil)
	}
	if err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}
	return nil
}

func (v *Verifier) fetch(ctx context.Context, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck // Defer close
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty response")
	}
	return data, nil
}

// KeyringSize returns the number of keys in the keyring
func (v *Verifier) KeyringSize() int {
	return len(v.keyring)
}

// AddKeys appends already-parsed keys to the keyring
func (v *Verifier) AddKeys(keys openpgp.EntityList) {
	v.keyring = append(v.keyring, keys...)
}

// ClearKeyring clears all imported keys
func (v *Verifier) ClearKeyring() {
	v.keyring = make(openpgp.EntityList, 0)
}
