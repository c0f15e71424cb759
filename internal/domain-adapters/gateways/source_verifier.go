package gateways

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/external-adapters/gpg"
)

// SourceVerifier verifies archives by SHA-256 and, when the source lists a
// signature, by detached GPG signature
type SourceVerifier struct {
	keyring *gpg.Verifier
}

// NewSourceVerifier creates a verifier importing signing keys into keyring.
// A nil keyring starts empty.
func NewSourceVerifier(keyring *gpg.Verifier) *SourceVerifier {
	if keyring == nil {
		keyring = gpg.NewVerifier()
	}
	return &SourceVerifier{keyring: keyring}
}

// VerifySource checks the checksum first; the signature is only fetched for
// archives whose checksum matches
func (v *SourceVerifier) VerifySource(ctx context.Context, archivePath string, src entities.Source) error {
	if err := VerifySHA256(archivePath, src.SHA256); err != nil {
		return fmt.Errorf("checksum verification failed: %w", err)
	}
	if src.SignatureURL == "" {
		return nil
	}

	if src.GPGKeysURL != "" {
		if err := v.keyring.ImportKeysFromURL(ctx, src.GPGKeysURL); err != nil {
			return fmt.Errorf("failed to import GPG keys from URL: %w", err)
		}
	}
	if len(src.GPGKeyIDs) > 0 {
		if err := v.keyring.ImportKeys(ctx, src.GPGKeyIDs); err != nil {
			return fmt.Errorf("failed to import GPG keys: %w", err)
		}
	}
	if err := v.keyring.VerifySignature(ctx, archivePath, src.SignatureURL); err != nil {
		return fmt.Errorf("GPG signature verification failed: %w", err)
	}
	return nil
}

// VerifySHA256 compares a file's SHA-256 against expected. The expected sum
// may carry a "sha256:" prefix and is compared case-insensitively.
func VerifySHA256(filePath, expected string) error {
	expected = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(expected), "sha256:"))
	if expected == "" {
		return fmt.Errorf("no checksum provided for %s", filePath)
	}

	actual, err := SHA256File(filePath)
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}

// SHA256File returns the hex SHA-256 of a file
func SHA256File(filePath string) (string, error) {
	//nolint:gosec // G304: filePath is the downloaded archive
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
