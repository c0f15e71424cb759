// Package services holds domain services that operate on built packages.
package services

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
)

// BuilderID identifies cauldron as the builder in provenance statements
const BuilderID = "https://github.com/ochairo/cauldron"

// SecurityArtifactsService handles generation of security artifacts
type SecurityArtifactsService struct {
	logger interfaces.Logger
	now    func() time.Time
	newID  func() string
}

// NewSecurityArtifactsService creates a new security artifacts service
func NewSecurityArtifactsService(logger interfaces.Logger) *SecurityArtifactsService {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &SecurityArtifactsService{
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// SecurityArtifacts lists the files written next to a package archive
type SecurityArtifacts struct {
	SHA256Path     string
	SHA512Path     string
	ProvenancePath string
	BuildID        string
}

// BuildInfo describes the build that produced an archive
type BuildInfo struct {
	Manifest  *entities.PackageManifest
	Source    entities.Source
	StartedOn time.Time
}

// GenerateAllArtifacts writes checksums and a provenance statement for a tarball
func (s *SecurityArtifactsService) GenerateAllArtifacts(ctx context.Context, tarballPath string, build BuildInfo) (*SecurityArtifacts, error) {
	artifacts := &SecurityArtifacts{}

	s.logger.Info("generating checksums", interfaces.F("file", filepath.Base(tarballPath)))
	sha256Path, err := s.GenerateSHA256(tarballPath)
	if err != nil {
		return nil, fmt.Errorf("failed to generate SHA256: %w", err)
	}
	artifacts.SHA256Path = sha256Path

	sha512Path, err := s.GenerateSHA512(tarballPath)
	if err != nil {
		return nil, fmt.Errorf("failed to generate SHA512: %w", err)
	}
	artifacts.SHA512Path = sha512Path

	s.logger.Info("generating provenance", interfaces.F("file", filepath.Base(tarballPath)))
	provenancePath, buildID, err := s.GenerateProvenance(ctx, tarballPath, build)
	if err != nil {
		return nil, fmt.Errorf("failed to generate provenance: %w", err)
	}
	artifacts.ProvenancePath = provenancePath
	artifacts.BuildID = buildID

	return artifacts, nil
}

// GenerateSHA256 writes <file>.sha256 in sha256sum format
func (s *SecurityArtifactsService) GenerateSHA256(filePath string) (string, error) {
	return s.writeChecksum(filePath, ".sha256", sha256.New())
}

// GenerateSHA512 writes <file>.sha512 in sha512sum format
func (s *SecurityArtifactsService) GenerateSHA512(filePath string) (string, error) {
	return s.writeChecksum(filePath, ".sha512", sha512.New())
}

func (s *SecurityArtifactsService) writeChecksum(filePath, ext string, h hash.Hash) (string, error) {
	sum, err := computeHash(filePath, h)
	if err != nil {
		return "", err
	}

	checksumPath := filePath + ext
	content := fmt.Sprintf("%s  %s\n", sum, filepath.Base(filePath))
	if err := os.WriteFile(checksumPath, []byte(content), 0600); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", ext, err)
	}
	return checksumPath, nil
}

// Provenance is an in-toto statement with a SLSA v0.2 predicate
type Provenance struct {
	Type          string              `json:"_type"`
	Subject       []ProvenanceSubject `json:"subject"`
	PredicateType string              `json:"predicateType"`
	Predicate     ProvenancePredicate `json:"predicate"`
}

// ProvenanceSubject is the archive the statement is about
type ProvenanceSubject struct {
	Name   string            `json:"name"`
	Size   int64             `json:"size"`
	Digest map[string]string `json:"digest"`
}

// ProvenancePredicate describes how the subject was built
type ProvenancePredicate struct {
	Builder    map[string]string    `json:"builder"`
	BuildType  string               `json:"buildType"`
	Invocation ProvenanceInvocation `json:"invocation"`
	Metadata   ProvenanceMetadata   `json:"metadata"`
	Materials  []ProvenanceMaterial `json:"materials"`
}

// ProvenanceInvocation records the recipe and configuration of the build
type ProvenanceInvocation struct {
	ConfigSource map[string]string `json:"configSource"`
	Parameters   map[string]string `json:"parameters"`
}

// ProvenanceMetadata holds timestamps and the build invocation ID
type ProvenanceMetadata struct {
	BuildInvocationID string `json:"buildInvocationId"`
	BuildStartedOn    string `json:"buildStartedOn"`
	BuildFinishedOn   string `json:"buildFinishedOn"`
	Reproducible      bool   `json:"reproducible"`
}

// ProvenanceMaterial is an input of the build
type ProvenanceMaterial struct {
	URI    string            `json:"uri"`
	Digest map[string]string `json:"digest,omitempty"`
}

// GenerateProvenance writes <file>.provenance.json and returns its path and
// the generated build invocation ID
func (s *SecurityArtifactsService) GenerateProvenance(_ context.Context, filePath string, build BuildInfo) (string, string, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return "", "", err
	}
	sha256Sum, err := computeHash(filePath, sha256.New())
	if err != nil {
		return "", "", err
	}
	sha512Sum, err := computeHash(filePath, sha512.New())
	if err != nil {
		return "", "", err
	}

	finished := s.now().UTC()
	started := build.StartedOn.UTC()
	if build.StartedOn.IsZero() {
		started = finished
	}

	buildID := s.newID()
	statement := Provenance{
		Type: "https://in-toto.io/Statement/v0.1",
		Subject: []ProvenanceSubject{{
			Name:   filepath.Base(filePath),
			Size:   fileInfo.Size(),
			Digest: map[string]string{"sha256": sha256Sum, "sha512": sha512Sum},
		}},
		PredicateType: "https://slsa.dev/provenance/v0.2",
		Predicate: ProvenancePredicate{
			Builder:   map[string]string{"id": BuilderID},
			BuildType: BuilderID + "/recipe@v1",
			Metadata: ProvenanceMetadata{
				BuildInvocationID: buildID,
				BuildStartedOn:    started.Format(time.RFC3339),
				BuildFinishedOn:   finished.Format(time.RFC3339),
			},
			Materials: materials(build.Source),
		},
	}

	if m := build.Manifest; m != nil {
		statement.Predicate.Invocation = ProvenanceInvocation{
			ConfigSource: map[string]string{
				"recipe":     m.Name,
				"version":    m.Version,
				"package_id": m.PackageID,
			},
			Parameters: parameters(m),
		}
	}

	data, err := json.MarshalIndent(statement, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal provenance: %w", err)
	}

	provenancePath := filePath + ".provenance.json"
	if err := os.WriteFile(provenancePath, data, 0600); err != nil {
		return "", "", fmt.Errorf("failed to write provenance file: %w", err)
	}
	return provenancePath, buildID, nil
}

func materials(src entities.Source) []ProvenanceMaterial {
	switch {
	case src.Git != "":
		uri := "git+" + src.Git
		if src.Ref != "" {
			uri += "@" + src.Ref
		}
		return []ProvenanceMaterial{{URI: uri}}
	case src.URL != "":
		m := ProvenanceMaterial{URI: src.URL}
		if src.SHA256 != "" {
			m.Digest = map[string]string{"sha256": src.SHA256}
		}
		return []ProvenanceMaterial{m}
	}
	return []ProvenanceMaterial{}
}

// parameters flattens settings and options into "settings.<k>"/"options.<k>"
func parameters(m *entities.PackageManifest) map[string]string {
	params := make(map[string]string, len(m.Settings)+len(m.Options))
	for k, v := range m.Settings {
		params["settings."+k] = v
	}
	for k, v := range m.Options {
		params["options."+k] = v
	}
	return params
}

func computeHash(filePath string, h hash.Hash) (string, error) {
	//nolint:gosec // G304: filePath is function parameter for checksum generation
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
