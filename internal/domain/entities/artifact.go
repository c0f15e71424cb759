// Package entities defines core domain models and data structures.
package entities

// Artifact represents a file or directory produced or consumed by a build
type Artifact struct {
	Name      string
	Version   string
	PackageID string
	Path      string
	Type      string // "source", "package", "archive"
}
