package entities

import (
	"crypto/sha1" //nolint:gosec // G505: package IDs are SHA-1 by convention
	"encoding/hex"
	"fmt"
	"io"
	"sort"
)

// PackageManifest is the metadata exported alongside a built package
type PackageManifest struct {
	Name          string
	Version       string
	PackageID     string
	License       string
	Settings      map[string]string
	Options       map[string]string
	Requires      []Requirement
	BuildRequires []Requirement
	CppInfo       *CppInfo
}

// PackageID returns the SHA-1 hex digest identifying a binary configuration.
// Keys are sorted so the ID does not depend on declaration order.
func PackageID(settings, options map[string]string) string {
	h := sha1.New() //nolint:gosec // G401: identifier, not a security boundary
	writeSection(h, "settings", settings)
	writeSection(h, "options", options)
	return hex.EncodeToString(h.Sum(nil))
}

func writeSection(w io.Writer, name string, values map[string]string) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	_, _ = fmt.Fprintf(w, "[%s]\n", name)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "%s=%s\n", k, values[k])
	}
}
