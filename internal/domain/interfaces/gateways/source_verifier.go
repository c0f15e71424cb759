// Package gateways defines interfaces for external service adapters.
package gateways

import (
	"context"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// SourceVerifier checks a downloaded archive against its sources entry
// before it is extracted
type SourceVerifier interface {
	VerifySource(ctx context.Context, archivePath string, src entities.Source) error
}
