package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fluxion-io/fluxion/pkg/persistence"
	"github.com/fluxion-io/fluxion/pkg/persistence/file"
	"github.com/fluxion-io/fluxion/pkg/persistence/memory"
	"github.com/fluxion-io/fluxion/pkg/persistence/postgresql"
)

// NewPersistence creates a persistence backend from the database URL
// scheme: postgres://, memory:// or a file path (file:// optional).
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres persistence: %w", err)
		}

		return p, nil
	case "memory":
		return memory.NewPersistence(), nil
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parseProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
