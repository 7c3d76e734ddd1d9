// Package secrets resolves AI provider credentials from the process
// environment.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fluxion-io/fluxion/pkg/models"
)

// EnvStore resolves AI configs from environment variables. A config id
// "default" maps to AI_DEFAULT_PROVIDER, AI_DEFAULT_MODEL,
// AI_DEFAULT_API_KEY and AI_DEFAULT_BASE_URL.
type EnvStore struct{}

func NewEnvStore() *EnvStore {
	return &EnvStore{}
}

func (s *EnvStore) ResolveAIConfig(_ context.Context, configID string) (*models.AIConfig, error) {
	prefix := "AI_" + envKey(configID) + "_"

	apiKey := os.Getenv(prefix + "API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ai config %q: %s not set", configID, prefix+"API_KEY")
	}

	return &models.AIConfig{
		ID:       configID,
		Provider: os.Getenv(prefix + "PROVIDER"),
		Model:    os.Getenv(prefix + "MODEL"),
		APIKey:   apiKey,
		BaseURL:  os.Getenv(prefix + "BASE_URL"),
	}, nil
}

func envKey(id string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 32
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, id)

	return mapped
}
