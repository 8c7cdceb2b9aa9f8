package secrets

import (
	"context"
	"errors"
)

// ErrSecretNotFound is wrapped by providers when the named secret does not exist.
var ErrSecretNotFound = errors.New("secret not found")

// Provider defines a generic secrets manager interface.
// The AWS implementation lives in aws_sm.go; tests substitute in-memory fakes.
type Provider interface {
	// GetSecret retrieves a secret by name and returns its JSON object as a key-value map.
	GetSecret(ctx context.Context, name string) (map[string]string, error)

	// ListSecrets returns the names of all secrets whose name matches the given prefix.
	ListSecrets(ctx context.Context, prefix string) ([]string, error)
}
