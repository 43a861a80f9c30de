package secrets

import "context"

// Provider defines a generic secrets manager interface.
// Concrete implementations (AWS, in-memory for tests) satisfy this.
type Provider interface {
	// GetSecret retrieves a secret by name and returns its key-value map.
	GetSecret(ctx context.Context, name string) (map[string]string, error)
}
