package whatsapp

import (
	"context"
	"strings"
)

// Credentials authenticate Graph API calls.
type Credentials struct {
	AccessToken   string
	PhoneNumberID string
	CatalogID     string
}

// CredentialSource supplies credentials at call time so rotated tokens are
// picked up without a restart.
type CredentialSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticCredentials serves fixed credentials loaded at startup.
type StaticCredentials Credentials

func (s StaticCredentials) Credentials(context.Context) (Credentials, error) {
	return Credentials(s), nil
}

// ResolvedCredentials adapts a secret resolver. Invalidate is called after the
// Graph API rejects the token so the next call refetches it.
type ResolvedCredentials struct {
	Resolve func(ctx context.Context) (Credentials, error)
	Bust    func()
}

func (r ResolvedCredentials) Credentials(ctx context.Context) (Credentials, error) {
	return r.Resolve(ctx)
}

func (r ResolvedCredentials) Invalidate() {
	if r.Bust != nil {
		r.Bust()
	}
}

// ParseCredentials returns a secret parser that reads access_token,
// phone_number_id and catalog_id, keeping fallback values for absent keys.
func ParseCredentials(fallback Credentials) func(map[string]string) (Credentials, error) {
	return func(m map[string]string) (Credentials, error) {
		c := fallback
		if v := strings.TrimSpace(m["access_token"]); v != "" {
			c.AccessToken = v
		}
		if v := strings.TrimSpace(m["phone_number_id"]); v != "" {
			c.PhoneNumberID = v
		}
		if v := strings.TrimSpace(m["catalog_id"]); v != "" {
			c.CatalogID = v
		}
		if c.AccessToken == "" {
			return Credentials{}, &ConfigError{Field: "access_token"}
		}
		return c, nil
	}
}
