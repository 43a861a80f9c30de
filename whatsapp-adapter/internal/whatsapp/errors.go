package whatsapp

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports a missing credential or catalog id. Raised before any network call.
	ErrConfiguration = errors.New("configuration error")
	// ErrUpstreamUnavailable reports a failed read against the Graph API.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrCatalogTruncated reports a product listing that stopped before its last page.
	ErrCatalogTruncated = errors.New("catalog listing truncated")
	// ErrUpstreamRejected reports a catalog write refused by the Graph API.
	ErrUpstreamRejected = errors.New("upstream rejected")
	// ErrSyncInProgress reports a catalog sync started while another one is running.
	ErrSyncInProgress = errors.New("catalog sync already in progress")
	// ErrDeliveryFailed reports a message send refused by the Graph API.
	ErrDeliveryFailed = errors.New("delivery failed")
	// ErrMalformedInboundEvent reports a webhook body that does not match the expected shape.
	ErrMalformedInboundEvent = errors.New("malformed inbound event")
	// ErrVerificationFailed reports a rejected subscription handshake.
	ErrVerificationFailed = errors.New("verification failed")
)

// ConfigError names the setting that was missing.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s is not configured", e.Field)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// InvalidProductError reports a catalog write rejected locally before any network call.
type InvalidProductError struct {
	Reason string
}

func (e *InvalidProductError) Error() string { return "invalid product: " + e.Reason }

// UpstreamError carries the Graph API status and body verbatim.
// Status is 0 when the request never produced a response.
type UpstreamError struct {
	Kind   error
	Op     string
	Status int
	Body   string
	Graph  *GraphErrorDetail
	Err    error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Graph != nil && e.Graph.Message != "":
		return fmt.Sprintf("%s: %s returned %d: %s", e.Kind, e.Op, e.Status, e.Graph.Message)
	default:
		return fmt.Sprintf("%s: %s returned %d: %s", e.Kind, e.Op, e.Status, e.Body)
	}
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// MalformedEventError describes why a webhook body could not be parsed.
type MalformedEventError struct {
	Reason string
	Err    error
}

func (e *MalformedEventError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrMalformedInboundEvent, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedInboundEvent, e.Reason)
}

func (e *MalformedEventError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedInboundEvent, e.Err}
	}
	return []error{ErrMalformedInboundEvent}
}

func malformed(reason string, err error) error {
	return &MalformedEventError{Reason: reason, Err: err}
}
