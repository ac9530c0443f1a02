package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrUnsupportedSite is wrapped by ConfigurationError when a site name is unknown.
var ErrUnsupportedSite = errors.New("unsupported site")

// ErrNoPosting is returned by adapters when a detail page holds no usable posting.
var ErrNoPosting = errors.New("no posting extracted")

// TransientNetworkError wraps timeouts, 5xx responses and connection resets.
type TransientNetworkError struct {
	URL    string
	Status int
	Err    error
}

func (e *TransientNetworkError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("transient failure fetching %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("transient failure fetching %s: %v", e.URL, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// BlockedError signals that the board refused the session (HTTP 403 or a bot challenge).
type BlockedError struct {
	URL    string
	Status int
	Reason string
}

func (e *BlockedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("blocked fetching %s: %s", e.URL, e.Reason)
	}
	return fmt.Sprintf("blocked fetching %s: status %d", e.URL, e.Status)
}

// ExtractionGap marks a field whose selectors all came back empty.
type ExtractionGap struct {
	Field string
}

func (e *ExtractionGap) Error() string {
	return fmt.Sprintf("no value extracted for %s", e.Field)
}

// SuspiciousContentDetected flags a posting whose body is not plain text.
type SuspiciousContentDetected struct {
	URL  string
	Kind string
}

func (e *SuspiciousContentDetected) Error() string {
	return fmt.Sprintf("suspicious content (%s) at %s", e.Kind, e.URL)
}

// PersistenceConflict is a duplicate unique key. Callers treat it as a duplicate, not a failure.
type PersistenceConflict struct {
	Key string
	Err error
}

func (e *PersistenceConflict) Error() string {
	return fmt.Sprintf("duplicate key %s", e.Key)
}

func (e *PersistenceConflict) Unwrap() error { return e.Err }

// ConfigurationError is fatal and must stop a run before any network activity.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil && !errors.Is(e.Err, ErrUnsupportedSite) {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// IsBlocked reports whether err carries a BlockedError.
func IsBlocked(err error) bool {
	var blocked *BlockedError
	return errors.As(err, &blocked)
}

// IsConflict reports whether err carries a PersistenceConflict.
func IsConflict(err error) bool {
	var conflict *PersistenceConflict
	return errors.As(err, &conflict)
}

// IsConfiguration reports whether err carries a ConfigurationError.
func IsConfiguration(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// IsRetryable decides whether another attempt could succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if IsBlocked(err) {
		return true
	}
	var transient *TransientNetworkError
	if errors.As(err, &transient) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
