package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a record for the given id does not
// exist. Pipeline stages treat it as an expected condition, not a failure.
var ErrNotFound = errors.New("record not found")

// UnsupportedProviderError is returned by the model gateway when the
// configured provider has no registered adapter. It is raised before any
// network call is made.
type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported model provider: %q", e.Provider)
}

// OutputParseError reports a structured-output model response that did not
// decode to the declared shape. Raw holds the verbatim model text so callers
// can log it; it is never shown to the end user.
type OutputParseError struct {
	Raw string
	Err error
}

func (e *OutputParseError) Error() string {
	return fmt.Sprintf("parse structured model output: %v", e.Err)
}

func (e *OutputParseError) Unwrap() error { return e.Err }

// NotFoundError reports an absent action or conversation referenced by name
// rather than id.
type NotFoundError struct {
	Kind string // "action", "conversation", ...
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// RemoteCallError reports a transport-level failure against a webhook or
// model provider endpoint.
type RemoteCallError struct {
	Endpoint string
	Status   int // zero when the call never reached the remote
	Err      error
}

func (e *RemoteCallError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote call to %s failed with status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("remote call to %s failed: %v", e.Endpoint, e.Err)
}

func (e *RemoteCallError) Unwrap() error { return e.Err }

// ConfigurationError reports missing or invalid required settings, surfaced
// at construction time rather than on first use.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
