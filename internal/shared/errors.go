package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Upstream errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrQuotaExceeded      = fmt.Errorf("quota exceeded")
	ErrInvalidKey         = fmt.Errorf("invalid API key")
	ErrNotFound           = fmt.Errorf("not found")
	ErrExtractionFailed   = fmt.Errorf("extraction failed")
	ErrTimeout            = fmt.Errorf("operation timed out")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Workflow errors
	ErrPlaylistSync = fmt.Errorf("playlist manipulation failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// Kind classifies an [Error] for callers that only need a coarse outcome.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation is a missing or empty required parameter.
	KindValidation
	// KindUpstream is a search, listing, extraction or stream resolution failure.
	KindUpstream
	// KindStore is a store connectivity or constraint failure.
	KindStore
	// KindNotFound is an empty upstream result set.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUpstream:
		return "upstream"
	case KindStore:
		return "store"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error carries a [Kind] and the operation that failed alongside the underlying error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation wraps [ErrMissingArgument] for the named parameter.
func Validation(op, param string) error {
	return &Error{Kind: KindValidation, Op: op, Err: fmt.Errorf("%w: %s", ErrMissingArgument, param)}
}

// Upstream marks err as an upstream collaborator failure.
func Upstream(op string, err error) error {
	return wrap(KindUpstream, op, err)
}

// Store marks err as a store failure.
func Store(op string, err error) error {
	return wrap(KindStore, op, err)
}

// NotFound marks an empty upstream result for op.
func NotFound(op, what string) error {
	return &Error{Kind: KindNotFound, Op: op, Err: fmt.Errorf("%w: %s", ErrNotFound, what)}
}

func wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.Kind == kind {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the [Kind] of the outermost [Error] in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
