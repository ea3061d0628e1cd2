package curriculum

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by a ResourceStore when a resource does not exist.
var ErrNotFound = errors.New("resource not found")

// ErrorKind classifies loader failures.
type ErrorKind string

const (
	// MissingResource means a required resource is absent.
	MissingResource ErrorKind = "missing_resource"
	// MalformedResource means a resource exists but does not decode or validate.
	MalformedResource ErrorKind = "malformed_resource"
)

// ResourceError identifies the resource that made a load fail.
type ResourceError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	switch e.Kind {
	case MissingResource:
		return fmt.Sprintf("missing resource %s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("malformed resource %s: %v", e.Path, e.Err)
	}
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// IsMissing reports whether err is a MissingResource failure.
func IsMissing(err error) bool {
	var re *ResourceError
	return errors.As(err, &re) && re.Kind == MissingResource
}

// IsMalformed reports whether err is a MalformedResource failure.
func IsMalformed(err error) bool {
	var re *ResourceError
	return errors.As(err, &re) && re.Kind == MalformedResource
}

func missing(path string, err error) error {
	return &ResourceError{Kind: MissingResource, Path: path, Err: err}
}

func malformed(path string, err error) error {
	return &ResourceError{Kind: MalformedResource, Path: path, Err: err}
}
