package source

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrUnsupportedSource matches any UnsupportedSourceError via errors.Is.
var ErrUnsupportedSource = errors.New("unsupported source kind")

// SourceError reports a source that exists but could not be read or parsed.
type SourceError struct {
	Locator string
	Err     error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("problem parsing settings source %s: %v", e.Locator, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// UnsupportedSourceError reports a descriptor whose kind has no resolver.
type UnsupportedSourceError struct {
	Kind Kind
}

func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnsupportedSource, string(e.Kind))
}

func (e *UnsupportedSourceError) Is(target error) bool {
	return target == ErrUnsupportedSource
}

// IsNotFound reports whether err means the source locator does not exist.
// Resolvers return such errors verbatim, so callers can tell a missing file
// apart from a malformed one.
func IsNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
