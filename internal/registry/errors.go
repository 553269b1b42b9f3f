package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownGroup matches any UnknownGroupError via errors.Is.
	ErrUnknownGroup = errors.New("unknown settings group")
	// ErrInvalidGroupName is returned for group names that are empty after normalisation.
	ErrInvalidGroupName = errors.New("settings group name must not be empty")
)

// UnknownGroupError reports an operation on a group that was never registered.
type UnknownGroupError struct {
	Name string
}

func (e *UnknownGroupError) Error() string {
	return fmt.Sprintf("%s %q", ErrUnknownGroup, e.Name)
}

func (e *UnknownGroupError) Is(target error) bool {
	return target == ErrUnknownGroup
}
