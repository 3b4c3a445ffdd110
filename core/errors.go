package core

import (
	"errors"
	"fmt"
)

var ErrNoCredentials = errors.New("no oauth client credentials found")

// FileNotFound is returned when a local file that should exist does not.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// UnsafeNameError is returned for a file name that would resolve outside
// the sync directory.
type UnsafeNameError struct {
	Name string
}

func (err UnsafeNameError) Error() string {
	return fmt.Sprintf("refusing to sync file with unsafe name %q", err.Name)
}

// AuthError wraps a failure during authorization. Op names the step that
// failed, e.g. "read client secret" or "exchange code".
type AuthError struct {
	Op  string
	Err error
}

func (err *AuthError) Error() string {
	return fmt.Sprintf("authorization failed: %s: %v", err.Op, err.Err)
}

func (err *AuthError) Unwrap() error {
	return err.Err
}
