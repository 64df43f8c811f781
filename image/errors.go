package image

import (
	"fmt"

	"github.com/pkg/errors"
)

// Build error kinds.
var (
	ErrAlreadyExists = errors.New("disk image already exists")
	ErrAllocation    = errors.New("cannot allocate disk image")
	ErrWrite         = errors.New("cannot write disk image")
)

// Verify error kinds.
var (
	ErrNotFound            = errors.New("disk image not found")
	ErrUnreadable          = errors.New("disk image cannot be read")
	ErrModeMismatch        = errors.New("disk image has wrong permissions")
	ErrTruncatedSuperblock = errors.New("disk image superblock is truncated")
	ErrBadMagic            = errors.New("disk image has bad magic")
	ErrSizeMismatch        = errors.New("disk image size does not match its superblock")
)

// BuildError reports why Create did not produce an image at Path. When it
// is returned, nothing exists at Path that was not there before.
type BuildError struct {
	Path string
	Kind error
	Err  error
}

func (e *BuildError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("create %s: %v", e.Path, e.Kind)
	}
	return fmt.Sprintf("create %s: %v: %v", e.Path, e.Kind, e.Err)
}

func (e *BuildError) Is(target error) bool {
	return target == e.Kind
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

func buildErr(path string, kind error, err error) error {
	return &BuildError{Path: path, Kind: kind, Err: err}
}

// VerifyError reports why the image at Path must not be used.
type VerifyError struct {
	Path string
	Kind error
	Err  error
}

func (e *VerifyError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("verify %s: %v", e.Path, e.Kind)
	}
	return fmt.Sprintf("verify %s: %v: %v", e.Path, e.Kind, e.Err)
}

func (e *VerifyError) Is(target error) bool {
	return target == e.Kind
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

func verifyErr(path string, kind error, err error) error {
	return &VerifyError{Path: path, Kind: kind, Err: err}
}
