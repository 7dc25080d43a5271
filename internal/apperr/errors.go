// Package apperr defines the error kinds shared by every store component.
//
// Components wrap a kind together with the underlying cause, e.g.
//
//	fmt.Errorf("%w: read %s: %w", apperr.ErrIO, path, err)
//
// so callers can match the kind with errors.Is and still reach the OS error.
package apperr

import "errors"

var (
	// ErrMalformed reports a document file that violates the frontmatter format.
	ErrMalformed = errors.New("malformed document")
	// ErrNotFound reports an identifier that does not resolve to any document.
	ErrNotFound = errors.New("not found")
	// ErrIO reports a filesystem read, write, rename or create failure.
	ErrIO = errors.New("io failure")
	// ErrInvalidInput reports caller input that cannot be acted on.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict reports an If-Match checksum that no longer matches the file.
	ErrConflict = errors.New("conflict")
	// ErrUnsupported reports a host capability that is not available.
	ErrUnsupported = errors.New("unsupported")
)
