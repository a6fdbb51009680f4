package upload

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var (
	// ErrMissingOwner indicates the upload carried no user identity.
	ErrMissingOwner = errors.New("user_id is required")

	// ErrDisallowedType indicates the file extension is not on the
	// allow-list.
	ErrDisallowedType = errors.New("file type is not allowed")

	// ErrTooLarge indicates the payload exceeds the size ceiling.
	ErrTooLarge = errors.New("file exceeds the maximum upload size")
)

// Validator rejects unsafe or oversized uploads before any bytes are
// persisted. Checks run in order and short-circuit on first failure:
// identity, extension allow-list, size ceiling.
type Validator struct {
	maxSize int64
	allowed map[string]struct{}
}

// NewValidator builds a validator with the given size ceiling in bytes
// and extension allow-list (extensions without the leading dot,
// matched case-insensitively).
func NewValidator(maxSize int64, extensions []string) *Validator {
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &Validator{maxSize: maxSize, allowed: allowed}
}

// Validate checks the upload and leaves src positioned at the start.
// The size is measured by seeking to the end and back rather than
// buffering the payload.
func (v *Validator) Validate(ownerID, filename string, src io.Seeker) error {
	if strings.TrimSpace(ownerID) == "" {
		return ErrMissingOwner
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return ErrDisallowedType
	}
	if _, ok := v.allowed[ext]; !ok {
		return fmt.Errorf("%w: .%s", ErrDisallowedType, ext)
	}

	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("failed to measure upload size: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind upload: %w", err)
	}
	if size > v.maxSize {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, size, v.maxSize)
	}

	return nil
}
