package receipt

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when an extraction is already running for the session
var ErrBusy = errors.New("an extraction is already in progress")

// UploadError wraps a storage failure during extraction
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("uploading %s: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// ExtractionError wraps an AI completion failure during extraction
type ExtractionError struct {
	ImageURL string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting receipt from %s: %v", e.ImageURL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ChatError wraps an AI completion failure while answering a question
type ChatError struct {
	Err error
}

func (e *ChatError) Error() string {
	return fmt.Sprintf("answering question: %v", e.Err)
}

func (e *ChatError) Unwrap() error { return e.Err }

// PersistenceWarning wraps a failed best-effort save. It is logged, never returned to callers.
type PersistenceWarning struct {
	Err error
}

func (e *PersistenceWarning) Error() string {
	return fmt.Sprintf("persisting receipt: %v", e.Err)
}

func (e *PersistenceWarning) Unwrap() error { return e.Err }
