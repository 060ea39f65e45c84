package receipt

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/zombor/receipt-insights/internal/scanning"
)

// IsImage reports whether a declared media type is an image type
func IsImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// Intake applies the intake rules to an upload and hands accepted files to Analyze.
// Non-image files and uploads arriving while an extraction runs are ignored:
// accepted is false and no error is reported.
func (s *Service) Intake(ctx context.Context, session *Session, upload FileUpload) (record *scanning.ReceiptRecord, accepted bool, err error) {
	if !IsImage(upload.ContentType) {
		slog.Debug("Ignoring non-image upload", "filename", upload.Filename, "content_type", upload.ContentType)
		return nil, false, nil
	}

	record, err = s.Analyze(ctx, session, upload)
	if errors.Is(err, ErrBusy) {
		slog.Debug("Ignoring upload while analyzing", "filename", upload.Filename, "user", session.UserID())
		return nil, false, nil
	}
	return record, true, err
}
