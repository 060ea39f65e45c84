package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-insights/internal/scanning"
)

// uploadPrefix is the storage folder receipts are uploaded under
const uploadPrefix = "receipts/"

// defaultPersistTimeout bounds the best-effort save after an extraction
const defaultPersistTimeout = 10 * time.Second

// IDGenerator generates unique IDs for stored receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles receipt operations
type Service struct {
	db          DB
	completer   scanning.Completer
	storage     Storage
	notifier    Notifier
	chat        *ChatBridge
	idGenerator IDGenerator
	timeSource  TimeSource

	persistTimeout time.Duration
}

// NewService creates a new Service with default ID generator, time source and notifier
func NewService(db DB, completer scanning.Completer, storage Storage) *Service {
	return NewServiceWithDeps(db, completer, storage, SessionNotifier{}, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, completer scanning.Completer, storage Storage, notifier Notifier, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		completer:   completer,
		storage:     storage,
		notifier:    notifier,
		chat:        NewChatBridge(completer),
		idGenerator: idGen,
		timeSource:  timeSrc,

		persistTimeout: defaultPersistTimeout,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
	safeExtension       = regexp.MustCompile(`^\.[a-z0-9]{1,5}$`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "receipt"
	}
	if !safeExtension.MatchString(ext) {
		ext = ""
	}

	return base + ext
}

// Analyze uploads a receipt image, extracts it with the AI collaborator,
// normalizes the reply and publishes the record to the session.
// The record is persisted on a best-effort basis once the session is idle again.
func (s *Service) Analyze(ctx context.Context, session *Session, upload FileUpload) (*scanning.ReceiptRecord, error) {
	record, imageURL, err := s.analyze(ctx, session, upload)
	if err != nil {
		return nil, err
	}

	s.persist(ctx, session.UserID(), record, imageURL)
	return record, nil
}

// analyze runs the extraction while the session is marked as analyzing
func (s *Service) analyze(ctx context.Context, session *Session, upload FileUpload) (*scanning.ReceiptRecord, string, error) {
	if !session.Begin(upload.Filename) {
		return nil, "", ErrBusy
	}
	defer session.End()

	record, imageURL, err := s.extract(ctx, session.UserID(), upload)
	if err != nil {
		s.logFailure(upload, err)
		s.notifier.Notify(session, Notification{
			Title:       "Analysis failed",
			Description: "We couldn't read that receipt. Please try again with a clearer photo.",
			Destructive: true,
		})
		return nil, "", err
	}

	session.Replace(record)
	s.notifier.Notify(session, Notification{
		Title:       "Receipt analyzed",
		Description: fmt.Sprintf("Extracted %d items from %s", len(record.Items), record.Merchant),
	})
	return record, imageURL, nil
}

// uploadPath places an upload under its owner's folder so users never share objects
func uploadPath(userID, filename string) string {
	return uploadPrefix + url.PathEscape(userID) + "/" + sanitizeFilename(filename)
}

// extract runs upload, completion and normalization strictly in sequence
func (s *Service) extract(ctx context.Context, userID string, upload FileUpload) (*scanning.ReceiptRecord, string, error) {
	path := uploadPath(userID, upload.Filename)
	imageURL, err := s.storage.Upload(ctx, path, upload.Data, upload.ContentType, true)
	if err != nil {
		return nil, "", &UploadError{Path: path, Err: err}
	}

	raw, err := s.completer.CompleteImage(ctx, scanning.ExtractionPrompt, scanning.Image{
		URL:      imageURL,
		Data:     upload.Data,
		MIMEType: upload.ContentType,
	})
	if err != nil {
		return nil, imageURL, &ExtractionError{ImageURL: imageURL, Err: err}
	}

	record, err := scanning.Normalize(raw)
	if err != nil {
		return nil, imageURL, err
	}
	return record, imageURL, nil
}

func (s *Service) logFailure(upload FileUpload, err error) {
	attrs := []any{
		"filename", upload.Filename,
		"content_type", upload.ContentType,
		"file_size", len(upload.Data),
		"error", err,
	}

	var validationErr *scanning.ValidationError
	if errors.As(err, &validationErr) {
		attrs = append(attrs, "raw", validationErr.Raw, "cleaned", validationErr.Cleaned)
	}
	slog.Error("Failed to analyze receipt", attrs...)
}

// persist saves the record. Failures are logged and never reach the caller.
func (s *Service) persist(ctx context.Context, userID string, record *scanning.ReceiptRecord, imageURL string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Receipt persistence panicked", "user", userID, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()

	stored, err := newStoredReceipt(s.idGenerator.Generate(), userID, record, imageURL, s.timeSource.Now())
	if err == nil {
		err = s.db.CreateReceipt(ctx, stored)
	}
	if err != nil {
		warning := &PersistenceWarning{Err: err}
		slog.Warn("Failed to persist receipt", "user", userID, "merchant", record.Merchant, "error", warning)
	}
}

// Chat answers a question about the session's current record
func (s *Service) Chat(ctx context.Context, session *Session, message string) string {
	return s.chat.Ask(ctx, session.Record(), message)
}

// ListReceipts returns a user's persisted receipts, newest first
func (s *Service) ListReceipts(ctx context.Context, userID string) ([]*StoredReceipt, error) {
	receipts, err := s.db.ListReceipts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}

// ExportReceipts renders a user's persisted receipts as an XLSX workbook
func (s *Service) ExportReceipts(ctx context.Context, userID string) ([]byte, error) {
	receipts, err := s.ListReceipts(ctx, userID)
	if err != nil {
		return nil, err
	}
	data, err := exportXLSX(receipts)
	if err != nil {
		return nil, fmt.Errorf("exporting receipts: %w", err)
	}
	slog.Info("Exported receipts", "user", userID, "rows", len(receipts))
	return data, nil
}

// GetFile returns a stored upload
func (s *Service) GetFile(ctx context.Context, path string) ([]byte, error) {
	data, err := s.storage.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("getting file: %w", err)
	}
	return data, nil
}
