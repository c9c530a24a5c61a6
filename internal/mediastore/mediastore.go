package mediastore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/agritrace/agritrace/internal/adapter"
	"github.com/agritrace/agritrace/internal/domain"
	"github.com/agritrace/agritrace/internal/logger"
)

// DefaultUploadTimeout bounds a single photo upload including URL resolution.
const DefaultUploadTimeout = 30 * time.Second

// BlobStore is the slice of blob storage the attacher needs.
type BlobStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	PublicURL(ctx context.Context, key string) (string, error)
}

// Attachment is the result of a successful photo upload: the durable URL a
// media row should reference.
type Attachment struct {
	Type       domain.MediaType
	URL        string
	CapturedAt time.Time
}

// Attacher validates and uploads evidentiary photos for a trace.
type Attacher struct {
	blobs   BlobStore
	clock   adapter.Clock
	timeout time.Duration
}

// NewAttacher creates an Attacher backed by the given blob store. A zero
// timeout falls back to DefaultUploadTimeout.
func NewAttacher(blobs BlobStore, clock adapter.Clock, timeout time.Duration) *Attacher {
	if timeout == 0 {
		timeout = DefaultUploadTimeout
	}
	return &Attacher{
		blobs:   blobs,
		clock:   clock,
		timeout: timeout,
	}
}

// Attach sniffs the photo content, uploads it under a trace-scoped key and
// resolves its durable URL. Content that is not an image is rejected with
// domain.ErrValidation; upload and URL resolution failures surface as
// domain.ErrStorage so callers never persist a dangling reference.
func (a *Attacher) Attach(ctx context.Context, traceID string, mediaType domain.MediaType, content []byte) (*Attachment, error) {
	if !domain.IsValidMediaType(mediaType) {
		return nil, fmt.Errorf("%w: unknown media type %q", domain.ErrValidation, mediaType)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty photo content", domain.ErrValidation)
	}

	// Content sniffing, not the client-declared type, decides acceptance
	mtype := mimetype.Detect(content)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, fmt.Errorf("%w: content type %s is not an image", domain.ErrValidation, mtype.String())
	}

	now := a.clock.Now().UTC()
	key := ObjectKey(traceID, mediaType, now, mtype.Extension())

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.blobs.Put(ctx, key, bytes.NewReader(content), int64(len(content)), mtype.String()); err != nil {
		return nil, fmt.Errorf("%w: upload %s: %v", domain.ErrStorage, key, err)
	}

	url, err := a.blobs.PublicURL(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve url for %s: %v", domain.ErrStorage, key, err)
	}

	logger.DebugCtx(ctx, "Uploaded trace photo",
		zap.String("trace_id", traceID),
		zap.String("key", key),
		zap.String("mime_type", mtype.String()))

	return &Attachment{
		Type:       mediaType,
		URL:        url,
		CapturedAt: now,
	}, nil
}

// ObjectKey builds the blob key for a trace photo:
// {trace_id}/{product|weighing}_{unix_seconds}{ext}
func ObjectKey(traceID string, mediaType domain.MediaType, at time.Time, ext string) string {
	return fmt.Sprintf("%s/%s_%d%s", traceID, mediaType.PathKeyword(), at.Unix(), ext)
}
