package upload

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

var (
	// ErrNoFile is returned when the request carries no file to store.
	ErrNoFile = errors.New("no file received")
	// ErrStoreNotConfigured is returned when the image store credentials are
	// absent or were rejected by the store.
	ErrStoreNotConfigured = errors.New("image store is not configured")
)

// ImageStore persists image bytes under a key and exposes them publicly.
type ImageStore interface {
	// Put stores size bytes read from body under key with the given content
	// type, readable by anyone, and returns the public URL of the object.
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) (string, error)
}

// File is a single uploaded file as received from the client.
type File struct {
	// Name is the original filename as declared by the client.
	Name string
	// ContentType is the declared content type. It is sniffed from the
	// content when empty.
	ContentType string
	Content     io.Reader
}

// Result describes a stored upload.
type Result struct {
	Key  string
	URL  string
	Size int64
}

// Config holds non-dependency configuration for the Service.
type Config struct {
	// Prefix is the logical namespace keys are created under.
	Prefix string
	// TempDir is where the local copy of an upload is spooled. Empty means
	// os.TempDir.
	TempDir string

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Service stores uploaded images in an ImageStore.
type Service struct {
	store   ImageStore
	prefix  string
	tempDir string
	now     func() time.Time
	token   func() string

	tracer  trace.Tracer
	uploads metric.Int64Counter
}

// NewService creates an upload Service backed by the given store.
func NewService(cfg Config, store ImageStore) (*Service, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = tracenoop.NewTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = metricnoop.NewMeterProvider()
	}

	const scope = "github.com/xenking/storefront/internal/domain/upload"
	uploads, err := cfg.MeterProvider.Meter(scope).Int64Counter("storefront.uploads",
		metric.WithDescription("Number of image uploads by result"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create uploads counter")
	}

	return &Service{
		store:   store,
		prefix:  cfg.Prefix,
		tempDir: cfg.TempDir,
		now:     time.Now,
		token:   NewToken,
		tracer:  cfg.TracerProvider.Tracer(scope),
		uploads: uploads,
	}, nil
}

// Upload spools the file to a temporary local copy, transfers it to the
// image store and returns where it was stored. The local copy is removed on
// every exit path, including a panic inside the store.
func (s *Service) Upload(ctx context.Context, f File) (_ *Result, rerr error) {
	ctx, span := s.tracer.Start(ctx, "upload.Upload",
		trace.WithAttributes(attribute.String("upload.filename", f.Name)),
	)
	defer func() {
		result := "ok"
		switch {
		case errors.Is(rerr, ErrStoreNotConfigured):
			result = "not_configured"
		case rerr != nil:
			result = "failed"
		}
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, result)
		}
		s.uploads.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
		span.End()
	}()

	if f.Content == nil || f.Name == "" {
		return nil, ErrNoFile
	}

	tmp, err := os.CreateTemp(s.tempDir, "upload-*")
	if err != nil {
		return nil, errors.Wrap(err, "create temp file")
	}
	defer s.release(ctx, tmp)

	size, err := io.Copy(tmp, f.Content)
	if err != nil {
		return nil, errors.Wrap(err, "spool upload")
	}

	contentType := f.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType, err = sniff(tmp)
		if err != nil {
			return nil, err
		}
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "rewind temp file")
	}

	key := StorageKey(s.prefix, f.Name, s.now(), s.token())
	span.SetAttributes(attribute.String("upload.key", key), attribute.Int64("upload.size", size))

	url, err := s.store.Put(ctx, key, tmp, size, contentType)
	if err != nil {
		return nil, errors.Wrapf(err, "store %s", key)
	}

	return &Result{Key: key, URL: url, Size: size}, nil
}

// release closes and removes the temporary copy. Failures are logged since
// the caller's outcome no longer depends on them.
func (s *Service) release(ctx context.Context, tmp *os.File) {
	lg := zctx.From(ctx)
	if err := tmp.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		lg.Warn("Close temp upload file", zap.String("path", tmp.Name()), zap.Error(err))
	}
	if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		lg.Error("Remove temp upload file", zap.String("path", tmp.Name()), zap.Error(err))
	}
}

func sniff(f *os.File) (string, error) {
	var head [512]byte
	n, err := f.ReadAt(head[:], 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(err, "read upload head")
	}
	return http.DetectContentType(head[:n]), nil
}
