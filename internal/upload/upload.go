// Package upload validates admin image uploads and hands them to a Store.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxSize is the largest accepted file, in bytes.
	MaxSize = 5 << 20
	// KeyPrefix is the folder every upload key lives under.
	KeyPrefix  = "uploads/"
	defaultExt = ".png"
	sniffLen   = 512
)

var (
	ErrNoFile   = errors.New("no file uploaded")
	ErrNotImage = errors.New("only image files are allowed")
	ErrTooLarge = errors.New("file exceeds the 5MB limit")
)

// package-level logger; can be replaced by callers via SetLogger
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the upload package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Store persists an object under key and returns the URL it is served from.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// File is an incoming upload.
type File struct {
	Name        string
	ContentType string
	// Size is the declared size; -1 when unknown.
	Size int64
	Body io.Reader
}

// Result is what the upload endpoint returns and what gets stored as imageUrl.
type Result struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Service validates files and writes them to a Store.
type Service struct {
	store Store
	now   func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source used to name keys.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Key returns the object key for a file name uploaded at t.
func Key(name string, t time.Time) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || ext == "." {
		ext = defaultExt
	}
	return KeyPrefix + strconv.FormatInt(t.UnixMilli(), 10) + ext
}

// Save validates f and stores it. The body is read at most MaxSize+1 bytes
// so an undeclared oversize file is still rejected.
func (s *Service) Save(ctx context.Context, f File) (*Result, error) {
	if f.Body == nil {
		return nil, ErrNoFile
	}
	if f.Size > MaxSize {
		return nil, ErrTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(f.Body, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoFile
	}
	if len(data) > MaxSize {
		return nil, ErrTooLarge
	}

	ct := contentType(f.ContentType, data)
	if !strings.HasPrefix(ct, "image/") {
		return nil, ErrNotImage
	}

	key := Key(f.Name, s.now())
	url, err := s.store.Put(ctx, key, bytes.NewReader(data), ct)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", key, err)
	}

	logger.Info("file uploaded", "key", key, "bytes", len(data), "content_type", ct)
	return &Result{Key: key, URL: url}, nil
}

// contentType trusts the declared type unless it is missing or generic.
func contentType(declared string, data []byte) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	return http.DetectContentType(data)
}

// FromRequest extracts the multipart field from r. The caller must call the
// returned cleanup once the file has been consumed.
func FromRequest(w http.ResponseWriter, r *http.Request, field string) (File, func(), error) {
	// multipart framing needs a little room above the file limit
	r.Body = http.MaxBytesReader(w, r.Body, MaxSize+1<<20)
	if err := r.ParseMultipartForm(MaxSize); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) || errors.Is(err, multipart.ErrMessageTooLarge) {
			return File{}, func() {}, ErrTooLarge
		}
		return File{}, func() {}, fmt.Errorf("%w: %v", ErrNoFile, err)
	}

	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	fh, hdr, err := r.FormFile(field)
	if err != nil {
		return File{}, cleanup, ErrNoFile
	}
	closeAll := func() {
		fh.Close()
		cleanup()
	}
	return File{
		Name:        hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        hdr.Size,
		Body:        fh,
	}, closeAll, nil
}
