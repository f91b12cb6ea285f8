package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG
var pngBytes, _ = base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+M9QDwADhgGAWjR9awAAAABJRU5ErkJggg==")

var fixedClock = func() time.Time { return time.UnixMilli(1700000000123) }

type memStore struct {
	puts map[string][]byte
	err  error
}

func (m *memStore) Put(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if m.puts == nil {
		m.puts = map[string][]byte{}
	}
	m.puts[key] = b
	return "https://cdn.example.com/" + key, nil
}

func TestKey(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	cases := map[string]string{
		"photo.JPG":   "uploads/1700000000123.jpg",
		"banner.webp": "uploads/1700000000123.webp",
		"noext":       "uploads/1700000000123.png",
		"":            "uploads/1700000000123.png",
	}
	for name, want := range cases {
		require.Equal(t, want, Key(name, at), name)
	}
}

func TestSave(t *testing.T) {
	tests := []struct {
		name    string
		file    File
		wantErr error
	}{
		{name: "png", file: File{Name: "a.png", ContentType: "image/png", Size: int64(len(pngBytes)), Body: bytes.NewReader(pngBytes)}},
		{name: "sniffed when generic", file: File{Name: "a", ContentType: "application/octet-stream", Size: -1, Body: bytes.NewReader(pngBytes)}},
		{name: "not an image", file: File{Name: "a.txt", ContentType: "text/plain", Size: 5, Body: strings.NewReader("hello")}, wantErr: ErrNotImage},
		{name: "declared too large", file: File{Name: "a.png", ContentType: "image/png", Size: MaxSize + 1, Body: strings.NewReader("x")}, wantErr: ErrTooLarge},
		{name: "actual too large", file: File{Name: "a.png", ContentType: "image/png", Size: -1, Body: bytes.NewReader(make([]byte, MaxSize+1))}, wantErr: ErrTooLarge},
		{name: "empty", file: File{Name: "a.png", ContentType: "image/png", Body: strings.NewReader("")}, wantErr: ErrNoFile},
		{name: "nil body", file: File{Name: "a.png", ContentType: "image/png"}, wantErr: ErrNoFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{}
			svc := NewService(store, WithClock(fixedClock))

			res, err := svc.Save(context.Background(), tt.file)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Empty(t, store.puts)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "uploads/1700000000123.png", res.Key)
			require.Equal(t, "https://cdn.example.com/uploads/1700000000123.png", res.URL)
			require.Equal(t, pngBytes, store.puts[res.Key])
		})
	}
}

func TestSaveExactlyMaxSize(t *testing.T) {
	store := &memStore{}
	svc := NewService(store, WithClock(fixedClock))
	_, err := svc.Save(context.Background(), File{Name: "big.gif", ContentType: "image/gif", Size: MaxSize, Body: bytes.NewReader(make([]byte, MaxSize))})
	require.NoError(t, err)
}

func TestSaveStoreError(t *testing.T) {
	svc := NewService(&memStore{err: errors.New("disk full")}, WithClock(fixedClock))
	_, err := svc.Save(context.Background(), File{Name: "a.png", ContentType: "image/png", Body: bytes.NewReader(pngBytes)})
	require.ErrorContains(t, err, "disk full")
}

func TestLocalStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store := NewLocalStore(dir)

	url, err := store.Put(context.Background(), "uploads/1700000000123.png", bytes.NewReader(pngBytes), "image/png")
	require.NoError(t, err)
	require.Equal(t, "/uploads/1700000000123.png", url)

	got, err := os.ReadFile(filepath.Join(dir, "1700000000123.png"))
	require.NoError(t, err)
	require.Equal(t, pngBytes, got)

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	for _, bad := range []string{"uploads/../escape.png", "other/1.png", "uploads/", "uploads/.hidden"} {
		_, err := store.Put(context.Background(), bad, bytes.NewReader(pngBytes), "image/png")
		require.Error(t, err, bad)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestLocalStoreFailedWriteLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)

	_, err := store.Put(context.Background(), "uploads/1.png", failingReader{}, "image/png")
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRemoteStore(t *testing.T) {
	var (
		gotAuth, gotPath, gotCT string
		gotBody                 []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/storage/upload", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Query().Get("path")
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		gotCT = hdr.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(f)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url":"https://storage.example.com/uploads/1.png"}`))
	}))
	defer srv.Close()

	store := NewRemoteStore(srv.URL+"/", "secret-key", srv.Client())
	url, err := store.Put(context.Background(), "/uploads/1.png", bytes.NewReader(pngBytes), "image/png")
	require.NoError(t, err)
	require.Equal(t, "https://storage.example.com/uploads/1.png", url)
	require.Equal(t, "Bearer secret-key", gotAuth)
	require.Equal(t, "uploads/1.png", gotPath)
	require.Equal(t, "image/png", gotCT)
	require.Equal(t, pngBytes, gotBody)
}

func TestRemoteStoreErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("path") {
		case "uploads/denied.png":
			http.Error(w, "bad key", http.StatusForbidden)
		case "uploads/nourl.png":
			_, _ = w.Write([]byte(`{}`))
		default:
			_, _ = w.Write([]byte(`not json`))
		}
	}))
	defer srv.Close()

	store := NewRemoteStore(srv.URL, "k", srv.Client())

	_, err := store.Put(context.Background(), "uploads/denied.png", bytes.NewReader(pngBytes), "image/png")
	require.ErrorContains(t, err, "403")
	require.ErrorContains(t, err, "bad key")

	_, err = store.Put(context.Background(), "uploads/nourl.png", bytes.NewReader(pngBytes), "image/png")
	require.ErrorContains(t, err, "no url")

	_, err = store.Put(context.Background(), "uploads/garbage.png", bytes.NewReader(pngBytes), "image/png")
	require.ErrorContains(t, err, "decode")
}

func multipartRequest(t *testing.T, field, filename, ct string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", ct)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestFromRequest(t *testing.T) {
	req := multipartRequest(t, "file", "logo.png", "image/png", pngBytes)
	f, cleanup, err := FromRequest(httptest.NewRecorder(), req, "file")
	require.NoError(t, err)
	defer cleanup()
	require.Equal(t, "logo.png", f.Name)
	require.Equal(t, "image/png", f.ContentType)
	require.Equal(t, int64(len(pngBytes)), f.Size)

	req = multipartRequest(t, "other", "logo.png", "image/png", pngBytes)
	_, cleanup, err = FromRequest(httptest.NewRecorder(), req, "file")
	cleanup()
	require.ErrorIs(t, err, ErrNoFile)

	req = httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	_, cleanup, err = FromRequest(httptest.NewRecorder(), req, "file")
	cleanup()
	require.ErrorIs(t, err, ErrNoFile)

	req = multipartRequest(t, "file", "huge.png", "image/png", make([]byte, MaxSize+2<<20))
	_, cleanup, err = FromRequest(httptest.NewRecorder(), req, "file")
	cleanup()
	require.ErrorIs(t, err, ErrTooLarge)
}
