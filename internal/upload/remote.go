package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strings"
	"time"
)

// RemoteStore uploads to the object storage proxy:
// POST {BaseURL}/v1/storage/upload?path=<key> with a bearer key and a
// multipart "file" field; the response carries the public URL.
type RemoteStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRemoteStore returns a RemoteStore. A nil client gets a 30s timeout.
func NewRemoteStore(baseURL, apiKey string, client *http.Client) *RemoteStore {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RemoteStore{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: client}
}

func (s *RemoteStore) uploadURL(key string) (string, error) {
	u, err := url.Parse(s.baseURL + "/v1/storage/upload")
	if err != nil {
		return "", fmt.Errorf("parse storage url: %w", err)
	}
	q := u.Query()
	q.Set("path", strings.TrimLeft(key, "/"))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Put implements Store.
func (s *RemoteStore) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	endpoint, err := s.uploadURL(key)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, path.Base(key)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return "", fmt.Errorf("copy upload body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("build storage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("storage upload failed (%d %s): %s", resp.StatusCode, http.StatusText(resp.StatusCode), strings.TrimSpace(string(msg)))
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode storage response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("storage response has no url")
	}
	return out.URL, nil
}
