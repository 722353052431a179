package stores

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"JevanRaksha/pkg/errors"
)

// RestStore uploads media over the hosted service's storage HTTP API
// (POST /object/{bucket}/{path}, public URLs under /object/public/).
type RestStore struct {
	cfg    Config
	client *http.Client
}

func NewRestStore(cfg Config) *RestStore {
	return &RestStore{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *RestStore) objectURL(key string) string {
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/object/" + s.cfg.Bucket + "/" + key
}

func (s *RestStore) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL(key), r)
	if err != nil {
		return errors.WrapCode(errors.CodeStorage, err, "build upload request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if size > 0 {
		req.ContentLength = size
		req.Header.Set("Content-Length", strconv.FormatInt(size, 10))
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.WrapCode(errors.CodeStorage, err, "upload failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.WithCode(errors.CodeStorage, "upload failed: "+remoteMessage(resp))
	}
	return nil
}

func (s *RestStore) Read(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.objectURL(key), nil)
	if err != nil {
		return nil, 0, errors.WrapCode(errors.CodeStorage, err, "build download request")
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, errors.WrapCode(errors.CodeStorage, err, "download failed")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, errors.WithCode(errors.CodeStorage, "download failed: "+resp.Status)
	}
	return resp.Body, resp.ContentLength, nil
}

func (s *RestStore) Exists(ctx context.Context, key string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.objectURL(key), nil)
	if err != nil {
		return false, errors.WrapCode(errors.CodeStorage, err, "build head request")
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return false, errors.WrapCode(errors.CodeStorage, err, "head failed")
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func (s *RestStore) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.objectURL(key), nil)
	if err != nil {
		return errors.WrapCode(errors.CodeStorage, err, "build delete request")
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.WrapCode(errors.CodeStorage, err, "delete failed")
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.WithCode(errors.CodeStorage, "delete failed: "+resp.Status)
	}
	return nil
}

func (s *RestStore) PublicURL(key string) string {
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/object/public/" + s.cfg.Bucket + "/" + key
}

func (s *RestStore) authorize(req *http.Request) {
	if s.cfg.APIKey != "" {
		req.Header.Set("apikey", s.cfg.APIKey)
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}
}

func remoteMessage(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return resp.Status
	}
	var remote struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &remote) == nil && remote.Message != "" {
		return remote.Message
	}
	return resp.Status
}
