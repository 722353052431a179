package store

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"JevanRaksha/pkg/errors"
	"JevanRaksha/pkg/metrics"
)

// restStore talks to a PostgREST-style endpoint: one resource per table,
// predicates in the query string, JSON rows in and out.
type restStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
	metrics *metrics.Metrics
}

// Config for the REST store client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewRestStore creates a Store backed by a PostgREST-style HTTP endpoint.
func NewRestStore(cfg Config) Store {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &restStore{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		metrics: metrics.Default(),
	}
}

// remoteError is the error object shape the service returns.
type remoteError struct {
	Message string `json:"message"`
}

func (s *restStore) Select(ctx context.Context, table string, filter Filter, order *Order) ([]Row, error) {
	query := encodeFilter(filter)
	if order != nil {
		dir := "desc"
		if order.Ascending {
			dir = "asc"
		}
		query.Set("order", order.Column+"."+dir)
	}
	return s.do(ctx, http.MethodGet, table, "select", query, nil, nil)
}

func (s *restStore) Insert(ctx context.Context, table string, row interface{}) ([]Row, error) {
	return s.do(ctx, http.MethodPost, table, "insert", url.Values{}, row, nil)
}

func (s *restStore) Update(ctx context.Context, table string, filter Filter, patch interface{}) ([]Row, error) {
	return s.do(ctx, http.MethodPatch, table, "update", encodeFilter(filter), patch, nil)
}

func (s *restStore) Upsert(ctx context.Context, table string, row interface{}, onConflict string) ([]Row, error) {
	query := url.Values{}
	if onConflict != "" {
		query.Set("on_conflict", onConflict)
	}
	extra := map[string]string{"Prefer": "resolution=merge-duplicates,return=representation"}
	return s.do(ctx, http.MethodPost, table, "upsert", query, row, extra)
}

func (s *restStore) Call(ctx context.Context, fn string, args interface{}) ([]Row, error) {
	return s.do(ctx, http.MethodPost, "rpc/"+fn, "call", url.Values{}, args, nil)
}

func (s *restStore) do(ctx context.Context, method, table, op string, query url.Values, body interface{}, extraHeaders map[string]string) ([]Row, error) {
	start := time.Now()
	rows, err := s.roundTrip(ctx, method, table, query, body, extraHeaders)
	s.metrics.ObserveStoreRequest(table, op, err, time.Since(start))
	return rows, err
}

func (s *restStore) roundTrip(ctx context.Context, method, table string, query url.Values, body interface{}, extraHeaders map[string]string) ([]Row, error) {
	endpoint := s.baseURL + "/" + table
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.WrapCode(errors.CodeStore, err, "encode row")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, errors.WrapCode(errors.CodeStore, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	if body != nil {
		req.Header.Set("Prefer", "return=representation")
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.WrapCode(errors.CodeStore, err, "store request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapCode(errors.CodeStore, err, "read store response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var remote remoteError
		if json.Unmarshal(raw, &remote) == nil && remote.Message != "" {
			return nil, errors.WithCode(errors.CodeStore, remote.Message)
		}
		return nil, errors.WithCode(errors.CodeStore, "store returned "+resp.Status)
	}

	if len(raw) == 0 {
		return nil, nil
	}

	// the service answers with a JSON array, or a single object for
	// singular responses
	var rows []Row
	if err := json.Unmarshal(raw, &rows); err != nil {
		var single Row
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			return nil, errors.WrapCode(errors.CodeStore, err, "decode store response")
		}
		rows = []Row{single}
	}
	return rows, nil
}

// encodeFilter renders predicates in the service's query syntax
// (column=eq.value, or=(a.eq.x,b.eq.y)).
func encodeFilter(filter Filter) url.Values {
	query := url.Values{}
	for _, c := range filter.Conds {
		query.Set(c.Column, c.Op+"."+c.Value)
	}
	if len(filter.Or) > 0 {
		parts := make([]string, 0, len(filter.Or))
		for _, c := range filter.Or {
			parts = append(parts, c.Column+"."+c.Op+"."+c.Value)
		}
		query.Set("or", "("+strings.Join(parts, ",")+")")
	}
	return query
}
