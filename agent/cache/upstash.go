package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultUpstashKeyPrefix = "research:cache:"
	maxResponseSizeBytes    = 8 << 20
)

// UpstashOption customizes UpstashStore.
type UpstashOption func(*UpstashStore)

func WithKeyPrefix(prefix string) UpstashOption {
	return func(s *UpstashStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithHTTPClient(client *http.Client) UpstashOption {
	return func(s *UpstashStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashStore keeps cache records in Upstash Redis via its REST API. Keys
// carry no Redis TTL; freshness is decided by the Service on read.
type UpstashStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type UpstashConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

func NewUpstashStore(cfg UpstashConfig, opts ...UpstashOption) (*UpstashStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	store := &UpstashStore{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		keyPrefix:  defaultUpstashKeyPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *UpstashStore) Load(ctx context.Context, id string) (Record, error) {
	resp, err := s.exec(ctx, []any{"GET", s.key(id)})
	if err != nil {
		return Record{}, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return Record{}, ErrNotFound
	}

	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return Record{}, fmt.Errorf("%w: decode redis payload: %v", ErrCorrupt, err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(encoded), &rec); err != nil {
		return Record{}, fmt.Errorf("%w: unmarshal cache record: %v", ErrCorrupt, err)
	}
	return rec, nil
}

func (s *UpstashStore) Store(ctx context.Context, id string, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal cache record: %w", err)
	}
	_, err = s.exec(ctx, []any{"SET", s.key(id), string(payload)})
	return err
}

func (s *UpstashStore) Delete(ctx context.Context, id string) error {
	_, err := s.exec(ctx, []any{"DEL", s.key(id)})
	return err
}

func (s *UpstashStore) Purge(ctx context.Context) error {
	resp, err := s.exec(ctx, []any{"KEYS", s.keyPrefix + "*"})
	if err != nil {
		return err
	}
	var keys []string
	if err := json.Unmarshal(resp.Result, &keys); err != nil {
		return fmt.Errorf("decode redis keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	cmd := make([]any, 0, len(keys)+1)
	cmd = append(cmd, "DEL")
	for _, k := range keys {
		cmd = append(cmd, k)
	}
	_, err = s.exec(ctx, cmd)
	return err
}

func (s *UpstashStore) Close() error { return nil }

func (s *UpstashStore) key(id string) string {
	return s.keyPrefix + id
}

func (s *UpstashStore) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}
