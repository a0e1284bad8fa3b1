package session

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

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrLeaseBusy       = errors.New("session lease held by another request")
	ErrLeaseLost       = errors.New("session lease no longer held")
)

const (
	defaultStoreKeyPrefix = "aria:session:"
	defaultLeasePrefix    = "aria:lease:"

	// Sessions expire after 30 days of inactivity; the store owns the policy.
	defaultStoreTTL = 30 * 24 * time.Hour

	maxResponseSizeBytes = 2 << 20
)

// Store is the session persistence contract used by the continuity manager.
// SetIfLeased is the fenced variant of Set: the write lands only while the
// caller's lease token is still live, so a holder whose lease expired cannot
// overwrite a successor's state. It returns ErrLeaseLost otherwise.
type Store interface {
	Get(ctx context.Context, identity string) (*Session, error)
	Set(ctx context.Context, s *Session) error
	SetIfLeased(ctx context.Context, s *Session, token string) error
	Lease(ctx context.Context, identity string, duration time.Duration) (string, error)
	Release(ctx context.Context, identity string, token string) error
}

// StoreOption customizes UpstashRedisStore.
type StoreOption func(*UpstashRedisStore)

func WithKeyPrefix(prefix string) StoreOption {
	return func(s *UpstashRedisStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *UpstashRedisStore) {
		s.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(s *UpstashRedisStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashRedisStore persists sessions in Upstash Redis via REST.
type UpstashRedisStore struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	keyPrefix   string
	leasePrefix string
	ttl         time.Duration
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

func NewUpstashRedisStore(cfg UpstashRedisConfig, opts ...StoreOption) (*UpstashRedisStore, error) {
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

	store := &UpstashRedisStore{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		keyPrefix:   defaultStoreKeyPrefix,
		leasePrefix: defaultLeasePrefix,
		ttl:         defaultStoreTTL,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}

	return store, nil
}

func (s *UpstashRedisStore) Get(ctx context.Context, identity string) (*Session, error) {
	key, err := s.sessionKey(identity)
	if err != nil {
		return nil, err
	}

	resp, err := s.exec(ctx, []any{"GET", key})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrSessionNotFound
	}

	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("%w: decode session payload: %v", ErrCorruptState, err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(encoded), &sess); err != nil {
		return nil, fmt.Errorf("%w: unmarshal session: %v", ErrCorruptState, err)
	}

	sess.EnsureCart()
	// Repair the repairable drift (missing ceiling, dropped hold flag) before
	// deciding whether the decoded shape is fatal.
	sess.Guardrail = sess.Guardrail.Normalize()
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	return &sess, nil
}

func (s *UpstashRedisStore) Set(ctx context.Context, sess *Session) error {
	key, payload, err := s.encodeForWrite(sess)
	if err != nil {
		return err
	}

	cmd := []any{"SET", key, string(payload)}
	if s.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(s.ttl))
	}

	if _, err := s.exec(ctx, cmd); err != nil {
		return err
	}

	return nil
}

// fencedSetScript writes the session only while the caller's lease token still
// matches, so a writer whose lease expired cannot clobber a successor's state.
// ARGV[3] is the session TTL in seconds, 0 for no expiry.
const fencedSetScript = `if redis.call("GET", KEYS[1]) ~= ARGV[1] then return nil end
if ARGV[3] == "0" then return redis.call("SET", KEYS[2], ARGV[2]) end
return redis.call("SET", KEYS[2], ARGV[2], "EX", ARGV[3])`

func (s *UpstashRedisStore) SetIfLeased(ctx context.Context, sess *Session, token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("lease token is empty")
	}
	key, payload, err := s.encodeForWrite(sess)
	if err != nil {
		return err
	}
	leaseKey, err := s.leaseKey(sess.ID)
	if err != nil {
		return err
	}

	var ttl int64
	if s.ttl > 0 {
		ttl = ttlSeconds(s.ttl)
	}
	resp, err := s.exec(ctx, []any{"EVAL", fencedSetScript, 2, leaseKey, key, token, string(payload), ttl})
	if err != nil {
		return err
	}
	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return ErrLeaseLost
	}
	return nil
}

func (s *UpstashRedisStore) encodeForWrite(sess *Session) (string, []byte, error) {
	if sess == nil {
		return "", nil, ErrNilSession
	}
	if strings.TrimSpace(sess.ID) == "" {
		return "", nil, ErrInvalidIdentity
	}
	sess.EnsureCart()
	if sess.LastActiveAt.IsZero() {
		sess.LastActiveAt = time.Now().UTC()
	} else {
		sess.LastActiveAt = sess.LastActiveAt.UTC()
	}

	key, err := s.sessionKey(sess.ID)
	if err != nil {
		return "", nil, err
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return "", nil, fmt.Errorf("marshal session: %w", err)
	}
	return key, payload, nil
}

// Lease acquires an exclusive per-identity lease for the given duration.
// Returns ErrLeaseBusy while another holder's lease is live.
func (s *UpstashRedisStore) Lease(ctx context.Context, identity string, duration time.Duration) (string, error) {
	key, err := s.leaseKey(identity)
	if err != nil {
		return "", err
	}
	if duration <= 0 {
		duration = 10 * time.Second
	}

	token := uuid.NewString()
	resp, err := s.exec(ctx, []any{"SET", key, token, "NX", "PX", duration.Milliseconds()})
	if err != nil {
		return "", err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return "", ErrLeaseBusy
	}
	return token, nil
}

// releaseScript deletes the lease only when the caller still holds it, so a
// lease that expired and was re-acquired by another request is never revoked.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`

func (s *UpstashRedisStore) Release(ctx context.Context, identity string, token string) error {
	key, err := s.leaseKey(identity)
	if err != nil {
		return err
	}
	if strings.TrimSpace(token) == "" {
		return errors.New("lease token is empty")
	}
	_, err = s.exec(ctx, []any{"EVAL", releaseScript, 1, key, token})
	return err
}

func (s *UpstashRedisStore) sessionKey(identity string) (string, error) {
	if strings.TrimSpace(identity) == "" {
		return "", ErrInvalidIdentity
	}
	return strings.TrimSpace(s.keyPrefix) + identity, nil
}

func (s *UpstashRedisStore) leaseKey(identity string) (string, error) {
	if strings.TrimSpace(identity) == "" {
		return "", ErrInvalidIdentity
	}
	prefix := strings.TrimSpace(s.leasePrefix)
	if prefix == "" {
		prefix = defaultLeasePrefix
	}
	return prefix + identity, nil
}

func (s *UpstashRedisStore) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if s == nil {
		return nil, errors.New("nil store")
	}
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}
	if strings.TrimSpace(s.baseURL) == "" {
		return nil, errors.New("empty redis url")
	}
	if strings.TrimSpace(s.token) == "" {
		return nil, errors.New("empty redis token")
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

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
