package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"
)

// Manager resolves provider credentials. Values are cached for a short TTL
// because upstream identity tokens are short-lived; callers invalidate the
// cache (RefreshCache) when a provider rejects the credentials.
type Manager interface {
	GetSecret(ctx context.Context, key string) (string, error)
	RefreshCache(ctx context.Context) error
}

// Config configures a secrets manager
type Config struct {
	// Backend selects the secret source: "env" or "connector"
	Backend string
	// CacheDuration bounds how long a fetched secret may be reused
	CacheDuration time.Duration

	// Connector backend settings
	ConnectorBaseURL string
	IdentityToken    string
	HTTPClient       *http.Client
}

// NewManager creates a manager for the configured backend
func NewManager(cfg Config) (Manager, error) {
	switch cfg.Backend {
	case "env", "environment":
		return NewEnvironmentManager(cfg), nil
	case "connector":
		return NewConnectorManager(cfg)
	default:
		return nil, fmt.Errorf("unsupported secrets backend: %q", cfg.Backend)
	}
}

type cachedSecret struct {
	value     string
	fetchedAt time.Time
}

// EnvironmentManager reads secrets from process environment variables
type EnvironmentManager struct {
	ttl   time.Duration
	mu    sync.RWMutex
	cache map[string]cachedSecret
}

// NewEnvironmentManager creates an environment-backed manager
func NewEnvironmentManager(cfg Config) *EnvironmentManager {
	ttl := cfg.CacheDuration
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &EnvironmentManager{
		ttl:   ttl,
		cache: make(map[string]cachedSecret),
	}
}

// GetSecret returns the environment variable value, cached for the TTL
func (m *EnvironmentManager) GetSecret(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	if c, ok := m.cache[key]; ok && time.Since(c.fetchedAt) < m.ttl {
		m.mu.RUnlock()
		return c.value, nil
	}
	m.mu.RUnlock()

	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("secret %q not found in environment", key)
	}

	m.mu.Lock()
	m.cache[key] = cachedSecret{value: value, fetchedAt: time.Now()}
	m.mu.Unlock()

	return value, nil
}

// RefreshCache drops all cached values so the next read hits the source
func (m *EnvironmentManager) RefreshCache(ctx context.Context) error {
	m.mu.Lock()
	m.cache = make(map[string]cachedSecret)
	m.mu.Unlock()
	return nil
}

// connectorBinding maps a flat secret key to the connector that owns it
type connectorBinding struct {
	Connector string
	Field     string
}

// connectorKeys enumerates every secret the dispatcher may ask for.
var connectorKeys = map[string]connectorBinding{
	"SENDGRID_API_KEY":       {Connector: "sendgrid", Field: "api_key"},
	"SENDGRID_FROM_EMAIL":    {Connector: "sendgrid", Field: "from_email"},
	"TWILIO_ACCOUNT_SID":     {Connector: "twilio", Field: "account_sid"},
	"TWILIO_AUTH_TOKEN":      {Connector: "twilio", Field: "auth_token"},
	"TWILIO_PHONE_NUMBER":    {Connector: "twilio", Field: "phone_number"},
	"TWILIO_WHATSAPP_NUMBER": {Connector: "twilio", Field: "whatsapp_number"},
}

// ConnectorManager fetches provider credentials from the external
// secrets/connection service
type ConnectorManager struct {
	baseURL string
	token   string
	client  *http.Client
	ttl     time.Duration

	mu    sync.RWMutex
	cache map[string]cachedSecret
}

// NewConnectorManager creates a connector-backed manager
func NewConnectorManager(cfg Config) (*ConnectorManager, error) {
	if cfg.ConnectorBaseURL == "" {
		return nil, fmt.Errorf("connector base URL is required")
	}
	if cfg.IdentityToken == "" {
		return nil, fmt.Errorf("connector identity token is required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	ttl := cfg.CacheDuration
	if ttl <= 0 {
		ttl = time.Minute
	}

	return &ConnectorManager{
		baseURL: cfg.ConnectorBaseURL,
		token:   cfg.IdentityToken,
		client:  client,
		ttl:     ttl,
		cache:   make(map[string]cachedSecret),
	}, nil
}

type connectionResponse struct {
	Connections []struct {
		Name    string            `json:"name"`
		Secrets map[string]string `json:"secrets"`
	} `json:"connections"`
}

// GetSecret returns the secret value for key, fetching the owning
// connection from the service when the cached copy has expired
func (m *ConnectorManager) GetSecret(ctx context.Context, key string) (string, error) {
	binding, ok := connectorKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown secret key %q", key)
	}

	m.mu.RLock()
	if c, ok := m.cache[key]; ok && time.Since(c.fetchedAt) < m.ttl {
		m.mu.RUnlock()
		return c.value, nil
	}
	m.mu.RUnlock()

	secretsMap, err := m.fetchConnection(ctx, binding.Connector)
	if err != nil {
		return "", err
	}

	// Cache every field of the connection under its flat key so sibling
	// lookups in the same dispatch hit the cache.
	now := time.Now()
	m.mu.Lock()
	for flatKey, b := range connectorKeys {
		if b.Connector != binding.Connector {
			continue
		}
		if v, ok := secretsMap[b.Field]; ok && v != "" {
			m.cache[flatKey] = cachedSecret{value: v, fetchedAt: now}
		}
	}
	c, ok := m.cache[key]
	m.mu.Unlock()

	if !ok || time.Since(c.fetchedAt) >= m.ttl {
		return "", fmt.Errorf("secret %q not present in %s connection", key, binding.Connector)
	}
	return c.value, nil
}

// RefreshCache drops all cached credentials. Called when a provider
// rejects credentials so the next dispatch re-fetches fresh ones.
func (m *ConnectorManager) RefreshCache(ctx context.Context) error {
	m.mu.Lock()
	m.cache = make(map[string]cachedSecret)
	m.mu.Unlock()
	return nil
}

func (m *ConnectorManager) fetchConnection(ctx context.Context, name string) (map[string]string, error) {
	endpoint := fmt.Sprintf("%s/api/v2/connection?include_secrets=true&connector_names=%s",
		m.baseURL, url.QueryEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build connector request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.token)
	req.Header.Set("Accept", "application/json")

	res, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connector request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("connector returned status %d: %s", res.StatusCode, string(body))
	}

	var parsed connectionResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode connector response: %w", err)
	}

	for _, conn := range parsed.Connections {
		if conn.Name == name {
			return conn.Secrets, nil
		}
	}
	return nil, fmt.Errorf("connection %q not found", name)
}
