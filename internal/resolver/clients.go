package resolver

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// UpstreamConfig holds the connection settings for the upstream LLM API.
type UpstreamConfig struct {
	BaseURL string
	APIKey  string
}

// clientSettings are the fields that distinguish one upstream client from
// another. Two resolutions with the same settings share a client.
type clientSettings struct {
	BaseModel   string
	Temperature any
	MaxTokens   any
	TopP        any
}

// hash returns the md5 of the settings' sorted-key JSON encoding.
func (s clientSettings) hash() string {
	// encoding/json emits map keys in sorted order.
	payload, _ := json.Marshal(map[string]any{
		"base_model":  s.BaseModel,
		"temperature": s.Temperature,
		"max_tokens":  s.MaxTokens,
		"top_p":       s.TopP,
	})
	sum := md5.Sum(payload)
	return hex.EncodeToString(sum[:])
}

// ClientCache memoizes upstream clients by config hash. Safe for concurrent
// use.
type ClientCache struct {
	mu       sync.Mutex
	upstream UpstreamConfig
	clients  map[string]*openai.Client
}

// NewClientCache creates a client cache for the given upstream.
func NewClientCache(upstream UpstreamConfig) *ClientCache {
	return &ClientCache{
		upstream: upstream,
		clients:  make(map[string]*openai.Client),
	}
}

// Get returns the memoized client for the settings, creating it on first use.
func (c *ClientCache) Get(settings clientSettings) *openai.Client {
	key := settings.hash()

	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[key]; ok {
		return client
	}

	cfg := openai.DefaultConfig(c.upstream.APIKey)
	if c.upstream.BaseURL != "" {
		cfg.BaseURL = c.upstream.BaseURL
	}
	client := openai.NewClientWithConfig(cfg)
	c.clients[key] = client

	return client
}

// Len returns the number of memoized clients.
func (c *ClientCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}
