package cache

import (
	"time"

	"github.com/lgpdshield/lgpd-shield/internal/redact"
)

// CachedResult is a stored redaction outcome for one input string.
// The original input is never stored, only its digest.
type CachedResult struct {
	Result   redact.Result `json:"result"`
	CachedAt time.Time     `json:"cached_at"`
	TTL      int64         `json:"ttl"`
}

// Lookup is the outcome of a cache read.
type Lookup struct {
	Result   *redact.Result `json:"result,omitempty"`
	CacheHit bool           `json:"cache_hit"`
}

// Stats represents cache performance statistics
type Stats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	HitRate     float64 `json:"hit_rate"`
	TotalKeys   int64   `json:"total_keys"`
	MemoryUsage int64   `json:"memory_usage_bytes"`
}

// Config contains cache configuration
type Config struct {
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DefaultTTL     time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}
