package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// Well-known environment variables that override config keys.
//
//nolint:gosec // G101: variable names, not credentials.
var envAliases = map[string]string{
	"embedding.api_key":    "OPENAI_API_KEY",
	"google.client_id":     "GOOGLE_CLIENT_ID",
	"google.client_secret": "GOOGLE_CLIENT_SECRET",
	"http.jwt_secret":      "JWT_SECRET",
	"queue.redis_addr":     "REDIS_ADDR",
	"store.postgres_dsn":   "DATABASE_URL",
}

// EnvKey returns the SERCHA_* variable that overrides a config key,
// e.g. "queue.redis_addr" -> "SERCHA_QUEUE_REDIS_ADDR".
func EnvKey(key string) string {
	return "SERCHA_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// settingsLoader reads one key at a time: SERCHA_* variable first, then the
// well-known alias, then the config file, then the default.
type settingsLoader struct {
	store  driven.ConfigStore
	getenv func(string) string
}

func (l settingsLoader) env(key string) (string, bool) {
	if l.getenv == nil {
		return "", false
	}
	if v := l.getenv(EnvKey(key)); v != "" {
		return v, true
	}
	if alias, ok := envAliases[key]; ok {
		if v := l.getenv(alias); v != "" {
			return v, true
		}
	}
	return "", false
}

func (l settingsLoader) str(key string, dst *string) {
	if v, ok := l.env(key); ok {
		*dst = v
		return
	}
	if l.store == nil {
		return
	}
	if v := l.store.GetString(key); v != "" {
		*dst = v
	}
}

func (l settingsLoader) integer(key string, dst *int) {
	if v, ok := l.env(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
		return
	}
	if l.store == nil {
		return
	}
	if _, ok := l.store.Get(key); ok {
		*dst = l.store.GetInt(key)
	}
}

func (l settingsLoader) boolean(key string, dst *bool) {
	if v, ok := l.env(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
		return
	}
	if l.store == nil {
		return
	}
	if _, ok := l.store.Get(key); ok {
		*dst = l.store.GetBool(key)
	}
}

func (l settingsLoader) duration(key string, dst *time.Duration) {
	if v, ok := l.env(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
		return
	}
	if l.store == nil {
		return
	}
	if d := l.store.GetDuration(key); d > 0 {
		*dst = d
	}
}

// LoadSettings builds the runtime settings from defaults, the config store
// and the environment, in increasing order of precedence, and validates
// the result.
func LoadSettings(store driven.ConfigStore, getenv func(string) string) (domain.Settings, error) {
	s := domain.DefaultSettings()
	l := settingsLoader{store: store, getenv: getenv}

	l.str("data_dir", &s.DataDir)

	l.str("store.driver", &s.Store.Driver)
	l.str("store.postgres_dsn", &s.Store.PostgresDSN)

	l.str("queue.driver", &s.Queue.Driver)
	l.str("queue.redis_addr", &s.Queue.RedisAddr)
	l.str("queue.redis_password", &s.Queue.RedisPassword)
	l.integer("queue.redis_db", &s.Queue.RedisDB)
	l.str("queue.amqp_url", &s.Queue.AMQPURL)

	l.str("vector.driver", &s.Vector.Driver)
	l.str("vector.qdrant_host", &s.Vector.QdrantHost)
	l.integer("vector.qdrant_port", &s.Vector.QdrantPort)
	l.str("vector.qdrant_api_key", &s.Vector.QdrantKey)
	l.boolean("vector.qdrant_tls", &s.Vector.QdrantTLS)
	l.str("vector.collection", &s.Vector.Collection)

	l.str("embedding.api_key", &s.Embedding.APIKey)
	l.str("embedding.base_url", &s.Embedding.BaseURL)
	l.str("embedding.model", &s.Embedding.Model)
	l.integer("embedding.dimensions", &s.Embedding.Dimensions)

	l.str("google.client_id", &s.Google.ClientID)
	l.str("google.client_secret", &s.Google.ClientSecret)

	l.duration("worker.block_timeout", &s.Worker.BlockTimeout)
	l.duration("worker.cooldown", &s.Worker.Cooldown)
	l.duration("worker.pump_interval", &s.Worker.PumpInterval)
	l.duration("worker.reclaim_interval", &s.Worker.ReclaimInterval)
	l.duration("worker.reclaim_min_idle", &s.Worker.ReclaimMinIdle)
	l.integer("worker.reclaim_count", &s.Worker.ReclaimCount)

	l.boolean("blob.enabled", &s.Blob.Enabled)
	l.str("blob.endpoint", &s.Blob.Endpoint)
	l.str("blob.access_key", &s.Blob.AccessKey)
	l.str("blob.secret_key", &s.Blob.SecretKey)
	l.str("blob.bucket", &s.Blob.Bucket)
	l.boolean("blob.use_ssl", &s.Blob.UseSSL)

	l.str("http.addr", &s.HTTP.Addr)
	l.str("http.jwt_secret", &s.HTTP.JWTSecret)

	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}
