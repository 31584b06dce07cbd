package driven

import "time"

// ConfigStore is the persisted key/value layer beneath domain.Settings.
// Keys are dotted ("queue.driver", "embedding.api_key"). Typed getters
// return the zero value when a key is absent or holds another type.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool

	// GetDuration accepts Go duration strings ("90s") or whole seconds.
	GetDuration(key string) time.Duration

	GetStringSlice(key string) []string

	// Set stores value and persists the file immediately.
	Set(key string, value any) error

	Save() error
	Load() error

	// Path is the backing file. Its directory is the default data dir.
	Path() string
}
