// Package file provides the TOML configuration file used by every
// sercha-drive process. Keys are addressed in dot notation
// ("queue.redis_addr") and written back as nested tables.
package file
