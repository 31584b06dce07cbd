// Package memory provides in-memory implementations of the storage ports.
// They back the "memory" store driver and the service tests.
package memory
