// Package services implements the driving port interfaces: the fetch and
// vectorize stages, the worker loop that feeds them, the delayed-job
// scheduler, discovery, status and retrieval.
//
// Services depend only on the port interfaces; adapters are injected.
package services
