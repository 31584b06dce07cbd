package normalisers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry selects a normaliser by MIME type. Exact matches are tried
// before "type/*" wildcards; within each, the highest priority wins.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates a registry holding ns.
func NewRegistry(ns ...driven.Normaliser) *Registry {
	r := &Registry{}
	for _, n := range ns {
		r.Register(n)
	}
	return r
}

// Register adds a normaliser to the registry.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalisers = append(r.normalisers, n)
}

// Supports reports whether some normaliser handles mimeType.
func (r *Registry) Supports(mimeType string) bool {
	return r.lookup(mimeType) != nil
}

// Normalise extracts text with the best normaliser for content.MimeType.
func (r *Registry) Normalise(ctx context.Context, content *domain.SourceContent) (*driven.NormaliseResult, error) {
	if content == nil {
		return nil, domain.ErrInvalidInput
	}
	n := r.lookup(content.MimeType)
	if n == nil {
		return nil, domain.NewPermanent(fmt.Errorf("%w: Unsupported MIME type for text extraction: %s",
			domain.ErrUnsupportedType, content.MimeType))
	}
	return n.Normalise(ctx, content)
}

// SupportedMIMETypes returns all explicitly registered MIME types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var types []string
	for _, n := range r.normalisers {
		for _, mt := range n.SupportedMIMETypes() {
			if _, ok := seen[mt]; ok {
				continue
			}
			seen[mt] = struct{}{}
			types = append(types, mt)
		}
	}
	sort.Strings(types)
	return types
}

func (r *Registry) lookup(mimeType string) driven.Normaliser {
	mimeType = baseMIME(mimeType)
	if mimeType == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var exact, wildcard driven.Normaliser
	for _, n := range r.normalisers {
		for _, mt := range n.SupportedMIMETypes() {
			switch {
			case mt == mimeType:
				if exact == nil || n.Priority() > exact.Priority() {
					exact = n
				}
			case strings.HasSuffix(mt, "/*") && strings.HasPrefix(mimeType, strings.TrimSuffix(mt, "*")):
				if wildcard == nil || n.Priority() > wildcard.Priority() {
					wildcard = n
				}
			}
		}
	}
	if exact != nil {
		return exact
	}
	return wildcard
}

// baseMIME drops parameters such as "; charset=utf-8" and lowercases.
func baseMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
