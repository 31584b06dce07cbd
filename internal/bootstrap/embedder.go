package bootstrap

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

var _ driven.EmbeddingService = disabledEmbedder{}

// disabledEmbedder stands in when embedding.api_key is unset.
type disabledEmbedder struct {
	dims  int
	model string
}

func (e disabledEmbedder) err() error {
	return domain.NewPermanent(fmt.Errorf("%w: embedding.api_key is not set", domain.ErrEmbeddingUnavailable))
}

func (e disabledEmbedder) Embed(context.Context, string) ([]float32, error) { return nil, e.err() }

func (e disabledEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, e.err()
}

func (e disabledEmbedder) Dimensions() int { return e.dims }

func (e disabledEmbedder) ModelName() string { return e.model }

func (e disabledEmbedder) Ping(context.Context) error { return e.err() }

func (e disabledEmbedder) Close() error { return nil }
