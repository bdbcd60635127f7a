package oracle

import (
	"context"
	"errors"
	"io"
	"log/slog"

	oracleclient "github.com/Apurer/go-gin-donation-matcher/internal/clients/http/oracle"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
)

var _ ports.SimilarityOracle = (*Oracle)(nil)

// Oracle implements the similarity port over the HTTP oracle client.
type Oracle struct {
	client *oracleclient.Client
	logger *slog.Logger
}

// New wires an oracle HTTP client into the port. A nil logger discards output.
func New(client *oracleclient.Client, logger *slog.Logger) *Oracle {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Oracle{client: client, logger: logger}
}

// Similarity returns the oracle's answer. Failures are logged and returned
// unchanged so the scorer can fall back to token overlap.
func (o *Oracle) Similarity(ctx context.Context, a, b string) (float64, error) {
	if o == nil || o.client == nil {
		return 0, errors.New("similarity oracle not configured")
	}
	v, err := o.client.Similarity(ctx, a, b)
	if err != nil {
		o.logger.LogAttrs(ctx, slog.LevelWarn, "similarity oracle call failed", slog.String("error", err.Error()))
		return 0, err
	}
	return v, nil
}
