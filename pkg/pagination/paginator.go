package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for pagination operations.
var (
	koladaPagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kolada_pages_fetched_total",
		Help: "Total pages fetched by endpoint",
	}, []string{"endpoint"})

	koladaBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kolada_batches_total",
		Help: "Total batch sub-requests by endpoint and outcome",
	}, []string{"endpoint", "status"})
)

// ErrPaginationStuck is returned when a paginated fetch exceeds the
// configured page cap without the server ever dropping next_url.
var ErrPaginationStuck = errors.New("pagination did not terminate")

// Config holds paginator and batcher configuration.
type Config struct {
	// PerPage is the page size requested when the caller supplies none.
	// Kolada allows at most 5000.
	PerPage int

	// MaxPages caps the number of pages followed in one fetch. Zero
	// disables the cap and trusts the server to terminate.
	MaxPages int

	// MaxBatchSize is the longest list-valued parameter sent in a single
	// request. Kolada rejects longer lists.
	MaxBatchSize int
}

// DefaultConfig returns the Kolada service limits.
func DefaultConfig() Config {
	return Config{
		PerPage:      5000,
		MaxPages:     10000,
		MaxBatchSize: 25,
	}
}

// Fetcher accumulates paginated and batched results from a PageFetcher.
type Fetcher struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewFetcher creates a Fetcher. Zero config fields fall back to defaults.
func NewFetcher(fetcher PageFetcher, config Config) *Fetcher {
	def := DefaultConfig()
	if config.PerPage <= 0 {
		config.PerPage = def.PerPage
	}
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = def.MaxBatchSize
	}
	if config.MaxPages < 0 {
		config.MaxPages = 0
	}

	return &Fetcher{
		fetcher: fetcher,
		config:  config,
		logger:  log.With().Str("component", "pagination").Logger(),
	}
}

// FetchAll follows the next_url cursor chain and returns every result item
// in page order. The caller's params are not modified.
func (f *Fetcher) FetchAll(ctx context.Context, endpoint string, params Params) ([]json.RawMessage, error) {
	start := time.Now()

	p := params.Clone()
	if p.Get("page") == "" {
		p.Set("page", "1")
	}
	if p.Get("per_page") == "" {
		p.Set("per_page", strconv.Itoa(f.config.PerPage))
	}

	logger := f.logger.With().
		Str("endpoint", endpoint).
		Str("op_id", uuid.NewString()).
		Logger()

	var items []json.RawMessage
	totalCount := -1
	pages := 0

	for {
		page, err := f.fetcher.FetchPage(ctx, endpoint, p)
		if err != nil {
			return nil, fmt.Errorf("fetch page %s of %s: %w", p.Get("page"), endpoint, err)
		}

		items = append(items, page.Values...)
		pages++
		koladaPagesFetchedTotal.WithLabelValues(endpoint).Inc()

		// The count is progress information only; the cursor decides
		// termination.
		if totalCount < 0 && page.Count != nil {
			totalCount = *page.Count
			logger.Debug().
				Int("total_count", totalCount).
				Msg("Server reported total count")
		}

		if pages%50 == 0 {
			logger.Info().
				Int("pages", pages).
				Int("items", len(items)).
				Int("total_count", totalCount).
				Msg("Fetch progress")
		}

		if !page.HasNext() {
			break
		}

		if f.config.MaxPages > 0 && pages >= f.config.MaxPages {
			logger.Error().
				Int("pages", pages).
				Msg("Page cap exceeded with next_url still present")
			return nil, fmt.Errorf("%w: %s after %d pages", ErrPaginationStuck, endpoint, pages)
		}

		pageNum, err := strconv.Atoi(p.Get("page"))
		if err != nil {
			return nil, fmt.Errorf("invalid page parameter %q: %w", p.Get("page"), err)
		}
		p.Set("page", strconv.Itoa(pageNum+1))
	}

	logger.Debug().
		Int("pages", pages).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items, nil
}
