package pagination

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// BatchFailure records one slice combination whose paginated fetch failed.
// The combination's items are missing from the accumulated result.
type BatchFailure struct {
	// Params is the full parameter set of the failed sub-request.
	Params Params

	// Err is the error the paginated fetch returned.
	Err error
}

// BatchResult is the outcome of a batched fetch. Values holds the items of
// every combination that succeeded, concatenated in combination order.
// Failed lists the combinations that were skipped; an empty Failed means
// the result is complete.
type BatchResult struct {
	Values []json.RawMessage
	Failed []BatchFailure
}

// FetchBatched splits the named list-valued parameters into slices of at
// most MaxBatchSize, fetches every slice combination, and concatenates the
// results. A failing combination is logged, recorded in the manifest and
// skipped; the overall call still succeeds.
//
// When no named parameter carries a non-empty list the call is a plain
// FetchAll with the original parameters.
func (f *Fetcher) FetchBatched(ctx context.Context, endpoint string, params Params, batchable []string) (*BatchResult, error) {
	base := params.Clone()

	// Pull out the parameters that qualify for batching.
	names := make([]string, 0, len(batchable))
	slices := make(map[string][][]string)
	for _, name := range batchable {
		values := base[name]
		if len(values) == 0 {
			continue
		}
		names = append(names, name)
		slices[name] = chunkValues(values, f.config.MaxBatchSize)
		delete(base, name)
	}

	if len(names) == 0 {
		values, err := f.FetchAll(ctx, endpoint, params)
		if err != nil {
			return nil, err
		}
		return &BatchResult{Values: values}, nil
	}

	// Map iteration order is random; sort so the combination sequence is
	// reproducible.
	sort.Strings(names)

	combos := 1
	for _, name := range names {
		combos *= len(slices[name])
	}

	logger := f.logger.With().
		Str("endpoint", endpoint).
		Str("op_id", uuid.NewString()).
		Logger()
	logger.Info().
		Strs("batch_params", names).
		Int("combinations", combos).
		Msg("Starting batched fetch")

	start := time.Now()
	result := &BatchResult{}

	// Odometer over the slice index of each batchable parameter, least
	// significant digit last. Equivalent to the Cartesian product of the
	// index ranges.
	indices := make([]int, len(names))
	for {
		sub := base.Clone()
		for i, name := range names {
			sub[name] = slices[name][indices[i]]
		}

		items, err := f.FetchAll(ctx, endpoint, sub)
		if err != nil {
			logger.Error().
				Err(err).
				Str("batch_query", sub.Encode()).
				Msg("Batch sub-request failed, skipping")
			koladaBatchesTotal.WithLabelValues(endpoint, "failed").Inc()
			result.Failed = append(result.Failed, BatchFailure{Params: sub, Err: err})
		} else {
			koladaBatchesTotal.WithLabelValues(endpoint, "ok").Inc()
			result.Values = append(result.Values, items...)
		}

		if !advance(indices, names, slices) {
			break
		}
	}

	logger.Info().
		Int("combinations", combos).
		Int("failed", len(result.Failed)).
		Int("items", len(result.Values)).
		Dur("duration", time.Since(start)).
		Msg("Batched fetch complete")

	return result, nil
}

// chunkValues splits values into contiguous slices of at most size
// elements, preserving order. The final slice may be shorter, never empty.
func chunkValues(values []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	var out [][]string
	for i := 0; i < len(values); i += size {
		end := i + size
		if end > len(values) {
			end = len(values)
		}
		out = append(out, values[i:end])
	}
	return out
}

// advance increments the odometer; false means all combinations were
// visited.
func advance(indices []int, names []string, slices map[string][][]string) bool {
	for i := len(indices) - 1; i >= 0; i-- {
		indices[i]++
		if indices[i] < len(slices[names[i]]) {
			return true
		}
		indices[i] = 0
	}
	return false
}
