// Package pagination implements cursor pagination and parameter batching
// for Kolada list endpoints.
//
// Kolada pages results with a next_url cursor in the response envelope and
// rejects requests whose list-valued filters grow too long. This package
// walks the cursor chain into one ordered result sequence, and splits
// oversized filter lists into bounded slices whose Cartesian combinations
// are fetched one by one and recombined.
//
// Example usage:
//
//	fetcher := pagination.NewFetcher(koladaClient, pagination.DefaultConfig())
//	items, err := fetcher.FetchAll(ctx, "municipality", nil)
//
// The batcher:
//   - Leaves requests without oversized lists untouched (single fetch)
//   - Slices each batchable list in input order, never reordering
//   - Issues one paginated fetch per slice combination
//   - Tolerates individual combination failures (partial data plus a
//     manifest of the failed combinations)
package pagination
