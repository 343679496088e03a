package pagination

import (
	"context"
	"encoding/json"
	"net/url"
)

// Page is the decoded Kolada response envelope. Every list endpoint wraps
// its records in this shape; a nil NextURL marks the last page.
type Page struct {
	Values  []json.RawMessage `json:"values"`
	Count   *int              `json:"count,omitempty"`
	NextURL *string           `json:"next_url,omitempty"`
}

// HasNext reports whether the server announced a further page.
func (p *Page) HasNext() bool {
	return p.NextURL != nil && *p.NextURL != ""
}

// Params holds query parameters for a Kolada request. Scalars are
// single-element slices; list-valued filters keep their input order, which
// makes batch membership deterministic across retries.
type Params map[string][]string

// Clone returns a copy that shares the value slices. Callers that replace
// a key's slice (the batcher) may do so without touching the original.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Get returns the first value for key, or "" when absent.
func (p Params) Get(key string) string {
	if vs := p[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Set replaces the values for key.
func (p Params) Set(key string, values ...string) {
	p[key] = values
}

// Encode serializes the parameters as a URL query string, list values as
// repeated keys.
func (p Params) Encode() string {
	return url.Values(p).Encode()
}

// PageFetcher fetches a single page of a Kolada endpoint. Implemented by
// client.Client; tests substitute scripted fakes.
type PageFetcher interface {
	FetchPage(ctx context.Context, endpoint string, params Params) (*Page, error)
}
