// Package kolada is the public facade of the Kolada v3 API client: typed
// catalog lookups, observation-data queries with transparent pagination and
// batching, and helpers to reshape nested responses into flat rows.
package kolada

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sternrassler/kolada-client/pkg/client"
	"github.com/Sternrassler/kolada-client/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// API wraps the core client and fetcher behind typed catalog and data
// operations.
type API struct {
	client       *client.Client
	fetcher      *pagination.Fetcher
	maxBatchSize int
	logger       zerolog.Logger
}

// New creates a Kolada API facade. Zero config fields fall back to the
// service defaults; see client.DefaultConfig.
func New(cfg client.Config) (*API, error) {
	c, err := client.New(cfg)
	if err != nil {
		return nil, err
	}

	effective := c.Config()
	fetcher := pagination.NewFetcher(c, pagination.Config{
		PerPage:      effective.PerPage,
		MaxPages:     effective.MaxPages,
		MaxBatchSize: effective.MaxBatchSize,
	})

	return &API{
		client:       c,
		fetcher:      fetcher,
		maxBatchSize: effective.MaxBatchSize,
		logger:       log.With().Str("component", "kolada").Logger(),
	}, nil
}

// decodeValues unmarshals raw envelope items into typed records.
func decodeValues[T any](endpoint string, raw []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raw))
	for _, item := range raw {
		var record T
		if err := json.Unmarshal(item, &record); err != nil {
			return nil, &client.APIError{
				Endpoint: endpoint,
				Class:    client.ErrorClassAPI,
				Message:  "decode record",
				Err:      err,
			}
		}
		out = append(out, record)
	}
	return out, nil
}

// listAll runs a paginated fetch and decodes the items.
func listAll[T any](ctx context.Context, a *API, endpoint string, params pagination.Params) ([]T, error) {
	raw, err := a.fetcher.FetchAll(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	return decodeValues[T](endpoint, raw)
}

// getOne fetches a singular resource by id and fails with ErrNotFound on
// an empty result set.
func getOne[T any](ctx context.Context, a *API, endpoint, kind, id string) (*T, error) {
	page, err := a.client.FetchPage(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	records, err := decodeValues[T](endpoint, page.Values)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s %q: %w", kind, id, client.ErrNotFound)
	}
	return &records[0], nil
}

// SearchKPIs searches the indicator catalog. The title query is sent to
// the server; publication-date and operating-area filters are applied
// client-side, matching the service's own search behavior.
func (a *API) SearchKPIs(ctx context.Context, filter KPIFilter) ([]KPI, error) {
	var pubDate string
	if filter.PublicationDate != nil {
		var err error
		pubDate, err = NormalizeDate(filter.PublicationDate)
		if err != nil {
			return nil, err
		}
	}

	params := pagination.Params{}
	if filter.Title != "" {
		params.Set("title", filter.Title)
	}

	kpis, err := listAll[KPI](ctx, a, "kpi", params)
	if err != nil {
		return nil, err
	}

	if pubDate != "" {
		kpis = filterKPIs(kpis, func(k KPI) bool { return k.PublicationDate == pubDate })
	}
	if filter.OperatingArea != "" {
		kpis = filterKPIs(kpis, func(k KPI) bool { return k.OperatingArea == filter.OperatingArea })
	}

	return kpis, nil
}

func filterKPIs(kpis []KPI, keep func(KPI) bool) []KPI {
	out := kpis[:0]
	for _, k := range kpis {
		if keep(k) {
			out = append(out, k)
		}
	}
	return out
}

// GetKPI fetches a single indicator by id.
func (a *API) GetKPI(ctx context.Context, kpiID string) (*KPI, error) {
	return getOne[KPI](ctx, a, "kpi/"+kpiID, "kpi", kpiID)
}

// GetKPIs fetches multiple indicators by id. The ids travel comma-joined
// in the path, chunked at the batch size limit.
func (a *API) GetKPIs(ctx context.Context, kpiIDs []string) ([]KPI, error) {
	var kpis []KPI
	for start := 0; start < len(kpiIDs); start += a.maxBatchSize {
		end := start + a.maxBatchSize
		if end > len(kpiIDs) {
			end = len(kpiIDs)
		}
		endpoint := "kpi/" + strings.Join(kpiIDs[start:end], ",")
		batch, err := listAll[KPI](ctx, a, endpoint, nil)
		if err != nil {
			return nil, err
		}
		kpis = append(kpis, batch...)
	}
	return kpis, nil
}

// GetKPIGroups lists indicator groups, optionally filtered by title.
func (a *API) GetKPIGroups(ctx context.Context, titleQuery string) ([]KPIGroup, error) {
	params := pagination.Params{}
	if titleQuery != "" {
		params.Set("title", titleQuery)
	}
	return listAll[KPIGroup](ctx, a, "kpi_groups", params)
}

// GetKPIGroup fetches a single indicator group by id.
func (a *API) GetKPIGroup(ctx context.Context, groupID string) (*KPIGroup, error) {
	return getOne[KPIGroup](ctx, a, "kpi_groups/"+groupID, "kpi group", groupID)
}

// GetMunicipalities lists municipalities, optionally filtered by title and
// type.
func (a *API) GetMunicipalities(ctx context.Context, filter MunicipalityFilter) ([]Municipality, error) {
	params := pagination.Params{}
	if filter.Title != "" {
		params.Set("title", filter.Title)
	}
	if filter.Type != "" {
		params.Set("type", filter.Type)
	}
	return listAll[Municipality](ctx, a, "municipality", params)
}

// GetMunicipality fetches a single municipality by id.
func (a *API) GetMunicipality(ctx context.Context, municipalityID string) (*Municipality, error) {
	return getOne[Municipality](ctx, a, "municipality/"+municipalityID, "municipality", municipalityID)
}

// GetMunicipalityGroups lists municipality groups, optionally filtered by
// title.
func (a *API) GetMunicipalityGroups(ctx context.Context, titleQuery string) ([]MunicipalityGroup, error) {
	params := pagination.Params{}
	if titleQuery != "" {
		params.Set("title", titleQuery)
	}
	return listAll[MunicipalityGroup](ctx, a, "municipality_groups", params)
}

// GetMunicipalityGroup fetches a single municipality group by id.
func (a *API) GetMunicipalityGroup(ctx context.Context, groupID string) (*MunicipalityGroup, error) {
	return getOne[MunicipalityGroup](ctx, a, "municipality_groups/"+groupID, "municipality group", groupID)
}

// GetOrganizationalUnits lists organizational units. Title and
// municipality filters are server-side; the id type prefix is applied
// client-side.
func (a *API) GetOrganizationalUnits(ctx context.Context, filter OUFilter) ([]OrganizationalUnit, error) {
	params := pagination.Params{}
	if filter.Title != "" {
		params.Set("title", filter.Title)
	}
	if filter.Municipality != "" {
		params.Set("municipality", filter.Municipality)
	}

	units, err := listAll[OrganizationalUnit](ctx, a, "ou", params)
	if err != nil {
		return nil, err
	}

	if filter.TypePrefix != "" {
		filtered := units[:0]
		for _, u := range units {
			if strings.HasPrefix(u.ID, filter.TypePrefix) {
				filtered = append(filtered, u)
			}
		}
		units = filtered
	}

	return units, nil
}

// GetOrganizationalUnit fetches a single organizational unit by id.
func (a *API) GetOrganizationalUnit(ctx context.Context, ouID string) (*OrganizationalUnit, error) {
	return getOne[OrganizationalUnit](ctx, a, "ou/"+ouID, "organizational unit", ouID)
}

// GetValues fetches observation data, batching any id or year list that
// exceeds the batch size limit. Batches that fail are skipped and reported
// in the result's FailedBatches manifest.
func (a *API) GetValues(ctx context.Context, query ValuesQuery) (*ValuesResult, error) {
	if len(query.KPIIDs) == 0 && len(query.MunicipalityIDs) == 0 && len(query.Years) == 0 {
		return nil, fmt.Errorf("%w: at least one of KPI ids, municipality ids or years is required", client.ErrValidation)
	}

	endpoint := "data/"
	params := pagination.Params{}

	if len(query.OUIDs) > 0 {
		endpoint = "oudata/"
		params.Set("ou_id", query.OUIDs...)
	}
	if len(query.KPIIDs) > 0 {
		params.Set("kpi_id", query.KPIIDs...)
	}
	if len(query.MunicipalityIDs) > 0 {
		params.Set("municipality_id", query.MunicipalityIDs...)
	}
	if len(query.Years) > 0 {
		years := make([]string, len(query.Years))
		for i, y := range query.Years {
			years[i] = strconv.Itoa(y)
		}
		params.Set("year", years...)
	}
	if query.UpdatedSince != nil {
		fromDate, err := NormalizeDate(query.UpdatedSince)
		if err != nil {
			return nil, err
		}
		params.Set("from_date", fromDate)
	}

	// The batcher is only engaged when some list is too long for a single
	// request; both paths return the same data for inputs within the
	// limit.
	var batchable []string
	for _, name := range []string{"kpi_id", "municipality_id", "ou_id", "year"} {
		if len(params[name]) > a.maxBatchSize {
			batchable = append(batchable, name)
		}
	}

	if len(batchable) == 0 {
		raw, err := a.fetcher.FetchAll(ctx, endpoint, params)
		if err != nil {
			return nil, err
		}
		data, err := decodeValues[DataPoint](endpoint, raw)
		if err != nil {
			return nil, err
		}
		return &ValuesResult{Data: data}, nil
	}

	res, err := a.fetcher.FetchBatched(ctx, endpoint, params, batchable)
	if err != nil {
		return nil, err
	}
	data, err := decodeValues[DataPoint](endpoint, res.Values)
	if err != nil {
		return nil, err
	}
	if len(res.Failed) > 0 {
		a.logger.Warn().
			Str("endpoint", endpoint).
			Int("failed_batches", len(res.Failed)).
			Msg("Data query returned partial results")
	}
	return &ValuesResult{Data: data, FailedBatches: res.Failed}, nil
}
