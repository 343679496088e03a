package kolada

import "github.com/Sternrassler/kolada-client/pkg/pagination"

// KPI is one indicator from the kpi catalog.
type KPI struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	Description         string `json:"description"`
	OperatingArea       string `json:"operating_area"`
	Perspective         string `json:"perspective"`
	Auspice             string `json:"auspice"`
	MunicipalityType    string `json:"municipality_type"`
	IsDividedByGender   bool   `json:"is_divided_by_gender"`
	HasOUData           bool   `json:"has_ou_data"`
	PublicationDate     string `json:"publication_date"`
	PrelPublicationDate string `json:"prel_publication_date"`
	PublPeriod          string `json:"publ_period"`
}

// KPIGroup is a named collection of indicators.
type KPIGroup struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Members []GroupMember `json:"members"`
}

// MunicipalityGroup is a named collection of municipalities.
type MunicipalityGroup struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Members []GroupMember `json:"members"`
}

// GroupMember references one entity inside a group.
type GroupMember struct {
	MemberID    string `json:"member_id"`
	MemberTitle string `json:"member_title"`
}

// Municipality is one geographic unit. Type is "K" for kommun or "L" for
// landsting/region.
type Municipality struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// OrganizationalUnit is a sub-unit (school, facility) nested under a
// municipality.
type OrganizationalUnit struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Municipality string `json:"municipality"`
}

// DataValue is one measurement within a data point. Value is nil when the
// service suppressed or lacks the number.
type DataValue struct {
	Gender    string   `json:"gender"`
	Count     int      `json:"count"`
	Status    string   `json:"status"`
	Value     *float64 `json:"value"`
	IsDeleted bool     `json:"isdeleted"`
}

// DataPoint is one observation record from data/ or oudata/: an indicator,
// a period, a municipality or OU, and the per-gender measurements.
type DataPoint struct {
	KPI          string      `json:"kpi"`
	Period       int         `json:"period"`
	Municipality string      `json:"municipality,omitempty"`
	OU           string      `json:"ou,omitempty"`
	Values       []DataValue `json:"values"`
}

// DataRow is one flattened observation: the parent identifiers plus one
// measurement. Measurement fields are nil on rows produced from a data
// point with no values.
type DataRow struct {
	KPI          string   `json:"kpi"`
	Period       int      `json:"period"`
	Municipality string   `json:"municipality,omitempty"`
	OU           string   `json:"ou,omitempty"`
	Gender       *string  `json:"gender,omitempty"`
	Count        *int     `json:"count,omitempty"`
	Status       *string  `json:"status,omitempty"`
	Value        *float64 `json:"value,omitempty"`
	IsDeleted    *bool    `json:"isdeleted,omitempty"`
}

// KPIFilter narrows a KPI search. PublicationDate accepts a "YYYY-MM-DD"
// string or a time.Time; it and OperatingArea are applied client-side, the
// title query server-side.
type KPIFilter struct {
	Title           string
	PublicationDate any
	OperatingArea   string
}

// MunicipalityFilter narrows a municipality listing.
type MunicipalityFilter struct {
	Title string
	Type  string
}

// OUFilter narrows an organizational-unit listing. TypePrefix filters ids
// client-side by prefix (e.g. "V11" for preschools).
type OUFilter struct {
	Title        string
	Municipality string
	TypePrefix   string
}

// ValuesQuery selects observation data. At least one of KPIIDs,
// MunicipalityIDs or Years must be set. Setting OUIDs routes the query to
// the oudata/ endpoint. UpdatedSince accepts a "YYYY-MM-DD" string or a
// time.Time.
type ValuesQuery struct {
	KPIIDs          []string
	MunicipalityIDs []string
	OUIDs           []string
	Years           []int
	UpdatedSince    any
}

// ValuesResult is the outcome of a data query. FailedBatches lists the
// parameter combinations that were skipped after a batch failure; an empty
// list means Data is complete.
type ValuesResult struct {
	Data          []DataPoint
	FailedBatches []pagination.BatchFailure
}
