package kolada

import "strings"

// Flatten explodes nested data points into one row per measurement. A data
// point with no measurements still yields one row carrying only the parent
// identifying fields.
func Flatten(data []DataPoint) []DataRow {
	rows := make([]DataRow, 0, len(data))

	for _, point := range data {
		base := DataRow{
			KPI:          point.KPI,
			Period:       point.Period,
			Municipality: point.Municipality,
			OU:           point.OU,
		}

		if len(point.Values) == 0 {
			rows = append(rows, base)
			continue
		}

		for _, v := range point.Values {
			row := base
			gender, count, status, isDeleted := v.Gender, v.Count, v.Status, v.IsDeleted
			row.Gender = &gender
			row.Count = &count
			row.Status = &status
			row.Value = v.Value
			row.IsDeleted = &isDeleted
			rows = append(rows, row)
		}
	}

	return rows
}

// GroupByPeriod pivots flattened rows into period -> series identifier ->
// value, where the identifier is the KPI id suffixed with the gender when
// present.
func GroupByPeriod(rows []DataRow) map[int]map[string]*float64 {
	result := make(map[int]map[string]*float64)

	for _, row := range rows {
		series, ok := result[row.Period]
		if !ok {
			series = make(map[string]*float64)
			result[row.Period] = series
		}

		id := row.KPI
		if row.Gender != nil && *row.Gender != "" {
			id += "_" + *row.Gender
		}
		series[id] = row.Value
	}

	return result
}

// Entity types recognized by EntityType.
const (
	EntityKPI          = "kpi"
	EntityMunicipality = "municipality"
	EntityOU           = "ou"
	EntityUnknown      = "unknown"
)

// EntityType guesses what an identifier refers to from its shape: KPI ids
// are N/U plus five digits, municipality ids are four digits, OU ids start
// with V and two digits.
func EntityType(id string) string {
	switch {
	case id == "":
		return EntityUnknown
	case (id[0] == 'N' || id[0] == 'U') && len(id) == 6 && isDigits(id[1:]):
		return EntityKPI
	case len(id) == 4 && isDigits(id):
		return EntityMunicipality
	case id[0] == 'V' && len(id) >= 3 && isDigits(id[1:3]):
		return EntityOU
	default:
		return EntityUnknown
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) < 0
}
