package compliance

import (
	"encoding/json"

	"compliance-service/internal/models"
)

// Dataset keys as they appear in the raw report returned by the compliance
// data API. Unknown or absent datasets always fall back to defaults.
const (
	DatasetTreeCoverLoss   = "tree cover loss"
	DatasetForestCover     = "jrc global forest cover"
	DatasetLossDrivers     = "tsc tree cover loss drivers"
	DatasetSoilCarbon      = "soil carbon"
	DatasetTreeCoverExtent = "wri tropical tree cover extent"
)

// RawReport is a dataset-keyed raw analysis result. Each dataset holds one or
// more entries whose data_fields payload is loosely structured: a single
// object, or an array of objects, depending on the dataset's grouping.
type RawReport map[string][]DatasetEntry

// DatasetEntry is one analysis entry within a dataset.
type DatasetEntry struct {
	GroupedBy  string `json:"grouped_by,omitempty"`
	DataFields any    `json:"data_fields"`
}

// FromAny converts a decoded JSON object into a RawReport. Values that do not
// match the expected entry shape are dropped rather than rejected, so a
// partial or malformed report still derives a best-effort summary.
func FromAny(data map[string]any) RawReport {
	raw := RawReport{}
	for dataset, value := range data {
		switch v := value.(type) {
		case []any:
			for _, item := range v {
				if entry, ok := entryFromAny(item); ok {
					raw[dataset] = append(raw[dataset], entry)
				}
			}
		case map[string]any:
			if entry, ok := entryFromAny(v); ok {
				raw[dataset] = append(raw[dataset], entry)
			}
		}
	}
	return raw
}

func entryFromAny(item any) (DatasetEntry, bool) {
	obj, ok := item.(map[string]any)
	if !ok {
		return DatasetEntry{}, false
	}
	entry := DatasetEntry{DataFields: obj["data_fields"]}
	if g, ok := obj["grouped_by"].(string); ok {
		entry.GroupedBy = g
	}
	return entry, true
}

// first returns the dataset's first entry, or nil when absent or empty.
func (r RawReport) first(dataset string) *DatasetEntry {
	entries, ok := r[dataset]
	if !ok || len(entries) == 0 {
		return nil
	}
	return &entries[0]
}

// firstFields returns the first entry's data_fields, or nil when absent.
func (r RawReport) firstFields(dataset string) any {
	entry := r.first(dataset)
	if entry == nil {
		return nil
	}
	return entry.DataFields
}

// fieldFloat reads a numeric field out of a data_fields object. Any missing
// intermediate shape yields 0, never an error.
func fieldFloat(fields any, key string) float64 {
	obj, ok := fields.(map[string]any)
	if !ok {
		return 0
	}
	switch v := obj[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// fieldString reads a string field out of a data_fields object, "" if absent.
func fieldString(fields any, key string) string {
	obj, ok := fields.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := obj[key].(string)
	return s
}

// records normalizes a data_fields payload into a list of objects: an array
// keeps its object elements, a single object becomes a one-element list, and
// anything else yields nil.
func records(fields any) []map[string]any {
	switch v := fields.(type) {
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				out = append(out, obj)
			}
		}
		return out
	case map[string]any:
		return []map[string]any{v}
	default:
		return nil
	}
}

// recordList is like records but only accepts array payloads.
func recordList(fields any) ([]map[string]any, bool) {
	if _, ok := fields.([]any); !ok {
		return nil, false
	}
	return records(fields), true
}

// Report is the derived, read-only compliance summary. It is computed fresh
// on every derivation and never mutated afterwards.
type Report struct {
	AreaHectares          *float64                `json:"area_hectares"`
	AreaSquareMeters      *float64                `json:"area_square_meters"`
	TreeCoverLossHectares float64                 `json:"tree_cover_loss_hectares"`
	HasForestCover        bool                    `json:"has_forest_cover"`
	Status                models.ComplianceStatus `json:"compliance_status"`
	DominantLossDriver    string                  `json:"dominant_loss_driver"`
	ProtectedAreas        map[string]string       `json:"protected_area_breakdown"`
	CoverExtent           CoverExtentSummary      `json:"cover_extent_summary"`
}

// CoverExtentSummary aggregates the tree-cover-extent dataset grouped by
// decile band.
type CoverExtentSummary struct {
	NonZeroCount      float64       `json:"non_zero_count"`
	TotalCount        float64       `json:"total_count"`
	PercentageNonZero float64       `json:"percentage_non_zero"`
	Deciles           []DecileCount `json:"per_decile_counts"`
}

// DecileCount retains one raw per-decile pair in insertion order.
type DecileCount struct {
	Value float64 `json:"value"`
	Count float64 `json:"count"`
}
