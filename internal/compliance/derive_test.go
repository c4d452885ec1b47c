package compliance

import (
	"testing"

	"compliance-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func lossEntry(areaHa float64) []DatasetEntry {
	return []DatasetEntry{{DataFields: map[string]any{"area__ha": areaHa}}}
}

func driverEntries(recs ...map[string]any) []DatasetEntry {
	fields := make([]any, 0, len(recs))
	for _, r := range recs {
		fields = append(fields, r)
	}
	return []DatasetEntry{{DataFields: fields}}
}

// unitSquare is a 1x1 degree square near the equator, roughly 12,300 km2.
var unitSquare = [][]float64{
	{10, 0}, {11, 0}, {11, 1}, {10, 1}, {10, 0},
}

// ============================================================================
// TEST SUITE 1: DERIVATION DEFAULTS AND PURITY
// ============================================================================

func TestDerive_EmptyReportYieldsDefaults(t *testing.T) {
	report := Derive(RawReport{}, nil)

	assert.Nil(t, report.AreaHectares)
	assert.Nil(t, report.AreaSquareMeters)
	assert.Equal(t, 0.0, report.TreeCoverLossHectares)
	assert.False(t, report.HasForestCover)
	assert.Equal(t, models.ComplianceFullyCompliant, report.Status)
	assert.Equal(t, UnknownDriver, report.DominantLossDriver)
	assert.Equal(t, map[string]string{"No Data": "0%"}, report.ProtectedAreas)
	assert.Equal(t, 0.0, report.CoverExtent.TotalCount)
}

func TestDerive_NilRawReportDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		report := Derive(nil, unitSquare)
		assert.Equal(t, models.ComplianceFullyCompliant, report.Status)
	})
}

func TestDerive_IsDeterministic(t *testing.T) {
	raw := RawReport{
		DatasetTreeCoverLoss: lossEntry(12.5),
		DatasetForestCover:   lossEntry(40),
		DatasetLossDrivers: driverEntries(
			map[string]any{"driver": "fire", "count": 3.0},
			map[string]any{"driver": "urban", "count": 7.0},
		),
	}

	first := Derive(raw, unitSquare)
	second := Derive(raw, unitSquare)

	assert.Equal(t, first, second)
}

func TestDerive_MalformedFieldsFallBackToDefaults(t *testing.T) {
	raw := RawReport{
		DatasetTreeCoverLoss: []DatasetEntry{{DataFields: "not an object"}},
		DatasetForestCover:   []DatasetEntry{{DataFields: []any{1, 2, 3}}},
		DatasetLossDrivers:   []DatasetEntry{{DataFields: map[string]any{"area__ha": true}}},
	}

	report := Derive(raw, nil)

	assert.Equal(t, 0.0, report.TreeCoverLossHectares)
	assert.False(t, report.HasForestCover)
	assert.Equal(t, UnknownDriver, report.DominantLossDriver)
}

// ============================================================================
// TEST SUITE 2: AREA
// ============================================================================

func TestDerive_UnitSquareHasPositiveArea(t *testing.T) {
	report := Derive(RawReport{}, unitSquare)

	require.NotNil(t, report.AreaSquareMeters)
	require.NotNil(t, report.AreaHectares)
	assert.Greater(t, *report.AreaSquareMeters, 0.0)
	assert.InDelta(t, *report.AreaSquareMeters/10000, *report.AreaHectares, 0.001)
	// A 1x1 degree cell near the equator is on the order of 1.2e6 hectares.
	assert.InDelta(t, 1.23e6, *report.AreaHectares, 0.1e6)
}

func TestDerive_DegeneratePolygonLeavesAreaUnset(t *testing.T) {
	assert.NotPanics(t, func() {
		report := Derive(RawReport{}, [][]float64{{10, 0}, {11, 0}})
		assert.Nil(t, report.AreaHectares)
		assert.Nil(t, report.AreaSquareMeters)
	})
}

func TestDerive_OpenRingIsClosedAutomatically(t *testing.T) {
	open := [][]float64{{10, 0}, {11, 0}, {11, 1}, {10, 1}}

	fromOpen := Derive(RawReport{}, open)
	fromClosed := Derive(RawReport{}, unitSquare)

	require.NotNil(t, fromOpen.AreaSquareMeters)
	assert.InDelta(t, *fromClosed.AreaSquareMeters, *fromOpen.AreaSquareMeters, 1)
}

// ============================================================================
// TEST SUITE 3: COMPLIANCE TRUTH TABLE
// ============================================================================

func TestDerive_ComplianceTruthTable(t *testing.T) {
	tests := []struct {
		name     string
		lossHa   float64
		coverHa  float64
		expected models.ComplianceStatus
	}{
		{"no loss, no cover", 0, 0, models.ComplianceFullyCompliant},
		{"no loss, cover present", 0, 55, models.ComplianceLikelyCompliant},
		{"loss, no cover", 8.2, 0, models.ComplianceLikelyCompliant},
		{"loss and cover", 8.2, 55, models.ComplianceNotCompliant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := RawReport{
				DatasetTreeCoverLoss: lossEntry(tt.lossHa),
				DatasetForestCover:   lossEntry(tt.coverHa),
			}

			report := Derive(raw, nil)

			assert.Equal(t, tt.expected, report.Status)
			assert.Equal(t, tt.lossHa, report.TreeCoverLossHectares)
			assert.Equal(t, tt.coverHa > 0, report.HasForestCover)
		})
	}
}

// ============================================================================
// TEST SUITE 4: DOMINANT LOSS DRIVER
// ============================================================================

func TestDominantLossDriver_HighestCountWins(t *testing.T) {
	raw := RawReport{
		DatasetLossDrivers: driverEntries(
			map[string]any{"driver": "fire", "count": 2.0},
			map[string]any{"driver": "urban", "count": 5.0},
			map[string]any{"driver": "fire", "count": 2.0},
		),
	}

	report := Derive(raw, nil)

	// fire splits 2+2=4 across records, urban's single 5 still wins.
	assert.Equal(t, "urban", report.DominantLossDriver)
}

func TestDominantLossDriver_TieResolvesToFirstSeen(t *testing.T) {
	raw := RawReport{
		DatasetLossDrivers: driverEntries(
			map[string]any{"driver": "agriculture", "count": 4.0},
			map[string]any{"driver": "logging", "count": 4.0},
		),
	}

	report := Derive(raw, nil)

	assert.Equal(t, "agriculture", report.DominantLossDriver)
}

func TestDominantLossDriver_MissingDatasetIsUnknown(t *testing.T) {
	report := Derive(RawReport{}, nil)
	assert.Equal(t, UnknownDriver, report.DominantLossDriver)

	report = Derive(RawReport{
		DatasetLossDrivers: driverEntries(map[string]any{"count": 9.0}),
	}, nil)
	assert.Equal(t, UnknownDriver, report.DominantLossDriver)
}

// ============================================================================
// TEST SUITE 5: PROTECTED AREA BREAKDOWN
// ============================================================================

func TestProtectedAreas_PercentagesSumToHundred(t *testing.T) {
	raw := RawReport{
		DatasetSoilCarbon: driverEntries(
			map[string]any{"category": "Protected", "count": 30.0},
			map[string]any{"category": "Unprotected", "count": 10.0},
		),
	}

	report := Derive(raw, nil)

	assert.Equal(t, "75.00%", report.ProtectedAreas["Protected"])
	assert.Equal(t, "25.00%", report.ProtectedAreas["Unprotected"])
}

func TestProtectedAreas_ZeroTotalYieldsNoData(t *testing.T) {
	raw := RawReport{
		DatasetSoilCarbon: driverEntries(
			map[string]any{"category": "Protected", "count": 0.0},
		),
	}

	report := Derive(raw, nil)

	assert.Equal(t, map[string]string{"No Data": "0%"}, report.ProtectedAreas)
}

// ============================================================================
// TEST SUITE 6: COVER EXTENT DECILES
// ============================================================================

func TestCoverExtent_DecileAggregation(t *testing.T) {
	raw := RawReport{
		DatasetTreeCoverExtent: []DatasetEntry{{
			GroupedBy: "cover decile",
			DataFields: []any{
				map[string]any{"decile": 0.0, "count": 20.0},
				map[string]any{"decile": 30.0, "count": 50.0},
				map[string]any{"decile": 80.0, "count": 30.0},
			},
		}},
	}

	report := Derive(raw, nil)

	assert.Equal(t, 100.0, report.CoverExtent.TotalCount)
	assert.Equal(t, 80.0, report.CoverExtent.NonZeroCount)
	assert.InDelta(t, 80.0, report.CoverExtent.PercentageNonZero, 0.001)
	assert.Len(t, report.CoverExtent.Deciles, 3)
}

func TestCoverExtent_NonDecileEntriesIgnored(t *testing.T) {
	raw := RawReport{
		DatasetTreeCoverExtent: []DatasetEntry{
			{GroupedBy: "region", DataFields: []any{map[string]any{"decile": 50.0, "count": 10.0}}},
			{GroupedBy: "decile", DataFields: map[string]any{"decile": 50.0}},
		},
	}

	report := Derive(raw, nil)

	// The region entry is skipped; the decile entry is not an array.
	assert.Equal(t, 0.0, report.CoverExtent.TotalCount)
	assert.Equal(t, 0.0, report.CoverExtent.PercentageNonZero)
}

// ============================================================================
// TEST SUITE 7: RAW REPORT PARSING
// ============================================================================

func TestFromAny_AcceptsArrayAndSingleEntries(t *testing.T) {
	data := map[string]any{
		DatasetTreeCoverLoss: []any{
			map[string]any{"data_fields": map[string]any{"area__ha": 3.5}},
		},
		DatasetForestCover: map[string]any{
			"data_fields": map[string]any{"area__ha": 12.0},
		},
		"bogus": "not an entry",
	}

	raw := FromAny(data)

	assert.Len(t, raw[DatasetTreeCoverLoss], 1)
	assert.Len(t, raw[DatasetForestCover], 1)
	assert.NotContains(t, raw, "bogus")

	report := Derive(raw, nil)
	assert.Equal(t, 3.5, report.TreeCoverLossHectares)
	assert.True(t, report.HasForestCover)
	assert.Equal(t, models.ComplianceNotCompliant, report.Status)
}

func TestFromAny_DropsMalformedItems(t *testing.T) {
	data := map[string]any{
		DatasetTreeCoverLoss: []any{"garbage", 42, map[string]any{"data_fields": map[string]any{"area__ha": 1.0}}},
	}

	raw := FromAny(data)

	require.Len(t, raw[DatasetTreeCoverLoss], 1)
	assert.Equal(t, 1.0, Derive(raw, nil).TreeCoverLossHectares)
}
