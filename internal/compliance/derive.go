package compliance

import (
	"fmt"
	"strings"

	"compliance-service/internal/models"
)

// UnknownDriver is reported when the loss-driver dataset is absent or empty.
const UnknownDriver = "Unknown"

// Derive computes a ComplianceReport from a raw dataset-keyed report and an
// optional polygon given as [lng, lat] points. It is pure and synchronous:
// identical inputs yield identical outputs, missing or malformed fields fall
// back to defaults, and it never panics.
func Derive(raw RawReport, polygon [][]float64) Report {
	report := Report{}

	if sqm, ok := RingArea(polygon); ok {
		ha := sqm / 10000
		report.AreaSquareMeters = &sqm
		report.AreaHectares = &ha
	}

	report.TreeCoverLossHectares = fieldFloat(raw.firstFields(DatasetTreeCoverLoss), "area__ha")
	report.HasForestCover = fieldFloat(raw.firstFields(DatasetForestCover), "area__ha") > 0
	report.Status = statusFor(report.TreeCoverLossHectares > 0, report.HasForestCover)
	report.DominantLossDriver = dominantLossDriver(raw)
	report.ProtectedAreas = protectedAreaBreakdown(raw)
	report.CoverExtent = coverExtentSummary(raw)

	return report
}

// statusFor is the compliance truth table over (loss detected, forest cover
// present). The final branch is unreachable from the inputs above but keeps
// the verdict total.
func statusFor(hasLoss, hasForestCover bool) models.ComplianceStatus {
	switch {
	case !hasLoss && !hasForestCover:
		return models.ComplianceFullyCompliant
	case !hasLoss && hasForestCover:
		return models.ComplianceLikelyCompliant
	case hasLoss && !hasForestCover:
		return models.ComplianceLikelyCompliant
	case hasLoss && hasForestCover:
		return models.ComplianceNotCompliant
	default:
		return models.ComplianceAssessmentPending
	}
}

// dominantLossDriver accumulates counts per driver across the loss-drivers
// dataset and picks the highest total. Ties resolve to the driver seen first.
func dominantLossDriver(raw RawReport) string {
	recs := records(raw.firstFields(DatasetLossDrivers))
	if len(recs) == 0 {
		return UnknownDriver
	}

	counts := map[string]float64{}
	var order []string
	for _, rec := range recs {
		driver := fieldString(rec, "driver")
		if driver == "" {
			continue
		}
		if _, seen := counts[driver]; !seen {
			order = append(order, driver)
		}
		counts[driver] += fieldFloat(rec, "count")
	}

	if len(order) == 0 {
		return UnknownDriver
	}

	dominant := order[0]
	for _, driver := range order[1:] {
		if counts[driver] > counts[dominant] {
			dominant = driver
		}
	}
	return dominant
}

// protectedAreaBreakdown turns the soil-carbon category counts into
// percentage strings summing to 100%.
func protectedAreaBreakdown(raw RawReport) map[string]string {
	recs := records(raw.firstFields(DatasetSoilCarbon))

	counts := map[string]float64{}
	var order []string
	total := 0.0
	for _, rec := range recs {
		category := fieldString(rec, "category")
		if category == "" {
			continue
		}
		count := fieldFloat(rec, "count")
		if _, seen := counts[category]; !seen {
			order = append(order, category)
		}
		counts[category] += count
		total += count
	}

	if total == 0 {
		return map[string]string{"No Data": "0%"}
	}

	breakdown := make(map[string]string, len(order))
	for _, category := range order {
		breakdown[category] = fmt.Sprintf("%.2f%%", counts[category]/total*100)
	}
	return breakdown
}

// coverExtentSummary aggregates the tree-cover-extent entry grouped by
// decile. A decile of 0 means no cover; everything else counts as covered.
func coverExtentSummary(raw RawReport) CoverExtentSummary {
	summary := CoverExtentSummary{}

	entries := raw[DatasetTreeCoverExtent]
	for i := range entries {
		entry := &entries[i]
		if !strings.Contains(strings.ToLower(entry.GroupedBy), "decile") {
			continue
		}
		recs, ok := recordList(entry.DataFields)
		if !ok {
			continue
		}

		for _, rec := range recs {
			decile := fieldFloat(rec, "decile")
			count := fieldFloat(rec, "count")
			summary.TotalCount += count
			if decile != 0 {
				summary.NonZeroCount += count
			}
			summary.Deciles = append(summary.Deciles, DecileCount{Value: decile, Count: count})
		}
		break
	}

	if summary.TotalCount > 0 {
		summary.PercentageNonZero = summary.NonZeroCount / summary.TotalCount * 100
	}
	return summary
}
