package codec

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"conjoint/internal/estimate"
)

// UtilitiesDoc is the fitted-model document consumed by the report generator
// and the market simulator.
type UtilitiesDoc struct {
	Utilities     map[string]map[string]float64 `json:"utilities"`
	Importance    map[string]float64            `json:"importance"`
	NObservations int                           `json:"n_observations"`
}

// EncodeUtilities flattens a fitted model into its document form.
func EncodeUtilities(m *estimate.UtilityModel) *UtilitiesDoc {
	return &UtilitiesDoc{
		Utilities:     m.Utilities,
		Importance:    m.Importance,
		NObservations: m.NObservations,
	}
}

// ReadUtilities loads a utilities document from disk.
func ReadUtilities(path string) (*UtilitiesDoc, error) {
	var doc UtilitiesDoc
	if err := readJSON(path, &doc); err != nil {
		return nil, err
	}
	if len(doc.Utilities) == 0 {
		return nil, fmt.Errorf("%s: document has no utilities", path)
	}
	return &doc, nil
}

// Model rebuilds the in-memory utility model. Attribute order on the wire is
// lost, so it falls back to sorted names.
func (doc *UtilitiesDoc) Model() *estimate.UtilityModel {
	order := make([]string, 0, len(doc.Utilities))
	for attr := range doc.Utilities {
		order = append(order, attr)
	}
	sort.Strings(order)
	return &estimate.UtilityModel{
		Utilities:      doc.Utilities,
		Importance:     doc.Importance,
		NObservations:  doc.NObservations,
		AttributeOrder: order,
	}
}

// WriteUtilitiesCSV writes the tabular companion of the utilities document:
// one row per attribute level, levels ordered by descending utility.
func WriteUtilitiesCSV(path string, m *estimate.UtilityModel) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"attribute", "level", "utility", "importance_pct"}); err != nil {
		return err
	}
	for _, attr := range m.AttributeOrder {
		imp := m.Importance[attr]
		for _, level := range levelsByUtility(m.Utilities[attr]) {
			u := m.Utilities[attr][level]
			if err := w.Write([]string{
				attr,
				level,
				strconv.FormatFloat(u, 'f', 4, 64),
				strconv.FormatFloat(imp, 'f', 2, 64),
			}); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

// levelsByUtility sorts an attribute's levels by descending utility, name as
// the tiebreak, so the CSV is deterministic.
func levelsByUtility(utils map[string]float64) []string {
	levels := make([]string, 0, len(utils))
	for l := range utils {
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool {
		if utils[levels[i]] != utils[levels[j]] {
			return utils[levels[i]] > utils[levels[j]]
		}
		return levels[i] < levels[j]
	})
	return levels
}

// SegmentEntry is one segment's estimate inside the segment-analysis
// document.
type SegmentEntry struct {
	Utilities     map[string]map[string]float64 `json:"utilities"`
	Importance    map[string]float64            `json:"importance"`
	NObservations int                           `json:"n_observations"`
}

// SegmentAnalysisDoc maps segment labels to their independent estimates.
// Skipped lists segments that could not be estimated and why.
type SegmentAnalysisDoc struct {
	Segments map[string]SegmentEntry `json:"segment"`
	Skipped  map[string]string       `json:"skipped,omitempty"`
}

// EncodeSegments flattens a per-segment estimation result.
func EncodeSegments(r *estimate.SegmentResult) *SegmentAnalysisDoc {
	doc := &SegmentAnalysisDoc{Segments: make(map[string]SegmentEntry, len(r.Models))}
	for label, m := range r.Models {
		doc.Segments[label] = SegmentEntry{
			Utilities:     m.Utilities,
			Importance:    m.Importance,
			NObservations: m.NObservations,
		}
	}
	if len(r.Skipped) > 0 {
		doc.Skipped = r.Skipped
	}
	return doc
}
