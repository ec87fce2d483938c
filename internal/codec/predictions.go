package codec

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"conjoint/internal/design"
	"conjoint/internal/simulate"
)

// ReadProfiles loads a JSON array of candidate product profiles for market
// simulation.
func ReadProfiles(path string) ([]design.Profile, error) {
	var profiles []design.Profile
	if err := readJSON(path, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// PredictionDoc is one simulated candidate in the market-sim output.
type PredictionDoc struct {
	Profile design.Profile `json:"profile"`
	Utility float64        `json:"utility"`
	Share   float64        `json:"share"`
}

// EncodePredictions flattens simulation results for the output document.
func EncodePredictions(preds []simulate.Prediction) []PredictionDoc {
	docs := make([]PredictionDoc, len(preds))
	for i, p := range preds {
		docs[i] = PredictionDoc{Profile: p.Profile, Utility: p.Utility, Share: p.Share}
	}
	return docs
}

// RenderPredictionsTable writes the human-readable share table. attrOrder
// controls how profile descriptions are laid out; unknown attributes fall
// back to sorted order.
func RenderPredictionsTable(w io.Writer, preds []simulate.Prediction, attrOrder []string) {
	fmt.Fprintln(w, "| Profile | Utility | Choice Share |")
	fmt.Fprintln(w, "|---------|---------|--------------|")
	for _, p := range preds {
		fmt.Fprintf(w, "| %s | %+.4f | %.1f%% |\n", describeProfile(p.Profile, attrOrder), p.Utility, p.Share*100)
	}
}

func describeProfile(p design.Profile, attrOrder []string) string {
	parts := make([]string, 0, len(p))
	seen := make(map[string]bool, len(p))
	for _, attr := range attrOrder {
		if level, ok := p[attr]; ok {
			parts = append(parts, attr+"="+level)
			seen[attr] = true
		}
	}
	rest := make([]string, 0, len(p))
	for attr := range p {
		if !seen[attr] {
			rest = append(rest, attr)
		}
	}
	sort.Strings(rest)
	for _, attr := range rest {
		parts = append(parts, attr+"="+p[attr])
	}
	return strings.Join(parts, ", ")
}
