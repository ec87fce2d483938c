package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"conjoint/internal/codec"
	"conjoint/internal/design"
	"conjoint/internal/estimate"
	"conjoint/internal/studyspec"
)

var analyzeOutputDir string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [observations-file] [design-file]",
	Short: "Estimate part-worth utilities from observed choices",
	Long: `Reads recorded choices (JSON array or CSV with a
version,task,choice[,segment] header) and the design they were collected
against, then estimates zero-centered part-worth utilities and attribute
importance via the counting method.

The design file is either the generated choice-sets document or the original
design spec; a spec is regenerated deterministically from its seed. When
observations carry segment labels, an independent model is estimated per
segment.

Outputs: utilities.json, utilities.csv, and segment_analysis.json when
segments are present.

Example:
  conjoint analyze observations.csv choice_sets.json --output-dir results/`,
	Args: cobra.ExactArgs(2),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOutputDir, "output-dir", ".",
		"Directory for the analysis output files")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	obs, err := codec.ReadObservations(args[0])
	if err != nil {
		return err
	}
	d, err := loadDesign(cmd, args[1])
	if err != nil {
		return err
	}

	if err := os.MkdirAll(analyzeOutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	est := estimate.NewEstimator(logger)
	model, err := est.Estimate(d, obs)
	if err != nil {
		return err
	}

	utilPath := filepath.Join(analyzeOutputDir, "utilities.json")
	if err := codec.WriteJSON(utilPath, codec.EncodeUtilities(model)); err != nil {
		return err
	}
	csvPath := filepath.Join(analyzeOutputDir, "utilities.csv")
	if err := codec.WriteUtilitiesCSV(csvPath, model); err != nil {
		return err
	}

	fmt.Printf("Analysis complete: %d observations\n", model.NObservations)
	fmt.Printf("Output files:\n  %s\n  %s\n", utilPath, csvPath)

	if !hasSegments(obs) {
		return nil
	}
	segments, err := est.EstimateBySegment(d, obs)
	if err != nil {
		return err
	}
	segPath := filepath.Join(analyzeOutputDir, "segment_analysis.json")
	if err := codec.WriteJSON(segPath, codec.EncodeSegments(segments)); err != nil {
		return err
	}
	fmt.Printf("  %s\n", segPath)
	for label, reason := range segments.Skipped {
		logger.Warn("segment skipped",
			zap.String("segment", label),
			zap.String("reason", reason),
		)
		fmt.Printf("Segment %q skipped: %s\n", label, reason)
	}
	return nil
}

// loadDesign accepts either a choice-sets document or a design spec,
// distinguished by the presence of a "versions" key. A spec is regenerated;
// the seed makes that reproduce the collected design exactly.
func loadDesign(cmd *cobra.Command, path string) (*design.Design, error) {
	if isChoiceSetsDoc(path) {
		doc, err := codec.ReadChoiceSets(path)
		if err != nil {
			return nil, err
		}
		return doc.Design()
	}
	spec, err := studyspec.Load(path)
	if err != nil {
		return nil, err
	}
	space, err := spec.Space()
	if err != nil {
		return nil, err
	}
	gen, err := design.NewGenerator(space, spec.Params(), logger)
	if err != nil {
		return nil, err
	}
	return gen.Generate(cmd.Context())
}

func isChoiceSetsDoc(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var probe struct {
		Versions []json.RawMessage `json:"versions"`
	}
	return json.Unmarshal(data, &probe) == nil && len(probe.Versions) > 0
}

func hasSegments(obs []estimate.Observation) bool {
	for _, o := range obs {
		if o.Segment != "" {
			return true
		}
	}
	return false
}
