package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"conjoint/internal/codec"
	"conjoint/internal/design"
	"conjoint/internal/studyspec"
)

var designOutput string

var generateDesignCmd = &cobra.Command{
	Use:   "generate-design [spec-file]",
	Short: "Generate balanced conjoint choice sets from a design spec",
	Long: `Reads a design spec (JSON or YAML) and generates the study's choice sets:
multiple design versions, each a balanced shuffled set of choice tasks
satisfying the minimum-attribute-difference constraint.

The run is deterministic: the same spec and seed reproduce the identical
design. Balance scores are reported per version; versions that needed the
best-effort escape hatch are flagged, not rejected.

Example:
  conjoint generate-design study_spec.json -o choice_sets.json`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerateDesign,
}

func init() {
	generateDesignCmd.Flags().StringVarP(&designOutput, "output", "o",
		"conjoint_choice_sets.json", "Output path for the choice-sets document")
}

func runGenerateDesign(cmd *cobra.Command, args []string) error {
	spec, err := studyspec.Load(args[0])
	if err != nil {
		return err
	}
	for _, w := range spec.SoftWarnings() {
		logger.Warn("design spec quality", zap.String("warning", w))
	}

	space, err := spec.Space()
	if err != nil {
		return err
	}
	gen, err := design.NewGenerator(space, spec.Params(), logger)
	if err != nil {
		return err
	}
	d, err := gen.Generate(cmd.Context())
	if err != nil {
		return err
	}
	for _, w := range d.Warnings(design.DefaultBalanceWarnThreshold) {
		logger.Warn("design balance",
			zap.Int("version", w.Version),
			zap.Float64("score", w.Score),
			zap.Int("penalty", w.Penalty),
		)
	}

	if err := codec.WriteJSON(designOutput, codec.EncodeChoiceSets(d)); err != nil {
		return err
	}

	fmt.Printf("Generated %d design versions, %d tasks each, %d profiles per task\n",
		spec.NVersions, spec.TasksPerVersion, spec.ProfilesPerTask)
	fmt.Printf("Total unique profiles: %d\n", space.ProfileCount())
	fmt.Printf("Output: %s\n", designOutput)
	for _, v := range d.Versions {
		fmt.Printf("  Version %d: balance_score=%.4f (%s)\n", v.Version, v.BalanceScore, v.Outcome)
	}
	return nil
}
