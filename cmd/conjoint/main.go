package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "conjoint",
	Short: "Choice-based conjoint design, estimation, and market simulation",
	Long: `conjoint is the engine behind choice-based-conjoint (CBC) studies.

It generates balanced experimental designs from an attribute spec, estimates
zero-centered part-worth utilities from observed choices (counting method),
decomposes them per respondent segment, and predicts market choice shares
for what-if product profiles via a multinomial-logit share rule.

JSON documents are the contract with the surrounding survey tooling:
generate-design reads a design spec and writes choice sets; analyze reads
observations and writes utilities and segment analysis; market-sim reads
fitted utilities and candidate profiles and writes predicted shares.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(generateDesignCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(marketSimCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
