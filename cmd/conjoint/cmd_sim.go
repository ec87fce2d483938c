package main

import (
	"github.com/spf13/cobra"

	"conjoint/internal/codec"
	"conjoint/internal/simulate"
)

var simOutput string

var marketSimCmd = &cobra.Command{
	Use:   "market-sim [utilities-file] [profiles-file]",
	Short: "Predict choice shares for candidate product profiles",
	Long: `Reads a fitted utilities document and a JSON array of candidate product
profiles, then predicts each candidate's choice share with the
multinomial-logit rule over additive utilities. Candidates need not come
from the original design, which supports what-if configurations; shares for
such profiles are a modeling assumption, not validated against choice data.

Example:
  conjoint market-sim utilities.json candidates.json -o shares.json`,
	Args: cobra.ExactArgs(2),
	RunE: runMarketSim,
}

func init() {
	marketSimCmd.Flags().StringVarP(&simOutput, "output", "o", "",
		"Optional output path for the predicted-shares document")
}

func runMarketSim(cmd *cobra.Command, args []string) error {
	doc, err := codec.ReadUtilities(args[0])
	if err != nil {
		return err
	}
	candidates, err := codec.ReadProfiles(args[1])
	if err != nil {
		return err
	}

	model := doc.Model()
	preds, err := simulate.PredictShares(model, candidates)
	if err != nil {
		return err
	}

	codec.RenderPredictionsTable(cmd.OutOrStdout(), preds, model.AttributeOrder)

	if simOutput != "" {
		if err := codec.WriteJSON(simOutput, codec.EncodePredictions(preds)); err != nil {
			return err
		}
	}
	return nil
}
