// Package simulate predicts market choice shares for candidate product
// profiles from a fitted utility model. Total utility is additive over
// levels (no interaction terms) and shares follow the multinomial-logit
// rule, the standard assumption of the additive-utility conjoint framework;
// predictions for out-of-design profiles are an approximation, not validated
// against actual choice data.
package simulate

import (
	"fmt"
	"math"

	"conjoint/internal/design"
	"conjoint/internal/estimate"
)

// UnknownLevelError reports a candidate profile referencing an attribute or
// level the fitted model has no utility for; the simulator does not
// extrapolate.
type UnknownLevelError struct {
	Attribute string
	Level     string
}

func (e *UnknownLevelError) Error() string {
	if e.Level == "" {
		return fmt.Sprintf("no fitted utilities for attribute %q", e.Attribute)
	}
	return fmt.Sprintf("no fitted utility for attribute %q level %q", e.Attribute, e.Level)
}

// Prediction is one candidate's simulated outcome.
type Prediction struct {
	Profile design.Profile
	Utility float64
	Share   float64
}

// PredictShares computes each candidate's total utility and converts the set
// to choice shares via softmax. The maximum utility is subtracted before
// exponentiation for numerical stability; shares always sum to 1.
func PredictShares(model *estimate.UtilityModel, candidates []design.Profile) ([]Prediction, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidate profiles to simulate")
	}

	preds := make([]Prediction, len(candidates))
	maxU := math.Inf(-1)
	for i, p := range candidates {
		u, err := totalUtility(model, p)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		preds[i] = Prediction{Profile: p, Utility: u}
		maxU = math.Max(maxU, u)
	}

	sumExp := 0.0
	for i := range preds {
		preds[i].Share = math.Exp(preds[i].Utility - maxU)
		sumExp += preds[i].Share
	}
	for i := range preds {
		preds[i].Share /= sumExp
	}
	return preds, nil
}

func totalUtility(model *estimate.UtilityModel, p design.Profile) (float64, error) {
	total := 0.0
	for attr, level := range p {
		levels, ok := model.Utilities[attr]
		if !ok {
			return 0, &UnknownLevelError{Attribute: attr}
		}
		u, ok := levels[level]
		if !ok {
			return 0, &UnknownLevelError{Attribute: attr, Level: level}
		}
		total += u
	}
	return total, nil
}
