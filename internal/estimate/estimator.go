// Package estimate turns observed conjoint choices into zero-centered
// part-worth utilities and attribute importance weights using the counting
// method. It is an approximation: no maximum-likelihood logit, no
// hierarchical Bayes.
package estimate

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"conjoint/internal/design"
)

// NoneChoice marks an observation where the respondent picked the synthetic
// "None of these" option. Such observations count exposure for every shown
// profile but no choice for any level.
const NoneChoice = -1

// continuityCorrection is added to both the chosen and the shown count when
// forming a level's choice share. It keeps never-chosen levels at a finite
// log-utility floor of ln(0.5/(shown+0.5) * levelCount) instead of -Inf, a
// standard additive smoothing applied uniformly to every level.
const continuityCorrection = 0.5

// Observation is one recorded choice, referencing a task of a generated
// design. Version and Task are 1-based as in the choice-sets document;
// Choice is the 1-based option index, or NoneChoice.
type Observation struct {
	Version int
	Task    int
	Choice  int
	Segment string
}

// UtilityModel is the fitted result of one estimation call: zero-centered
// part-worth utilities per attribute level and importance percentages
// summing to 100. In the degenerate case where every attribute's utility
// range is zero (no attribute discriminates choices at all), importances
// are all 0 rather than split evenly.
type UtilityModel struct {
	Utilities     map[string]map[string]float64
	Importance    map[string]float64
	NObservations int

	// AttributeOrder preserves the design's attribute order for tabular
	// output; it carries no statistical meaning.
	AttributeOrder []string
}

// Range returns max−min utility within an attribute.
func (m *UtilityModel) Range(attr string) float64 {
	levels := m.Utilities[attr]
	if len(levels) == 0 {
		return 0
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, u := range levels {
		lo = math.Min(lo, u)
		hi = math.Max(hi, u)
	}
	return hi - lo
}

// Estimator computes utility models from observation batches.
type Estimator struct {
	logger *zap.Logger
}

func NewEstimator(logger *zap.Logger) *Estimator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Estimator{logger: logger}
}

// Estimate fits a UtilityModel from the given observations, resolving each
// one against the design to count exposure of every shown profile, chosen or
// not. It fails with InsufficientDataError when there are no observations or
// when any level was never exposed.
func (e *Estimator) Estimate(d *design.Design, obs []Observation) (*UtilityModel, error) {
	if len(obs) == 0 {
		return nil, &InsufficientDataError{Reason: "no observations"}
	}

	chosen := make(map[string]map[string]int, d.Space.Len())
	shown := make(map[string]map[string]int, d.Space.Len())
	for _, a := range d.Space.Attributes() {
		chosen[a.Name] = make(map[string]int, len(a.Levels))
		shown[a.Name] = make(map[string]int, len(a.Levels))
	}

	for i, o := range obs {
		task, err := resolveTask(d, o)
		if err != nil {
			return nil, fmt.Errorf("observation %d: %w", i, err)
		}
		for _, p := range task.Options {
			for _, a := range d.Space.Attributes() {
				shown[a.Name][p[a.Name]]++
			}
		}
		if o.Choice == NoneChoice {
			continue
		}
		p := task.Options[o.Choice-1]
		for _, a := range d.Space.Attributes() {
			chosen[a.Name][p[a.Name]]++
		}
	}

	model := &UtilityModel{
		Utilities:     make(map[string]map[string]float64, d.Space.Len()),
		Importance:    make(map[string]float64, d.Space.Len()),
		NObservations: len(obs),
	}
	for _, a := range d.Space.Attributes() {
		model.AttributeOrder = append(model.AttributeOrder, a.Name)
		expectedShare := 1.0 / float64(len(a.Levels))
		utils := make(map[string]float64, len(a.Levels))
		for _, l := range a.Levels {
			exposure := shown[a.Name][l]
			if exposure == 0 {
				return nil, &InsufficientDataError{
					Attribute: a.Name,
					Level:     l,
					Reason:    "level never appeared in any observed task",
				}
			}
			share := (float64(chosen[a.Name][l]) + continuityCorrection) /
				(float64(exposure) + continuityCorrection)
			utils[l] = math.Log(share / expectedShare)
		}
		zeroCenter(utils, a.Levels)
		model.Utilities[a.Name] = utils
	}

	computeImportance(model)
	e.logger.Debug("estimated utility model",
		zap.Int("observations", len(obs)),
		zap.Int("attributes", d.Space.Len()),
	)
	return model, nil
}

// resolveTask maps an observation onto the realized task it refers to and
// range-checks the chosen option.
func resolveTask(d *design.Design, o Observation) (*design.ChoiceTask, error) {
	ver, ok := d.Version(o.Version)
	if !ok {
		return nil, fmt.Errorf("unknown design version %d", o.Version)
	}
	if o.Task < 1 || o.Task > len(ver.Tasks) {
		return nil, fmt.Errorf("version %d has no task %d", o.Version, o.Task)
	}
	task := &ver.Tasks[o.Task-1]
	if o.Choice == NoneChoice {
		if !task.IncludeNone {
			return nil, fmt.Errorf("version %d task %d offers no none option", o.Version, o.Task)
		}
		return task, nil
	}
	if o.Choice < 1 || o.Choice > len(task.Options) {
		return nil, fmt.Errorf("version %d task %d has no option %d", o.Version, o.Task, o.Choice)
	}
	return task, nil
}

// zeroCenter shifts an attribute's utilities to mean zero so cross-attribute
// intercepts cannot leak into comparisons. Summation follows the ordered
// level slice, never map iteration: float addition is not associative, and a
// run-dependent order would perturb the last bit of every centered utility.
func zeroCenter(utils map[string]float64, levels []string) {
	sum := 0.0
	for _, l := range levels {
		sum += utils[l]
	}
	mean := sum / float64(len(levels))
	for _, l := range levels {
		utils[l] -= mean
	}
}

// computeImportance derives each attribute's importance percentage from its
// utility range relative to the total range across attributes. Attributes
// are summed in AttributeOrder for the same bit-level reproducibility.
func computeImportance(m *UtilityModel) {
	total := 0.0
	for _, attr := range m.AttributeOrder {
		total += m.Range(attr)
	}
	for _, attr := range m.AttributeOrder {
		if total > 0 {
			m.Importance[attr] = m.Range(attr) / total * 100
		} else {
			m.Importance[attr] = 0
		}
	}
}
