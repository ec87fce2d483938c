package estimate

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"conjoint/internal/design"
)

// UnknownSegment labels observations recorded without a segment, mirroring
// the survey runner's default trait value.
const UnknownSegment = "unknown"

// SegmentResult holds one utility model per estimable segment. Segments
// whose data could not support an estimate are listed in Skipped with the
// diagnostic that explains why, never silently dropped.
type SegmentResult struct {
	Models  map[string]*UtilityModel
	Skipped map[string]string
}

// Labels returns the estimated segment labels in sorted order.
func (r *SegmentResult) Labels() []string {
	labels := make([]string, 0, len(r.Models))
	for l := range r.Models {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// EstimateBySegment partitions the observations by segment label and fits an
// independent model per partition. It fails only when no segment at all can
// be estimated; individual under-powered segments are reported as skipped.
func (e *Estimator) EstimateBySegment(d *design.Design, obs []Observation) (*SegmentResult, error) {
	if len(obs) == 0 {
		return nil, &InsufficientDataError{Reason: "no observations"}
	}

	groups := make(map[string][]Observation)
	for _, o := range obs {
		label := o.Segment
		if label == "" {
			label = UnknownSegment
		}
		groups[label] = append(groups[label], o)
	}

	result := &SegmentResult{
		Models:  make(map[string]*UtilityModel, len(groups)),
		Skipped: make(map[string]string),
	}
	for label, group := range groups {
		model, err := e.Estimate(d, group)
		if err != nil {
			var ide *InsufficientDataError
			if errors.As(err, &ide) {
				e.logger.Warn("skipping segment",
					zap.String("segment", label),
					zap.Int("observations", len(group)),
					zap.String("reason", ide.Error()),
				)
				result.Skipped[label] = ide.Error()
				continue
			}
			return nil, err
		}
		result.Models[label] = model
	}
	if len(result.Models) == 0 {
		return nil, &InsufficientDataError{Reason: "no segment had enough data to estimate"}
	}
	return result, nil
}
