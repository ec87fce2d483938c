package codec

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"conjoint/internal/design"
	"conjoint/internal/studyspec"
)

// ChoiceSetsDoc is the generated-design document exchanged with the survey
// runner and report generator. Version numbers and task indexes are 1-based
// on the wire.
type ChoiceSetsDoc struct {
	DesignID         string               `json:"design_id"`
	Attributes       studyspec.Attributes `json:"attributes"`
	Method           string               `json:"method"`
	TasksPerVersion  int                  `json:"tasks_per_version"`
	ProfilesPerTask  int                  `json:"profiles_per_task"`
	NVersions        int                  `json:"n_versions"`
	IncludeNone      bool                 `json:"include_none"`
	MinAttributeDiff int                  `json:"min_attribute_diff"`
	Seed             int64                `json:"seed"`
	TotalProfiles    int                  `json:"total_profiles"`
	Versions         []VersionDoc         `json:"versions"`
	BalanceScores    map[string]float64   `json:"balance_scores"`
	// Penalties lists best-effort versions and their minimum-difference
	// shortfall; absent when every version met the constraint.
	Penalties map[string]int `json:"penalties,omitempty"`
}

// VersionDoc is one design version: its choice sets as shown, in
// presentation order.
type VersionDoc struct {
	Version    int                `json:"version"`
	ChoiceSets [][]design.Profile `json:"choice_sets"`
}

// EncodeChoiceSets flattens a generated design into its document form.
func EncodeChoiceSets(d *design.Design) *ChoiceSetsDoc {
	doc := &ChoiceSetsDoc{
		DesignID:         d.ID.String(),
		Attributes:       studyspec.Attributes(d.Space.Attributes()),
		Method:           studyspec.MethodCBC,
		TasksPerVersion:  d.Params.TasksPerVersion,
		ProfilesPerTask:  d.Params.ProfilesPerTask,
		NVersions:        d.Params.NVersions,
		IncludeNone:      d.Params.IncludeNone,
		MinAttributeDiff: d.Params.MinAttributeDiff,
		Seed:             d.Params.Seed,
		TotalProfiles:    d.Space.ProfileCount(),
		BalanceScores:    make(map[string]float64, len(d.Versions)),
	}
	for _, v := range d.Versions {
		key := strconv.Itoa(v.Version)
		doc.BalanceScores[key] = v.BalanceScore
		if v.Penalty > 0 {
			if doc.Penalties == nil {
				doc.Penalties = make(map[string]int)
			}
			doc.Penalties[key] = v.Penalty
		}
		sets := make([][]design.Profile, len(v.Tasks))
		for i, t := range v.Tasks {
			sets[i] = t.Options
		}
		doc.Versions = append(doc.Versions, VersionDoc{Version: v.Version, ChoiceSets: sets})
	}
	return doc
}

// ReadChoiceSets loads a choice-sets document from disk.
func ReadChoiceSets(path string) (*ChoiceSetsDoc, error) {
	var doc ChoiceSetsDoc
	if err := readJSON(path, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Design rebuilds the in-memory design from the document so observations can
// be resolved against the realized tasks.
func (doc *ChoiceSetsDoc) Design() (*design.Design, error) {
	space, err := design.NewAttributeSpace([]design.Attribute(doc.Attributes))
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(doc.DesignID)
	if err != nil {
		id = uuid.Nil
	}
	d := &design.Design{
		ID:    id,
		Space: space,
		Params: design.Params{
			TasksPerVersion:  doc.TasksPerVersion,
			ProfilesPerTask:  doc.ProfilesPerTask,
			NVersions:        doc.NVersions,
			IncludeNone:      doc.IncludeNone,
			MinAttributeDiff: doc.MinAttributeDiff,
			Seed:             doc.Seed,
		},
	}
	for _, vd := range doc.Versions {
		ver := design.DesignVersion{
			Version:      vd.Version,
			BalanceScore: doc.BalanceScores[strconv.Itoa(vd.Version)],
			Penalty:      doc.Penalties[strconv.Itoa(vd.Version)],
		}
		if ver.Penalty > 0 {
			ver.Outcome = design.BestEffort
		}
		for ti, set := range vd.ChoiceSets {
			for _, p := range set {
				if err := validateProfile(space, p); err != nil {
					return nil, fmt.Errorf("version %d task %d: %w", vd.Version, ti+1, err)
				}
			}
			ver.Tasks = append(ver.Tasks, design.ChoiceTask{Options: set, IncludeNone: doc.IncludeNone})
		}
		d.Versions = append(d.Versions, ver)
	}
	return d, nil
}

func validateProfile(space *design.AttributeSpace, p design.Profile) error {
	for _, a := range space.Attributes() {
		level, ok := p[a.Name]
		if !ok {
			return fmt.Errorf("profile is missing attribute %q", a.Name)
		}
		found := false
		for _, l := range a.Levels {
			if l == level {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("profile has unknown level %q for attribute %q", level, a.Name)
		}
	}
	return nil
}
