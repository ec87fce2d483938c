package design

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func exampleSpace(t *testing.T) *AttributeSpace {
	t.Helper()
	space, err := NewAttributeSpace([]Attribute{
		{Name: "price", Levels: []string{"$9.99", "$14.99", "$19.99"}},
		{Name: "size", Levels: []string{"Small", "Large"}},
	})
	require.NoError(t, err)
	return space
}

func TestNewGeneratorValidation(t *testing.T) {
	space := exampleSpace(t)
	base := Params{TasksPerVersion: 4, ProfilesPerTask: 2, NVersions: 2, MinAttributeDiff: 1, Seed: 42}

	tests := []struct {
		name   string
		mutate func(*Params)
		field  string
	}{
		{"zero tasks", func(p *Params) { p.TasksPerVersion = 0 }, "tasks_per_version"},
		{"single profile per task", func(p *Params) { p.ProfilesPerTask = 1 }, "profiles_per_task"},
		{"zero versions", func(p *Params) { p.NVersions = 0 }, "n_versions"},
		{"zero min diff", func(p *Params) { p.MinAttributeDiff = 0 }, "min_attribute_diff"},
		{"min diff equals attribute count", func(p *Params) { p.MinAttributeDiff = 2 }, "min_attribute_diff"},
		{"more profiles than universe", func(p *Params) { p.ProfilesPerTask = 7 }, "profiles_per_task"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := base
			tt.mutate(&params)
			_, err := NewGenerator(space, params, nil)
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}

	t.Run("valid params", func(t *testing.T) {
		_, err := NewGenerator(space, base, nil)
		require.NoError(t, err)
	})
}

// Round-trip example: 2 versions x 4 tasks x 2 profiles at seed 42, every
// pair differing on at least one attribute.
func TestGenerateRoundTripExample(t *testing.T) {
	space := exampleSpace(t)
	params := Params{TasksPerVersion: 4, ProfilesPerTask: 2, NVersions: 2, MinAttributeDiff: 1, Seed: 42}
	gen, err := NewGenerator(space, params, nil)
	require.NoError(t, err)

	d, err := gen.Generate(context.Background())
	require.NoError(t, err)

	require.Len(t, d.Versions, 2)
	for _, v := range d.Versions {
		require.Len(t, v.Tasks, 4)
		assert.Equal(t, Balanced, v.Outcome)
		for _, task := range v.Tasks {
			require.Len(t, task.Options, 2)
			assert.GreaterOrEqual(t, diffCount(task.Options[0], task.Options[1], space), 1)
		}
	}
}

func TestGenerateDeterminism(t *testing.T) {
	space := exampleSpace(t)
	params := Params{TasksPerVersion: 4, ProfilesPerTask: 2, NVersions: 2, MinAttributeDiff: 1, Seed: 42}

	run := func() *Design {
		gen, err := NewGenerator(space, params, nil)
		require.NoError(t, err)
		d, err := gen.Generate(context.Background())
		require.NoError(t, err)
		return d
	}

	first, second := run(), run()
	if diff := cmp.Diff(first, second, cmp.AllowUnexported(AttributeSpace{})); diff != "" {
		t.Errorf("designs differ between identical runs (-first +second):\n%s", diff)
	}

	params.Seed = 43
	gen, err := NewGenerator(space, params, nil)
	require.NoError(t, err)
	other, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID, "design ID should change with the seed")
}

func TestMinDifferenceInvariant(t *testing.T) {
	space, err := NewAttributeSpace([]Attribute{
		{Name: "price", Levels: []string{"low", "mid", "high"}},
		{Name: "size", Levels: []string{"S", "M", "L"}},
		{Name: "brand", Levels: []string{"A", "B"}},
	})
	require.NoError(t, err)

	params := Params{TasksPerVersion: 10, ProfilesPerTask: 3, NVersions: 3, MinAttributeDiff: 2, Seed: 7}
	gen, err := NewGenerator(space, params, nil)
	require.NoError(t, err)
	d, err := gen.Generate(context.Background())
	require.NoError(t, err)

	for _, v := range d.Versions {
		if v.Outcome == BestEffort {
			// A violated constraint must be flagged, never silent.
			assert.Positive(t, v.Penalty)
			continue
		}
		for ti, task := range v.Tasks {
			assert.GreaterOrEqual(t, minPairDiff(task.Options, space), 2,
				"version %d task %d", v.Version, ti)
		}
	}
}

// Level-balance convergence: across a multi-version design, observed level
// frequencies stay within a generous tolerance of uniform for at least 90%
// of levels.
func TestLevelBalanceConvergence(t *testing.T) {
	space, err := NewAttributeSpace([]Attribute{
		{Name: "price", Levels: []string{"low", "mid", "high"}},
		{Name: "size", Levels: []string{"S", "M", "L"}},
		{Name: "brand", Levels: []string{"A", "B", "C", "D"}},
	})
	require.NoError(t, err)

	params := Params{TasksPerVersion: 12, ProfilesPerTask: 3, NVersions: 4, MinAttributeDiff: 1, Seed: 11}
	gen, err := NewGenerator(space, params, nil)
	require.NoError(t, err)
	d, err := gen.Generate(context.Background())
	require.NoError(t, err)

	counts := make(map[string]map[string]int)
	slots := 0
	for _, v := range d.Versions {
		for _, task := range v.Tasks {
			for _, p := range task.Options {
				slots++
				for _, a := range space.Attributes() {
					if counts[a.Name] == nil {
						counts[a.Name] = make(map[string]int)
					}
					counts[a.Name][p[a.Name]]++
				}
			}
		}
	}

	const epsilon = 0.15
	total, within := 0, 0
	for _, a := range space.Attributes() {
		expected := float64(slots) / float64(len(a.Levels))
		for _, l := range a.Levels {
			total++
			observed := float64(counts[a.Name][l])
			if dev := (observed - expected) / expected; dev < epsilon && dev > -epsilon {
				within++
			}
		}
	}
	assert.GreaterOrEqual(t, float64(within)/float64(total), 0.9,
		"too many levels outside the %.0f%% balance tolerance", epsilon*100)
}

func TestIncludeNone(t *testing.T) {
	space := exampleSpace(t)
	params := Params{TasksPerVersion: 3, ProfilesPerTask: 2, NVersions: 1, IncludeNone: true, MinAttributeDiff: 1, Seed: 42}
	gen, err := NewGenerator(space, params, nil)
	require.NoError(t, err)
	d, err := gen.Generate(context.Background())
	require.NoError(t, err)

	for _, task := range d.Versions[0].Tasks {
		assert.True(t, task.IncludeNone)
		assert.Equal(t, 3, task.OptionCount())
		assert.Len(t, task.Options, 2, "the none option carries no profile")
	}
}

func TestBalanceScorePerfectWhenUniform(t *testing.T) {
	space := exampleSpace(t)
	gen, err := NewGenerator(space, Params{TasksPerVersion: 1, ProfilesPerTask: 2, NVersions: 1, MinAttributeDiff: 1, Seed: 1}, nil)
	require.NoError(t, err)

	// Two profiles covering both size levels and two of three price levels:
	// size deviations are zero, price contributes (1-2/3)^2*2 + (0-2/3)^2.
	tasks := []ChoiceTask{{Options: []Profile{
		{"price": "$9.99", "size": "Small"},
		{"price": "$14.99", "size": "Large"},
	}}}
	score := gen.balanceScore(tasks)
	assert.InDelta(t, 2*(1.0/9.0)+4.0/9.0, score, 1e-9)
}

func TestDesignWarnings(t *testing.T) {
	d := &Design{Versions: []DesignVersion{
		{Version: 1, BalanceScore: 3.0, Outcome: Balanced},
		{Version: 2, BalanceScore: 8.0, Outcome: BestEffort, Penalty: 2},
		{Version: 3, BalanceScore: 99.0, Outcome: Balanced},
	}}

	ws := d.Warnings(25.0)
	require.Len(t, ws, 2)
	assert.Equal(t, 2, ws[0].Version)
	assert.Contains(t, ws[0].Error(), "best-effort")
	assert.Equal(t, 3, ws[1].Version)
	assert.Contains(t, ws[1].Error(), "balance score")
}
