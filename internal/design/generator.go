package design

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxTaskAttempts bounds the resampling loop for a single choice task. When
// exhausted, the best-scoring candidate seen is accepted and the version is
// tagged BestEffort.
const maxTaskAttempts = 200

// DefaultBalanceWarnThreshold is the balance score above which a version is
// reported as a warning even when all constraints were met.
const DefaultBalanceWarnThreshold = 25.0

// Params are the knobs of a design run. Seed makes the whole design
// reproducible: identical Params and AttributeSpace yield an identical
// Design.
type Params struct {
	TasksPerVersion  int
	ProfilesPerTask  int
	NVersions        int
	IncludeNone      bool
	MinAttributeDiff int
	Seed             int64
}

// Design is the immutable output of a generation run: every version with its
// tasks and quality metadata, plus the attribute space it was built from.
// The ID is derived from the inputs, so reruns of the same study share it.
type Design struct {
	ID       uuid.UUID
	Space    *AttributeSpace
	Params   Params
	Versions []DesignVersion
}

// Version returns the version with the given 1-based number.
func (d *Design) Version(n int) (*DesignVersion, bool) {
	for i := range d.Versions {
		if d.Versions[i].Version == n {
			return &d.Versions[i], true
		}
	}
	return nil, false
}

// Warnings collects the balance warnings of every version that is either
// best-effort or above the score threshold.
func (d *Design) Warnings(threshold float64) []BalanceWarning {
	var ws []BalanceWarning
	for _, v := range d.Versions {
		if v.Outcome == BestEffort || v.BalanceScore > threshold {
			ws = append(ws, BalanceWarning{Version: v.Version, Score: v.BalanceScore, Penalty: v.Penalty})
		}
	}
	return ws
}

// Generator produces balanced CBC designs via randomized search over a
// rolling balanced pool. It is a heuristic, not a D-optimal search.
type Generator struct {
	space  *AttributeSpace
	params Params
	logger *zap.Logger
}

// NewGenerator validates the parameters against the attribute space.
func NewGenerator(space *AttributeSpace, params Params, logger *zap.Logger) (*Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if params.TasksPerVersion < 1 {
		return nil, &ConfigurationError{Field: "tasks_per_version", Reason: fmt.Sprintf("must be at least 1, got %d", params.TasksPerVersion)}
	}
	if params.ProfilesPerTask < 2 {
		return nil, &ConfigurationError{Field: "profiles_per_task", Reason: fmt.Sprintf("must be at least 2, got %d", params.ProfilesPerTask)}
	}
	if params.NVersions < 1 {
		return nil, &ConfigurationError{Field: "n_versions", Reason: fmt.Sprintf("must be at least 1, got %d", params.NVersions)}
	}
	if params.MinAttributeDiff < 1 {
		return nil, &ConfigurationError{Field: "min_attribute_diff", Reason: fmt.Sprintf("must be at least 1, got %d", params.MinAttributeDiff)}
	}
	if params.MinAttributeDiff >= space.Len() {
		return nil, &ConfigurationError{
			Field:  "min_attribute_diff",
			Reason: fmt.Sprintf("%d is not satisfiable with %d attribute(s)", params.MinAttributeDiff, space.Len()),
		}
	}
	if universe := space.ProfileCount(); params.ProfilesPerTask > universe {
		return nil, &ConfigurationError{
			Field:  "profiles_per_task",
			Reason: fmt.Sprintf("%d exceeds the %d distinct profiles attainable", params.ProfilesPerTask, universe),
		}
	}
	return &Generator{space: space, params: params, logger: logger}, nil
}

// Generate runs the design search. Versions are searched concurrently, each
// on its own random stream seeded seed+version, so the result is identical
// to a serial run with the same seed.
func (g *Generator) Generate(ctx context.Context) (*Design, error) {
	versions := make([]DesignVersion, g.params.NVersions)
	eg, ctx := errgroup.WithContext(ctx)
	for v := 0; v < g.params.NVersions; v++ {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			versions[v] = g.generateVersion(v + 1)
			g.logger.Debug("generated design version",
				zap.Int("version", v+1),
				zap.Float64("balanceScore", versions[v].BalanceScore),
				zap.String("outcome", versions[v].Outcome.String()),
			)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return &Design{
		ID:       g.designID(),
		Space:    g.space,
		Params:   g.params,
		Versions: versions,
	}, nil
}

// generateVersion builds one version's tasks on an isolated random stream.
func (g *Generator) generateVersion(version int) DesignVersion {
	rng := rand.New(rand.NewSource(g.params.Seed + int64(version-1)))
	pool := newProfilePool(g.space, rng)

	tasks := make([]ChoiceTask, 0, g.params.TasksPerVersion)
	penalty := 0
	for t := 0; t < g.params.TasksPerVersion; t++ {
		task, shortfall := g.sampleTask(pool)
		penalty += shortfall
		tasks = append(tasks, task)
	}

	// Position de-biasing: shuffle each task's on-screen option order.
	for i := range tasks {
		opts := tasks[i].Options
		rng.Shuffle(len(opts), func(a, b int) {
			opts[a], opts[b] = opts[b], opts[a]
		})
	}

	outcome := Balanced
	if penalty > 0 {
		outcome = BestEffort
	}
	return DesignVersion{
		Version:      version,
		Tasks:        tasks,
		BalanceScore: g.balanceScore(tasks),
		Outcome:      outcome,
		Penalty:      penalty,
	}
}

// sampleTask resamples candidate tasks until every profile pair differs on
// at least MinAttributeDiff attributes, keeping the best candidate seen. The
// returned shortfall is zero when the constraint was met.
func (g *Generator) sampleTask(pool *profilePool) (ChoiceTask, int) {
	var best []Profile
	bestScore := -1
	for attempt := 0; attempt < maxTaskAttempts; attempt++ {
		cand := make([]Profile, 0, g.params.ProfilesPerTask)
		for len(cand) < g.params.ProfilesPerTask {
			cand = append(cand, pool.drawDistinct(cand))
		}
		score := minPairDiff(cand, g.space)
		if score >= g.params.MinAttributeDiff {
			return ChoiceTask{Options: cand, IncludeNone: g.params.IncludeNone}, 0
		}
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}
	return ChoiceTask{Options: best, IncludeNone: g.params.IncludeNone}, g.params.MinAttributeDiff - bestScore
}

// minPairDiff returns the smallest attribute-difference over all profile
// pairs of a task.
func minPairDiff(profiles []Profile, space *AttributeSpace) int {
	min := space.Len()
	for i := 0; i < len(profiles); i++ {
		for j := i + 1; j < len(profiles); j++ {
			if d := diffCount(profiles[i], profiles[j], space); d < min {
				min = d
			}
		}
	}
	return min
}

// balanceScore measures how evenly levels are used across a version: the sum
// over every level of the squared deviation between its observed count and
// the uniform expectation (task slots / level count). Lower is better; zero
// is perfect balance. The none option never enters the accounting.
func (g *Generator) balanceScore(tasks []ChoiceTask) float64 {
	slots := 0
	counts := make(map[string]map[string]int, g.space.Len())
	for _, a := range g.space.Attributes() {
		counts[a.Name] = make(map[string]int, len(a.Levels))
	}
	for _, task := range tasks {
		for _, p := range task.Options {
			slots++
			for _, a := range g.space.Attributes() {
				counts[a.Name][p[a.Name]]++
			}
		}
	}
	score := 0.0
	for _, a := range g.space.Attributes() {
		expected := float64(slots) / float64(len(a.Levels))
		for _, l := range a.Levels {
			dev := float64(counts[a.Name][l]) - expected
			score += dev * dev
		}
	}
	return score
}

// designID derives a stable identifier from the generation inputs, so the
// documents of one study cross-reference each other across reruns.
func (g *Generator) designID() uuid.UUID {
	var b strings.Builder
	fmt.Fprintf(&b, "cbc:%d:%d:%d:%d:%t:%d;",
		g.params.Seed, g.params.TasksPerVersion, g.params.ProfilesPerTask,
		g.params.NVersions, g.params.IncludeNone, g.params.MinAttributeDiff)
	for _, a := range g.space.Attributes() {
		fmt.Fprintf(&b, "%s=%s;", a.Name, strings.Join(a.Levels, "|"))
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(b.String()))
}
