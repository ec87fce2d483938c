package design

// Profile assigns exactly one level to every attribute of the space.
type Profile map[string]string

// Clone returns an independent copy of the profile.
func (p Profile) Clone() Profile {
	c := make(Profile, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Equal reports whether two profiles assign the same level to every
// attribute of the space.
func (p Profile) Equal(q Profile, space *AttributeSpace) bool {
	return diffCount(p, q, space) == 0
}

// diffCount counts the attributes on which two profiles differ.
func diffCount(p, q Profile, space *AttributeSpace) int {
	n := 0
	for _, a := range space.Attributes() {
		if p[a.Name] != q[a.Name] {
			n++
		}
	}
	return n
}

// ChoiceTask is one question shown to a respondent: an ordered set of
// profiles, optionally followed by a synthetic "None of these" option. The
// none option carries no levels and is excluded from balance accounting.
type ChoiceTask struct {
	Options     []Profile
	IncludeNone bool
}

// OptionCount returns the number of choosable options, counting the none
// option when present.
func (t ChoiceTask) OptionCount() int {
	n := len(t.Options)
	if t.IncludeNone {
		n++
	}
	return n
}

// VersionOutcome tags how a design version was produced.
type VersionOutcome int

const (
	// Balanced means every task satisfied the minimum-attribute-difference
	// constraint within the retry budget.
	Balanced VersionOutcome = iota
	// BestEffort means at least one task exhausted the retry budget and the
	// best-scoring candidate was kept; the shortfall is recorded as Penalty.
	BestEffort
)

func (o VersionOutcome) String() string {
	if o == BestEffort {
		return "best_effort"
	}
	return "balanced"
}

// DesignVersion is one presentation order of the full task set, tagged with
// its 1-based version number and generation quality.
type DesignVersion struct {
	Version      int
	Tasks        []ChoiceTask
	BalanceScore float64
	Outcome      VersionOutcome
	// Penalty is the summed minimum-difference shortfall across best-effort
	// tasks; zero when Outcome is Balanced.
	Penalty int
}
