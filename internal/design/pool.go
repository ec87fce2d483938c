package design

import "math/rand"

// levelPool is the rolling balanced pool for one attribute. Levels are drawn
// from a shuffled bag; the bag is refilled and reshuffled only once empty, so
// no level repeats before every level has been drawn. Across many draws each
// level's frequency converges to 1/level-count.
type levelPool struct {
	levels []string
	bag    []string
	rng    *rand.Rand
}

func newLevelPool(levels []string, rng *rand.Rand) *levelPool {
	return &levelPool{levels: levels, rng: rng}
}

func (p *levelPool) draw() string {
	if len(p.bag) == 0 {
		p.bag = append(p.bag[:0], p.levels...)
		p.rng.Shuffle(len(p.bag), func(i, j int) {
			p.bag[i], p.bag[j] = p.bag[j], p.bag[i]
		})
	}
	l := p.bag[len(p.bag)-1]
	p.bag = p.bag[:len(p.bag)-1]
	return l
}

// profilePool draws whole profiles, one balanced level per attribute.
type profilePool struct {
	space *AttributeSpace
	pools []*levelPool
	rng   *rand.Rand
}

func newProfilePool(space *AttributeSpace, rng *rand.Rand) *profilePool {
	pp := &profilePool{space: space, rng: rng}
	for _, a := range space.Attributes() {
		pp.pools = append(pp.pools, newLevelPool(a.Levels, rng))
	}
	return pp
}

func (pp *profilePool) draw() Profile {
	p := make(Profile, pp.space.Len())
	for i, a := range pp.space.Attributes() {
		p[a.Name] = pp.pools[i].draw()
	}
	return p
}

// drawDistinct draws a profile distinct from every profile in taken. After a
// bounded number of pool draws it forces distinctness by cycling one
// attribute's level, which always terminates because the universe is larger
// than the task.
func (pp *profilePool) drawDistinct(taken []Profile) Profile {
	const redrawAttempts = 32
	var p Profile
	for i := 0; i < redrawAttempts; i++ {
		p = pp.draw()
		if !containsProfile(taken, p, pp.space) {
			return p
		}
	}
	attrs := pp.space.Attributes()
	start := pp.rng.Intn(len(attrs))
	for off := 0; off < len(attrs); off++ {
		a := attrs[(start+off)%len(attrs)]
		cur := indexOf(a.Levels, p[a.Name])
		for step := 1; step < len(a.Levels); step++ {
			p[a.Name] = a.Levels[(cur+step)%len(a.Levels)]
			if !containsProfile(taken, p, pp.space) {
				return p
			}
		}
		p[a.Name] = a.Levels[cur]
	}
	// Last resort: scan the universe in declaration order. Guaranteed to
	// find a free profile because the task is smaller than the universe.
	return pp.firstFree(taken)
}

func (pp *profilePool) firstFree(taken []Profile) Profile {
	attrs := pp.space.Attributes()
	idx := make([]int, len(attrs))
	for {
		p := make(Profile, len(attrs))
		for i, a := range attrs {
			p[a.Name] = a.Levels[idx[i]]
		}
		if !containsProfile(taken, p, pp.space) {
			return p
		}
		i := len(idx) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(attrs[i].Levels) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return p
		}
	}
}

func containsProfile(set []Profile, p Profile, space *AttributeSpace) bool {
	for _, q := range set {
		if p.Equal(q, space) {
			return true
		}
	}
	return false
}

func indexOf(levels []string, l string) int {
	for i, v := range levels {
		if v == l {
			return i
		}
	}
	return 0
}
