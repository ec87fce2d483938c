// Package design generates balanced choice-based-conjoint (CBC) experimental
// designs: multiple versions of choice tasks built from an attribute space,
// with level balancing, minimum-attribute-difference constraints, and
// position de-biasing.
package design

import "fmt"

// Attribute is one product dimension with its ordered set of levels.
type Attribute struct {
	Name   string
	Levels []string
}

// AttributeSpace holds the attributes of a study in their declared order and
// answers questions about the profile universe they span.
type AttributeSpace struct {
	attrs []Attribute
	index map[string]int
}

// NewAttributeSpace validates the attribute definitions and builds the space.
// Attribute order is preserved: it determines iteration order everywhere,
// which matters for reproducibility.
func NewAttributeSpace(attrs []Attribute) (*AttributeSpace, error) {
	if len(attrs) == 0 {
		return nil, &ConfigurationError{Field: "attributes", Reason: "at least one attribute is required"}
	}
	index := make(map[string]int, len(attrs))
	for i, a := range attrs {
		if a.Name == "" {
			return nil, &ConfigurationError{Field: "attributes", Reason: "attribute name must not be empty"}
		}
		if _, dup := index[a.Name]; dup {
			return nil, &ConfigurationError{Field: "attributes", Reason: fmt.Sprintf("duplicate attribute %q", a.Name)}
		}
		if len(a.Levels) < 2 {
			return nil, &ConfigurationError{
				Field:  "attributes",
				Reason: fmt.Sprintf("attribute %q has %d level(s), need at least 2", a.Name, len(a.Levels)),
			}
		}
		seen := make(map[string]struct{}, len(a.Levels))
		for _, l := range a.Levels {
			if _, dup := seen[l]; dup {
				return nil, &ConfigurationError{
					Field:  "attributes",
					Reason: fmt.Sprintf("attribute %q repeats level %q", a.Name, l),
				}
			}
			seen[l] = struct{}{}
		}
		index[a.Name] = i
	}
	return &AttributeSpace{attrs: attrs, index: index}, nil
}

// Attributes returns the attributes in declared order. Callers must not
// mutate the returned slice.
func (s *AttributeSpace) Attributes() []Attribute {
	return s.attrs
}

// Len returns the number of attributes.
func (s *AttributeSpace) Len() int {
	return len(s.attrs)
}

// Levels returns the ordered levels of the named attribute.
func (s *AttributeSpace) Levels(name string) ([]string, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.attrs[i].Levels, true
}

// ProfileCount returns the size of the profile universe, the product of all
// level counts.
func (s *AttributeSpace) ProfileCount() int {
	n := 1
	for _, a := range s.attrs {
		n *= len(a.Levels)
	}
	return n
}
