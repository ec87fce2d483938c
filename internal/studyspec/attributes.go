package studyspec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"conjoint/internal/design"
)

// Attributes is the ordered attribute list of a spec. On the wire it is the
// {"name": [levels...]} object of the external contract; Go maps would lose
// the document order, so (un)marshaling is done by hand.
type Attributes []design.Attribute

// UnmarshalJSON decodes the attributes object token by token, keeping the
// keys in document order.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("attributes must be an object, got %v", tok)
	}
	out := Attributes{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("attribute name must be a string, got %v", keyTok)
		}
		var levels []string
		if err := dec.Decode(&levels); err != nil {
			return fmt.Errorf("levels of attribute %q: %w", name, err)
		}
		out = append(out, design.Attribute{Name: name, Levels: levels})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*a = out
	return nil
}

// MarshalJSON writes the attributes back as an object in declared order.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(attr.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		levels, err := json.Marshal(attr.Levels)
		if err != nil {
			return nil, err
		}
		buf.Write(levels)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes a YAML mapping of name -> levels in document order.
func (a *Attributes) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("attributes must be a mapping, got %v", node.Kind)
	}
	out := Attributes{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		var levels []string
		if err := valNode.Decode(&levels); err != nil {
			return fmt.Errorf("levels of attribute %q: %w", keyNode.Value, err)
		}
		out = append(out, design.Attribute{Name: keyNode.Value, Levels: levels})
	}
	*a = out
	return nil
}

// MarshalYAML emits the mapping in declared order.
func (a Attributes) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, attr := range a {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: attr.Name}
		valNode := &yaml.Node{}
		if err := valNode.Encode(attr.Levels); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}
