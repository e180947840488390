package soap

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Value is the parameter structure handed to the envelope builder: a scalar,
// an ordered sequence, or an ordered key-value mapping. Mapping order is
// preserved exactly, since it governs XML element order and many SOAP
// servers validate element order strictly.
type Value interface {
	isValue()
}

// Scalar is a text value.
type Scalar string

func (Scalar) isValue() {}

// Sequence is an ordered list; serializing one repeats the enclosing
// element once per item.
type Sequence []Value

func (Sequence) isValue() {}

// Pair is one key-value entry of a Mapping.
type Pair struct {
	Key   string
	Value Value
}

// Mapping is an ordered list of key-value pairs. Keys become child element
// names in declaration order.
type Mapping []Pair

func (Mapping) isValue() {}

// M builds a Mapping from pairs.
func M(pairs ...Pair) Mapping {
	return Mapping(pairs)
}

// P builds a single Pair.
func P(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// S builds a Sequence from items.
func S(items ...Value) Sequence {
	return Sequence(items)
}

// ParamsFromYAML decodes a YAML document into a Mapping, preserving the
// document's key order. The top level must be a mapping.
func ParamsFromYAML(data []byte) (Mapping, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse params: %w", err)
	}
	node := &root
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return Mapping{}, nil
		}
		node = node.Content[0]
	}
	v, err := valueFromNode(node)
	if err != nil {
		return nil, err
	}
	m, ok := v.(Mapping)
	if !ok {
		return nil, fmt.Errorf("parse params: top level must be a mapping, got %T", v)
	}
	return m, nil
}

func valueFromNode(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return Scalar(node.Value), nil
	case yaml.SequenceNode:
		seq := make(Sequence, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := valueFromNode(item)
			if err != nil {
				return nil, err
			}
			seq = append(seq, v)
		}
		return seq, nil
	case yaml.MappingNode:
		m := make(Mapping, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			v, err := valueFromNode(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			m = append(m, Pair{Key: node.Content[i].Value, Value: v})
		}
		return m, nil
	case yaml.AliasNode:
		return valueFromNode(node.Alias)
	default:
		return nil, fmt.Errorf("parse params: unsupported YAML node kind %d (line %d)", node.Kind, node.Line)
	}
}
