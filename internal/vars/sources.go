package vars

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadYAMLFile reads a flat YAML mapping of variables.
func LoadYAMLFile(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vars file: %w", err)
	}
	m, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("vars file %s: %w", path, err)
	}
	return m, nil
}

// ParseYAML decodes a flat YAML mapping. Scalars keep their literal text
// ("05" stays "05"), null becomes the empty string and sequences of scalars
// are joined with commas, the list syntax the agent's options use.
func ParseYAML(data []byte) (Map, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	m := make(Map)
	if len(doc.Content) == 0 {
		return m, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping at the top level")
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		s, err := scalarString(val)
		if err != nil {
			return nil, fmt.Errorf("variable %s (line %d): %w", key.Value, key.Line, err)
		}
		m[key.Value] = s
	}
	return m, nil
}

func scalarString(n *yaml.Node) (string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return "", nil
		}
		return n.Value, nil
	case yaml.SequenceNode:
		parts := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return "", fmt.Errorf("list items must be scalars")
			}
			parts = append(parts, item.Value)
		}
		return strings.Join(parts, ","), nil
	case yaml.AliasNode:
		return scalarString(n.Alias)
	default:
		return "", fmt.Errorf("nested mappings are not supported")
	}
}

// LoadEnvFile reads KEY=value pairs from a dotenv file. Keys are used as-is,
// so the file names variables directly (polling_interval=2).
func LoadEnvFile(path string) (Map, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	return Map(env), nil
}
