package filesystem

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sophialabs/labelcheck/internal/domain/label"
)

// yamlSpecification is one entry of specification.json.
type yamlSpecification struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

// yamlRefer is one label reference of specification_refer.json.
type yamlRefer struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// yamlBaseLabel is one entry of base_data_label.json, keyed by label id.
type yamlBaseLabel struct {
	Scope    *int                       `yaml:"scope"`
	Body     []label.RequestFieldSample `yaml:"body"`
	FileData []yamlFileContent          `yaml:"file_data"`
}

// yamlFileContent accepts either a bare scalar or a {value: ...} mapping.
type yamlFileContent struct {
	Value string
}

func (f *yamlFileContent) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		f.Value = node.Value
		return nil
	case yaml.MappingNode:
		var m struct {
			Value string `yaml:"value"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		f.Value = m.Value
		return nil
	default:
		return fmt.Errorf("line %d: file_data entry must be a string or {value: ...}", node.Line)
	}
}
