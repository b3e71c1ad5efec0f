package importer

import (
	"errors"
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/territory-cli/internal/territory"
)

// yamlDocument is the mapping form of a YAML import file:
//
//	assignments:
//	  - type: state
//	    code: TX
//	    installer_id: inst-1
type yamlDocument struct {
	Assignments []territory.AssignmentInput `yaml:"assignments"`
}

// ReadYAML reads assignments from a YAML document that is either a
// sequence of assignments or a mapping with an "assignments" key.
func ReadYAML(r io.Reader) ([]territory.AssignmentInput, error) {
	var node yaml.Node
	if err := yaml.NewDecoder(r).Decode(&node); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "importer: parse yaml")
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var list []territory.AssignmentInput
		if err := root.Decode(&list); err != nil {
			return nil, eris.Wrap(err, "importer: decode yaml assignments")
		}
		return list, nil
	case yaml.MappingNode:
		var doc yamlDocument
		if err := root.Decode(&doc); err != nil {
			return nil, eris.Wrap(err, "importer: decode yaml assignments")
		}
		return doc.Assignments, nil
	}
	return nil, eris.New("importer: yaml must be a list or a mapping with an assignments key")
}
