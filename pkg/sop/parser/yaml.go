package parser

import (
	"bytes"
	"errors"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jaretmartin/symtex/pkg/sop/ast"
)

// yamlRuleSet is the intermediate form of a rule document.
// It matches the YAML shape before lowering to the ast model.
type yamlRuleSet struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Version     int        `yaml:"version"`
	Status      string     `yaml:"status"`
	Priority    int        `yaml:"priority"`
	Category    string     `yaml:"category"`
	Tags        []string   `yaml:"tags"`
	Created     string     `yaml:"created"`
	Updated     string     `yaml:"updated"`
	Rules       []yamlRule `yaml:"rules"`
}

// yamlRule is the intermediate form of a single rule.
type yamlRule struct {
	ID          string                   `yaml:"id"`
	Name        string                   `yaml:"name"`
	Description string                   `yaml:"description"`
	Enabled     *bool                    `yaml:"enabled"` // Pointer to distinguish unset vs false
	Order       *int                     `yaml:"order"`   // Pointer to distinguish unset vs zero
	Trigger     map[string]interface{}   `yaml:"trigger"`
	Conditions  []yamlCondition          `yaml:"conditions"`
	Then        []map[string]interface{} `yaml:"then"`
	Else        []map[string]interface{} `yaml:"else"`
}

// yamlCondition is the intermediate form of a condition predicate.
type yamlCondition struct {
	Field    string      `yaml:"field"`
	Operator string      `yaml:"operator"`
	Value    interface{} `yaml:"value"`
}

// parseYAMLBytes decodes a rule document with strict field checking and
// captures per-rule source locations from the YAML node tree.
func parseYAMLBytes(data []byte, sourcePath string) (*yamlRuleSet, []ast.Location, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc yamlRuleSet
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("document is empty")
		}
		return nil, nil, err
	}

	return &doc, ruleLocations(data, sourcePath), nil
}

// ruleLocations records where each rule begins in the source document.
// Extraction is best effort: a malformed node tree yields no locations.
func ruleLocations(data []byte, sourcePath string) []ast.Location {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil || len(root.Content) == 0 {
		return nil
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value != "rules" {
			continue
		}
		seq := doc.Content[i+1]
		if seq.Kind != yaml.SequenceNode {
			return nil
		}
		locs := make([]ast.Location, len(seq.Content))
		for j, item := range seq.Content {
			locs[j] = ast.Location{File: sourcePath, Line: item.Line, Column: item.Column}
		}
		return locs
	}

	return nil
}
