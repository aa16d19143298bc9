package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted run against a fresh session.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description"`

	// Document is an optional JSON or YAML document loaded before the
	// flow. Relative paths resolve against the scenario file. Changes from
	// the initial load are not traced.
	Document string `yaml:"document,omitempty"`

	// Align starts the session in align mode.
	Align bool `yaml:"align,omitempty"`

	// Flow is the list of operations to perform.
	Flow []Step `yaml:"flow"`

	// Assertions are checked after the flow.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation. Args depend on Op:
//
//	add_node      x, y
//	move_node     id, x, y
//	delete_node   id
//	add_edge      from, to
//	delete_edge   id
//	update_node   id, title?, description?, clear_image?
//	attach_image  id, and data (a data URL) or width and height (a generated PNG)
//	unlock        id
//	lock          id
//	set_align     on
//	load          document
type Step struct {
	Op     string         `yaml:"op"`
	Args   map[string]any `yaml:"args,omitempty"`
	Expect *ExpectClause  `yaml:"expect,omitempty"`
}

// ExpectClause describes the expected outcome of a step. Without one a step
// must succeed.
type ExpectClause struct {
	// Error is the expected error code, e.g. PREREQUISITES_NOT_MET.
	Error string `yaml:"error,omitempty"`

	// Pulse is the expected pulse result of unlock.
	Pulse *bool `yaml:"pulse,omitempty"`

	// ID is the expected id returned by add_node or add_edge.
	ID *int64 `yaml:"id,omitempty"`
}

// Assertion checks the trace or the final tree.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Kind is a change kind such as "edge_removed" (trace_contains,
	// trace_count).
	Kind string `yaml:"kind,omitempty"`

	// Kinds lists change kinds that must appear in this order
	// (trace_order). Other changes may come between them.
	Kinds []string `yaml:"kinds,omitempty"`

	// Node narrows trace_contains to one node, and selects the node for
	// node_state.
	Node int64 `yaml:"node,omitempty"`

	// Count is the exact number of changes of Kind (trace_count).
	Count int `yaml:"count,omitempty"`

	// Expect holds node attributes for node_state: x, y, title,
	// description, unlocked, has_image. Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Nodes and Edges are the expected totals for graph_size.
	Nodes *int `yaml:"nodes,omitempty"`
	Edges *int `yaml:"edges,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertNodeState     = "node_state"
	AssertGraphSize     = "graph_size"
	AssertNodeAbsent    = "node_absent"
)

var knownOps = map[string]bool{
	"add_node": true, "move_node": true, "delete_node": true,
	"add_edge": true, "delete_edge": true, "update_node": true,
	"attach_image": true, "unlock": true, "lock": true,
	"set_align": true, "load": true,
}

// LoadScenario reads and parses a scenario YAML file. Relative document
// paths are resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	s.resolvePaths(filepath.Dir(path))
	return s, nil
}

// ParseScenario parses scenario YAML. Unknown fields are rejected so that
// typos fail loudly.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func (s *Scenario) resolvePaths(base string) {
	if s.Document != "" && !filepath.IsAbs(s.Document) {
		s.Document = filepath.Join(base, s.Document)
	}
	for i := range s.Flow {
		if s.Flow[i].Op != "load" {
			continue
		}
		if p, ok := s.Flow[i].Args["document"].(string); ok && !filepath.IsAbs(p) {
			s.Flow[i].Args["document"] = filepath.Join(base, p)
		}
	}
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if step.Op == "" {
			return fmt.Errorf("flow[%d]: op is required", i)
		}
		if !knownOps[step.Op] {
			return fmt.Errorf("flow[%d]: unknown op %q", i, step.Op)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertNodeState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for node_state", index)
		}
	case AssertNodeAbsent:
	case AssertGraphSize:
		if a.Nodes == nil && a.Edges == nil {
			return fmt.Errorf("assertions[%d]: nodes or edges is required for graph_size", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
