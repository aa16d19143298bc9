package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario_Valid(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: ok
description: a valid scenario
align: true
flow:
  - op: add_node
    args: {x: 1, y: 2.5}
    expect: {id: 1}
assertions:
  - type: graph_size
    nodes: 1
`))
	require.NoError(t, err)
	assert.Equal(t, "ok", s.Name)
	assert.True(t, s.Align)
	require.Len(t, s.Flow, 1)
	assert.Equal(t, 1, s.Flow[0].Args["x"])
	assert.Equal(t, 2.5, s.Flow[0].Args["y"])
	require.NotNil(t, s.Flow[0].Expect.ID)
	assert.Equal(t, int64(1), *s.Flow[0].Expect.ID)
	require.NotNil(t, s.Assertions[0].Nodes)
	assert.Nil(t, s.Assertions[0].Edges)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no name", "description: d\nflow: [{op: lock}]", "name is required"},
		{"no description", "name: n\nflow: [{op: lock}]", "description is required"},
		{"empty flow", "name: n\ndescription: d\nflow: []", "flow list is required"},
		{"missing op", "name: n\ndescription: d\nflow: [{args: {id: 1}}]", "flow[0]: op is required"},
		{"unknown op", "name: n\ndescription: d\nflow: [{op: fly}]", `unknown op "fly"`},
		{"unknown field", "name: n\ndescription: d\nflw: []", "failed to parse YAML"},
		{"assertion type", "name: n\ndescription: d\nflow: [{op: lock}]\nassertions: [{kind: x}]", "type is required"},
		{"trace_contains kind", "name: n\ndescription: d\nflow: [{op: lock}]\nassertions: [{type: trace_contains}]", "kind is required for trace_contains"},
		{"trace_order kinds", "name: n\ndescription: d\nflow: [{op: lock}]\nassertions: [{type: trace_order}]", "kinds list is required"},
		{"trace_count negative", "name: n\ndescription: d\nflow: [{op: lock}]\nassertions: [{type: trace_count, kind: x, count: -1}]", "count must be non-negative"},
		{"node_state expect", "name: n\ndescription: d\nflow: [{op: lock}]\nassertions: [{type: node_state, node: 1}]", "expect is required"},
		{"graph_size empty", "name: n\ndescription: d\nflow: [{op: lock}]\nassertions: [{type: graph_size}]", "nodes or edges is required"},
		{"unknown assertion", "name: n\ndescription: d\nflow: [{op: lock}]\nassertions: [{type: vibes}]", `unknown assertion type "vibes"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_ResolvesDocumentPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: paths
description: relative documents
document: docs/start.json
flow:
  - op: load
    args: {document: docs/next.yaml}
  - op: load
    args: {document: /abs/other.json}
`), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "docs", "start.json"), s.Document)
	assert.Equal(t, filepath.Join(dir, "docs", "next.yaml"), s.Flow[0].Args["document"])
	assert.Equal(t, "/abs/other.json", s.Flow[1].Args["document"])
}

func TestLoadScenario_Missing(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
