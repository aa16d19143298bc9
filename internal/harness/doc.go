// Package harness runs scripted editing scenarios against a session and
// checks the resulting change trace.
//
// A scenario is a YAML file with a flow of operations (add_node, add_edge,
// unlock, ...) and assertions over the recorded changes and the final
// tree:
//
//	name: unlock_chain
//	description: A node unlocks once its prerequisite is unlocked
//	flow:
//	  - op: add_node
//	    args: {x: 100, y: 100}
//	  - op: add_node
//	    args: {x: 300, y: 100}
//	  - op: add_edge
//	    args: {from: 1, to: 2}
//	  - op: unlock
//	    args: {id: 2}
//	    expect: {error: PREREQUISITES_NOT_MET}
//	assertions:
//	  - type: graph_size
//	    nodes: 2
//	    edges: 1
//
// Every run starts from a fresh session, so node and edge ids and change
// sequence numbers are deterministic and traces can be compared against
// golden files.
package harness
