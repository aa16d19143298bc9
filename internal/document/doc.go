// Package document converts between a tree.Store and its persisted form.
//
// A Document is an ordered list of node records and an ordered list of
// connection records. It is the only durable representation of a tree:
// edge handles, curves and image covers are derived again on load.
//
// The JSON wire form is
//
//	{"nodes":[{"id":0,"x":100,"y":100,"title":"Title","description":"Description",
//	           "imageData":null,"unlocked":false}],
//	 "connections":[{"fromId":0,"toId":1}]}
//
// Unmarshal and UnmarshalYAML check that every field is present with the
// right type before anything is built. Deserialize then checks the graph
// rules (unique ids, no self-loops, known endpoints) and either returns a
// fully built store or an error and nothing.
package document
