// Package graph defines the node tree produced by instantiating a parsed
// document. A tree is built once per compilation and never mutated after
// instantiation; each compilation produces a new tree.
package graph
