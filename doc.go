// Package pointsto computes may-point-to information for a program
// represented as a graph of memory-effect nodes: allocations, loads, stores,
// pointer offset adjustments, control-flow merges and calls through function
// pointers. A front-end (such as the frontend package in this module) builds
// the graph; the solver propagates points-to sets across it until a fixpoint
// and leaves the result on the nodes for clients to query.
//
// The analysis is untyped: every pointer is a pair of an allocation site and
// a byte offset, and offsets that escape the model collapse into the unknown
// offset. Pointer targets that escape it collapse into the UnknownMemory
// sentinel.
//
// Everything in this package is single-threaded and synchronous. The solver
// never suspends; a caller that needs to bound the work checks Steps or
// Pending between iterations of its own loop. The two sentinel nodes are
// process-wide and constant by construction, so independent analyses may
// share them, but nothing else may be shared between concurrently running
// solvers.
package pointsto
