// Package graph resolves the creation order of a batch of linked records.
//
// The pipeline is:
//
//  1. Build: one node per record id, one edge per link target. Edges keep
//     a pointer to the link that owns them, so all edges of a text link can
//     be dropped together.
//  2. IsolateCore: peel every node with in-degree 0 or out-degree 0 until a
//     fixpoint. What remains is the cyclic core.
//  3. BreakCycles: enumerate simple cycles of the core, stash the cheapest
//     link of each (cost = out-degree(source) + in-degree(target), ties go to
//     the earliest edge), peel again, repeat until the core is empty.
//  4. UploadOrder: peel sinks round by round on the full graph without the
//     stashed links. Targets always come before the records that point at
//     them.
//
// All functions are deterministic for a given input order and never touch
// the network.
package graph
