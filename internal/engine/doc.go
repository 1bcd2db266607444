// Package engine implements the chipflow propagation engine.
//
// The engine simulates a factory of bots that hand chips to each other. A bot
// fires once it holds exactly two chips and knows its routing rule, whichever
// of the two happens last. Firing sends the lower chip to the rule's low target
// and the higher chip to its high target, which may enable further bots.
//
// ARCHITECTURE:
//
// Push-Based Propagation:
// Instructions are applied strictly in input order. Each Deliver or SetRule
// call resolves every firing it triggers, transitively, before returning, so
// the network is quiescent between instructions. When a firing feeds two bots,
// the low-target cascade completes before the high chip is routed.
//
// State Tables:
//   - units:   bot ID to the chips it currently holds (at most two, sorted)
//   - pending: bot ID to a rule that arrived before the bot held two chips
//   - sinks:   output bin ID to the chip deposited there
//
// All tables are keyed by integer ID; bots never reference each other
// directly, so cyclic routing needs no shared pointers.
//
// Failure Model:
// A third chip for a bot, a second pending rule, or a second chip for an output
// bin means the instruction set is malformed. The engine stops at the first
// such condition with a *StateError naming the bot or bin. A firing budget
// stops networks whose routing cycles would fire forever.
//
// An Engine is not safe for concurrent use. Run one engine per query.
package engine
