// Package protocol owns the command-file wire contract.
//
// Ownership boundary:
// - request composition (definitions + __EvalExpr__ wrapper)
// - response decoding and the reserved error triplet
// - literal formatting for generated HSL source
// - reserved remote identifiers
//
// Transport (directories, correlation ids, waiting) lives in protocol/session.
package protocol
