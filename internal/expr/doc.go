// Package expr implements the logicrun expression language.
//
// An expression names task units and combines them with boolean operators:
//
//	(A)                       run task A
//	(A:x,"y,z")               run task A with arguments x and y,z
//	&& [ (A), (B) ]           short-circuiting AND
//	& [ (A), (B) ]            AND that always runs every operand
//	|| [ (A), (B) ]           short-circuiting OR
//	| [ (A), (B) ]            OR that always runs every operand
//	! (A)                     NOT
//
// Parse turns text into a tree of Node values. The tree is a closed sum type
// over *Atom, *Not, *And and *Or; every variant evaluates through the same
// Evaluate contract and records the outcome of its last evaluation.
//
// Parsing happens in three stages:
//  1. Format pre-check: balanced brackets and parentheses, operators followed by "[".
//  2. Normalization: canonical spacing around structural characters.
//  3. Recursive descent with an explicit cursor. Malformed input is recorded
//     as a Diagnostic and the parser resynchronizes on the next structural
//     character. Only a missing root is fatal.
//
// Quoted regions ("...") and backslash escapes are honored by every stage, so
// structural characters inside arguments are never mistaken for syntax.
package expr
