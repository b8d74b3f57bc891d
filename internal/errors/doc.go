// Package errors provides structured, actionable error messages for keyed.
//
// Every error carries a stable code (e.g. "E201") that maps to a category,
// a short message, a longer explanation and a documentation URL. Callers
// refine a registered error with builder methods:
//
//	err := errors.New("E202").
//	    WithDetail("remove index 7 is outside the old list (length 5)").
//	    WithSuggestion("Compute the diff against the state's current keys")
//
//	fmt.Println(err.Format())
//
// # Error Categories
//
//   - validation: malformed input (duplicate keys, out-of-range diff ops)
//   - runtime: misuse of the engine (reentrant reconciliation)
//   - config: keyed.json problems
//   - protocol: wire decoding failures
//   - storage: snapshot store failures
//   - cli: command line usage errors
package errors
