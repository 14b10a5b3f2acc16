// Package graph implements the Graph Access Layer.
//
// All traversals run through registered PatternSpecs: named, parameterized
// Cypher statements with a declared parameter set. Detectors and resolvers
// may not issue free-form queries, which keeps the query surface auditable.
//
// Error taxonomy:
//   - ErrMalformedQuery: inconsistent spec/parameters, a programming error;
//     surfaced immediately, never retried
//   - ErrUnavailable: the store cannot be reached; callers skip the current
//     cycle for the affected detector and carry on
//   - ErrNotFound: a detail lookup matched nothing
package graph
