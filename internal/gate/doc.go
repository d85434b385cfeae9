// Package gate is the admission-controlled pagination and
// response-normalization layer between the tools and the Okta API.
//
// It has three parts, composed bottom-up:
//
//   - Admission: bounds the number of concurrent in-flight upstream calls
//     to a configured limit. Contended callers wait in FIFO order; a
//     completed call always releases its slot, success or failure.
//   - Normalize: collapses the upstream response shapes (triple, pair,
//     bare value, nil) into one canonical Normalized value.
//   - Walker: drives a page cursor to completion under a page budget with
//     a fixed inter-page delay, returning a flat, filtered aggregate.
//     Partial results with an error are a valid outcome, not a failure.
//
// The gate holds no persisted state and speaks no wire protocol of its
// own; it is consumed in-process by the tool layer.
package gate
