// Package filesystem implements the backend-agnostic storage facade. Every
// operation normalizes its path arguments, consults the metadata cache for
// read-only queries, delegates to the bound adapter, and translates adapter
// outcomes into the classified error contract of pkg/errors.
//
// Mutating operations call the adapter first and only touch the cache after
// adapter success, so a failed write can never poison cached state.
package filesystem
