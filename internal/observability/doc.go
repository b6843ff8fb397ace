// Package observability builds the process logger and carries request-scoped
// log fields.
package observability
