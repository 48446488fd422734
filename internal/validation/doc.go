// Package validation provides input validation for object operations and
// transport construction. Inputs are validated before any request is sent.
package validation
