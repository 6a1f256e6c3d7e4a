// Package validation provides the upload rules applied before files are
// sent to storage.
//
// This package is internal and should not be imported by external code.
package validation
