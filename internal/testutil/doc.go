// Package testutil provides testing utilities and helpers.
//
// This package contains readers that deliver data in controlled chunks,
// scripted chat streamers and in-memory backends used across the package
// tests.
//
// This package is internal and should not be imported by external code.
package testutil
