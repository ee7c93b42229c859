//go:build tools
// +build tools

// Package studyroom declares tool dependencies for this module so that
// `go generate` can run mockgen from a fresh checkout.
package studyroom

import (
	_ "go.uber.org/mock/mockgen"
)
