// Copyright 2025 Lattice ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package parallel maps operations over batches of independent graphs.
package parallel

import (
	"github.com/lattice-ml/lattice/internal/parallel"
)

// Config controls batch execution behavior.
type Config = parallel.Config

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	return parallel.DefaultConfig()
}

// For executes f(i) for i in [0, n), distributing items over workers.
func For(n int, f func(i int), cfg Config) {
	parallel.For(n, f, cfg)
}

// Map applies fn to every item and collects the results in order. Items
// must not share a derivation DAG: concurrent backward-tracked work on
// shared inputs is unsupported.
func Map[T, R any](items []T, fn func(T) R, cfg Config) []R {
	return parallel.Map(items, fn, cfg)
}
