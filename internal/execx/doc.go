// Package execx runs external commands and captures their output.
//
// It is the only place subsync spawns processes. Runner is the seam: the
// ExecRunner spawns real processes, LimitedRunner bounds how many run at
// once, and FakeRunner scripts results for tests.
package execx
