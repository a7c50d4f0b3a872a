// Package core is the orchestration layer.  It composes the knock
// sequencer, the shutdown coordinator and a front end into complete
// operational modes and provides a builder that selects the right mode
// from a Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  probe  →  knock/shutdown  →  core  →  cmd (CLI)
package core

import "context"

// Mode represents a complete operational mode of gknock (one-shot
// knock, interactive session, or dry run).  Each mode owns its full
// lifecycle from gateway connection to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
