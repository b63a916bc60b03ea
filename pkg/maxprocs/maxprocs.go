// Package maxprocs tunes GOMAXPROCS to the container's actual CPU quota
// before any collapser or renderer starts, so a run inside a cgroup-
// limited container doesn't oversubscribe worker goroutines.
package maxprocs

import (
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"
)

// Adjust sets GOMAXPROCS from the process's cgroup CPU quota, logging a
// warning to stderr on failure rather than aborting: every binary calls
// this before doing any work, and a misdetected quota is not fatal.
func Adjust() {
	_, err := maxprocs.Set()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set GOMAXPROCS: %v\n", err)
	}
}
