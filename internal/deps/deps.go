// Package deps reports whether the external programs showkeeper shells out
// to are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"showkeeper/internal/config"
)

// Requirement is a program showkeeper may run.
type Requirement struct {
	Name        string
	Command     string
	Description string
	// Optional requirements are reported but never block a run.
	Optional bool
}

// Status is a Requirement after looking it up on PATH. Command holds the
// resolved path when Available.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// Requirements lists the programs the configuration needs. ffprobe is only
// required when duplicate detection compares play lengths.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	return []Requirement{{
		Name:        "ffprobe",
		Command:     cfg.Scan.FFprobeBinary,
		Description: "Measures play length for duplicate detection",
		Optional:    !cfg.Scan.LookForDuplicates,
	}}
}

// CheckBinaries resolves each requirement's command.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		results[i] = lookup(req)
	}
	return results
}

func lookup(req Requirement) Status {
	st := Status{Requirement: req}
	if req.Command == "" {
		st.Detail = "command not configured"
		return st
	}
	resolved, err := exec.LookPath(req.Command)
	if err != nil {
		st.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return st
	}
	st.Command = resolved
	st.Available = true
	return st
}
