package preflight

import (
	"context"
	"fmt"

	"arena/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem checks for the given config: the work and
// output directories must be writable and every variant directory that is
// configured must be readable.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	for _, v := range cfg.Session.Variants {
		if v.Dir == "" {
			continue
		}
		results = append(results, CheckDirectoryReadable(fmt.Sprintf("Variant %s", v.ID), v.Dir))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
