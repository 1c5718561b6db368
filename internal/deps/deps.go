// Package deps locates the external programs the pipeline shells out to.
package deps

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNotConfigured marks a binary whose command is blank in the config.
var ErrNotConfigured = errors.New("command not configured")

// Binary names one external program and what the pipeline uses it for.
type Binary struct {
	Name     string
	Command  string
	Purpose  string
	Optional bool
}

// Resolution is the outcome of looking a Binary up on PATH.
type Resolution struct {
	Binary
	Path string
	Err  error
}

// Found reports whether the binary resolved to an executable.
func (r Resolution) Found() bool { return r.Err == nil }

// Detail is the path when found and the failure otherwise.
func (r Resolution) Detail() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.Path
}

// Resolve looks up every binary, preserving order.
func Resolve(binaries ...Binary) []Resolution {
	out := make([]Resolution, len(binaries))
	for i, bin := range binaries {
		bin.Command = strings.TrimSpace(bin.Command)
		out[i] = Resolution{Binary: bin}
		if bin.Command == "" {
			out[i].Err = ErrNotConfigured
			continue
		}
		path, err := exec.LookPath(bin.Command)
		if err != nil {
			out[i].Err = fmt.Errorf("binary %q not found", bin.Command)
			continue
		}
		out[i].Path = path
	}
	return out
}

// Missing filters to required binaries that did not resolve.
func Missing(resolutions []Resolution) []Resolution {
	var missing []Resolution
	for _, r := range resolutions {
		if !r.Found() && !r.Optional {
			missing = append(missing, r)
		}
	}
	return missing
}
