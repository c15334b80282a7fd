package cmd

import (
	"path/filepath"
	"strings"
)

// CanonicalName is the name of the olx executable.
const CanonicalName = "olx"

// legacyScripts are standalone script names from before the olx command
// existed. Invoking one of them implies the new-run subcommand.
var legacyScripts = map[string]bool{
	"new_run.py": true,
	"new_run":    true,
}

// Invocation is a command line reduced to the canonical "olx ..." form.
type Invocation struct {
	// Subcommand is the subcommand implied by the executable name, or ""
	// when the arguments name it themselves.
	Subcommand string
	// Args are the arguments after the executable name.
	Args []string
}

// Normalize maps an argument vector, including the executable path at
// argv[0], onto the canonical form. Three invocations are equivalent:
//
//	olx new-run NAME ...
//	olx-new-run NAME ...
//	new_run.py NAME ...
func Normalize(argv []string) Invocation {
	if len(argv) == 0 {
		return Invocation{}
	}

	args := append([]string(nil), argv[1:]...)
	base := filepath.Base(argv[0])

	switch {
	case legacyScripts[base]:
		return Invocation{Subcommand: "new-run", Args: args}
	case strings.HasPrefix(base, CanonicalName+"-") && len(base) > len(CanonicalName)+1:
		return Invocation{Subcommand: strings.TrimPrefix(base, CanonicalName+"-"), Args: args}
	default:
		return Invocation{Args: args}
	}
}

// Argv returns the arguments to parse, with any implied subcommand first.
func (i Invocation) Argv() []string {
	if i.Subcommand == "" {
		return append([]string(nil), i.Args...)
	}
	return append([]string{i.Subcommand}, i.Args...)
}
