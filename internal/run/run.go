// Package run models a course run: the validated parameters of one new-run
// invocation and the rendering context derived from them.
package run

import (
	"os"
	"strings"
	"time"

	"github.com/Iron-Ham/olx/internal/errors"
)

// BaselineName is the reserved identifier of the shared template and policy
// baseline. No run may use it as its name.
const BaselineName = "_base"

// DateFormat is the only accepted layout for run dates.
const DateFormat = errors.DisplayDateFormat

// Args holds the raw new-run arguments as received from the command line.
type Args struct {
	Name         string
	StartDate    string
	EndDate      string
	Suffix       string
	Public       bool
	CreateBranch bool
}

// Configuration is a validated run. It is never mutated after Parse returns.
type Configuration struct {
	Name         string
	StartDate    time.Time
	EndDate      time.Time
	Suffix       string
	Public       bool
	CreateBranch bool
}

// Parse validates raw arguments into a Configuration. Dates are checked
// first, then the name, then the date order, so a malformed date is always
// reported before anything else.
func Parse(args Args) (Configuration, error) {
	start, err := ParseDate(args.StartDate)
	if err != nil {
		return Configuration{}, err
	}
	end, err := ParseDate(args.EndDate)
	if err != nil {
		return Configuration{}, err
	}

	if !ValidName(args.Name) {
		return Configuration{}, errors.NewInvalidNameError(args.Name)
	}
	if args.Name == BaselineName {
		return Configuration{}, errors.NewReservedNameError(args.Name)
	}
	if end.Before(start) {
		return Configuration{}, errors.NewDateOrderError(start, end)
	}

	return Configuration{
		Name:         args.Name,
		StartDate:    start,
		EndDate:      end,
		Suffix:       args.Suffix,
		Public:       args.Public,
		CreateBranch: args.CreateBranch,
	}, nil
}

// ValidName reports whether name can be used as a single file name in the
// course and policies directories.
func ValidName(name string) bool {
	switch name {
	case "", ".", "..":
		return false
	}
	return !strings.ContainsRune(name, '/') && !strings.ContainsRune(name, os.PathSeparator)
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, errors.NewInvalidDateError(s, err)
	}
	return t, nil
}

// Context is the set of run-derived values handed to the template renderer.
// Field names are what templates reference, e.g. {{ .RunName }}.
type Context struct {
	RunName   string
	StartDate time.Time
	// EndDate is the last second of the run's final day.
	EndDate  time.Time
	Suffix   string
	IsPublic bool
}

// Context derives the rendering context.
func (c Configuration) Context() Context {
	return Context{
		RunName:   c.Name,
		StartDate: c.StartDate,
		EndDate:   EndOfDay(c.EndDate),
		Suffix:    c.Suffix,
		IsPublic:  c.Public,
	}
}

// EndOfDay moves t to 23:59:59 on the same calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// BranchName returns the isolation branch for a run name under prefix.
func BranchName(prefix, name string) string {
	return prefix + "/" + name
}

// CommitMessage returns the message used when committing a new run.
func CommitMessage(name string) string {
	return "New run: " + name
}
