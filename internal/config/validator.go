package config

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "branch.prefix")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// branchRefRegex validates the branch prefix and main branch names.
// Segments may be separated by "/", but may not start with "-" or ".".
var branchRefRegex = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]*(/[a-zA-Z0-9_][a-zA-Z0-9_.-]*)*$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateBranch()...)
	errors = append(errors, c.validatePaths()...)
	errors = append(errors, c.validateStorage()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateBranch() []ValidationError {
	var errors []ValidationError

	check := func(field, value string) {
		switch {
		case value == "":
			errors = append(errors, ValidationError{Field: field, Value: value, Message: "cannot be empty"})
		case !branchRefRegex.MatchString(value) || strings.Contains(value, ".."):
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   value,
				Message: "must be a valid git branch name",
			})
		}
	}
	check("branch.prefix", c.Branch.Prefix)
	check("branch.main", c.Branch.Main)

	return errors
}

func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	if c.Policies.Dir == "" {
		errors = append(errors, ValidationError{
			Field:   "policies.dir",
			Value:   c.Policies.Dir,
			Message: "cannot be empty",
		})
	}

	for field, path := range map[string]string{
		"policies.dir":  c.Policies.Dir,
		"templates.dir": c.Templates.Dir,
	} {
		if strings.ContainsRune(path, '\x00') {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   path,
				Message: "path contains invalid null character",
			})
		}
	}

	// Sort for deterministic output; map iteration order is random.
	slices.SortFunc(errors, func(a, b ValidationError) int { return strings.Compare(a.Field, b.Field) })
	return errors
}

// validateStorage only checks values that are set; missing storage settings
// are reported lazily by the tempurl helper when a template needs them.
func (c *Config) validateStorage() []ValidationError {
	var errors []ValidationError

	if c.Storage.Endpoint != "" {
		u, err := url.Parse(c.Storage.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "storage.endpoint",
				Value:   c.Storage.Endpoint,
				Message: "must be an absolute URL with scheme and host",
			})
		}
	}

	if c.Storage.Path != "" && !strings.HasPrefix(c.Storage.Path, "/") {
		errors = append(errors, ValidationError{
			Field:   "storage.path",
			Value:   c.Storage.Path,
			Message: "must start with /",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
