package registry

import (
	"fmt"
)

// Error taxonomy for registry operations. Each class carries enough context
// for the command boundary to print an actionable message and exit 1.

// ConnectivityError covers timeouts, connect failures, and unexpected HTTP
// statuses for a single source. During aggregation it is absorbed and the
// source dropped; when fetching one pinned source it surfaces directly.
type ConnectivityError struct {
	Alias string
	URL   string
	Cause error
}

func (e *ConnectivityError) Error() string {
	msg := fmt.Sprintf("failed to reach registry source %q", e.Alias)
	if e.URL != "" {
		msg += fmt.Sprintf(" (%s)", e.URL)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %s", e.Cause.Error())
	}
	return msg
}

func (e *ConnectivityError) Unwrap() error {
	return e.Cause
}

// ValidationError covers malformed JSON and missing required index or
// manifest fields. It is raised at the deserialization boundary, before any
// mutation.
type ValidationError struct {
	Subject string
	Issues  []string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("validation failed for %s", e.Subject)
	for i, issue := range e.Issues {
		msg += fmt.Sprintf("\n  %d. %s", i+1, issue)
	}
	return msg
}

// ComponentNotFoundError means an identifier matched no component summary in
// any aggregated index.
type ComponentNotFoundError struct {
	Identifier string
}

func (e *ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component %q not found in any configured registry source\n\nTry:\n  - Check the component name spelling\n  - Run `funcn source list --refresh` to refresh registry indexes\n  - Add the registry that provides it with `funcn source add`", e.Identifier)
}

// DependencyResolutionError names both the missing dependency and the
// component that required it.
type DependencyResolutionError struct {
	Dependency string
	RequiredBy string
	Cause      error
}

func (e *DependencyResolutionError) Error() string {
	msg := fmt.Sprintf("failed to resolve dependency %q required by %q", e.Dependency, e.RequiredBy)
	if e.Cause != nil {
		msg += fmt.Sprintf(": %s", e.Cause.Error())
	}
	return msg
}

func (e *DependencyResolutionError) Unwrap() error {
	return e.Cause
}

// AlreadyExistsError is returned before any file is written when the
// destination directory for a component is already present.
type AlreadyExistsError struct {
	Component string
	Path      string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("component %q already exists at %s\n\nUse --force to overwrite", e.Component, e.Path)
}

// CacheWriteError is non-fatal: callers log it and fall back to a live fetch.
type CacheWriteError struct {
	Alias string
	Cause error
}

func (e *CacheWriteError) Error() string {
	msg := fmt.Sprintf("failed to write cache entry for %q", e.Alias)
	if e.Cause != nil {
		msg += fmt.Sprintf(": %s", e.Cause.Error())
	}
	return msg
}

func (e *CacheWriteError) Unwrap() error {
	return e.Cause
}

func WrapConnectivityError(alias, url string, err error) error {
	return &ConnectivityError{Alias: alias, URL: url, Cause: err}
}

func WrapValidationError(subject string, issues []string) error {
	return &ValidationError{Subject: subject, Issues: issues}
}

func WrapDependencyError(dependency, requiredBy string, err error) error {
	return &DependencyResolutionError{Dependency: dependency, RequiredBy: requiredBy, Cause: err}
}
