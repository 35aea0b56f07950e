// Package errs defines the structured error taxonomy used across the index:
// every error carries a Kind, a human message, and an actionable suggestion.
// Panics are forbidden on the parse and query paths; these types are how the
// rest of the system reports failure instead.
package errs

import (
	"fmt"
	"time"

	"github.com/codanna/codanna/internal/ids"
)

// Kind names one entry of the error taxonomy. Kind is a classification, not
// a Go type switch target — callers should use errors.As on the concrete
// struct when they need fields, and Kind() only for logging/metrics.
type Kind string

const (
	KindParseFailure      Kind = "parse_failure"
	KindResolutionMiss    Kind = "resolution_miss"
	KindStorageTransient  Kind = "storage_transient"
	KindStoragePermanent  Kind = "storage_permanent"
	KindConfigError       Kind = "config_error"
	KindUnsupportedLang   Kind = "unsupported_language"
	KindResponseTooLarge  Kind = "response_too_large"
	KindNotFound          Kind = "not_found"
)

// Structured is implemented by every error in this package.
type Structured interface {
	error
	Kind() Kind
	Suggestion() string
}

// ParseFailure scopes to a single file: malformed input. The indexer keeps
// whatever symbols were recognized before the failure and continues with
// the rest of the workspace.
type ParseFailure struct {
	FilePath   string
	Line       int
	Column     int
	Underlying error
	At         time.Time
}

func NewParseFailure(path string, line, col int, err error) *ParseFailure {
	return &ParseFailure{FilePath: path, Line: line, Column: col, Underlying: err, At: time.Now()}
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("parse failure in %s:%d:%d: %v", e.FilePath, e.Line, e.Column, e.Underlying)
}
func (e *ParseFailure) Unwrap() error   { return e.Underlying }
func (e *ParseFailure) Kind() Kind      { return KindParseFailure }
func (e *ParseFailure) Suggestion() string {
	return "Suggestion: the rest of this file still indexed; fix the syntax error and re-index to recover the remainder."
}

// ResolutionMiss scopes to a single relation: the target name could not be
// resolved in Phase B. The relation is dropped and a counter is incremented.
type ResolutionMiss struct {
	From       ids.SymbolID
	TargetName string
	RelKind    string
}

func NewResolutionMiss(from ids.SymbolID, target, kind string) *ResolutionMiss {
	return &ResolutionMiss{From: from, TargetName: target, RelKind: kind}
}

func (e *ResolutionMiss) Error() string {
	return fmt.Sprintf("could not resolve %s target %q from %s", e.RelKind, e.TargetName, e.From)
}
func (e *ResolutionMiss) Kind() Kind { return KindResolutionMiss }
func (e *ResolutionMiss) Suggestion() string {
	return "Suggestion: check get_index_info for the unresolved-relation count; the dependency may not be indexed yet."
}

// StorageTransient scopes to one batch: a retriable I/O or lock error on
// commit. The caller should retry with exponential backoff before surfacing
// this as a batch error.
type StorageTransient struct {
	Operation  string
	Attempt    int
	Underlying error
}

func NewStorageTransient(op string, attempt int, err error) *StorageTransient {
	return &StorageTransient{Operation: op, Attempt: attempt, Underlying: err}
}

func (e *StorageTransient) Error() string {
	return fmt.Sprintf("transient storage error during %s (attempt %d): %v", e.Operation, e.Attempt, e.Underlying)
}
func (e *StorageTransient) Unwrap() error { return e.Underlying }
func (e *StorageTransient) Kind() Kind    { return KindStorageTransient }
func (e *StorageTransient) Suggestion() string {
	return "Suggestion: transient; the store will retry with backoff. If it keeps failing, check disk space and permissions."
}

// StoragePermanent scopes to the whole index: a schema or integrity error.
// The index is left in its last committed state and requires --force.
type StoragePermanent struct {
	Underlying error
}

func NewStoragePermanent(err error) *StoragePermanent { return &StoragePermanent{Underlying: err} }

func (e *StoragePermanent) Error() string { return fmt.Sprintf("permanent storage error: %v", e.Underlying) }
func (e *StoragePermanent) Unwrap() error { return e.Underlying }
func (e *StoragePermanent) Kind() Kind    { return KindStoragePermanent }
func (e *StoragePermanent) Suggestion() string {
	return "Suggestion: the on-disk index is corrupt or from an incompatible version; re-index with --force."
}

// ConfigError scopes to the process: missing/invalid settings or an absent
// project root. The process should fail early.
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
}

func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{Field: field, Value: value, Underlying: err}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for %s=%q: %v", e.Field, e.Value, e.Underlying)
}
func (e *ConfigError) Unwrap() error { return e.Underlying }
func (e *ConfigError) Kind() Kind    { return KindConfigError }
func (e *ConfigError) Suggestion() string {
	return fmt.Sprintf("Suggestion: fix %s in settings.toml and retry.", e.Field)
}

// UnsupportedLanguage scopes to a single file: its extension is not in the
// registry. The file is skipped with a notice, not an error that aborts
// indexing.
type UnsupportedLanguage struct {
	FilePath  string
	Extension string
}

func NewUnsupportedLanguage(path, ext string) *UnsupportedLanguage {
	return &UnsupportedLanguage{FilePath: path, Extension: ext}
}

func (e *UnsupportedLanguage) Error() string {
	return fmt.Sprintf("no registered language for extension %q (file %s)", e.Extension, e.FilePath)
}
func (e *UnsupportedLanguage) Kind() Kind { return KindUnsupportedLang }
func (e *UnsupportedLanguage) Suggestion() string {
	return "Suggestion: enable a language for this extension in settings.toml, or ignore the path."
}

// ResponseTooLarge scopes to a single query: the projected response exceeds
// the token budget. The query layer truncates rather than failing; this
// error type exists for logging/metrics of how often that happens.
type ResponseTooLarge struct {
	ProjectedBytes int
	BudgetBytes    int
}

func NewResponseTooLarge(projected, budget int) *ResponseTooLarge {
	return &ResponseTooLarge{ProjectedBytes: projected, BudgetBytes: budget}
}

func (e *ResponseTooLarge) Error() string {
	return fmt.Sprintf("response of %d bytes exceeds token budget of %d bytes, truncating", e.ProjectedBytes, e.BudgetBytes)
}
func (e *ResponseTooLarge) Kind() Kind { return KindResponseTooLarge }
func (e *ResponseTooLarge) Suggestion() string {
	return "Suggestion: narrow your query (add a kind/module filter or lower limit) for complete results."
}

// NotFound scopes to a single query: an identifier lookup missed.
type NotFound struct {
	Query string
}

func NewNotFound(query string) *NotFound { return &NotFound{Query: query} }

func (e *NotFound) Error() string  { return fmt.Sprintf("not found: %s", e.Query) }
func (e *NotFound) Kind() Kind     { return KindNotFound }
func (e *NotFound) Suggestion() string {
	return "Suggestion: use fuzzy_search for a close match, or confirm the symbol_id is from the current index generation."
}

// ExitCode maps a Kind to the batch-mode process exit code from spec.md §6.
func ExitCode(k Kind) int {
	switch k {
	case KindNotFound:
		return 3
	case KindParseFailure:
		return 4
	case KindUnsupportedLang:
		return 8
	case "":
		return 0
	default:
		return 1
	}
}
