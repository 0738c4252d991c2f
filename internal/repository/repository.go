package repository

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when no row matches the lookup
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a record with the same identifier exists
	ErrDuplicate = errors.New("record already exists")
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page selects a window of an ordered result set
type Page struct {
	Limit  int
	Offset int
}

// Valid reports whether the page is within the allowed bounds
func (p Page) Valid() bool {
	return p.Limit >= 1 && p.Limit <= MaxLimit && p.Offset >= 0
}

// escapeLike escapes LIKE wildcards so user input matches literally
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// containsPattern builds an ILIKE pattern matching s anywhere
func containsPattern(s string) string {
	return "%" + escapeLike(s) + "%"
}
