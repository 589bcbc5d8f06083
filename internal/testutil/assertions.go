// Package testutil holds document assertions and recording fakes shared by
// the store, view and supervisor tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertAllOwnedBy asserts that every document carries owner in its
// ownership field.
func AssertAllOwnedBy(t *testing.T, owner string, docs []entities.Document) {
	t.Helper()

	for _, d := range docs {
		assert.Equal(t, owner, fmt.Sprint(d[entities.FieldUser]), "document %v leaked across owners", d[entities.FieldID])
	}
}

// IDs returns the string form of each document's identifier.
func IDs(docs []entities.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, fmt.Sprint(d[entities.FieldID]))
	}
	return out
}

// RequireSingleResult asserts the execution produced exactly one result line
// and returns it.
func RequireSingleResult(t *testing.T, res entities.ExecutionResult) string {
	t.Helper()

	results := res.ResultTexts()
	require.Len(t, results, 1, "result lines: %q", results)
	return results[0]
}
