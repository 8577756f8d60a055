package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// goose only applies files carrying its annotations; a migration without
// them is silently useless.
func TestMigrationsCarryGooseSections(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "migrations", "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		s := string(data)

		up := strings.Index(s, "-- +goose Up")
		down := strings.Index(s, "-- +goose Down")
		require.GreaterOrEqual(t, up, 0, "%s is missing an Up section", f)
		require.Greater(t, down, up, "%s is missing a Down section after Up", f)
		require.NotEmpty(t, strings.TrimSpace(s[up+len("-- +goose Up"):down]), f)
		require.NotEmpty(t, strings.TrimSpace(s[down+len("-- +goose Down"):]), f)
	}
}
