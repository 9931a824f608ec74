package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunUnknownCommand(t *testing.T) {
	require.Error(t, run([]string{"frobnicate"}))
	require.Error(t, run(nil))
}

func TestHelpTopics(t *testing.T) {
	require.NoError(t, run([]string{"help"}))
	require.NoError(t, run([]string{"help", "serve"}))
	require.Error(t, run([]string{"help", "nope"}))
}

func TestImportRequiresFile(t *testing.T) {
	require.Error(t, run([]string{"import"}))
}

func TestImportLocalFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "products.csv")
	csv := "sku;name;url_key;category_uid\ntee-1;Red Tee;red-tee;11\n"
	require.NoError(t, os.WriteFile(file, []byte(csv), 0644))

	require.NoError(t, run([]string{"import", "-file", file}))
}

func TestRenderSchema(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "schema.graphql")
	require.NoError(t, run([]string{"render-schema", "-out", out}))

	sdl, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(sdl)
	assert.Contains(t, text, "type Query")
	assert.Contains(t, text, "shoppinglist")
	assert.Contains(t, text, "rating")
	assert.False(t, strings.Contains(text, "type Mutation"), "local schema drops the mutation root")
}
