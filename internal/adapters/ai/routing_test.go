package ai

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickModelIsTotalAndDeterministic(t *testing.T) {
	for _, task := range AllTasks() {
		first := PickModel(task)
		assert.NotEmpty(t, first.Model, task)
		assert.True(t, first.Provider.IsValid(), task)
		assert.Equal(t, first, PickModel(task), "same input, same handle")
	}

	unknown := PickModel(Task("unknown_task"))
	assert.Equal(t, DefaultRoutingTable().Default, unknown)
}

func TestDefaultRoutingTableIsACopy(t *testing.T) {
	table := DefaultRoutingTable()
	table.Routes[TaskResearch] = ModelHandle{Provider: ProviderNameGoogle, Model: "changed"}

	assert.NotEqual(t, "changed", PickModel(TaskResearch).Model)
}

func TestLoadRoutingTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default:
  provider: google
  model: gemini-2.5-flash
  max_output_tokens: 1000
routes:
  research:
    provider: openai
    model: gpt-4o
    max_output_tokens: 3000
`), 0o600))

	table, err := LoadRoutingTable(path)
	require.NoError(t, err)

	assert.Equal(t, ModelHandle{Provider: ProviderNameOpenAI, Model: "gpt-4o", MaxOutputTokens: 3000}, table.Pick(TaskResearch))
	assert.Equal(t, ProviderNameGoogle, table.Default.Provider)
	// untouched routes survive the overlay
	assert.Equal(t, PickModel(TaskTradeProposal), table.Pick(TaskTradeProposal))
}

func TestLoadRoutingTableRejectsUnknownProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("routes:\n  research:\n    provider: anthropic\n    model: x\n"), 0o600))

	_, err := LoadRoutingTable(path)
	require.Error(t, err)
}

func TestLoadRoutingTableEmptyPath(t *testing.T) {
	table, err := LoadRoutingTable("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRoutingTable(), table)
}
