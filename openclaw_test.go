package openclaw

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/config"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testConfig returns a config rooted in a temp dir. Metrics stay off
// because collector registration is global to the test binary.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Memory.StateDir = t.TempDir()
	cfg.Metrics.Enabled = false
	return cfg
}

func TestOpenAndClose(t *testing.T) {
	cfg := testConfig(t)

	client, err := Open(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, client.Store())
	require.NotNil(t, client.Recall())

	// The state layout exists on disk.
	_, err = os.Stat(filepath.Dir(cfg.Memory.DatabasePath()))
	require.NoError(t, err)

	require.NoError(t, client.Close())
}

func TestOpenNilLogger(t *testing.T) {
	client, err := Open(testConfig(t), nil)
	require.NoError(t, err)
	require.NoError(t, client.Close())
}

func TestOpenInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Memory.ContextBudget = -1

	_, err := Open(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, err := Open(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = client.Store().InsertFact(ctx, memory.FactInput{
		FactType:   memory.FactWorld,
		Content:    "andy keeps the coffee grinder on the left shelf",
		SourceType: memory.SourceUser,
		Entities:   []string{"andy"},
	})
	require.NoError(t, err)
	client.Recall().InvalidateEntities()

	require.True(t, client.Recall().Enabled())

	text, err := client.Recall().BuildMemoryContext(ctx, "where is the coffee grinder", 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Relevant memories:"))
	assert.Contains(t, text, "coffee grinder")
}

func TestClientDisabledRecall(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Memory.Enabled = false

	client, err := Open(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	// Writes still land while the read path is off.
	_, err = client.Store().InsertFact(ctx, memory.FactInput{
		FactType: memory.FactWorld,
		Content:  "the standup moved to 9am",
	})
	require.NoError(t, err)

	assert.False(t, client.Recall().Enabled())
	text, err := client.Recall().BuildMemoryContext(ctx, "standup", 0)
	require.NoError(t, err)
	assert.Empty(t, text)
}
