package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/mcp"
)

func TestMCPCmd_Flags(t *testing.T) {
	assert.Equal(t, "mcp", mcpCmd.Use)
	flag := mcpCmd.Flags().Lookup("http")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
	assert.Contains(t, mcpCmd.Long, "docqa://documents/{id}")
}

func TestMCPCmd_RequiresServices(t *testing.T) {
	t.Cleanup(resetCommandState)

	_, err := execute(t, "mcp")

	assert.ErrorIs(t, err, mcp.ErrMissingSearchService)
}
