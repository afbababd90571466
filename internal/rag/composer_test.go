package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposePrompt_EmptyContext(t *testing.T) {
	prompt := ComposePrompt(nil)

	assert.Contains(t, prompt, "couldn't find specific information")
	assert.Contains(t, prompt, "Please try asking about:")
	assert.NotContains(t, prompt, "CONTEXT FROM KNOWLEDGE BASE")
}

func TestComposePrompt_EmbedsEveryChunkVerbatim(t *testing.T) {
	contexts := []Context{
		{Title: "guide - Setup", Section: "Setup", Content: "Run the installer first."},
		{Title: "guide - Usage", Section: "Usage", Content: "Pass --help for flags."},
	}

	prompt := ComposePrompt(contexts)

	assert.Contains(t, prompt, "ONLY use information from the CONTEXT")
	assert.Contains(t, prompt, "### guide - Setup (Setup)\nRun the installer first.")
	assert.Contains(t, prompt, "### guide - Usage (Usage)\nPass --help for flags.")
	assert.Contains(t, prompt, "\n\n---\n\n")

	// Blocks appear in retrieval order.
	require.Less(t,
		strings.Index(prompt, "guide - Setup"),
		strings.Index(prompt, "guide - Usage"))
}

func TestComposePrompt_Deterministic(t *testing.T) {
	contexts := []Context{{Title: "t", Section: "s", Content: "c"}}

	assert.Equal(t, ComposePrompt(contexts), ComposePrompt(contexts))
	assert.Equal(t, ComposePrompt(nil), ComposePrompt([]Context{}))
}
