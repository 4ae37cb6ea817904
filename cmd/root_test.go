package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommandRegistration(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["enrich"])
	assert.True(t, names["serve"])
	assert.True(t, names["credits"])
}

func TestCreditsSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range creditsCmd.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["grant"])
	assert.True(t, names["balance"])
}
