package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricesync/internal/version"
)

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"sync", "export", "run", "column", "rates", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	sub, _, err := rootCmd.Find([]string{"column", "drop"})
	require.NoError(t, err)
	assert.Equal(t, "drop", sub.Name())
	assert.NotNil(t, sub.InheritedFlags().Lookup("column"))
	assert.NotNil(t, exportCmd.Flags().Lookup("table"))
	assert.NotNil(t, ratesCmd.Flags().Lookup("png"))
}

func TestVersionSkipsConfig(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version", "--short", "--config", "/does/not/exist.yaml"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, version.Version+"\n", out.String())
	assert.Nil(t, appHandle)
}
