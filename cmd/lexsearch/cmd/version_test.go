package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/lexsearch/pkg/version"
)

func TestVersionCmd_Default(t *testing.T) {
	isolate(t)

	out, _, err := run(t, "version")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "lexsearch "))
	assert.Contains(t, out, "commit:")
}

func TestVersionCmd_Short(t *testing.T) {
	isolate(t)

	out, _, err := run(t, "version", "--short")

	require.NoError(t, err)
	assert.Equal(t, version.Version+"\n", out)
}

func TestVersionCmd_JSON(t *testing.T) {
	isolate(t)

	out, _, err := run(t, "version", "--json")

	require.NoError(t, err)
	var info version.BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "lexsearch", info.Name)
	assert.Equal(t, version.Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}
