package operator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epistemic-tools/pack/pkg/version"
)

func TestDescribeRequiredFields(t *testing.T) {
	d := Describe()

	assert.Equal(t, "pack", d.Name)
	assert.Equal(t, "operator.v0", d.SchemaVersion)
	assert.Equal(t, "mixed", d.OutputMode)
	assert.Equal(t, version.Tool(), d.Version)
	assert.NotEmpty(t, d.Description)
}

func TestDescribeSubcommands(t *testing.T) {
	subs := Describe().Subcommands

	for _, name := range []string{"seal", "verify", "diff", "push", "pull", "witness"} {
		assert.Contains(t, subs, name)
	}

	assert.Equal(t, "PACK_CREATED", subs["seal"].ExitCodes["0"])
	assert.Equal(t, "REFUSAL", subs["seal"].ExitCodes["2"])
	assert.Equal(t, "INVALID", subs["verify"].ExitCodes["1"])
	assert.Equal(t, "CHANGES", subs["diff"].ExitCodes["1"])
	assert.Equal(t, "deferred", subs["push"].Status)
	assert.Equal(t, "deferred", subs["pull"].Status)
	assert.Empty(t, subs["verify"].Status)
}

func TestDescribeRefusalCodes(t *testing.T) {
	codes := Describe().RefusalCodes

	for _, code := range []string{"E_EMPTY", "E_IO", "E_DUPLICATE", "E_BAD_PACK"} {
		assert.Contains(t, codes, code)
	}
}

func TestDescriptorJSON(t *testing.T) {
	data, err := Describe().JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "operator.v0", decoded["schema_version"])

	flags, ok := decoded["global_flags"].([]any)
	require.True(t, ok)
	assert.Contains(t, flags, "--no-witness")
}
