package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSONOutputIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{JSONOutput: true, Output: &buf, Level: DebugLevel})

	WithComponent("flow").Info().Msg("testing")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "flow", entry["component"])
	assert.Equal(t, "testing", entry["message"])
}

func TestWithTokenTagsAllFourFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{JSONOutput: true, Output: &buf})

	WithToken("ns", "u", "svc", "app").Info().Msg("tagged")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ns", entry["namespace"])
	assert.Equal(t, "u", entry["user"])
	assert.Equal(t, "svc", entry["service"])
	assert.Equal(t, "app", entry["application"])
}
