package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/root-talis/tsmig/internal/logging"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw      string
		expected zerolog.Level
	}{
		/* s0 */ {raw: "", expected: zerolog.InfoLevel},
		/* s1 */ {raw: "trace", expected: zerolog.TraceLevel},
		/* s2 */ {raw: " DEBUG ", expected: zerolog.DebugLevel},
		/* s3 */ {raw: "warning", expected: zerolog.WarnLevel},
		/* s4 */ {raw: "error", expected: zerolog.ErrorLevel},
		/* s5 */ {raw: "off", expected: zerolog.Disabled},
		/* s6 */ {raw: "nonsense", expected: zerolog.InfoLevel},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, logging.ParseLevel(test.raw), test.raw)
	}
}

func TestNewWritesJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: "warn", Out: &buf})

	logger.Info().Msg("hidden")
	logger.Warn().Str("version", "20230101000000").Msg("shown")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "warn", record["level"])
	assert.Equal(t, "shown", record["message"])
	assert.Equal(t, "20230101000000", record["version"])
}

func TestNewLevel(t *testing.T) {
	t.Setenv("TSMIG_LOG_LEVEL", "error")

	// the environment is folded into the config before the logger is built
	logger := logging.New(logging.Config{Level: "debug", Out: &bytes.Buffer{}})
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	logger = logging.New(logging.Config{Level: "error", Verbose: true, Out: &bytes.Buffer{}})
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	logger = logging.New(logging.Config{Level: "trace", Verbose: true, Out: &bytes.Buffer{}})
	assert.Equal(t, zerolog.TraceLevel, logger.GetLevel())
}
