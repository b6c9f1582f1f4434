package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "auction-closer", "debug", "json")
	log.Debug().Str("auction_id", "a1").Msg("auction closed")

	var entry map[string]any
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	check.Equal(t, "auction-closer", entry["service"])
	check.Equal(t, "a1", entry["auction_id"])
	check.Equal(t, "debug", entry["level"])
	check.Equal(t, "auction closed", entry["message"])
}

func TestNewWithWriterLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "api-gateway", "warn", "json")
	log.Info().Msg("dropped")
	check.Equal(t, 0, buf.Len())

	log.Warn().Msg("kept")
	check.True(t, buf.Len() > 0)
}

func TestNewWithWriterUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "api-gateway", "chatty", "json")
	log.Debug().Msg("dropped")
	check.Equal(t, 0, buf.Len())

	log.Info().Msg("kept")
	check.True(t, buf.Len() > 0)
}
