package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_JSONFields(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())

	var buf bytes.Buffer
	log := New(&buf, "warn", "json")

	log.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info written at warn level: %s", buf.String())
	}

	log.Warn().Msg("kept")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["service"] != Service || entry["message"] != "kept" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNew_UnknownLevelIsInfo(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())

	New(&bytes.Buffer{}, "loud", "json")
	if got := zerolog.GlobalLevel(); got != zerolog.InfoLevel {
		t.Errorf("global level = %v, want info", got)
	}
}
