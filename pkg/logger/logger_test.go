package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Failed to decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: "warn", Output: &buf})

	log.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected info to be filtered, got %q", buf.String())
	}

	log.Warn("shown")
	entry := decodeLine(t, &buf)
	if entry["message"] != "shown" || entry["level"] != "warn" {
		t.Errorf("Unexpected entry: %v", entry)
	}
}

func TestLevelsAreIndependent(t *testing.T) {
	var quiet, loud bytes.Buffer
	New(&Config{Level: "error", Output: &quiet})
	debug := New(&Config{Level: "debug", Output: &loud})

	debug.Debug("still visible")
	if !strings.Contains(loud.String(), "still visible") {
		t.Error("Creating a stricter logger should not silence others")
	}
}

func TestEventFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: "debug", Output: &buf, Component: "custody"})

	keyHash := common.HexToHash("0xabc")
	donor := common.HexToAddress("0x1000000000000000000000000000000000000001")
	log.InfoEvent().
		Hash("key_hash", keyHash).
		Address("donor", donor).
		Uint64("nonce", 7).
		Int64("timestamp", 1700000000).
		Amount("amount", big.NewInt(42)).
		Amount("missing", nil).
		Secret("signature", "0123456789abcdef").
		Err(errors.New("boom")).
		Msg("claimed")

	entry := decodeLine(t, &buf)
	if entry["component"] != "custody" {
		t.Errorf("Expected component field, got %v", entry["component"])
	}
	if entry["key_hash"] != keyHash.Hex() || entry["donor"] != donor.Hex() {
		t.Errorf("Unexpected hash or address fields: %v", entry)
	}
	if entry["amount"] != "42" || entry["missing"] != "0" {
		t.Errorf("Expected amounts 42 and 0, got %v and %v", entry["amount"], entry["missing"])
	}
	if entry["nonce"].(float64) != 7 {
		t.Errorf("Expected nonce 7, got %v", entry["nonce"])
	}
	if entry["signature"] != "0123...<redacted>" {
		t.Errorf("Signature was not redacted: %v", entry["signature"])
	}
	if entry["error"] != "boom" {
		t.Errorf("Expected error field, got %v", entry["error"])
	}
}

func TestRedactSecret(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "<empty>"},
		{"short", "<redacted>"},
		{"0xdeadbeefcafe", "0xde...<redacted>"},
	}

	for _, tt := range tests {
		if got := RedactSecret(tt.input); got != tt.expected {
			t.Errorf("RedactSecret(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestValidLevel(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "warn", "error"} {
		if !ValidLevel(level) {
			t.Errorf("Expected %q to be valid", level)
		}
	}
	if ValidLevel("verbose") {
		t.Error("Expected verbose to be rejected")
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error("ignored")
	log.With().Str("k", "v").Hash("key_hash", common.Hash{}).Logger().InfoEvent().Msg("ignored")
}
