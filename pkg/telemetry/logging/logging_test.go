package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_Formats(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "json", config: Config{Level: "info", Format: "json"}},
		{name: "text", config: Config{Level: "debug", Format: "text"}},
		{name: "empty defaults to json", config: Config{}},
		{name: "bad level", config: Config{Level: "loud"}, wantErr: true},
		{name: "bad format", config: Config{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("quiet")
	logger.Warn("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Error("info record written despite warn level")
	}
	if !strings.Contains(out, "loud") {
		t.Error("warn record missing")
	}
}

func TestNew_RedactsSensitiveAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", RedactSecrets: true, Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("approver notified",
		"api_key", "sk-live-abcdef123456",
		"recipient", "dana@acme.com",
		"request_id", "req-42")

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}

	if record["api_key"] != "***" {
		t.Errorf("api_key = %q, want masked", record["api_key"])
	}
	if record["recipient"] != "***@acme.com" {
		t.Errorf("recipient = %q, want masked email", record["recipient"])
	}
	if record["request_id"] != "req-42" {
		t.Errorf("request_id = %q, want untouched", record["request_id"])
	}
}

func TestRedactor_Patterns(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "api key", in: "using sk-abc123XYZ for auth", want: "using sk-*** for auth"},
		{name: "bearer token", in: "header Bearer eyJhbGci.payload", want: "header Bearer ***"},
		{name: "password assignment", in: "password=hunter2 accepted", want: "password=*** accepted"},
		{name: "email", in: "notify ceo@client.io", want: "notify ***@client.io"},
		{name: "clean text", in: "approved request req-42", want: "approved request req-42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.RedactString(tt.in); got != tt.want {
				t.Errorf("RedactString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRedactor_AttrKinds(t *testing.T) {
	r := NewRedactor()

	attr := r.RedactAttr(slog.Int("duration_ms", 12))
	if attr.Value.Kind() != slog.KindInt64 {
		t.Errorf("non-string attr rewritten: kind = %v", attr.Value.Kind())
	}

	attr = r.RedactAttr(slog.String("auth_token", "abc"))
	if attr.Value.String() != "***" {
		t.Errorf("sensitive key value = %q, want ***", attr.Value.String())
	}
}
