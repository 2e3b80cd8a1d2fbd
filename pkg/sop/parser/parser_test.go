package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/jaretmartin/symtex/pkg/sop/ast"
	"github.com/jaretmartin/symtex/pkg/sop/diag"
)

const sampleDocument = `
name: incident-triage
description: Route urgent messages to humans
version: 3
status: active
priority: 5
category: support
tags: [triage, vip]
created: "2025-06-01T09:00:00Z"

rules:
  - name: vip-fast-lane
    order: 1
    trigger:
      kind: message
      channel: email
    conditions:
      - field: message.sender
        operator: equals
        value: vip@acme.com
      - field: message.body
        operator: contains
        value: urgent
    then:
      - type: respond
        channel: email
        template: vip
    else:
      - type: log
        level: info

  - name: after-hours-hold
    order: 2
    enabled: false
    trigger:
      kind: schedule
      cron: "0 18 * * *"
    then:
      - type: wait
        duration: 8h
`

func TestParser_ParseBytes(t *testing.T) {
	p := NewParser()

	rs, err := p.ParseBytes([]byte(sampleDocument), "triage.yaml")
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}

	if rs.Name != "incident-triage" {
		t.Errorf("Name = %q, want %q", rs.Name, "incident-triage")
	}
	if rs.Version != 3 {
		t.Errorf("Version = %d, want 3", rs.Version)
	}
	if rs.Status != ast.StatusActive {
		t.Errorf("Status = %q, want active", rs.Status)
	}
	if rs.ID == "" {
		t.Error("ID not assigned for document without one")
	}
	if len(rs.Rules) != 2 {
		t.Fatalf("parsed %d rules, want 2", len(rs.Rules))
	}

	first := rs.Rules[0]
	if !first.Enabled {
		t.Error("rule without 'enabled' should default to enabled")
	}
	if first.Trigger == nil || first.Trigger.Kind != ast.TriggerMessage {
		t.Fatalf("Trigger = %+v, want message trigger", first.Trigger)
	}
	if got := first.Trigger.ConfigString("channel"); got != "email" {
		t.Errorf("trigger channel = %q, want email", got)
	}
	if len(first.Conditions) != 2 {
		t.Fatalf("parsed %d conditions, want 2", len(first.Conditions))
	}
	if first.Conditions[0].Operator != ast.OperatorEquals {
		t.Errorf("operator = %q, want equals", first.Conditions[0].Operator)
	}
	if len(first.Then) != 1 || first.Then[0].Type != ast.ActionRespond {
		t.Errorf("then actions = %+v, want one respond", first.Then)
	}
	if len(first.Else) != 1 || first.Else[0].Type != ast.ActionLog {
		t.Errorf("else actions = %+v, want one log", first.Else)
	}

	second := rs.Rules[1]
	if second.Enabled {
		t.Error("rule with enabled: false parsed as enabled")
	}
	if second.Order != 2 {
		t.Errorf("Order = %d, want 2", second.Order)
	}
}

func TestParser_Defaults(t *testing.T) {
	doc := `
name: minimal
rules:
  - name: only
    trigger:
      kind: manual
    then:
      - type: log
`
	rs, err := NewParser().ParseBytes([]byte(doc), "minimal.yaml")
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}

	if rs.Status != ast.StatusDraft {
		t.Errorf("Status = %q, want draft default", rs.Status)
	}
	if rs.Version != 1 {
		t.Errorf("Version = %d, want 1 default", rs.Version)
	}
	if rs.Rules[0].Order != 1 {
		t.Errorf("Order = %d, want authored position default 1", rs.Rules[0].Order)
	}
	if rs.Rules[0].ID == "" {
		t.Error("rule ID not assigned for document without one")
	}
}

func TestParser_RejectsUnknownFields(t *testing.T) {
	doc := `
name: typo-document
rulez:
  - name: never-parsed
`
	_, err := NewParser().ParseBytes([]byte(doc), "typo.yaml")
	if err == nil {
		t.Fatal("ParseBytes() accepted a document with an unknown top-level key")
	}

	var d *diag.Diagnostic
	if !errors.As(err, &d) {
		t.Fatalf("error type = %T, want *diag.Diagnostic", err)
	}
	if d.Kind != diag.KindSyntax {
		t.Errorf("Kind = %q, want syntax", d.Kind)
	}
}

func TestParser_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		kind diag.Kind
	}{
		{
			name: "invalid yaml",
			doc:  "name: [unclosed",
			kind: diag.KindSyntax,
		},
		{
			name: "empty document",
			doc:  "",
			kind: diag.KindSyntax,
		},
		{
			name: "trigger without kind",
			doc: `
name: broken
rules:
  - name: r1
    trigger:
      channel: email
    then:
      - type: log
`,
			kind: diag.KindStructural,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().ParseBytes([]byte(tt.doc), "broken.yaml")
			if err == nil {
				t.Fatal("ParseBytes() error = nil, want parse failure")
			}

			switch e := err.(type) {
			case *diag.Diagnostic:
				if e.Kind != tt.kind {
					t.Errorf("Kind = %q, want %q", e.Kind, tt.kind)
				}
			case *diag.List:
				if !e.HasKind(tt.kind) {
					t.Errorf("diagnostics %v missing kind %q", e.Diagnostics, tt.kind)
				}
			default:
				t.Fatalf("error type = %T, want diagnostic", err)
			}
		})
	}
}

func TestParser_RuleLocations(t *testing.T) {
	rs, err := NewParser().ParseBytes([]byte(sampleDocument), "triage.yaml")
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}

	for i, rule := range rs.Rules {
		if !rule.Location.IsValid() {
			t.Errorf("rule %d location = %v, want valid file and line", i, rule.Location)
		}
		if rule.Location.File != "triage.yaml" {
			t.Errorf("rule %d location file = %q, want triage.yaml", i, rule.Location.File)
		}
	}

	if rs.Rules[0].Location.Line >= rs.Rules[1].Location.Line {
		t.Errorf("rule locations not increasing: %d then %d",
			rs.Rules[0].Location.Line, rs.Rules[1].Location.Line)
	}
}

func TestParser_NumbersNormalizeToFloat64(t *testing.T) {
	doc := `
name: numbers
rules:
  - name: r1
    trigger:
      kind: event
      event: spend
    conditions:
      - field: event.amount
        operator: greater_than
        value: 1000
    then:
      - type: log
`
	rs, err := NewParser().ParseBytes([]byte(doc), "numbers.yaml")
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}

	v := rs.Rules[0].Conditions[0].Value
	if v.Type != ast.ValueNumber {
		t.Fatalf("value type = %q, want number", v.Type)
	}
	if v.AsNumber() != 1000 {
		t.Errorf("value = %v, want 1000", v.AsNumber())
	}
}

func TestParser_MaxFileSize(t *testing.T) {
	p := NewParser().WithMaxFileSize(16)

	_, err := p.ParseBytes([]byte(strings.Repeat("a", 64)), "big.yaml")
	if err == nil {
		t.Fatal("ParseBytes() accepted a document over the size limit")
	}

	var d *diag.Diagnostic
	if !errors.As(err, &d) || d.Kind != diag.KindIO {
		t.Errorf("error = %v, want io diagnostic", err)
	}
}
