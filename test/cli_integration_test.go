//go:build integration

package test

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

const rulesetFixture = `
name: sales-triage
description: Route VIP mail and hold risky sends
version: 2
status: active
category: sales

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
    then:
      - type: respond
        channel: email
        template: vip

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

const brokenRulesetFixture = `
name: ""
rules:
  - name: nameless-condition
    order: 1
    trigger:
      kind: message
    conditions:
      - field: ""
        operator: equals
        value: x
    then:
      - type: respond
        channel: email
`

const policyFixture = `
policies:
  - id: pol-spend
    name: budget-cap
    enabled: true
    scopes:
      - kind: global
    triggers:
      - kind: threshold
        metric: monthly_ai_spend
        operator: gte
        value: 8000
    approval_required: true
    risk_level: critical
    approvers:
      - kind: role
        id: finance
`

// buildSymtexBinary compiles the CLI once per test run.
func buildSymtexBinary(t *testing.T) string {
	t.Helper()

	binaryPath := "../bin/symtex"
	if _, err := os.Stat(binaryPath); err == nil {
		return binaryPath
	}

	t.Log("Building symtex binary...")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../cmd/symtex")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build symtex: %v\nOutput: %s", err, output)
	}

	return binaryPath
}

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
	return path
}

func TestLintAndCompile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	binaryPath := buildSymtexBinary(t)
	tmpDir := t.TempDir()
	rulesetFile := writeFixture(t, tmpDir, "triage.yaml", rulesetFixture)

	lintCmd := exec.Command(binaryPath, "lint", rulesetFile)
	lintOutput, err := lintCmd.CombinedOutput()
	if err != nil {
		t.Fatalf("lint failed: %v\nOutput: %s", err, lintOutput)
	}
	if !strings.Contains(string(lintOutput), "no findings") {
		t.Errorf("lint output missing clean verdict:\n%s", lintOutput)
	}

	scriptFile := filepath.Join(tmpDir, "triage.s1")
	compileCmd := exec.Command(binaryPath, "compile", rulesetFile, "-o", scriptFile)
	compileOutput, err := compileCmd.CombinedOutput()
	if err != nil {
		t.Fatalf("compile failed: %v\nOutput: %s", err, compileOutput)
	}

	script, err := os.ReadFile(scriptFile)
	if err != nil {
		t.Fatalf("reading compiled script: %v", err)
	}
	text := string(script)

	if !strings.Contains(text, `message.sender == "vip@acme.com"`) {
		t.Errorf("script missing condition clause:\n%s", text)
	}
	if !strings.Contains(text, "respond(") {
		t.Errorf("script missing respond action:\n%s", text)
	}
	if strings.Contains(text, "after-hours-hold") {
		t.Errorf("disabled rule leaked into script:\n%s", text)
	}

	// Compilation must be deterministic across invocations.
	scriptFile2 := filepath.Join(tmpDir, "triage-2.s1")
	if output, err := exec.Command(binaryPath, "compile", rulesetFile, "-o", scriptFile2).CombinedOutput(); err != nil {
		t.Fatalf("second compile failed: %v\nOutput: %s", err, output)
	}
	script2, err := os.ReadFile(scriptFile2)
	if err != nil {
		t.Fatalf("reading second script: %v", err)
	}
	if text != string(script2) {
		t.Error("compiling the same rule-set twice produced different scripts")
	}
}

func TestLintRejectsBrokenRuleSet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	binaryPath := buildSymtexBinary(t)
	tmpDir := t.TempDir()
	rulesetFile := writeFixture(t, tmpDir, "broken.yaml", brokenRulesetFixture)

	lintCmd := exec.Command(binaryPath, "lint", rulesetFile)
	output, err := lintCmd.CombinedOutput()
	if err == nil {
		t.Fatalf("lint of a broken rule-set should exit non-zero\nOutput: %s", output)
	}
	if !strings.Contains(string(output), "error") {
		t.Errorf("lint output missing error diagnostics:\n%s", output)
	}
}

func TestSimulateThreshold(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	binaryPath := buildSymtexBinary(t)
	tmpDir := t.TempDir()
	policyFile := writeFixture(t, tmpDir, "policies.yaml", policyFixture)

	tests := []struct {
		name       string
		spend      string
		wantEffect string
	}{
		{"over the cap", "8500", "require_approval"},
		{"at the cap", "8000", "require_approval"},
		{"under the cap", "7999", "allow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(binaryPath, "simulate",
				"-p", policyFile,
				"--action-type", "spend",
				"--cognate", "ads-bot",
				"--context", "monthly_ai_spend="+tt.spend,
				"--format", "json")
			output, err := cmd.CombinedOutput()
			if err != nil {
				t.Fatalf("simulate failed: %v\nOutput: %s", err, output)
			}

			var decision struct {
				Effect    string `json:"effect"`
				RiskLevel string `json:"risk_level"`
				PolicyID  string `json:"policy_id"`
			}
			if err := json.Unmarshal(output, &decision); err != nil {
				t.Fatalf("parsing decision JSON: %v\nOutput: %s", err, output)
			}
			if decision.Effect != tt.wantEffect {
				t.Errorf("effect = %q, want %q", decision.Effect, tt.wantEffect)
			}
			if tt.wantEffect == "require_approval" && decision.PolicyID != "pol-spend" {
				t.Errorf("policy_id = %q, want pol-spend", decision.PolicyID)
			}
		})
	}
}

func TestLedgerVerifyEmptyChain(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	binaryPath := buildSymtexBinary(t)
	tmpDir := t.TempDir()
	policyFile := writeFixture(t, tmpDir, "policies.yaml", policyFixture)

	configFile := writeFixture(t, tmpDir, "config.yaml", fmt.Sprintf(`
policies:
  path: %s

approvals:
  store: sqlite
  sqlite_path: %s
  reconcile_schedule: "@every 1m"

ledger:
  backend: sqlite
  sqlite_path: %s

telemetry:
  logging:
    level: error
    format: text
`, policyFile, filepath.Join(tmpDir, "approvals.db"), filepath.Join(tmpDir, "ledger.db")))

	verifyCmd := exec.Command(binaryPath, "ledger", "verify", "--config", configFile)
	output, err := verifyCmd.CombinedOutput()
	if err != nil {
		t.Fatalf("ledger verify failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(string(output), "chain valid") {
		t.Errorf("verify output missing validity line:\n%s", output)
	}
}
