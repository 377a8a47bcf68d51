package session

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("session", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Scenario != "" {
		t.Fatalf("expected empty scenario path, got %q", cfg.Scenario)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %q", cfg.OpenAIModel)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	fs := flag.NewFlagSet("session", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-scenario", "table.yaml", "-journal", "session.db"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Scenario != "table.yaml" {
		t.Fatalf("expected scenario override, got %q", cfg.Scenario)
	}
	if cfg.Journal != "session.db" {
		t.Fatalf("expected journal override, got %q", cfg.Journal)
	}
}

func TestRunRequiresScenario(t *testing.T) {
	if err := Run(context.Background(), Config{}); err == nil {
		t.Fatal("expected error without a scenario")
	}
}

func TestRunScriptedScenario(t *testing.T) {
	doc := `
director:
  name: DM
  script:
    - text: The tavern falls silent.
actors:
  - id: aria
    name: Aria
    script:
      - Aria looks up from her drink.
engine:
  max_cycles: 1
`
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}

	if err := Run(context.Background(), Config{Scenario: path}); err != nil {
		t.Fatalf("run scenario: %v", err)
	}
}

func TestRunScriptedScenarioWithJournal(t *testing.T) {
	doc := `
director:
  script:
    - text: A knock at the door.
actors:
  - id: aria
    name: Aria
engine:
  max_cycles: 1
`
	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(scenarioPath, []byte(doc), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	journalPath := filepath.Join(dir, "session.db")

	if err := Run(context.Background(), Config{Scenario: scenarioPath, Journal: journalPath}); err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	if _, err := os.Stat(journalPath); err != nil {
		t.Fatalf("journal not created: %v", err)
	}
}
