package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "radar.json")
	doc := `{"days_back": 7, "llm_enable": true, "llm_model": "gpt-4o", "notion_database_id": "db123"}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.DaysBack != 7 {
		t.Fatalf("expected days_back 7, got %d", cfg.DaysBack)
	}
	if !cfg.LLMEnable || cfg.LLMModel != "gpt-4o" {
		t.Fatalf("llm options not applied: %+v", cfg)
	}
	if cfg.NotionDatabaseID != "db123" {
		t.Fatalf("notion database id not applied")
	}
	// Untouched fields keep their defaults.
	if cfg.PDFMaxPages != 30 {
		t.Fatalf("expected default pdf_max_pages 30, got %d", cfg.PDFMaxPages)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile("/nonexistent/radar.json"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestBackfillFieldList(t *testing.T) {
	c := Config{BackfillFields: "pdf_url, citations,,recommend_score "}
	got := c.BackfillFieldList()
	want := []string{"pdf_url", "citations", "recommend_score"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
