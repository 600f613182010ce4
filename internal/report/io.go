package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Andrei-Barwood/annotaudit/internal/model"
)

func Save(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("output path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadIssues reads a results file written by the audit command.
func LoadIssues(path string) ([]model.Issue, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var issues []model.Issue
	if err := json.Unmarshal(buf, &issues); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if issues == nil {
		issues = []model.Issue{}
	}
	return issues, nil
}
