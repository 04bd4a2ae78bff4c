package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ruleforge-hq/anvil/pkg/rules"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileSource_SingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	writeFile(t, path, "rules:\n  - name: a\n    assert: '1'\n")

	set, err := NewFileSource(path, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(set.Rules) != 1 || set.Rules[0].Source != path {
		t.Errorf("rules = %+v", set.Rules)
	}
}

func TestFileSource_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.yml"), "rules:\n  - name: b\n    assert: '1'\n")
	writeFile(t, filepath.Join(dir, "a.yaml"), "rules:\n  - name: a\n    assert: '1'\n")
	writeFile(t, filepath.Join(dir, "nested", "c.yaml"), "rules:\n  - name: c\n    assert: '1'\n")
	writeFile(t, filepath.Join(dir, "README.md"), "not rules")
	writeFile(t, filepath.Join(dir, ".hidden.yaml"), "garbage: [")
	writeFile(t, filepath.Join(dir, ".git", "x.yaml"), "garbage: [")

	set, err := NewFileSource(dir, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var names []string
	for _, r := range set.Rules {
		names = append(names, r.Name)
	}
	if got := strings.Join(names, ","); got != "a,b,c" {
		t.Errorf("rule order = %s, want a,b,c", got)
	}
}

func TestFileSource_Errors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		_, err := NewFileSource(filepath.Join(t.TempDir(), "nope"), nil).Load(context.Background())
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Load() error = %v, want not exist", err)
		}
	})

	t.Run("duplicate across files", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "one.yaml"), "rules:\n  - name: dup\n    assert: '1'\n")
		writeFile(t, filepath.Join(dir, "two.yaml"), "rules:\n  - name: dup\n    assert: '0'\n")

		_, err := NewFileSource(dir, nil).Load(context.Background())
		var le *rules.LoadError
		if !errors.As(err, &le) || !strings.Contains(err.Error(), "duplicate rule name") {
			t.Errorf("Load() error = %v", err)
		}
	})

	t.Run("invalid file", func(t *testing.T) {
		dir := t.TempDir()
		bad := filepath.Join(dir, "bad.yaml")
		writeFile(t, bad, "rules: [")

		_, err := NewFileSource(dir, nil).Load(context.Background())
		var le *rules.LoadError
		if !errors.As(err, &le) || le.FilePath != bad {
			t.Errorf("Load() error = %v, want LoadError for %s", err, bad)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.yaml"), "rules: []\n")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := NewFileSource(dir, nil).Load(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Load() error = %v", err)
		}
	})
}

func TestIsRuleFile(t *testing.T) {
	tests := map[string]bool{
		"rules.yaml": true,
		"rules.YML":  true,
		"rules.json": false,
		"rules":      false,
	}
	for path, want := range tests {
		if got := IsRuleFile(path); got != want {
			t.Errorf("IsRuleFile(%q) = %v, want %v", path, got, want)
		}
	}
}
