package config

import (
	"sync"
	"testing"
)

func resetSingleton() {
	current.Store(nil)
	initOnce = sync.Once{}
}

func TestInitialize(t *testing.T) {
	resetSingleton()
	t.Cleanup(resetSingleton)

	path := writeConfig(t, "rules:\n  path: ./first\n")
	if err := Initialize(path); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config after initialization")
	}
	if cfg.Rules.Path != "./first" {
		t.Errorf("expected rules path %q, got %q", "./first", cfg.Rules.Path)
	}

	// Subsequent calls are ignored
	other := writeConfig(t, "rules:\n  path: ./second\n")
	if err := Initialize(other); err != nil {
		t.Fatalf("second Initialize returned error: %v", err)
	}
	if GetConfig().Rules.Path != "./first" {
		t.Error("second Initialize replaced the configuration")
	}
}

func TestReloadConfig(t *testing.T) {
	resetSingleton()
	t.Cleanup(resetSingleton)

	SetConfig(NewDefault())

	good := writeConfig(t, "engine:\n  units: schematic\n")
	if err := ReloadConfig(good); err != nil {
		t.Fatalf("ReloadConfig() error = %v", err)
	}
	if GetConfig().Engine.Units != "schematic" {
		t.Error("reload did not replace the configuration")
	}

	bad := writeConfig(t, "engine:\n  units: parsecs\n")
	if err := ReloadConfig(bad); err == nil {
		t.Fatal("expected reload error")
	}
	if GetConfig().Engine.Units != "schematic" {
		t.Error("failed reload replaced the configuration")
	}
}

func TestMustGetConfig_Panics(t *testing.T) {
	resetSingleton()
	t.Cleanup(resetSingleton)

	defer func() {
		if recover() == nil {
			t.Error("expected panic when configuration is not initialized")
		}
	}()
	MustGetConfig()
}

func TestGetConfig_Concurrent(t *testing.T) {
	resetSingleton()
	t.Cleanup(resetSingleton)
	SetConfig(NewDefault())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if GetConfig() == nil {
				t.Error("GetConfig returned nil")
			}
		}()
	}
	wg.Wait()
}
