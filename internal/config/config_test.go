package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AbyssalKaz/Console101Farm/internal/engine"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	if cfg.Images.Downscale != 0.25 {
		t.Errorf("Downscale = %g, want 0.25", cfg.Images.Downscale)
	}

	ec := cfg.EngineConfig()
	if ec.Mode != engine.ModeSimple || ec.CardSelect != engine.SelectClick {
		t.Errorf("Engine mode/select = %v/%v", ec.Mode, ec.CardSelect)
	}
	if ec.Timing.PostCastWait != 20*time.Second {
		t.Errorf("PostCastWait = %v, want 20s", ec.Timing.PostCastWait)
	}
	if ec.Timing.KeyPressDuration != 80*time.Millisecond {
		t.Errorf("KeyPressDuration = %v, want 80ms", ec.Timing.KeyPressDuration)
	}
	if ec.Refill.IdleTimeout != 180*time.Second || !ec.Refill.Enabled {
		t.Errorf("Refill = %+v", ec.Refill)
	}
	if ec.Prompt != engine.PromptTemplate {
		t.Errorf("Prompt = %q", ec.Prompt)
	}

	pc := cfg.PollerConfig()
	if pc.StepDuration != 50*time.Millisecond || pc.StepGap != 10*time.Millisecond || pc.Interval != 5*time.Millisecond {
		t.Errorf("Poller config = %+v", pc)
	}

	th := cfg.ResourceThresholds()
	if th.Zero != 0.93 || th.Low != 0.80 || th.Digit != 0.88 || th.Orb != 0.6 || th.LowFullness != 0.3 {
		t.Errorf("Thresholds = %+v", th)
	}

	if cfg.Controller.Bindings.ButtonB != "lctrl" || cfg.Controller.Bindings.Guide != "tilde" {
		t.Errorf("Bindings = %+v", cfg.Controller.Bindings)
	}
	if cfg.TemplatesPath() != filepath.Join("images", "templates.yaml") {
		t.Errorf("TemplatesPath = %s", cfg.TemplatesPath())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "Settings.ini")

	cfg := NewDefaultConfig()
	cfg.Bot.Mode = "advanced"
	cfg.Bot.CardSelect = "keyboard"
	cfg.Bot.Debug = true
	cfg.Images.WindowTitle = "Wizard101"
	cfg.Images.Downscale = 0.5
	cfg.Timing.PostCastWait = 12.5
	cfg.Movement.Repeats = 5
	cfg.ManaRefill.IdleTimeout = 90
	cfg.Controller.Bindings.RightStickUp = "i"
	cfg.Controller.Bindings.ButtonY = ""
	cfg.Controller.Bindings.MouseLeftIsRightTrigger = false
	cfg.Hotkeys.ToggleController = ""
	cfg.Status.Enabled = true

	if err := SaveToINI(cfg, path); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	loaded, err := LoadFromINI(path)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}

	if loaded.Bot != cfg.Bot {
		t.Errorf("Bot = %+v, want %+v", loaded.Bot, cfg.Bot)
	}
	if loaded.Images != cfg.Images {
		t.Errorf("Images = %+v, want %+v", loaded.Images, cfg.Images)
	}
	if loaded.Timing != cfg.Timing {
		t.Errorf("Timing = %+v, want %+v", loaded.Timing, cfg.Timing)
	}
	if loaded.Movement != cfg.Movement {
		t.Errorf("Movement = %+v, want %+v", loaded.Movement, cfg.Movement)
	}
	if loaded.ManaRefill != cfg.ManaRefill {
		t.Errorf("ManaRefill = %+v, want %+v", loaded.ManaRefill, cfg.ManaRefill)
	}
	if loaded.Controller != cfg.Controller {
		t.Errorf("Controller = %+v, want %+v", loaded.Controller, cfg.Controller)
	}
	if loaded.Hotkeys != cfg.Hotkeys {
		t.Errorf("Hotkeys = %+v, want %+v", loaded.Hotkeys, cfg.Hotkeys)
	}
	if loaded.Status != cfg.Status || loaded.Database != cfg.Database || loaded.Logging != cfg.Logging {
		t.Errorf("Status/Database/Logging differ: %+v %+v %+v", loaded.Status, loaded.Database, loaded.Logging)
	}

	ec := loaded.EngineConfig()
	if ec.Mode != engine.ModeAdvanced || ec.CardSelect != engine.SelectKeyboard {
		t.Errorf("Engine mode/select = %v/%v", ec.Mode, ec.CardSelect)
	}
	if ec.Timing.PostCastWait != 12500*time.Millisecond {
		t.Errorf("PostCastWait = %v", ec.Timing.PostCastWait)
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Settings.ini")
	writeFile(t, path, "[Bot]\nmode = advanced\n\n[Movement]\nws_repeats = 1\n")

	cfg, err := LoadFromINI(path)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if cfg.Bot.Mode != "advanced" || cfg.Movement.Repeats != 1 {
		t.Errorf("Explicit values lost: %+v %+v", cfg.Bot, cfg.Movement)
	}

	d := NewDefaultConfig()
	if cfg.Timing != d.Timing || cfg.Controller != d.Controller || cfg.Hotkeys != d.Hotkeys {
		t.Error("Missing sections should keep defaults")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad mode", "[Bot]\nmode = turbo\n"},
		{"bad card select", "[Bot]\ncard_select = gamepad\n"},
		{"bad level", "[Logging]\nlevel = LOUD\n"},
		{"bad confidence", "[Images]\nconfidence = 1.5\n"},
		{"bad downscale", "[Images]\ndownscale = 0\n"},
		{"bad poll interval", "[Controller]\npoll_interval_ms = 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "Settings.ini")
			writeFile(t, path, tt.content)
			if _, err := LoadFromINI(path); err == nil {
				t.Error("Expected validation error")
			}
		})
	}

	if _, err := LoadFromINI(filepath.Join(t.TempDir(), "missing.ini")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Settings.ini")

	cfg, created, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("Failed to create: %v", err)
	}
	if !created {
		t.Error("Expected file to be created")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Settings file not written: %v", err)
	}

	cfg.Bot.Mode = "advanced"
	if err := SaveToINI(cfg, path); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	again, created, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("Failed to reload: %v", err)
	}
	if created {
		t.Error("Existing file should not be recreated")
	}
	if again.Bot.Mode != "advanced" {
		t.Errorf("Mode = %s, want advanced", again.Bot.Mode)
	}
}
