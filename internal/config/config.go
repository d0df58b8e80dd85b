// Package config holds the Settings.ini model and maps it onto the
// runtime configuration of each component.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/AbyssalKaz/Console101Farm/internal/controller"
	"github.com/AbyssalKaz/Console101Farm/internal/cv"
	"github.com/AbyssalKaz/Console101Farm/internal/engine"
	"github.com/AbyssalKaz/Console101Farm/internal/logging"
	"github.com/AbyssalKaz/Console101Farm/internal/timing"
)

// Config mirrors Settings.ini, one struct per section
type Config struct {
	Bot        BotSettings
	Images     ImageSettings
	Timing     TimingSettings
	Movement   MovementSettings
	ManaRefill RefillSettings
	Mana       ManaSettings
	Controller ControllerSettings
	BotKeys    BotKeySettings
	Hotkeys    HotkeySettings
	Logging    LoggingSettings
	Database   DatabaseSettings
	Status     StatusSettings
}

// BotSettings is the [Bot] section
type BotSettings struct {
	Mode              string
	CardSelect        string
	Debug             bool
	ConnectController bool
	EnablePolling     bool
}

// ImageSettings is the [Images] section. An empty WindowTitle captures the whole screen.
type ImageSettings struct {
	Folder         string
	TemplatesFile  string
	Confidence     float64
	HighConfidence float64
	WindowTitle    string
	Downscale      float64
}

// TimingSettings is the [Timing] section
type TimingSettings struct {
	KeyPressDuration    timing.Seconds
	KeyPressDelay       timing.Seconds
	ActionDelay         timing.Seconds
	HoldDuration        timing.Seconds
	PostCastWait        timing.Seconds
	ScanInterval        timing.Seconds
	EarlyDetectInterval timing.Seconds
	EnchantSettle       timing.Seconds
	StopTimeout         timing.Seconds
}

// MovementSettings is the [Movement] section
type MovementSettings struct {
	Enabled      bool
	Repeats      int
	HoldDuration timing.Seconds
	ForwardKey   string
	BackKey      string
}

// RefillSettings is the [ManaRefill] section
type RefillSettings struct {
	Enabled          bool
	LowManaThreshold int
	IdleTimeout      timing.Seconds
	ComboFile        string
}

// ManaSettings is the [Mana] section
type ManaSettings struct {
	ZeroConfidence  float64
	LowConfidence   float64
	DigitConfidence float64
	OrbConfidence   float64
	LowFullness     float64
}

// ControllerSettings is the [Controller] section
type ControllerSettings struct {
	Bindings       controller.Bindings
	StepDuration   timing.Seconds
	StepGap        timing.Seconds
	PollIntervalMS int
}

// BotKeySettings is the [BotKeys] section
type BotKeySettings struct {
	SelectCard    string
	ConfirmCast   string
	NavigateLeft  string
	NavigateRight string
	Cancel        string
}

// HotkeySettings is the [Hotkeys] section. Empty keys are unbound.
type HotkeySettings struct {
	Stop             string
	Pause            string
	ToggleMovement   string
	ToggleController string
}

// LoggingSettings is the [Logging] section
type LoggingSettings struct {
	Dir        string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DatabaseSettings is the [Database] section
type DatabaseSettings struct {
	Enabled bool
	Path    string
}

// StatusSettings is the [Status] section
type StatusSettings struct {
	Enabled bool
	Addr    string
}

// NewDefaultConfig creates a config with default values
func NewDefaultConfig() *Config {
	thresholds := cv.DefaultResourceThresholds()
	poller := controller.DefaultPollerConfig()

	return &Config{
		Bot: BotSettings{
			Mode:       "simple",
			CardSelect: "click",
		},
		Images: ImageSettings{
			Folder:         "images",
			TemplatesFile:  "templates.yaml",
			Confidence:     cv.DefaultConfidence,
			HighConfidence: 0.95,
			Downscale:      0.25,
		},
		Timing: TimingSettings{
			KeyPressDuration:    0.08,
			KeyPressDelay:       0.25,
			ActionDelay:         1.5,
			HoldDuration:        1.0,
			PostCastWait:        20,
			ScanInterval:        0.5,
			EarlyDetectInterval: 0.25,
			EnchantSettle:       0.8,
			StopTimeout:         2.0,
		},
		Movement: MovementSettings{
			Enabled:      true,
			Repeats:      3,
			HoldDuration: 1.0,
			ForwardKey:   "w",
			BackKey:      "s",
		},
		ManaRefill: RefillSettings{
			Enabled:          true,
			LowManaThreshold: 50,
			IdleTimeout:      180,
			ComboFile:        "combo.yaml",
		},
		Mana: ManaSettings{
			ZeroConfidence:  thresholds.Zero,
			LowConfidence:   thresholds.Low,
			DigitConfidence: thresholds.Digit,
			OrbConfidence:   thresholds.Orb,
			LowFullness:     thresholds.LowFullness,
		},
		Controller: ControllerSettings{
			Bindings:       controller.DefaultBindings(),
			StepDuration:   timing.FromDuration(poller.StepDuration),
			StepGap:        timing.FromDuration(poller.StepGap),
			PollIntervalMS: int(poller.Interval / time.Millisecond),
		},
		BotKeys: BotKeySettings{
			SelectCard:    "space",
			ConfirmCast:   "space",
			NavigateLeft:  "left",
			NavigateRight: "right",
			Cancel:        "escape",
		},
		Hotkeys: HotkeySettings{
			Stop:             "numpad1",
			Pause:            "u",
			ToggleMovement:   "i",
			ToggleController: "f1",
		},
		Logging: LoggingSettings{
			Dir:        "logs",
			Level:      "INFO",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Database: DatabaseSettings{
			Enabled: true,
			Path:    filepath.Join("data", "farm.db"),
		},
		Status: StatusSettings{
			Addr: "127.0.0.1:8765",
		},
	}
}

// Validate checks the values that would otherwise fail later at runtime
func (c *Config) Validate() error {
	if _, err := engine.ParseMode(c.Bot.Mode); err != nil {
		return err
	}
	if _, err := engine.ParseCardSelect(c.Bot.CardSelect); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Images.Confidence <= 0 || c.Images.Confidence > 1 {
		return fmt.Errorf("images confidence must be in (0, 1], got %g", c.Images.Confidence)
	}
	if c.Images.Downscale <= 0 || c.Images.Downscale > 1 {
		return fmt.Errorf("images downscale must be in (0, 1], got %g", c.Images.Downscale)
	}
	if c.Movement.Repeats < 0 {
		return fmt.Errorf("movement repeats must not be negative, got %d", c.Movement.Repeats)
	}
	if c.Controller.PollIntervalMS <= 0 {
		return fmt.Errorf("controller poll interval must be positive, got %d", c.Controller.PollIntervalMS)
	}
	return nil
}

// EngineConfig builds the decision loop settings. Mode and card selection
// fall back to their defaults when unparseable; Validate reports them.
func (c *Config) EngineConfig() engine.Config {
	mode, _ := engine.ParseMode(c.Bot.Mode)
	sel, _ := engine.ParseCardSelect(c.Bot.CardSelect)

	return engine.Config{
		Mode:       mode,
		CardSelect: sel,
		Debug:      c.Bot.Debug,
		Timing: engine.Timing{
			KeyPressDuration:    c.Timing.KeyPressDuration.Duration(),
			KeyPressDelay:       c.Timing.KeyPressDelay.Duration(),
			PostCastWait:        c.Timing.PostCastWait.Duration(),
			ScanInterval:        c.Timing.ScanInterval.Duration(),
			EarlyDetectInterval: c.Timing.EarlyDetectInterval.Duration(),
			EnchantSettle:       c.Timing.EnchantSettle.Duration(),
			StopTimeout:         c.Timing.StopTimeout.Duration(),
		},
		Movement: engine.Movement{
			Enabled:      c.Movement.Enabled,
			Repeats:      c.Movement.Repeats,
			HoldDuration: c.Movement.HoldDuration.Duration(),
			ForwardKey:   c.Movement.ForwardKey,
			BackKey:      c.Movement.BackKey,
		},
		Keys: engine.Keys{
			SelectCard:    c.BotKeys.SelectCard,
			ConfirmCast:   c.BotKeys.ConfirmCast,
			NavigateLeft:  c.BotKeys.NavigateLeft,
			NavigateRight: c.BotKeys.NavigateRight,
			Cancel:        c.BotKeys.Cancel,
		},
		Refill: engine.RefillPolicy{
			Enabled:     c.ManaRefill.Enabled,
			IdleTimeout: c.ManaRefill.IdleTimeout.Duration(),
		},
		Prompt: engine.PromptTemplate,
	}
}

// PollerConfig builds the rapid-step timing
func (c *Config) PollerConfig() controller.PollerConfig {
	return controller.PollerConfig{
		StepDuration: c.Controller.StepDuration.Duration(),
		StepGap:      c.Controller.StepGap.Duration(),
		Interval:     time.Duration(c.Controller.PollIntervalMS) * time.Millisecond,
	}
}

// ResourceThresholds builds the mana cascade thresholds
func (c *Config) ResourceThresholds() cv.ResourceThresholds {
	return cv.ResourceThresholds{
		Zero:        c.Mana.ZeroConfidence,
		Low:         c.Mana.LowConfidence,
		Digit:       c.Mana.DigitConfidence,
		Orb:         c.Mana.OrbConfidence,
		LowFullness: c.Mana.LowFullness,
	}
}

// RotateConfig builds the rotating log file settings
func (c *Config) RotateConfig() logging.RotateConfig {
	return logging.RotateConfig{
		Dir:        c.Logging.Dir,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
		Compress:   c.Logging.Compress,
	}
}

// TemplatesPath is the template definition file inside the images folder
func (c *Config) TemplatesPath() string {
	if filepath.IsAbs(c.Images.TemplatesFile) {
		return c.Images.TemplatesFile
	}
	return filepath.Join(c.Images.Folder, c.Images.TemplatesFile)
}
