package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/ini.v1"

	"github.com/AbyssalKaz/Console101Farm/internal/controller"
	"github.com/AbyssalKaz/Console101Farm/internal/timing"
)

// stringField binds an INI key to a string setting
type stringField struct {
	key   string
	value *string
}

// boolField binds an INI key to a bool setting
type boolField struct {
	key   string
	value *bool
}

func bindingStrings(b *controller.Bindings) []stringField {
	return []stringField{
		{"button_a", &b.ButtonA},
		{"button_b", &b.ButtonB},
		{"button_x", &b.ButtonX},
		{"button_y", &b.ButtonY},
		{"left_bumper", &b.LeftBumper},
		{"right_bumper", &b.RightBumper},
		{"left_trigger", &b.LeftTrigger},
		{"right_trigger", &b.RightTrigger},
		{"dpad_up", &b.DpadUp},
		{"dpad_down", &b.DpadDown},
		{"dpad_left", &b.DpadLeft},
		{"dpad_right", &b.DpadRight},
		{"left_stick_click", &b.LeftStickClick},
		{"right_stick_click", &b.RightStickClick},
		{"start", &b.Start},
		{"back", &b.Back},
		{"guide", &b.Guide},
		{"left_stick_up", &b.LeftStickUp},
		{"left_stick_down", &b.LeftStickDown},
		{"left_stick_left", &b.LeftStickLeft},
		{"left_stick_right", &b.LeftStickRight},
		{"right_stick_up", &b.RightStickUp},
		{"right_stick_down", &b.RightStickDown},
		{"right_stick_left", &b.RightStickLeft},
		{"right_stick_right", &b.RightStickRight},
	}
}

func bindingBools(b *controller.Bindings) []boolField {
	return []boolField{
		{"mouse_left_trigger", &b.MouseLeftTrigger},
		{"mouse_right_trigger", &b.MouseRightTrigger},
		{"mouse_left_is_right_trigger", &b.MouseLeftIsRightTrigger},
	}
}

// LoadFromINI loads configuration from a Settings.ini file. Missing keys
// keep their defaults.
func LoadFromINI(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	d := NewDefaultConfig()
	config := &Config{}

	// Bot
	section := file.Section("Bot")
	config.Bot.Mode = section.Key("mode").MustString(d.Bot.Mode)
	config.Bot.CardSelect = section.Key("card_select").MustString(d.Bot.CardSelect)
	config.Bot.Debug = section.Key("debug").MustBool(d.Bot.Debug)
	config.Bot.ConnectController = section.Key("connect_controller").MustBool(d.Bot.ConnectController)
	config.Bot.EnablePolling = section.Key("enable_polling").MustBool(d.Bot.EnablePolling)

	// Images
	section = file.Section("Images")
	config.Images.Folder = section.Key("folder").MustString(d.Images.Folder)
	config.Images.TemplatesFile = section.Key("templates_file").MustString(d.Images.TemplatesFile)
	config.Images.Confidence = section.Key("confidence").MustFloat64(d.Images.Confidence)
	config.Images.HighConfidence = section.Key("high_confidence").MustFloat64(d.Images.HighConfidence)
	config.Images.WindowTitle = section.Key("window_title").String()
	config.Images.Downscale = section.Key("downscale").MustFloat64(d.Images.Downscale)

	// Timing
	section = file.Section("Timing")
	config.Timing.KeyPressDuration = seconds(section, "key_press_duration", d.Timing.KeyPressDuration)
	config.Timing.KeyPressDelay = seconds(section, "key_press_delay", d.Timing.KeyPressDelay)
	config.Timing.ActionDelay = seconds(section, "action_delay", d.Timing.ActionDelay)
	config.Timing.HoldDuration = seconds(section, "hold_duration", d.Timing.HoldDuration)
	config.Timing.PostCastWait = seconds(section, "post_cast_wait", d.Timing.PostCastWait)
	config.Timing.ScanInterval = seconds(section, "scan_interval", d.Timing.ScanInterval)
	config.Timing.EarlyDetectInterval = seconds(section, "early_detect_interval", d.Timing.EarlyDetectInterval)
	config.Timing.EnchantSettle = seconds(section, "enchant_settle", d.Timing.EnchantSettle)
	config.Timing.StopTimeout = seconds(section, "stop_timeout", d.Timing.StopTimeout)

	// Movement
	section = file.Section("Movement")
	config.Movement.Enabled = section.Key("enabled").MustBool(d.Movement.Enabled)
	config.Movement.Repeats = section.Key("ws_repeats").MustInt(d.Movement.Repeats)
	config.Movement.HoldDuration = seconds(section, "hold_duration", d.Movement.HoldDuration)
	config.Movement.ForwardKey = section.Key("forward_key").MustString(d.Movement.ForwardKey)
	config.Movement.BackKey = section.Key("back_key").MustString(d.Movement.BackKey)

	// Mana refill
	section = file.Section("ManaRefill")
	config.ManaRefill.Enabled = section.Key("enabled").MustBool(d.ManaRefill.Enabled)
	config.ManaRefill.LowManaThreshold = section.Key("low_mana_threshold").MustInt(d.ManaRefill.LowManaThreshold)
	config.ManaRefill.IdleTimeout = seconds(section, "idle_timeout_seconds", d.ManaRefill.IdleTimeout)
	config.ManaRefill.ComboFile = section.Key("combo_file").MustString(d.ManaRefill.ComboFile)

	// Mana detection
	section = file.Section("Mana")
	config.Mana.ZeroConfidence = section.Key("zero_confidence").MustFloat64(d.Mana.ZeroConfidence)
	config.Mana.LowConfidence = section.Key("low_confidence").MustFloat64(d.Mana.LowConfidence)
	config.Mana.DigitConfidence = section.Key("digit_confidence").MustFloat64(d.Mana.DigitConfidence)
	config.Mana.OrbConfidence = section.Key("orb_confidence").MustFloat64(d.Mana.OrbConfidence)
	config.Mana.LowFullness = section.Key("low_fullness").MustFloat64(d.Mana.LowFullness)

	// Controller bindings. Keys present but empty unbind the input.
	section = file.Section("Controller")
	config.Controller.Bindings = d.Controller.Bindings
	for _, f := range bindingStrings(&config.Controller.Bindings) {
		if section.HasKey(f.key) {
			*f.value = section.Key(f.key).String()
		}
	}
	for _, f := range bindingBools(&config.Controller.Bindings) {
		*f.value = section.Key(f.key).MustBool(*f.value)
	}
	config.Controller.StepDuration = seconds(section, "step_duration", d.Controller.StepDuration)
	config.Controller.StepGap = seconds(section, "step_gap", d.Controller.StepGap)
	config.Controller.PollIntervalMS = section.Key("poll_interval_ms").MustInt(d.Controller.PollIntervalMS)

	// Bot keys
	section = file.Section("BotKeys")
	config.BotKeys.SelectCard = section.Key("select_card").MustString(d.BotKeys.SelectCard)
	config.BotKeys.ConfirmCast = section.Key("confirm_cast").MustString(d.BotKeys.ConfirmCast)
	config.BotKeys.NavigateLeft = section.Key("navigate_left").MustString(d.BotKeys.NavigateLeft)
	config.BotKeys.NavigateRight = section.Key("navigate_right").MustString(d.BotKeys.NavigateRight)
	config.BotKeys.Cancel = section.Key("cancel").MustString(d.BotKeys.Cancel)

	// Hotkeys
	section = file.Section("Hotkeys")
	config.Hotkeys.Stop = optionalString(section, "stop", d.Hotkeys.Stop)
	config.Hotkeys.Pause = optionalString(section, "pause", d.Hotkeys.Pause)
	config.Hotkeys.ToggleMovement = optionalString(section, "toggle_movement", d.Hotkeys.ToggleMovement)
	config.Hotkeys.ToggleController = optionalString(section, "toggle_controller", d.Hotkeys.ToggleController)

	// Logging
	section = file.Section("Logging")
	config.Logging.Dir = section.Key("dir").MustString(d.Logging.Dir)
	config.Logging.Level = section.Key("level").MustString(d.Logging.Level)
	config.Logging.MaxSizeMB = section.Key("max_size_mb").MustInt(d.Logging.MaxSizeMB)
	config.Logging.MaxBackups = section.Key("max_backups").MustInt(d.Logging.MaxBackups)
	config.Logging.MaxAgeDays = section.Key("max_age_days").MustInt(d.Logging.MaxAgeDays)
	config.Logging.Compress = section.Key("compress").MustBool(d.Logging.Compress)

	// Database
	section = file.Section("Database")
	config.Database.Enabled = section.Key("enabled").MustBool(d.Database.Enabled)
	config.Database.Path = section.Key("path").MustString(d.Database.Path)

	// Status
	section = file.Section("Status")
	config.Status.Enabled = section.Key("enabled").MustBool(d.Status.Enabled)
	config.Status.Addr = section.Key("addr").MustString(d.Status.Addr)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// SaveToINI saves configuration to an INI file
func SaveToINI(config *Config, path string) error {
	file := ini.Empty()

	// Bot
	section := file.Section("Bot")
	section.Key("mode").SetValue(config.Bot.Mode)
	section.Key("card_select").SetValue(config.Bot.CardSelect)
	section.Key("debug").SetValue(fmt.Sprintf("%t", config.Bot.Debug))
	section.Key("connect_controller").SetValue(fmt.Sprintf("%t", config.Bot.ConnectController))
	section.Key("enable_polling").SetValue(fmt.Sprintf("%t", config.Bot.EnablePolling))

	// Images
	section = file.Section("Images")
	section.Key("folder").SetValue(config.Images.Folder)
	section.Key("templates_file").SetValue(config.Images.TemplatesFile)
	section.Key("confidence").SetValue(formatFloat(config.Images.Confidence))
	section.Key("high_confidence").SetValue(formatFloat(config.Images.HighConfidence))
	section.Key("window_title").SetValue(config.Images.WindowTitle)
	section.Key("downscale").SetValue(formatFloat(config.Images.Downscale))

	// Timing
	section = file.Section("Timing")
	section.Key("key_press_duration").SetValue(formatSeconds(config.Timing.KeyPressDuration))
	section.Key("key_press_delay").SetValue(formatSeconds(config.Timing.KeyPressDelay))
	section.Key("action_delay").SetValue(formatSeconds(config.Timing.ActionDelay))
	section.Key("hold_duration").SetValue(formatSeconds(config.Timing.HoldDuration))
	section.Key("post_cast_wait").SetValue(formatSeconds(config.Timing.PostCastWait))
	section.Key("scan_interval").SetValue(formatSeconds(config.Timing.ScanInterval))
	section.Key("early_detect_interval").SetValue(formatSeconds(config.Timing.EarlyDetectInterval))
	section.Key("enchant_settle").SetValue(formatSeconds(config.Timing.EnchantSettle))
	section.Key("stop_timeout").SetValue(formatSeconds(config.Timing.StopTimeout))

	// Movement
	section = file.Section("Movement")
	section.Key("enabled").SetValue(fmt.Sprintf("%t", config.Movement.Enabled))
	section.Key("ws_repeats").SetValue(fmt.Sprintf("%d", config.Movement.Repeats))
	section.Key("hold_duration").SetValue(formatSeconds(config.Movement.HoldDuration))
	section.Key("forward_key").SetValue(config.Movement.ForwardKey)
	section.Key("back_key").SetValue(config.Movement.BackKey)

	// Mana refill
	section = file.Section("ManaRefill")
	section.Key("enabled").SetValue(fmt.Sprintf("%t", config.ManaRefill.Enabled))
	section.Key("low_mana_threshold").SetValue(fmt.Sprintf("%d", config.ManaRefill.LowManaThreshold))
	section.Key("idle_timeout_seconds").SetValue(formatSeconds(config.ManaRefill.IdleTimeout))
	section.Key("combo_file").SetValue(config.ManaRefill.ComboFile)

	// Mana detection
	section = file.Section("Mana")
	section.Key("zero_confidence").SetValue(formatFloat(config.Mana.ZeroConfidence))
	section.Key("low_confidence").SetValue(formatFloat(config.Mana.LowConfidence))
	section.Key("digit_confidence").SetValue(formatFloat(config.Mana.DigitConfidence))
	section.Key("orb_confidence").SetValue(formatFloat(config.Mana.OrbConfidence))
	section.Key("low_fullness").SetValue(formatFloat(config.Mana.LowFullness))

	// Controller bindings
	section = file.Section("Controller")
	bindings := config.Controller.Bindings
	for _, f := range bindingStrings(&bindings) {
		section.Key(f.key).SetValue(*f.value)
	}
	for _, f := range bindingBools(&bindings) {
		section.Key(f.key).SetValue(fmt.Sprintf("%t", *f.value))
	}
	section.Key("step_duration").SetValue(formatSeconds(config.Controller.StepDuration))
	section.Key("step_gap").SetValue(formatSeconds(config.Controller.StepGap))
	section.Key("poll_interval_ms").SetValue(fmt.Sprintf("%d", config.Controller.PollIntervalMS))

	// Bot keys
	section = file.Section("BotKeys")
	section.Key("select_card").SetValue(config.BotKeys.SelectCard)
	section.Key("confirm_cast").SetValue(config.BotKeys.ConfirmCast)
	section.Key("navigate_left").SetValue(config.BotKeys.NavigateLeft)
	section.Key("navigate_right").SetValue(config.BotKeys.NavigateRight)
	section.Key("cancel").SetValue(config.BotKeys.Cancel)

	// Hotkeys
	section = file.Section("Hotkeys")
	section.Key("stop").SetValue(config.Hotkeys.Stop)
	section.Key("pause").SetValue(config.Hotkeys.Pause)
	section.Key("toggle_movement").SetValue(config.Hotkeys.ToggleMovement)
	section.Key("toggle_controller").SetValue(config.Hotkeys.ToggleController)

	// Logging
	section = file.Section("Logging")
	section.Key("dir").SetValue(config.Logging.Dir)
	section.Key("level").SetValue(config.Logging.Level)
	section.Key("max_size_mb").SetValue(fmt.Sprintf("%d", config.Logging.MaxSizeMB))
	section.Key("max_backups").SetValue(fmt.Sprintf("%d", config.Logging.MaxBackups))
	section.Key("max_age_days").SetValue(fmt.Sprintf("%d", config.Logging.MaxAgeDays))
	section.Key("compress").SetValue(fmt.Sprintf("%t", config.Logging.Compress))

	// Database
	section = file.Section("Database")
	section.Key("enabled").SetValue(fmt.Sprintf("%t", config.Database.Enabled))
	section.Key("path").SetValue(config.Database.Path)

	// Status
	section = file.Section("Status")
	section.Key("enabled").SetValue(fmt.Sprintf("%t", config.Status.Enabled))
	section.Key("addr").SetValue(config.Status.Addr)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	return file.SaveTo(path)
}

// LoadOrCreate loads path, writing the defaults there first when it does not exist
func LoadOrCreate(path string) (config *Config, created bool, err error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		config = NewDefaultConfig()
		if err := SaveToINI(config, path); err != nil {
			return nil, false, fmt.Errorf("failed to write default config: %w", err)
		}
		return config, true, nil
	}

	config, err = LoadFromINI(path)
	return config, false, err
}

func seconds(section *ini.Section, key string, def timing.Seconds) timing.Seconds {
	return timing.Seconds(section.Key(key).MustFloat64(float64(def)))
}

// optionalString keeps an explicitly empty value, unlike MustString
func optionalString(section *ini.Section, key, def string) string {
	if !section.HasKey(key) {
		return def
	}
	return section.Key(key).String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatSeconds(s timing.Seconds) string {
	return formatFloat(float64(s))
}
