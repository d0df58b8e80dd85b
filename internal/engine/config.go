package engine

import (
	"context"
	"time"

	"github.com/AbyssalKaz/Console101Farm/internal/cv"
	"github.com/AbyssalKaz/Console101Farm/internal/sequence"
)

// PromptTemplate is the reference name of the idle "still there?" prompt
const PromptTemplate = "still_there"

// promptClickOffset is how far below the prompt's centre its button sits
const promptClickOffset = 50

// pauses are the fixed waits around UI interactions
type pauses struct {
	click            time.Duration
	confirm          time.Duration
	navigate         time.Duration
	spell            time.Duration
	cancel           time.Duration
	enchantCooldown  time.Duration
	promptDisconnect time.Duration
	promptClick      time.Duration
	promptReconnect  time.Duration
	forward          time.Duration
	back             time.Duration
}

var defaultPauses = pauses{
	click:            300 * time.Millisecond,
	confirm:          300 * time.Millisecond,
	navigate:         150 * time.Millisecond,
	spell:            500 * time.Millisecond,
	cancel:           500 * time.Millisecond,
	enchantCooldown:  time.Second,
	promptDisconnect: 500 * time.Millisecond,
	promptClick:      time.Second,
	promptReconnect:  500 * time.Millisecond,
	forward:          100 * time.Millisecond,
	back:             200 * time.Millisecond,
}

// Timing holds the configurable waits
type Timing struct {
	KeyPressDuration    time.Duration
	KeyPressDelay       time.Duration
	PostCastWait        time.Duration
	ScanInterval        time.Duration
	EarlyDetectInterval time.Duration
	EnchantSettle       time.Duration
	StopTimeout         time.Duration
}

// Movement configures the forward/back pulses after a cast
type Movement struct {
	Enabled      bool
	Repeats      int
	HoldDuration time.Duration
	ForwardKey   string
	BackKey      string
}

// Keys are the in-game keys the engine presses
type Keys struct {
	SelectCard    string
	ConfirmCast   string
	NavigateLeft  string
	NavigateRight string
	Cancel        string
}

// Config holds everything the engine reads from settings
type Config struct {
	Mode       Mode
	CardSelect CardSelect
	Debug      bool
	Timing     Timing
	Movement   Movement
	Keys       Keys
	Refill     RefillPolicy
	Prompt     string
}

// DefaultConfig returns the stock engine settings
func DefaultConfig() Config {
	return Config{
		Mode:       ModeSimple,
		CardSelect: SelectClick,
		Timing: Timing{
			KeyPressDuration:    80 * time.Millisecond,
			KeyPressDelay:       250 * time.Millisecond,
			PostCastWait:        20 * time.Second,
			ScanInterval:        500 * time.Millisecond,
			EarlyDetectInterval: 250 * time.Millisecond,
			EnchantSettle:       800 * time.Millisecond,
			StopTimeout:         2 * time.Second,
		},
		Movement: Movement{
			Enabled:      true,
			Repeats:      3,
			HoldDuration: time.Second,
			ForwardKey:   "w",
			BackKey:      "s",
		},
		Keys: Keys{
			SelectCard:    "space",
			ConfirmCast:   "space",
			NavigateLeft:  "left",
			NavigateRight: "right",
			Cancel:        "escape",
		},
		Refill: RefillPolicy{
			Enabled:     true,
			IdleTimeout: 180 * time.Second,
		},
		Prompt: PromptTemplate,
	}
}

// CardDetector samples the screen for typed card detections, sorted by x
type CardDetector interface {
	Detect() ([]cv.Detection, error)
}

// PromptLocator finds a named reference on a fresh frame
type PromptLocator interface {
	Locate(name string) (cv.Detection, bool, error)
}

// ResourceChecker classifies the resource gauge on a fresh frame
type ResourceChecker interface {
	CheckStatus() (cv.ResourceStatus, error)
}

// Injector sends keyboard and mouse input
type Injector interface {
	PressKey(key string, hold time.Duration) error
	HoldKey(key string, hold time.Duration) error
	Click(x, y int) error
}

// Gamepad is the virtual controller's connection
type Gamepad interface {
	IsConnected() bool
	Connect() error
	Disconnect() error
}

// SequenceRunner plays a sequence to completion or abort
type SequenceRunner interface {
	Execute(ctx context.Context, seq *sequence.Sequence, shouldAbort func() bool) bool
}
