// Package app builds and owns every component of the farm and wires them
// together: capture and matching, the decision engine, the virtual
// controller, hotkeys, the history store and the status feed.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AbyssalKaz/Console101Farm/internal/config"
	"github.com/AbyssalKaz/Console101Farm/internal/controller"
	"github.com/AbyssalKaz/Console101Farm/internal/cv"
	"github.com/AbyssalKaz/Console101Farm/internal/database"
	"github.com/AbyssalKaz/Console101Farm/internal/engine"
	"github.com/AbyssalKaz/Console101Farm/internal/events"
	"github.com/AbyssalKaz/Console101Farm/internal/input"
	"github.com/AbyssalKaz/Console101Farm/internal/logging"
	"github.com/AbyssalKaz/Console101Farm/internal/monitor"
	"github.com/AbyssalKaz/Console101Farm/internal/sequence"
	"github.com/AbyssalKaz/Console101Farm/internal/statusfeed"
	"github.com/AbyssalKaz/Console101Farm/pkg/templates"
)

// Options replace the platform devices. Zero values use the real ones.
type Options struct {
	Capturer cv.Capturer
	Device   controller.Device
	Input    engine.Injector
	Keys     input.KeyState

	// LogOutput replaces stdout as the console log output
	LogOutput io.Writer
}

// App owns the running components
type App struct {
	cfg *config.Config

	logger      *logging.Logger
	logFile     io.WriteCloser
	bus         *events.DefaultEventBus
	closing     atomic.Bool
	eventLogger *logging.EventLogger
	reporter    *logging.ErrorReporter

	registry  *templates.TemplateRegistry
	matcher   *cv.Matcher
	resources *cv.ResourceDetector

	ctrl     *controller.Controller
	poller   *controller.Poller
	executor *sequence.Executor
	refill   *sequence.Sequence

	hotkeys *input.HotkeyWatcher
	engine  *engine.Engine
	health  *monitor.HealthChecker

	db       *database.DB
	recorder *Recorder
	status   *statusfeed.Server

	ctx    context.Context
	cancel context.CancelFunc

	stopped   chan struct{}
	closeOnce sync.Once
}

// New builds the application from cfg
func New(cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, stopped: make(chan struct{}, 1)}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	if err := a.initLogging(opts.LogOutput); err != nil {
		return nil, err
	}

	a.bus = events.NewEventBus(256)
	a.bus.SetLogf(func(format string, args ...interface{}) {
		a.logger.Named("EventBus").Debug(fmt.Sprintf(format, args...))
	})
	a.eventLogger = logging.NewEventLogger(a.bus, a.logger.Named("Events"))
	a.reporter = logging.NewErrorReporter(a.logger.Named("Errors"), 200)

	if err := a.initVision(opts.Capturer); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initController(opts.Device, opts.Keys); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initEngine(opts.Input); err != nil {
		a.Close()
		return nil, err
	}
	a.initHotkeys(opts.Keys)
	a.initHealth()

	if cfg.Database.Enabled {
		if err := a.initDatabase(); err != nil {
			a.Close()
			return nil, err
		}
	}
	if cfg.Status.Enabled {
		hub := statusfeed.NewHub(a.logger.Named("StatusFeed"))
		hub.Attach(a.bus)
		var history statusfeed.History
		if a.db != nil {
			history = a.db
		}
		a.status = statusfeed.NewServer(cfg.Status.Addr, a, history, hub, a.logger.Named("StatusFeed"))
	}

	return a, nil
}

func (a *App) initLogging(console io.Writer) error {
	level, err := logging.ParseLevel(a.cfg.Logging.Level)
	if err != nil {
		return err
	}
	if a.cfg.Bot.Debug {
		level = logging.LogLevelDebug
	}
	if console == nil {
		console = os.Stdout
	}

	a.logger = logging.NewLogger("App").SetMinLevel(level).SetOutputs(console)

	if a.cfg.Logging.Dir != "" {
		f, err := logging.NewRotatingFile(a.cfg.RotateConfig())
		if err != nil {
			return err
		}
		a.logFile = f
		a.logger.AddOutput(f)
	}

	// Every log line also goes out on the bus for status clients
	a.logger.AddOutput(logging.NewHookWriter(func(line string) {
		if a.closing.Load() || a.bus == nil {
			return
		}
		a.bus.PublishAsync(events.NewLogEvent("log", line))
	}))
	return nil
}

func (a *App) initVision(capturer cv.Capturer) error {
	if capturer == nil {
		capturer = a.defaultCapturer()
	}

	a.registry = templates.NewTemplateRegistry(a.cfg.Images.Folder).
		WithWarningLogger(func(format string, args ...interface{}) {
			a.logger.Named("Templates").Warn(fmt.Sprintf(format, args...))
		})
	if err := a.registry.LoadOrCreate(a.cfg.TemplatesPath()); err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	if err := a.registry.PreloadAll(); err != nil {
		a.logger.Warn(fmt.Sprintf("Some template images failed to load: %v", err))
	}

	skip := func(name string, err error) {
		a.reporter.ReportError(logging.ErrorCategoryVision, logging.ErrorSeverityLow, "matcher",
			fmt.Sprintf("reference %s skipped", name), err)
	}
	a.matcher = cv.NewMatcher(capturer, a.registry, a.cfg.Images.Confidence).
		WithDownscale(a.cfg.Images.Downscale).
		OnSkip(skip)
	a.resources = cv.NewResourceDetector(capturer, a.registry, a.cfg.ResourceThresholds()).
		WithDownscale(a.cfg.Images.Downscale).
		OnSkip(skip)
	return nil
}

// defaultCapturer captures the configured window, falling back to the whole screen
func (a *App) defaultCapturer() cv.Capturer {
	title := a.cfg.Images.WindowTitle
	if title == "" {
		return input.NewScreenCapturer()
	}
	wc, err := cv.NewWindowCaptureByTitle(title)
	if err != nil {
		a.logger.Warn(fmt.Sprintf("Window %q not found, capturing full screen: %v", title, err))
		return input.NewScreenCapturer()
	}
	return wc
}

func (a *App) initController(device controller.Device, keys input.KeyState) error {
	if device == nil {
		device = controller.NewViGEmDevice()
	}
	if keys == nil {
		keys = input.NewKeyState()
	}

	a.ctrl = controller.New(device)
	a.ctrl.OnConnectionChange(func(connected bool) {
		a.bus.Publish(events.NewControllerEvent(connected))
	})
	a.poller = controller.NewPoller(a.ctrl, keys, a.cfg.Controller.Bindings, a.cfg.PollerConfig())

	a.executor = sequence.NewExecutor(a.ctrl, a.logger.Named("Sequencer"))

	seq, created, err := sequence.LoadOrCreate(a.cfg.ManaRefill.ComboFile, sequence.DefaultRefillCombo())
	if err != nil {
		return fmt.Errorf("failed to load refill combo: %w", err)
	}
	if created {
		a.logger.Info(fmt.Sprintf("Wrote default refill combo to %s", a.cfg.ManaRefill.ComboFile))
	}
	for _, w := range seq.Warnings() {
		a.logger.Warn(fmt.Sprintf("%s: %s", a.cfg.ManaRefill.ComboFile, w))
	}
	a.refill = seq
	return nil
}

func (a *App) initEngine(in engine.Injector) error {
	if in == nil {
		in = input.NewInjector(a.logger.Named("Input"))
	}

	eng, err := engine.New(engine.Deps{
		Cards:     a.matcher,
		Prompts:   a.matcher,
		Resources: a.resources,
		Input:     in,
		Gamepad:   a.ctrl,
		Sequencer: a.executor,
		Refill:    a.refill,
		Logger:    a.logger.Named("Engine"),
		Bus:       a.bus,
	}, a.cfg.EngineConfig())
	if err != nil {
		return err
	}
	a.engine = eng

	a.executor.OnComplete(func(*sequence.Sequence) {
		eng.MarkAction()
	})
	eng.SetHooks(engine.Hooks{
		OnLog: func(line string) {
			a.bus.Publish(events.NewLogEvent("engine", line))
		},
		OnStateChange: func(from, to engine.BotState) {
			if to != engine.StateStopped {
				return
			}
			select {
			case a.stopped <- struct{}{}:
			default:
			}
		},
	})

	a.bus.Subscribe(events.EventTypeError, func(ev events.Event) {
		msg, _ := ev.Data["message"].(string)
		var err error
		if s, ok := ev.Data["error"].(string); ok {
			err = errors.New(s)
		}
		a.reporter.ReportError(logging.ErrorCategory(ev.Source), logging.ErrorSeverityHigh, ev.Source, msg, err)
	})
	return nil
}

func (a *App) initHotkeys(keys input.KeyState) {
	if keys == nil {
		keys = input.NewKeyState()
	}
	hk := a.cfg.Hotkeys
	a.hotkeys = input.NewHotkeyWatcher(keys, a.logger.Named("Hotkeys"))
	a.hotkeys.Register("stop", hk.Stop, a.StopEngine)
	a.hotkeys.Register("pause", hk.Pause, func() {
		if err := a.engine.TogglePause(); err != nil {
			a.logger.Debug(fmt.Sprintf("Pause hotkey ignored: %v", err))
		}
	})
	a.hotkeys.Register("toggle_movement", hk.ToggleMovement, func() {
		a.engine.ToggleMovement()
	})
	a.hotkeys.Register("toggle_controller", hk.ToggleController, func() {
		if err := a.ToggleController(); err != nil {
			a.logger.Error("Failed to toggle controller", err)
		}
	})
}

// initHealth watches for a stalled loop and failing capture or controller.
// Cycles stand still through the post-cast wait and a refill, so the stall
// timeout covers both.
func (a *App) initHealth() {
	stall := 2*a.cfg.Timing.PostCastWait.Duration() + 3*time.Minute

	a.health = monitor.NewHealthChecker().
		WithCheckInterval(30*time.Second).
		WithStuckDetection(stall, 3).
		WithProgress(
			func() int64 { return a.engine.Stats().Cycles },
			func() bool { return a.engine.State() == engine.StateRunning },
		).
		AddProbe("capture", func(context.Context) error {
			_, err := a.matcher.CaptureFrame()
			return err
		}).
		AddProbe("controller", func(context.Context) error {
			if a.cfg.Bot.ConnectController && !a.ctrl.IsConnected() {
				return controller.ErrNotConnected
			}
			return nil
		}).
		WithUnhealthyCallback(func(reason string, err error) {
			a.bus.Publish(events.NewErrorEvent("monitor", reason, err))
		})
}

func (a *App) initDatabase() error {
	db, err := database.Open(a.cfg.Database.Path)
	if err != nil {
		return err
	}
	db.SetLogger(a.logger.Named("Database"))
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return err
	}
	if n, err := db.CloseStaleSessions(); err != nil {
		a.logger.Warn(fmt.Sprintf("Failed to close stale sessions: %v", err))
	} else if n > 0 {
		a.logger.Info(fmt.Sprintf("Closed %d sessions left running by a previous run", n))
	}

	a.db = db
	a.recorder = NewRecorder(db, a.bus, a.logger.Named("Recorder"))
	a.recorder.SetCounters(func() (int, int) {
		s := a.engine.Stats()
		return int(s.Cycles), int(s.Casts)
	})
	return nil
}

// Engine exposes the decision engine
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Bus exposes the event bus
func (a *App) Bus() events.EventBus {
	return a.bus
}

// Logger is the application's root logger
func (a *App) Logger() *logging.Logger {
	return a.logger
}

// Database is the history store, nil when disabled
func (a *App) Database() *database.DB {
	return a.db
}

// Status is the status server, nil when disabled
func (a *App) Status() *statusfeed.Server {
	return a.status
}

// Run starts the background services and the engine, then blocks until ctx
// is done. Without a status server it also returns once the engine stops.
func (a *App) Run(ctx context.Context) error {
	if a.status != nil {
		if err := a.status.Start(); err != nil {
			return err
		}
	}
	if a.cfg.Bot.ConnectController {
		if err := a.connectController(); err != nil {
			a.logger.Error("Failed to connect virtual controller", err)
		}
	}
	a.hotkeys.Start()
	a.health.Start(a.ctx)

	if err := a.StartEngine(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.stopped:
			if a.status == nil {
				return nil
			}
		}
	}
}

// Stats implements statusfeed.Controls
func (a *App) Stats() engine.Stats {
	return a.engine.Stats()
}

// StartEngine starts the loop in the configured mode
func (a *App) StartEngine() error {
	mode, err := engine.ParseMode(a.cfg.Bot.Mode)
	if err != nil {
		return err
	}
	return a.engine.Start(a.ctx, mode)
}

// StopEngine stops the loop
func (a *App) StopEngine() {
	a.engine.Stop()
}

// PauseEngine pauses the loop
func (a *App) PauseEngine() error {
	return a.engine.Pause()
}

// ResumeEngine resumes the loop
func (a *App) ResumeEngine() error {
	return a.engine.Resume()
}

// ToggleMovement flips post-cast movement
func (a *App) ToggleMovement() bool {
	return a.engine.ToggleMovement()
}

// TestCombo plays the refill combo once in the background
func (a *App) TestCombo() error {
	if a.executor.IsRunning() {
		return sequence.ErrSequenceRunning
	}
	go func() {
		if err := a.RunTestCombo(a.ctx); err != nil {
			a.logger.Error("Test combo failed", err)
		}
	}()
	return nil
}

// RunTestCombo connects the controller and plays the refill combo once
func (a *App) RunTestCombo(ctx context.Context) error {
	if err := a.connectController(); err != nil {
		return err
	}
	a.logger.Info(fmt.Sprintf("Testing combo '%s' (%d steps)", a.refill.Name, a.refill.Len()))

	start := time.Now()
	a.bus.Publish(events.NewRefillStartedEvent(engine.TriggerManual))
	err := a.executor.Run(ctx, a.refill, nil)
	a.bus.Publish(events.NewRefillCompletedEvent(engine.TriggerManual, err == nil, time.Since(start)))
	if err != nil {
		return err
	}
	a.logger.Info("Combo test complete")
	return nil
}

// ToggleController plugs the virtual controller in or out. Rapid-step
// polling follows the connection when enabled.
func (a *App) ToggleController() error {
	if a.ctrl.IsConnected() {
		a.poller.Stop()
		return a.ctrl.Disconnect()
	}
	return a.connectController()
}

func (a *App) connectController() error {
	if err := a.ctrl.Connect(); err != nil {
		return err
	}
	if a.cfg.Bot.EnablePolling {
		a.poller.Start(a.ctx)
	}
	return nil
}

// Close stops everything in reverse order of construction. Close is idempotent.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.hotkeys != nil {
			a.hotkeys.Stop()
		}
		if a.health != nil {
			a.health.Stop()
		}
		if a.engine != nil {
			a.engine.Stop()
		}
		a.cancel()
		if a.poller != nil {
			a.poller.Stop()
		}
		if a.ctrl != nil {
			if err := a.ctrl.Disconnect(); err != nil {
				a.logger.Warn(fmt.Sprintf("Failed to disconnect controller: %v", err))
			}
		}
		if a.status != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := a.status.Shutdown(ctx); err != nil {
				a.logger.Warn(fmt.Sprintf("Status server shutdown: %v", err))
			}
			cancel()
		}

		a.closing.Store(true)
		if a.bus != nil {
			// Drain queued events so the recorder sees the final stop
			a.bus.Stop()
		}
		if a.recorder != nil {
			a.recorder.Close()
		}
		if a.eventLogger != nil {
			a.eventLogger.Close()
		}
		if a.db != nil {
			a.db.Close()
		}
		if a.logFile != nil {
			a.logFile.Close()
		}
	})
}
