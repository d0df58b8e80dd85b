package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/AbyssalKaz/Console101Farm/internal/cv"
	"github.com/AbyssalKaz/Console101Farm/internal/events"
	"github.com/AbyssalKaz/Console101Farm/internal/timing"
)

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	reason := ""
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("engine loop panic: %v", r)
			e.logger.Error("Engine loop crashed", err)
			e.hook(fmt.Sprintf("Error: %v", err))
			e.publish(events.NewErrorEvent("engine", "engine loop crashed", err))
			reason = err.Error()
		}
		e.setState(StateStopped)
		e.info("Stopped", map[string]interface{}{
			"cycles": e.cycles.Load(),
			"casts":  e.casts.Load(),
		})
		e.publish(events.NewEngineStoppedEvent(int(e.cycles.Load()), int(e.casts.Load()), reason))
	}()

	for {
		if err := e.gate.Wait(ctx); err != nil {
			return
		}
		n := e.cycles.Add(1)
		e.debug(fmt.Sprintf("Cycle %d", n), nil)

		if err := e.cycle(ctx); err != nil {
			return
		}
	}
}

// cycle runs one iteration. It only returns an error when ctx is done.
func (e *Engine) cycle(ctx context.Context) error {
	cfg, _ := e.config()

	if err := e.checkResources(ctx); err != nil {
		return err
	}

	handled, err := e.checkPrompt(ctx)
	if err != nil || handled {
		return err
	}

	h := e.detect()
	d := decide(cfg.Mode, h)

	switch d.kind {
	case actionCast:
		return e.castAndWait(ctx, d)
	case actionEnchant:
		return e.enchant(ctx, d)
	default:
		return timing.Sleep(ctx, cfg.Timing.ScanInterval)
	}
}

// detect samples the cards. Errors are treated as an empty hand.
func (e *Engine) detect() hand {
	dets, err := e.deps.Cards.Detect()
	if err != nil {
		e.logger.Warn(fmt.Sprintf("Card detection failed: %v", err))
		return hand{}
	}

	h := partition(dets)
	e.debug(fmt.Sprintf("Found %d cards", len(dets)), map[string]interface{}{
		"enchants":  len(h.enchants),
		"spells":    len(h.spells),
		"enchanted": len(h.enchanted),
	})
	return h
}

// checkResources runs the recovery sequence when the policy asks for it
func (e *Engine) checkResources(ctx context.Context) error {
	if e.deps.Resources == nil || e.deps.Sequencer == nil || e.deps.Refill == nil {
		return nil
	}
	cfg, _ := e.config()

	status, err := e.deps.Resources.CheckStatus()
	if err != nil {
		e.logger.Debug(fmt.Sprintf("Resource check failed: %v", err))
		return nil
	}

	ok, trigger := cfg.Refill.ShouldRefill(status, e.IdleTime())
	if !ok {
		return nil
	}
	if trigger == TriggerIdle {
		e.info(fmt.Sprintf("Low mana and idle for %.0fs, triggering refill", e.IdleTime().Seconds()), nil)
	}

	e.refill(ctx, trigger)
	return ctx.Err()
}

func (e *Engine) refill(ctx context.Context, trigger string) bool {
	if e.deps.Sequencer == nil || e.deps.Refill == nil {
		e.logger.Warn("No recovery sequence configured")
		return false
	}

	e.info("Mana refill triggered", map[string]interface{}{"trigger": trigger})
	e.publish(events.NewRefillStartedEvent(trigger))
	start := time.Now()

	ok := e.connectGamepad()
	if ok {
		ok = e.deps.Sequencer.Execute(ctx, e.deps.Refill, func() bool { return ctx.Err() != nil })
	}

	if ok {
		e.refills.Add(1)
		e.MarkAction()
		e.info("Mana refill complete", nil)
	} else {
		e.info("Mana refill did not complete", nil)
	}
	e.publish(events.NewRefillCompletedEvent(trigger, ok, time.Since(start)))
	return ok
}

func (e *Engine) connectGamepad() bool {
	if e.deps.Gamepad == nil || e.deps.Gamepad.IsConnected() {
		return true
	}
	if err := e.deps.Gamepad.Connect(); err != nil {
		e.logger.Error("Failed to connect controller for refill", err)
		e.publish(events.NewErrorEvent("engine", "controller connect failed", err))
		return false
	}
	return true
}

// checkPrompt dismisses the idle prompt. The controller is unplugged while
// clicking so the game accepts mouse input, then plugged back in.
func (e *Engine) checkPrompt(ctx context.Context) (bool, error) {
	if e.deps.Prompts == nil {
		return false, nil
	}
	cfg, _ := e.config()

	det, found, err := e.deps.Prompts.Locate(cfg.Prompt)
	if err != nil {
		e.logger.Debug(fmt.Sprintf("Prompt check failed: %v", err))
		return false, nil
	}
	if !found {
		return false, nil
	}

	e.info("'Still there?' prompt detected", nil)

	wasConnected := e.deps.Gamepad != nil && e.deps.Gamepad.IsConnected()
	if wasConnected {
		if err := e.deps.Gamepad.Disconnect(); err != nil {
			e.logger.Warn(fmt.Sprintf("Failed to disconnect controller: %v", err))
		}
		if err := timing.Sleep(ctx, e.pauses.promptDisconnect); err != nil {
			return true, err
		}
	}

	c := det.Center()
	x, y := c.X, c.Y+promptClickOffset
	if err := e.deps.Input.Click(x, y); err != nil {
		e.logger.Warn(fmt.Sprintf("Failed to click prompt: %v", err))
	}
	e.publish(events.NewPromptHandledEvent(x, y))
	sleepErr := timing.Sleep(ctx, e.pauses.promptClick)

	if wasConnected {
		if sleepErr == nil {
			sleepErr = timing.Sleep(ctx, e.pauses.promptReconnect)
		}
		if err := e.deps.Gamepad.Connect(); err != nil {
			e.logger.Error("Failed to reconnect controller", err)
		}
	}
	return true, sleepErr
}

// castAndWait casts the chosen card, then waits for the next turn
func (e *Engine) castAndWait(ctx context.Context, d decision) error {
	e.info(fmt.Sprintf("Casting %s", d.card.Name), map[string]interface{}{
		"type":       d.card.Type.String(),
		"confidence": fmt.Sprintf("%.2f", d.card.Confidence),
	})

	if err := e.selectCard(ctx, d.card, d.slot); err != nil {
		return err
	}
	if err := timing.Sleep(ctx, e.pauses.confirm); err != nil {
		return err
	}
	cfg, _ := e.config()
	if err := e.pressKey(ctx, cfg.Keys.ConfirmCast); err != nil {
		return err
	}

	e.casts.Add(1)
	e.MarkAction()
	e.slot = 0
	c := d.card.Center()
	e.publish(events.NewCardCastEvent(d.card.Name, d.card.Type.String(), d.card.Confidence, c.X, c.Y))

	early, err := e.waitForNextTurn(ctx)
	if err != nil {
		return err
	}
	if !early {
		_, err = e.move(ctx)
	}
	return err
}

// enchant clicks the enchant, then re-samples and clicks the first spell found.
// The re-sampled spell is not matched against the original one.
func (e *Engine) enchant(ctx context.Context, d decision) error {
	cfg, _ := e.config()
	e.info(fmt.Sprintf("Enchanting %s with %s", d.card.Name, d.enchant.Name), map[string]interface{}{
		"enchant_confidence": fmt.Sprintf("%.2f", d.enchant.Confidence),
		"spell_confidence":   fmt.Sprintf("%.2f", d.card.Confidence),
	})

	if err := e.selectCard(ctx, d.enchant, d.eslot); err != nil {
		return err
	}
	if err := timing.Sleep(ctx, cfg.Timing.EnchantSettle); err != nil {
		return err
	}

	h := e.detect()
	if len(h.spells) > 0 {
		spell := h.spells[0]
		if err := e.selectCard(ctx, spell.det, spell.slot); err != nil {
			return err
		}
		if err := timing.Sleep(ctx, e.pauses.spell); err != nil {
			return err
		}
		e.enchants.Add(1)
		e.MarkAction()
		e.info("Enchant applied", nil)
		e.publish(events.NewEnchantCastEvent(d.enchant.Name, spell.det.Name, true))
	} else {
		e.info("Lost spell card after enchant selection", nil)
		if err := e.pressKey(ctx, cfg.Keys.Cancel); err != nil {
			return err
		}
		if err := timing.Sleep(ctx, e.pauses.cancel); err != nil {
			return err
		}
		e.publish(events.NewEnchantCastEvent(d.enchant.Name, "", false))
	}
	e.slot = 0

	return timing.Sleep(ctx, e.pauses.enchantCooldown)
}

// selectCard clicks the card, or walks the slot cursor to it and presses select
func (e *Engine) selectCard(ctx context.Context, card cv.Detection, slot int) error {
	cfg, _ := e.config()

	if cfg.CardSelect == SelectKeyboard {
		if err := e.navigateTo(ctx, slot); err != nil {
			return err
		}
		return e.pressKey(ctx, cfg.Keys.SelectCard)
	}

	c := card.Center()
	e.debug(fmt.Sprintf("Clicking card at (%d, %d)", c.X, c.Y), nil)
	if err := e.deps.Input.Click(c.X, c.Y); err != nil {
		e.logger.Warn(fmt.Sprintf("Failed to click card: %v", err))
	}
	return timing.Sleep(ctx, e.pauses.click)
}

// navigateTo presses left or right once per slot of difference
func (e *Engine) navigateTo(ctx context.Context, target int) error {
	cfg, _ := e.config()

	diff := target - e.slot
	key := cfg.Keys.NavigateRight
	if diff < 0 {
		key = cfg.Keys.NavigateLeft
		diff = -diff
	}
	for i := 0; i < diff; i++ {
		if err := e.pressKey(ctx, key); err != nil {
			return err
		}
		if err := timing.Sleep(ctx, e.pauses.navigate); err != nil {
			return err
		}
	}
	e.slot = target
	return nil
}

// pressKey waits out a pause, taps key and waits the key delay
func (e *Engine) pressKey(ctx context.Context, key string) error {
	if err := e.gate.Wait(ctx); err != nil {
		return err
	}
	cfg, _ := e.config()
	if err := e.deps.Input.PressKey(key, cfg.Timing.KeyPressDuration); err != nil {
		e.logger.Warn(fmt.Sprintf("Failed to press %s: %v", key, err))
	}
	return timing.Sleep(ctx, cfg.Timing.KeyPressDelay)
}

// waitForNextTurn waits up to PostCastWait, returning early once a castable
// card shows up
func (e *Engine) waitForNextTurn(ctx context.Context) (early bool, err error) {
	cfg, _ := e.config()
	interval := cfg.Timing.EarlyDetectInterval
	if interval <= 0 {
		interval = DefaultConfig().Timing.EarlyDetectInterval
	}

	e.debug(fmt.Sprintf("Waiting for animation for %v", cfg.Timing.PostCastWait), nil)
	for elapsed := time.Duration(0); elapsed < cfg.Timing.PostCastWait; elapsed += interval {
		if err := e.gate.Wait(ctx); err != nil {
			return false, err
		}
		if _, err := e.checkPrompt(ctx); err != nil {
			return false, err
		}
		if e.detect().castable() {
			e.info(fmt.Sprintf("Card detected early at %.1fs", elapsed.Seconds()), nil)
			return true, nil
		}
		if err := timing.Sleep(ctx, interval); err != nil {
			return false, err
		}
	}
	return false, nil
}

// move pulses forward and back, stopping as soon as any card appears
func (e *Engine) move(ctx context.Context) (interrupted bool, err error) {
	cfg, enabled := e.config()
	if !enabled {
		return false, nil
	}

	m := cfg.Movement
	e.debug(fmt.Sprintf("Movement (%dx)", m.Repeats), nil)
	for i := 0; i < m.Repeats; i++ {
		if err := e.gate.Wait(ctx); err != nil {
			return false, err
		}
		if e.detect().hasCards() {
			e.info("Card detected during movement", nil)
			return true, nil
		}

		if err := e.deps.Input.HoldKey(m.ForwardKey, m.HoldDuration); err != nil {
			e.logger.Warn(fmt.Sprintf("Failed to hold %s: %v", m.ForwardKey, err))
		}
		if err := timing.Sleep(ctx, e.pauses.forward); err != nil {
			return false, err
		}
		if err := e.deps.Input.HoldKey(m.BackKey, m.HoldDuration); err != nil {
			e.logger.Warn(fmt.Sprintf("Failed to hold %s: %v", m.BackKey, err))
		}
		if err := timing.Sleep(ctx, e.pauses.back); err != nil {
			return false, err
		}
	}
	return false, nil
}
