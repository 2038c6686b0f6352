// Package timer implements the pomodoro focus/break cycle.
package timer

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/pomchat/live"
	"github.com/gosuda/pomchat/view"
)

const (
	StateIdle     = "IDLE"
	StateFocusing = "FOCUSING"
	StateBreak    = "BREAK"
)

const (
	DefaultFocus = 25 * time.Minute
	DefaultBreak = 5 * time.Minute
)

// Notifier signals the end of a focus session.
type Notifier interface {
	Sound()
	Notify(title, body string)
}

// Bell rings the terminal bell and prints the notification line.
type Bell struct {
	W io.Writer
}

func (b Bell) Sound() {
	if b.W != nil {
		fmt.Fprint(b.W, "\a")
	}
}

func (b Bell) Notify(title, body string) {
	log.Info().Str("body", body).Msg("[timer] " + title)
	if b.W != nil {
		fmt.Fprintf(b.W, "%s %s\n", title, body)
	}
}

type Options struct {
	Focus   time.Duration
	Break   time.Duration
	Clock   clock.Clock
	Live    live.Emitter
	Display view.Display
	Notify  Notifier
	// Permitted gates Notify; the sound plays regardless.
	Permitted bool
}

type Snapshot struct {
	State     string
	Remaining int
	Running   bool
}

// Pomodoro is one user's timer. Remaining time counts whole seconds.
type Pomodoro struct {
	focus     int
	brk       int
	clk       clock.Clock
	live      live.Emitter
	display   view.Display
	notifier  Notifier
	permitted bool

	mu        sync.Mutex
	state     string
	remaining int
	running   bool
	stop      chan struct{}
}

func New(o Options) *Pomodoro {
	if o.Focus <= 0 {
		o.Focus = DefaultFocus
	}
	if o.Break <= 0 {
		o.Break = DefaultBreak
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	p := &Pomodoro{
		focus:     int(o.Focus / time.Second),
		brk:       int(o.Break / time.Second),
		clk:       o.Clock,
		live:      o.Live,
		display:   o.Display,
		notifier:  o.Notify,
		permitted: o.Permitted,
		state:     StateIdle,
	}
	p.remaining = p.focus
	p.mu.Lock()
	p.renderLocked()
	p.setControlsLocked()
	p.mu.Unlock()
	return p
}

// Start begins a focus session. It is a no-op while running. Starting from a
// break, or after the time ran out, restarts the full focus duration.
func (p *Pomodoro) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	if p.state == StateBreak || p.remaining <= 0 {
		p.remaining = p.focus
	}
	p.running = true
	p.state = StateFocusing
	p.setControlsLocked()
	p.renderLocked()

	stop := make(chan struct{})
	p.stop = stop
	ticker := p.clk.Ticker(time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				p.tick(stop)
			}
		}
	}()
	p.syncLocked()
}

// Pause stops a running session and goes back to idle, keeping the remaining time.
func (p *Pomodoro) Pause() {
	p.mu.Lock()
	p.pauseLocked()
	p.mu.Unlock()
}

// Reset stops ticking and restores an idle full focus session.
func (p *Pomodoro) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauseLocked()
	p.state = StateIdle
	p.remaining = p.focus
	p.renderLocked()
}

// Tick advances a running session by one second.
func (p *Pomodoro) Tick() { p.tick(nil) }

// tick advances the session owning stop. A tick that was already queued when its
// session was paused is dropped, even if a new session started meanwhile.
func (p *Pomodoro) tick(stop chan struct{}) {
	p.mu.Lock()
	if !p.running || (stop != nil && p.stop != stop) {
		p.mu.Unlock()
		return
	}
	if p.remaining > 0 {
		p.remaining--
	}
	p.renderLocked()
	done := p.remaining <= 0
	if done {
		p.pauseLocked()
		p.state = StateBreak
		p.remaining = p.brk
		p.renderLocked()
	}
	p.mu.Unlock()

	if done {
		log.Info().Msg("[timer] focus session complete")
		p.notify()
	}
}

func (p *Pomodoro) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{State: p.state, Remaining: p.remaining, Running: p.running}
}

func (p *Pomodoro) pauseLocked() {
	if !p.running {
		return
	}
	p.running = false
	p.state = StateIdle
	close(p.stop)
	p.stop = nil
	p.setControlsLocked()
	p.renderLocked()
	p.syncLocked()
}

func (p *Pomodoro) syncLocked() {
	if p.live == nil {
		return
	}
	if err := p.live.Emit(live.EventTimerSync, live.TimerSync{State: p.state, Remaining: p.remaining}); err != nil {
		log.Warn().Err(err).Msg("[timer] sync")
	}
}

func (p *Pomodoro) renderLocked() {
	if p.display == nil {
		return
	}
	mm, ss := view.Clock(p.remaining)
	p.display.SetText(view.RegionTimerMinutes, mm)
	p.display.SetText(view.RegionTimerSeconds, ss)
	p.display.SetText(view.RegionTimerState, p.state)
}

func (p *Pomodoro) setControlsLocked() {
	if p.display == nil {
		return
	}
	p.display.SetEnabled(view.RegionStartTimer, !p.running)
	p.display.SetEnabled(view.RegionPauseTimer, p.running)
}

func (p *Pomodoro) notify() {
	if p.notifier == nil {
		return
	}
	p.notifier.Sound()
	if p.permitted {
		p.notifier.Notify("Pomodoro Complete!", "Time for a break!")
	}
}
