package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/pomchat/live"
	"github.com/gosuda/pomchat/view"
)

type syncRecorder struct {
	mu    sync.Mutex
	snaps []live.TimerSync
}

func (r *syncRecorder) Emit(event string, data any) error {
	if event != live.EventTimerSync {
		return nil
	}
	r.mu.Lock()
	r.snaps = append(r.snaps, data.(live.TimerSync))
	r.mu.Unlock()
	return nil
}

func (r *syncRecorder) all() []live.TimerSync {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]live.TimerSync(nil), r.snaps...)
}

type notifyRecorder struct {
	mu      sync.Mutex
	sounds  int
	notices []string
}

func (n *notifyRecorder) Sound() {
	n.mu.Lock()
	n.sounds++
	n.mu.Unlock()
}

func (n *notifyRecorder) Notify(title, body string) {
	n.mu.Lock()
	n.notices = append(n.notices, title+" "+body)
	n.mu.Unlock()
}

func (n *notifyRecorder) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sounds, len(n.notices)
}

type rig struct {
	timer  *Pomodoro
	clock  *clock.Mock
	page   *view.Page
	syncs  *syncRecorder
	notify *notifyRecorder
}

func newRig(focus time.Duration, permitted bool) *rig {
	r := &rig{
		clock:  clock.NewMock(),
		page:   view.NewPage("t"),
		syncs:  &syncRecorder{},
		notify: &notifyRecorder{},
	}
	r.timer = New(Options{
		Focus:     focus,
		Clock:     r.clock,
		Live:      r.syncs,
		Display:   r.page,
		Notify:    r.notify,
		Permitted: permitted,
	})
	return r
}

// second advances the mock clock and waits until the ticker goroutine has
// processed the tick.
func (r *rig) second(t *testing.T, want Snapshot) {
	t.Helper()
	r.clock.Add(time.Second)
	require.Eventually(t, func() bool { return r.timer.Snapshot() == want }, time.Second, time.Millisecond)
}

func TestInitialDisplay(t *testing.T) {
	r := newRig(0, false)
	assert.Equal(t, Snapshot{State: StateIdle, Remaining: 1500}, r.timer.Snapshot())
	assert.Equal(t, "25", r.page.Text(view.RegionTimerMinutes))
	assert.Equal(t, "00", r.page.Text(view.RegionTimerSeconds))
	assert.Equal(t, StateIdle, r.page.Text(view.RegionTimerState))
	assert.True(t, r.page.Enabled(view.RegionStartTimer))
	assert.False(t, r.page.Enabled(view.RegionPauseTimer))
}

func TestStartPause(t *testing.T) {
	r := newRig(0, false)

	r.timer.Start()
	r.timer.Start()
	assert.Equal(t, []live.TimerSync{{State: StateFocusing, Remaining: 1500}}, r.syncs.all())
	assert.False(t, r.page.Enabled(view.RegionStartTimer))
	assert.True(t, r.page.Enabled(view.RegionPauseTimer))
	assert.Equal(t, StateFocusing, r.page.Text(view.RegionTimerState))

	r.second(t, Snapshot{State: StateFocusing, Remaining: 1499, Running: true})
	assert.Equal(t, "24", r.page.Text(view.RegionTimerMinutes))
	assert.Equal(t, "59", r.page.Text(view.RegionTimerSeconds))

	r.timer.Pause()
	r.timer.Pause()
	assert.Equal(t, Snapshot{State: StateIdle, Remaining: 1499}, r.timer.Snapshot())
	assert.Equal(t, []live.TimerSync{
		{State: StateFocusing, Remaining: 1500},
		{State: StateIdle, Remaining: 1499},
	}, r.syncs.all())
	assert.True(t, r.page.Enabled(view.RegionStartTimer))

	// no ticks while paused
	r.clock.Add(5 * time.Second)
	assert.Equal(t, 1499, r.timer.Snapshot().Remaining)

	// resuming keeps the remaining time
	r.timer.Start()
	assert.Equal(t, 1499, r.timer.Snapshot().Remaining)
}

func TestFocusRunsDownToBreak(t *testing.T) {
	r := newRig(4*time.Second, true)
	r.timer.Start()

	prev := r.timer.Snapshot().Remaining
	for want := 3; want > 0; want-- {
		r.second(t, Snapshot{State: StateFocusing, Remaining: want, Running: true})
		now := r.timer.Snapshot().Remaining
		assert.Equal(t, prev-1, now)
		prev = now
	}
	r.second(t, Snapshot{State: StateBreak, Remaining: 300})

	assert.Equal(t, "05", r.page.Text(view.RegionTimerMinutes))
	assert.Equal(t, "00", r.page.Text(view.RegionTimerSeconds))
	assert.Equal(t, StateBreak, r.page.Text(view.RegionTimerState))
	assert.Equal(t, []live.TimerSync{
		{State: StateFocusing, Remaining: 4},
		{State: StateIdle, Remaining: 0},
	}, r.syncs.all())

	require.Eventually(t, func() bool {
		sounds, notices := r.notify.counts()
		return sounds == 1 && notices == 1
	}, time.Second, time.Millisecond)

	// the break does not tick on its own
	r.clock.Add(3 * time.Second)
	assert.Equal(t, Snapshot{State: StateBreak, Remaining: 300}, r.timer.Snapshot())

	// starting from a break begins a fresh focus session
	r.timer.Start()
	assert.Equal(t, Snapshot{State: StateFocusing, Remaining: 4, Running: true}, r.timer.Snapshot())
}

func TestNotificationNeedsPermission(t *testing.T) {
	r := newRig(time.Second, false)
	r.timer.Start()
	r.second(t, Snapshot{State: StateBreak, Remaining: 300})
	require.Eventually(t, func() bool {
		sounds, _ := r.notify.counts()
		return sounds == 1
	}, time.Second, time.Millisecond)
	_, notices := r.notify.counts()
	assert.Zero(t, notices)
}

func TestReset(t *testing.T) {
	r := newRig(0, false)
	r.timer.Start()
	r.second(t, Snapshot{State: StateFocusing, Remaining: 1499, Running: true})

	r.timer.Reset()
	assert.Equal(t, Snapshot{State: StateIdle, Remaining: 1500}, r.timer.Snapshot())
	assert.Equal(t, "25", r.page.Text(view.RegionTimerMinutes))
	assert.Equal(t, StateIdle, r.page.Text(view.RegionTimerState))

	r.clock.Add(2 * time.Second)
	assert.Equal(t, 1500, r.timer.Snapshot().Remaining)
}

func TestResetFromBreak(t *testing.T) {
	r := newRig(time.Second, false)
	r.timer.Start()
	r.second(t, Snapshot{State: StateBreak, Remaining: 300})
	r.timer.Reset()
	assert.Equal(t, Snapshot{State: StateIdle, Remaining: 1}, r.timer.Snapshot())
}

func TestTickIgnoredWhenIdle(t *testing.T) {
	r := newRig(0, false)
	r.timer.Tick()
	assert.Equal(t, 1500, r.timer.Snapshot().Remaining)
}

func TestQueuedTickDoesNotLeakIntoNextSession(t *testing.T) {
	r := newRig(0, false)
	r.timer.Start()

	// hold the lock so the ticker goroutine receives a tick and waits on it,
	// then pause and resume before it gets through
	r.timer.mu.Lock()
	r.clock.Add(time.Second)
	time.Sleep(10 * time.Millisecond)
	r.timer.pauseLocked()
	r.timer.mu.Unlock()

	r.timer.Start()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, Snapshot{State: StateFocusing, Remaining: 1500, Running: true}, r.timer.Snapshot())
}
