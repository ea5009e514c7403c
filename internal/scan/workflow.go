// Package scan runs the simulated media scan: a fixed sequence of timed
// phases with interpolated progress, then a random verdict that is
// persisted and rewarded.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"deepfake_shield/internal/db"
	"deepfake_shield/internal/stats"

	"github.com/sirupsen/logrus"
)

var (
	// ErrBusy is returned by Start when a scan is running or its result has not been reset.
	ErrBusy = errors.New("scan already in progress")
	// ErrScanning is returned by Reset while a scan is running.
	ErrScanning = errors.New("scan is running")
)

// State of a workflow
type State string

const (
	StateIdle     State = "idle"
	StateScanning State = "scanning"
	StateResult   State = "result"
)

// Recorder persists a completed scan.
type Recorder interface {
	RecordScan(ctx context.Context, rec db.ScanRecord) (db.ScanOutcome, error)
}

// Result is what the user sees once a scan completes.
type Result struct {
	Verdict    string  `json:"verdict"`
	IsFake     bool    `json:"is_fake"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Reward     int     `json:"reward"`
	Coins      int     `json:"coins"`
	ScanLogID  uint    `json:"scan_log_id"`
}

// Snapshot is the observable state of a workflow.
type Snapshot struct {
	State      State   `json:"state"`
	PhaseID    string  `json:"phase_id,omitempty"`
	PhaseLabel string  `json:"phase_label,omitempty"`
	PhaseIndex int     `json:"phase_index"`
	PhaseCount int     `json:"phase_count"`
	Progress   float64 `json:"progress"`
	FileName   string  `json:"file_name,omitempty"`
	Result     *Result `json:"result,omitempty"`
}

// EventKind tells watchers what changed.
type EventKind string

const (
	EventProgress     EventKind = "progress"
	EventState        EventKind = "state"
	EventNotification EventKind = "notification"
)

// Notification levels
const (
	LevelSuccess = "success"
	LevelError   = "error"
	LevelInfo    = "info"
)

// Notification is a transient message for the user.
type Notification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Event is published to watchers.
type Event struct {
	Kind         EventKind     `json:"kind"`
	Snapshot     Snapshot      `json:"snapshot"`
	Notification *Notification `json:"notification,omitempty"`
}

const watchBuffer = 64

// Config wires a workflow to one user.
type Config struct {
	Profile    Profile
	UserID     uint
	Recorder   Recorder
	Stats      *stats.Cache // optional, refreshed after each scan
	Generator  *Generator
	OnComplete func(db.ScanOutcome) // optional, called after a successful scan
	Now        func() time.Time
}

// Workflow is the idle → scanning → result state machine for one user.
type Workflow struct {
	cfg Config

	mu         sync.Mutex
	state      State
	phase      int
	progress   float64
	fileName   string
	result     *Result
	completing bool
	cancel     context.CancelFunc
	done       chan struct{}

	watchMu  sync.Mutex
	watchers map[int]chan Event
	nextID   int
	closed   bool
}

// NewWorkflow returns an idle workflow.
func NewWorkflow(cfg Config) *Workflow {
	if cfg.Generator == nil {
		cfg.Generator = NewGenerator(cfg.Profile, nil)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Workflow{cfg: cfg, state: StateIdle, watchers: make(map[int]chan Event)}
}

// UserID returns the user the workflow scans for.
func (w *Workflow) UserID() uint {
	return w.cfg.UserID
}

// Stats returns the user's counters cache, or nil when none was configured.
func (w *Workflow) Stats() *stats.Cache {
	return w.cfg.Stats
}

// Start begins a scan of media. Unsupported types fail with
// ErrUnsupportedMedia and a workflow that is not idle fails with ErrBusy;
// neither changes state. The scan outlives ctx's cancellation; use Cancel.
func (w *Workflow) Start(ctx context.Context, media Media) error {
	if !w.cfg.Profile.Accepts(media.ContentType) {
		return ErrUnsupportedMedia
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateIdle {
		return ErrBusy
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.state = StateScanning
	w.phase = 0
	w.progress = 0
	w.fileName = media.Name
	w.result = nil
	w.completing = false
	w.cancel = cancel
	w.done = make(chan struct{})
	w.emitLocked(EventState, nil)

	logrus.WithFields(logrus.Fields{
		"user_id":      w.cfg.UserID,
		"file_name":    media.Name,
		"content_type": media.ContentType,
	}).Info("Scan started")

	go w.run(runCtx, w.done)
	return nil
}

// Cancel stops a running scan and returns the workflow to idle without
// persisting anything. It reports false when there was nothing to cancel,
// including when the final phase has finished and the result is being saved.
func (w *Workflow) Cancel() bool {
	w.mu.Lock()
	if w.state != StateScanning || w.completing || w.cancel == nil {
		w.mu.Unlock()
		return false
	}
	w.cancel()
	w.cancel = nil
	done := w.done
	w.mu.Unlock()

	<-done
	logrus.WithField("user_id", w.cfg.UserID).Info("Scan cancelled")
	return true
}

// Reset moves result → idle. It is a no-op when idle and fails with
// ErrScanning while a scan runs.
func (w *Workflow) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case StateIdle:
		return nil
	case StateScanning:
		return ErrScanning
	}
	w.toIdleLocked()
	w.emitLocked(EventState, nil)
	return nil
}

// Snapshot returns the current observable state.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Watch subscribes to workflow events. Events are dropped for a watcher
// whose buffer is full. Call stop to unsubscribe; it closes the channel.
// On a closed workflow the channel is already closed.
func (w *Workflow) Watch() (events <-chan Event, stop func()) {
	ch := make(chan Event, watchBuffer)
	w.watchMu.Lock()
	defer w.watchMu.Unlock()
	if w.closed {
		close(ch)
		return ch, func() {}
	}
	id := w.nextID
	w.nextID++
	w.watchers[id] = ch

	return ch, func() {
		w.watchMu.Lock()
		defer w.watchMu.Unlock()
		if _, ok := w.watchers[id]; ok {
			delete(w.watchers, id)
			close(ch)
		}
	}
}

// Close cancels a running scan and closes every watcher channel. The
// workflow still answers Snapshot but publishes nothing further.
func (w *Workflow) Close() {
	w.Cancel()
	w.watchMu.Lock()
	defer w.watchMu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	for id, ch := range w.watchers {
		delete(w.watchers, id)
		close(ch)
	}
}

// idle reports whether the workflow can be dropped: no scan running and
// nobody watching.
func (w *Workflow) idle() bool {
	w.mu.Lock()
	scanning := w.state == StateScanning
	w.mu.Unlock()
	w.watchMu.Lock()
	defer w.watchMu.Unlock()
	return !scanning && len(w.watchers) == 0
}

func (w *Workflow) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	phases := w.cfg.Profile.Phases
	ticker := time.NewTicker(w.cfg.Profile.FrameInterval)
	defer ticker.Stop()

	for i, ph := range phases {
		start := w.cfg.Now()
		for {
			elapsed := w.cfg.Now().Sub(start)
			if !w.advance(ctx, i, Progress(i, len(phases), elapsed, ph.Duration)) {
				w.abort()
				return
			}
			if elapsed >= ph.Duration {
				break
			}
			select {
			case <-ctx.Done():
				w.abort()
				return
			case <-ticker.C:
			}
		}
	}

	w.mu.Lock()
	if ctx.Err() != nil {
		w.mu.Unlock()
		w.abort()
		return
	}
	w.completing = true
	w.mu.Unlock()

	w.complete(ctx)
}

// advance publishes a progress frame, reporting false once cancelled.
func (w *Workflow) advance(ctx context.Context, phase int, progress float64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	w.phase = phase
	w.progress = progress
	w.emitLocked(EventProgress, nil)
	return true
}

func (w *Workflow) abort() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.toIdleLocked()
	w.emitLocked(EventState, nil)
	w.emitLocked(EventNotification, &Notification{Level: LevelInfo, Message: "Scan cancelled"})
}

// complete draws the verdict and applies its side effects in order:
// persist, refresh stats, notify, then the completion hook.
func (w *Workflow) complete(ctx context.Context) {
	v := w.cfg.Generator.Next()
	reward := w.cfg.Profile.RewardFor(v.Fake)

	out, err := w.cfg.Recorder.RecordScan(ctx, db.ScanRecord{
		UserID:     w.cfg.UserID,
		Result:     v.StoredResult(),
		Confidence: v.Confidence,
		Reason:     v.Reason,
		Reward:     reward,
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": w.cfg.UserID,
			"result":  v.StoredResult(),
			"error":   err.Error(),
		}).Error("Failed to record scan")
		w.mu.Lock()
		w.toIdleLocked()
		w.emitLocked(EventState, nil)
		w.emitLocked(EventNotification, &Notification{Level: LevelError, Message: "Failed to save scan result"})
		w.mu.Unlock()
		return
	}

	if w.cfg.Stats != nil {
		if _, err := w.cfg.Stats.Refresh(ctx); err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": w.cfg.UserID,
				"error":   err.Error(),
			}).Warn("Failed to refresh stats")
		}
	}

	w.mu.Lock()
	w.state = StateResult
	w.progress = 100
	w.phase = len(w.cfg.Profile.Phases) - 1
	w.completing = false
	w.cancel = nil
	w.result = &Result{
		Verdict:    v.Label(),
		IsFake:     v.Fake,
		Confidence: v.Confidence,
		Reason:     v.Reason,
		Reward:     reward,
		Coins:      out.Coins,
		ScanLogID:  out.Log.ID,
	}
	w.emitLocked(EventState, nil)
	w.emitLocked(EventNotification, &Notification{Level: LevelSuccess, Message: fmt.Sprintf("+%d coins earned!", reward)})
	w.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"user_id":     w.cfg.UserID,
		"scan_log_id": out.Log.ID,
		"result":      out.Log.Result,
		"confidence":  out.Log.Confidence,
		"reward":      reward,
		"coins":       out.Coins,
		"alert":       out.Alert != nil,
	}).Info("Scan completed")

	if w.cfg.OnComplete != nil {
		w.cfg.OnComplete(out)
	}
}

func (w *Workflow) toIdleLocked() {
	w.state = StateIdle
	w.phase = 0
	w.progress = 0
	w.fileName = ""
	w.result = nil
	w.completing = false
	w.cancel = nil
}

func (w *Workflow) snapshotLocked() Snapshot {
	s := Snapshot{
		State:      w.state,
		PhaseIndex: w.phase,
		PhaseCount: len(w.cfg.Profile.Phases),
		Progress:   w.progress,
		FileName:   w.fileName,
	}
	if w.state == StateScanning && w.phase < len(w.cfg.Profile.Phases) {
		s.PhaseID = w.cfg.Profile.Phases[w.phase].ID
		s.PhaseLabel = w.cfg.Profile.Phases[w.phase].Label
	}
	if w.result != nil {
		r := *w.result
		s.Result = &r
	}
	return s
}

// emitLocked publishes to every watcher; w.mu must be held.
func (w *Workflow) emitLocked(kind EventKind, note *Notification) {
	ev := Event{Kind: kind, Snapshot: w.snapshotLocked(), Notification: note}
	w.watchMu.Lock()
	defer w.watchMu.Unlock()
	for _, ch := range w.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}
