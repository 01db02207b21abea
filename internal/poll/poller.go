package poll

import (
	"context"
	"log/slog"
	"time"

	"classaudio/internal/logging"
	"classaudio/internal/record"
	"classaudio/internal/schedule"
)

// DefaultInterval is the notes fetch cadence while recording.
const DefaultInterval = 5 * time.Second

// Fetcher retrieves the current notes snapshot.
type Fetcher interface {
	FetchNotes(ctx context.Context) (record.Notes, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (record.Notes, error)

func (f FetcherFunc) FetchNotes(ctx context.Context) (record.Notes, error) { return f(ctx) }

// Event is a tick or a fetch completion.
type Event interface {
	generation() uint64
}

// Tick fires once per interval.
type Tick struct {
	Gen uint64
}

// Result carries a completed fetch.
type Result struct {
	Gen   uint64
	Notes record.Notes
	Err   error
	Final bool
}

func (e Tick) generation() uint64   { return e.Gen }
func (e Result) generation() uint64 { return e.Gen }

// Hooks receive poll outcomes on the owner's event loop.
type Hooks struct {
	// Tick runs on every accepted tick before the fetch is issued.
	Tick    func(now time.Time)
	Fetched func(notes record.Notes, final bool)
	Failed  func(err error, final bool)
}

// Options configures a Poller.
type Options struct {
	Fetcher   Fetcher
	Scheduler schedule.Scheduler
	Interval  time.Duration
	Dispatch  func(Event)
	Run       func(func())
	Hooks     Hooks
	Logger    *slog.Logger
}

// Poller issues notes fetches on a fixed cadence while active.
type Poller struct {
	fetcher  Fetcher
	sched    schedule.Scheduler
	interval time.Duration
	dispatch func(Event)
	run      func(func())
	hooks    Hooks
	logger   *slog.Logger

	active   bool
	inFlight bool
	gen      uint64
	ticks    schedule.Slot
	ctx      context.Context
	cancel   context.CancelFunc
	fetches  int
	skipped  int
}

// New constructs an inactive poller.
func New(opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Run == nil {
		opts.Run = func(fn func()) { go fn() }
	}
	if opts.Scheduler == nil {
		opts.Scheduler = schedule.NewSystem()
	}
	return &Poller{
		fetcher:  opts.Fetcher,
		sched:    opts.Scheduler,
		interval: opts.Interval,
		dispatch: opts.Dispatch,
		run:      opts.Run,
		hooks:    opts.Hooks,
		logger:   logging.NewComponentLogger(opts.Logger, "poll"),
	}
}

// Active reports whether the timer is running.
func (p *Poller) Active() bool { return p.active }

// InFlight reports whether a fetch is outstanding.
func (p *Poller) InFlight() bool { return p.inFlight }

// Fetches counts fetches issued, including final ones.
func (p *Poller) Fetches() int { return p.fetches }

// Skipped counts ticks skipped because a fetch was still outstanding.
func (p *Poller) Skipped() int { return p.skipped }

// Start arms the repeating timer. Starting an active poller does nothing.
func (p *Poller) Start() {
	if p.active {
		return
	}
	p.active = true
	p.gen++
	p.inFlight = false
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.arm()
	p.logger.Debug("notes polling started", logging.Duration("interval", p.interval))
}

// Stop cancels the timer and abandons any fetch in flight.
func (p *Poller) Stop() {
	p.ticks.Cancel()
	if !p.active {
		return
	}
	p.active = false
	p.gen++
	p.inFlight = false
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.logger.Debug("notes polling stopped", logging.Int("fetches", p.fetches))
}

// Final issues one fetch regardless of whether the poller is active. Its
// result is delivered with Final set.
func (p *Poller) Final(ctx context.Context) {
	p.issue(ctx, true)
}

// Handle applies one event. Events from an earlier generation are ignored.
func (p *Poller) Handle(ev Event) {
	if ev.generation() != p.gen {
		p.logger.Debug("ignoring stale poll event",
			logging.Int64("event_gen", int64(ev.generation())),
			logging.Int64("current_gen", int64(p.gen)))
		return
	}
	switch e := ev.(type) {
	case Tick:
		if !p.active {
			return
		}
		p.ticks.Clear()
		p.arm()
		if p.hooks.Tick != nil {
			p.hooks.Tick(p.sched.Now())
		}
		if p.inFlight {
			p.skipped++
			p.logger.Debug("previous notes fetch still in flight, skipping tick")
			return
		}
		p.issue(p.ctx, false)
	case Result:
		if !e.Final {
			p.inFlight = false
		}
		if e.Err != nil {
			if p.hooks.Failed != nil {
				p.hooks.Failed(e.Err, e.Final)
			}
			return
		}
		if p.hooks.Fetched != nil {
			p.hooks.Fetched(e.Notes, e.Final)
		}
	}
}

func (p *Poller) arm() {
	gen, dispatch := p.gen, p.dispatch
	p.ticks.Arm(p.sched, p.interval, func() { dispatch(Tick{Gen: gen}) })
}

func (p *Poller) issue(ctx context.Context, final bool) {
	if !final {
		p.inFlight = true
	}
	p.fetches++
	gen, fetcher, dispatch := p.gen, p.fetcher, p.dispatch
	p.run(func() {
		notes, err := fetcher.FetchNotes(ctx)
		dispatch(Result{Gen: gen, Notes: notes, Err: err, Final: final})
	})
}
