package sim

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gallery3d/internal/nav"
	"gallery3d/internal/scene"
)

// ErrEngineStopped is returned by queries issued after Run has returned.
var ErrEngineStopped = errors.New("sim: engine stopped")

type stateReq struct {
	reply chan CameraState
}

type placementsReq struct {
	reply chan []scene.Placement
}

type advanceReq struct {
	ticks int
	reply chan CameraState
}

type subscribeReq struct {
	ch chan CameraState
}

// Engine runs a Navigator on a fixed tick inside a single goroutine. All
// navigator and scene state is owned by that goroutine; the outside world
// talks to it through channels.
type Engine struct {
	cfg     Config
	logger  *zap.Logger
	session string

	// Actor channels
	cmdCh        chan Command
	stateReqCh   chan stateReq
	placementsCh chan placementsReq
	advanceCh    chan advanceReq
	subscribeCh  chan subscribeReq
	unsubCh      chan chan CameraState
	done         chan struct{}
}

type Config struct {
	// TickHz is the frame rate. Ignored when Manual is set.
	TickHz float64
	// Manual disables the ticker; ticks only happen through Advance.
	Manual bool
	// Standoff is how far in front of a selected item the camera stops.
	Standoff float64

	Nav nav.Config
}

func New(cfg Config, logger *zap.Logger) *Engine {
	if cfg.TickHz <= 0 {
		cfg.TickHz = 60
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	session := uuid.NewString()
	return &Engine{
		cfg:          cfg,
		logger:       logger.Named("sim").With(zap.String("session", session)),
		session:      session,
		cmdCh:        make(chan Command, 128),
		stateReqCh:   make(chan stateReq, 32),
		placementsCh: make(chan placementsReq, 32),
		advanceCh:    make(chan advanceReq, 8),
		subscribeCh:  make(chan subscribeReq, 32),
		unsubCh:      make(chan chan CameraState, 32),
		done:         make(chan struct{}),
	}
}

// Session identifies this engine instance in snapshots and logs.
func (e *Engine) Session() string { return e.session }

// Submit queues a command. Commands are dropped when the queue is full.
func (e *Engine) Submit(cmd Command) bool {
	select {
	case e.cmdCh <- cmd:
		return true
	default:
		e.logger.Warn("command queue full, dropping command", zap.String("type", string(cmd.Type())))
		return false
	}
}

func (e *Engine) GetState(ctx context.Context) (CameraState, error) {
	req := stateReq{reply: make(chan CameraState, 1)}
	if err := send(ctx, e.done, e.stateReqCh, req); err != nil {
		return CameraState{}, err
	}
	return await(ctx, e.done, req.reply)
}

// Placements returns the current item placements.
func (e *Engine) Placements(ctx context.Context) ([]scene.Placement, error) {
	req := placementsReq{reply: make(chan []scene.Placement, 1)}
	if err := send(ctx, e.done, e.placementsCh, req); err != nil {
		return nil, err
	}
	return await(ctx, e.done, req.reply)
}

// Advance runs n ticks immediately, after applying every command queued
// before it, and returns the resulting state.
func (e *Engine) Advance(ctx context.Context, n int) (CameraState, error) {
	req := advanceReq{ticks: n, reply: make(chan CameraState, 1)}
	if err := send(ctx, e.done, e.advanceCh, req); err != nil {
		return CameraState{}, err
	}
	return await(ctx, e.done, req.reply)
}

func (e *Engine) Subscribe(ctx context.Context) (<-chan CameraState, func()) {
	ch := make(chan CameraState, 32)

	if err := send(ctx, e.done, e.subscribeCh, subscribeReq{ch: ch}); err != nil {
		close(ch)
		return ch, func() {}
	}

	unsub := func() {
		select {
		case e.unsubCh <- ch:
		case <-e.done:
		}
	}
	return ch, unsub
}

func send[T any](ctx context.Context, done <-chan struct{}, ch chan<- T, v T) error {
	select {
	case <-done:
		return ErrEngineStopped
	default:
	}

	select {
	case ch <- v:
		return nil
	case <-done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, done <-chan struct{}, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-done:
		// the actor may have answered just before stopping
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrEngineStopped
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	if err := e.cfg.Nav.Validate(); err != nil {
		return errors.Wrap(err, "sim: invalid navigator config")
	}

	// Actor-owned state
	now := time.Now()
	navigator := nav.New(e.cfg.Nav)
	var binding *scene.Binding
	openItem := ""
	targetItem := ""

	subs := map[chan CameraState]struct{}{}

	buildSnapshot := func(ts time.Time, events []nav.Event) CameraState {
		pose := navigator.Pose()
		return CameraState{
			Session:    e.session,
			Tick:       navigator.Ticks(),
			Mode:       navigator.Mode(),
			Position:   pose.Position,
			Forward:    pose.Forward,
			LookAt:     pose.LookAt(),
			HeadingDeg: nav.HeadingDeg(pose.Forward),
			Intent:     navigator.Intent(),
			TargetItem: targetItem,
			OpenItem:   openItem,
			Items:      binding.Len(),
			Events:     events,
			TS:         ts,
		}
	}

	publish := func(st CameraState) {
		for ch := range subs {
			select {
			case ch <- st:
			default:
				// slow subscriber -> drop frame
			}
		}
	}

	apply := func(cmd Command) {
		switch c := cmd.(type) {
		case KeyCommand:
			if !c.Down {
				navigator.Release(c.Key)
				return
			}
			if !navigator.Press(c.Key) {
				e.logger.Debug("input gated", zap.Stringer("key", c.Key), zap.Stringer("mode", navigator.Mode()))
			}

		case SelectCommand:
			var tgt nav.Target
			if c.Position != nil {
				tgt = nav.Target{ItemID: c.ItemID, Position: *c.Position}
			} else {
				var err error
				tgt, err = binding.TargetFor(c.ItemID, navigator.Pose().Position, e.cfg.Standoff)
				if err != nil {
					e.logger.Warn("selection ignored", zap.String("item", c.ItemID), zap.Error(err))
					return
				}
			}
			if !navigator.Select(tgt) {
				e.logger.Debug("selection refused", zap.String("item", c.ItemID), zap.Stringer("mode", navigator.Mode()))
				return
			}
			targetItem = tgt.ItemID
			e.logger.Debug("targeting", zap.String("item", tgt.ItemID),
				zap.Float64("distance", navigator.Pose().Position.Distance(tgt.Position)))

		case DismissCommand:
			openItem = ""

		case ResetCommand:
			navigator.Reset()
			openItem = ""
			targetItem = ""
			e.logger.Info("session reset")

		case SceneCommand:
			binding = c.Binding
			e.logger.Info("scene loaded", zap.Int("items", binding.Len()), zap.Int("unbound", len(binding.Unbound())))

		case PoseCommand:
			if !navigator.SetPose(c.Pose) {
				e.logger.Debug("pose refused", zap.Stringer("mode", navigator.Mode()))
			}
		}
	}

	step := func(ts time.Time) CameraState {
		events := navigator.Tick()
		for _, ev := range events {
			switch ev.Kind {
			case nav.EventIntroComplete:
				e.logger.Info("intro complete", zap.Uint64("tick", ev.Tick))
			case nav.EventArrived:
				openItem = ev.ItemID
				targetItem = ""
				e.logger.Info("arrived", zap.String("item", ev.ItemID), zap.Uint64("tick", ev.Tick))
			}
		}
		st := buildSnapshot(ts, events)
		publish(st)
		return st
	}

	drainCommands := func() {
		for {
			select {
			case cmd := <-e.cmdCh:
				apply(cmd)
			default:
				return
			}
		}
	}

	var tickC <-chan time.Time
	if !e.cfg.Manual {
		tick := time.NewTicker(time.Duration(float64(time.Second) / e.cfg.TickHz))
		defer tick.Stop()
		tickC = tick.C
	}

	e.logger.Info("engine started", zap.Float64("tickHz", e.cfg.TickHz), zap.Bool("manual", e.cfg.Manual))

	for {
		select {
		case <-ctx.Done():
			for ch := range subs {
				close(ch)
			}
			e.logger.Info("engine stopped")
			return nil

		case req := <-e.subscribeCh:
			subs[req.ch] = struct{}{}
			req.ch <- buildSnapshot(now, nil)

		case ch := <-e.unsubCh:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case req := <-e.stateReqCh:
			drainCommands()
			req.reply <- buildSnapshot(now, nil)

		case req := <-e.placementsCh:
			drainCommands()
			req.reply <- binding.Placements()

		case cmd := <-e.cmdCh:
			apply(cmd)

		case req := <-e.advanceCh:
			drainCommands()
			st := buildSnapshot(now, nil)
			var events []nav.Event
			for i := 0; i < req.ticks; i++ {
				st = step(now)
				events = append(events, st.Events...)
			}
			st.Events = events
			req.reply <- st

		case t := <-tickC:
			now = t
			step(now)
		}
	}
}
