// Package nav implements the camera navigation state machine: an intro
// fly-in, free-roam flight driven by movement intent, and fly-to-target
// sequences started by item selection.
package nav

import (
	"math"
	"sync"

	"gallery3d/internal/geometry/vector"
)

// DefaultForward is the view direction used when none can be derived.
var DefaultForward = vector.NewVec3(0, 0, -1)

// Navigator owns the camera pose. Tick is expected to be called once per
// frame by the host loop; input methods may be called from other goroutines.
type Navigator struct {
	cfg Config

	mu        sync.Mutex
	mode      Mode
	pose      Pose
	intent    Intent
	target    Target
	hasTarget bool
	ticks     uint64
}

// New creates a navigator in its session-start state.
func New(cfg Config) *Navigator {
	n := &Navigator{cfg: cfg}
	n.reset()
	return n
}

// Reset returns the navigator to its session-start state.
func (n *Navigator) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset()
}

func (n *Navigator) reset() {
	n.intent = Intent{}
	n.target = Target{}
	n.hasTarget = false
	n.ticks = 0

	if n.cfg.SkipIntro {
		n.mode = ModeFreeRoam
		n.pose = Pose{Position: n.cfg.IntroEnd, Forward: aim(n.cfg.IntroEnd, n.cfg.IntroFocus, DefaultForward)}
		return
	}
	n.mode = ModeIntro
	n.pose = Pose{Position: n.cfg.IntroStart, Forward: aim(n.cfg.IntroStart, n.cfg.IntroFocus, DefaultForward)}
}

// Press sets an intent flag. Input is dropped until the intro completes.
func (n *Navigator) Press(k Key) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.mode == ModeIntro {
		return false
	}
	n.intent.set(k, true)
	return true
}

// Release clears an intent flag.
func (n *Navigator) Release(k Key) {
	n.mu.Lock()
	n.intent.set(k, false)
	n.mu.Unlock()
}

// ClearIntent releases every flag.
func (n *Navigator) ClearIntent() {
	n.mu.Lock()
	n.intent = Intent{}
	n.mu.Unlock()
}

// Intent returns a copy of the current movement flags.
func (n *Navigator) Intent() Intent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.intent
}

// Select starts flying toward t. It is refused during the intro and for
// non-finite positions. A selection while already targeting retargets.
func (n *Navigator) Select(t Target) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.mode == ModeIntro || !t.Position.IsFinite() {
		return false
	}
	n.target = t
	n.hasTarget = true
	n.mode = ModeTargeting
	return true
}

// SetPose replaces the pose, as external orbit controls do. Only honored
// in free-roam. A degenerate forward keeps the current view direction.
func (n *Navigator) SetPose(p Pose) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.mode != ModeFreeRoam || !p.Position.IsFinite() || !p.Forward.IsFinite() {
		return false
	}
	n.pose.Position = p.Position
	if f := p.Forward.Normalize(); !f.IsZero() {
		n.pose.Forward = f
	}
	return true
}

// Pose returns the current camera pose.
func (n *Navigator) Pose() Pose {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pose
}

// Mode returns the current navigation mode.
func (n *Navigator) Mode() Mode {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mode
}

// Target returns the active target, if any.
func (n *Navigator) Target() (Target, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target, n.hasTarget
}

// Ticks returns how many ticks ran since New or Reset.
func (n *Navigator) Ticks() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ticks
}

// Tick advances the camera by one frame and returns the events it produced.
func (n *Navigator) Tick() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.ticks++
	switch n.mode {
	case ModeIntro:
		return n.tickIntro()
	case ModeFreeRoam:
		n.tickFreeRoam()
	case ModeTargeting:
		return n.tickTargeting()
	case ModeArrived:
		n.mode = ModeFreeRoam
	}
	return nil
}

func (n *Navigator) tickIntro() []Event {
	end := n.cfg.IntroEnd
	p := n.pose.Position
	p = p.Add(end.Sub(p).Mul(n.cfg.Smoothing))
	n.pose.Position = p
	n.pose.Forward = aim(p, n.cfg.IntroFocus, n.pose.Forward)

	if p.Distance(end) >= n.cfg.IntroEpsilon {
		return nil
	}

	n.pose.Position = end
	n.pose.Forward = aim(end, n.cfg.IntroFocus, n.pose.Forward)
	n.mode = ModeFreeRoam
	return []Event{{Kind: EventIntroComplete, Position: end, Tick: n.ticks}}
}

// tickFreeRoam translates along the horizontal view basis. Every set flag
// adds a fixed-length step, so opposite flags sum to zero.
func (n *Navigator) tickFreeRoam() {
	if !n.intent.Any() {
		return
	}

	forward := n.pose.Forward.Horizontal().Normalize()
	right := forward.Cross(vector.Up).Normalize()
	step := n.cfg.MoveStep

	move := vector.Zero
	if n.intent.Forward {
		move = move.Add(forward.Mul(step))
	}
	if n.intent.Backward {
		move = move.Add(forward.Mul(-step))
	}
	if n.intent.Right {
		move = move.Add(right.Mul(step))
	}
	if n.intent.Left {
		move = move.Add(right.Mul(-step))
	}
	n.pose.Position = n.pose.Position.Add(move)
}

// tickTargeting advances a fixed distance toward the target, never past it.
func (n *Navigator) tickTargeting() []Event {
	if !n.hasTarget {
		n.mode = ModeFreeRoam
		return nil
	}

	goal := n.target.Position
	remaining := goal.Sub(n.pose.Position)
	d := remaining.Length()

	if d >= n.cfg.ArriveThreshold {
		dir := remaining.Mul(1 / d)
		n.pose.Position = n.pose.Position.Add(dir.Mul(math.Min(n.cfg.FlyStep, d)))
		n.pose.Forward = dir
		d = n.pose.Position.Distance(goal)
	}
	if d >= n.cfg.ArriveThreshold {
		return nil
	}

	n.pose.Position = goal
	ev := Event{Kind: EventArrived, ItemID: n.target.ItemID, Position: goal, Tick: n.ticks}
	n.target = Target{}
	n.hasTarget = false
	n.mode = ModeArrived
	return []Event{ev}
}

// aim returns the unit direction from -> to, or fallback when they coincide.
func aim(from, to, fallback vector.Vec3) vector.Vec3 {
	dir := to.Sub(from).Normalize()
	if dir.IsZero() {
		return fallback
	}
	return dir
}
