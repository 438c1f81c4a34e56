package nav

import (
	"strings"

	"github.com/pkg/errors"

	"gallery3d/internal/geometry/vector"
)

type Mode int

const (
	ModeIntro Mode = iota
	ModeFreeRoam
	ModeTargeting
	ModeArrived
)

func (m Mode) String() string {
	switch m {
	case ModeIntro:
		return "intro"
	case ModeFreeRoam:
		return "free-roam"
	case ModeTargeting:
		return "targeting"
	case ModeArrived:
		return "arrived"
	default:
		return "unknown"
	}
}

// MarshalText lets modes appear by name in JSON snapshots.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	for _, c := range []Mode{ModeIntro, ModeFreeRoam, ModeTargeting, ModeArrived} {
		if c.String() == string(b) {
			*m = c
			return nil
		}
	}
	return errors.Errorf("nav: unknown mode %q", b)
}

// Key is one of the four directional intents.
type Key int

const (
	KeyForward Key = iota
	KeyBackward
	KeyLeft
	KeyRight
)

func (k Key) String() string {
	switch k {
	case KeyForward:
		return "forward"
	case KeyBackward:
		return "backward"
	case KeyLeft:
		return "left"
	case KeyRight:
		return "right"
	default:
		return "unknown"
	}
}

// ParseKey accepts intent names and browser arrow-key names.
func ParseKey(s string) (Key, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "arrowup", "up", "w":
		return KeyForward, nil
	case "backward", "back", "arrowdown", "down", "s":
		return KeyBackward, nil
	case "left", "arrowleft", "a":
		return KeyLeft, nil
	case "right", "arrowright", "d":
		return KeyRight, nil
	}
	return 0, errors.Errorf("nav: unknown key %q", s)
}

// Intent holds the movement flags. Each flag stays set until released.
type Intent struct {
	Forward  bool `json:"forward"`
	Backward bool `json:"backward"`
	Left     bool `json:"left"`
	Right    bool `json:"right"`
}

// Any reports whether at least one flag is set.
func (i Intent) Any() bool { return i.Forward || i.Backward || i.Left || i.Right }

func (i *Intent) set(k Key, v bool) {
	switch k {
	case KeyForward:
		i.Forward = v
	case KeyBackward:
		i.Backward = v
	case KeyLeft:
		i.Left = v
	case KeyRight:
		i.Right = v
	}
}

// Pose is the camera position and unit view direction.
type Pose struct {
	Position vector.Vec3 `json:"position"`
	Forward  vector.Vec3 `json:"forward"`
}

// LookAt returns a point one unit in front of the camera.
func (p Pose) LookAt() vector.Vec3 { return p.Position.Add(p.Forward) }

// Target is where the camera flies after an item is selected.
type Target struct {
	ItemID   string      `json:"itemId"`
	Position vector.Vec3 `json:"position"`
}

type EventKind int

const (
	EventIntroComplete EventKind = iota + 1
	EventArrived
)

func (k EventKind) String() string {
	switch k {
	case EventIntroComplete:
		return "intro-complete"
	case EventArrived:
		return "arrived"
	default:
		return "unknown"
	}
}

func (k EventKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *EventKind) UnmarshalText(b []byte) error {
	for _, c := range []EventKind{EventIntroComplete, EventArrived} {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return errors.Errorf("nav: unknown event kind %q", b)
}

// Event is emitted by Tick on mode transitions the outside world cares about.
type Event struct {
	Kind     EventKind   `json:"kind"`
	ItemID   string      `json:"itemId,omitempty"`
	Position vector.Vec3 `json:"position"`
	Tick     uint64      `json:"tick"`
}
