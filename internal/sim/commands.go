package sim

import (
	"time"

	"gallery3d/internal/geometry/vector"
	"gallery3d/internal/nav"
	"gallery3d/internal/scene"
)

type CommandType string

const (
	CmdKey     CommandType = "key"
	CmdSelect  CommandType = "select"
	CmdDismiss CommandType = "dismiss"
	CmdReset   CommandType = "reset"
	CmdScene   CommandType = "scene"
	CmdPose    CommandType = "pose"
)

type Command interface {
	Type() CommandType
	ReceivedAt() time.Time
}

// KeyCommand is a key-down (Down=true) or key-up event for one intent.
type KeyCommand struct {
	At   time.Time
	Key  nav.Key
	Down bool
}

func (c KeyCommand) Type() CommandType     { return CmdKey }
func (c KeyCommand) ReceivedAt() time.Time { return c.At }

// SelectCommand starts a fly-to. Position, when set, overrides the bound
// position of ItemID.
type SelectCommand struct {
	At       time.Time
	ItemID   string
	Position *vector.Vec3
}

func (c SelectCommand) Type() CommandType     { return CmdSelect }
func (c SelectCommand) ReceivedAt() time.Time { return c.At }

// DismissCommand closes the open detail view.
type DismissCommand struct{ At time.Time }

func (c DismissCommand) Type() CommandType     { return CmdDismiss }
func (c DismissCommand) ReceivedAt() time.Time { return c.At }

// ResetCommand restarts the session from the intro pose.
type ResetCommand struct{ At time.Time }

func (c ResetCommand) Type() CommandType     { return CmdReset }
func (c ResetCommand) ReceivedAt() time.Time { return c.At }

// SceneCommand replaces the item binding.
type SceneCommand struct {
	At      time.Time
	Binding *scene.Binding
}

func (c SceneCommand) Type() CommandType     { return CmdScene }
func (c SceneCommand) ReceivedAt() time.Time { return c.At }

// PoseCommand moves the camera directly, as orbit controls do.
type PoseCommand struct {
	At   time.Time
	Pose nav.Pose
}

func (c PoseCommand) Type() CommandType     { return CmdPose }
func (c PoseCommand) ReceivedAt() time.Time { return c.At }
