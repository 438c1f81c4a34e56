package sim

import (
	"time"

	"gallery3d/internal/geometry/vector"
	"gallery3d/internal/nav"
)

// CameraState is the per-tick snapshot handed to the renderer and UI.
type CameraState struct {
	Session string `json:"session"`
	Tick    uint64 `json:"tick"`

	Mode       nav.Mode    `json:"mode"`
	Position   vector.Vec3 `json:"position"`
	Forward    vector.Vec3 `json:"forward"`
	LookAt     vector.Vec3 `json:"lookAt"`
	HeadingDeg float64     `json:"headingDeg"`
	Intent     nav.Intent  `json:"intent"`

	TargetItem string `json:"targetItem,omitempty"`
	OpenItem   string `json:"openItem,omitempty"`
	Items      int    `json:"items"`

	Events []nav.Event `json:"events,omitempty"`
	TS     time.Time   `json:"ts"`
}
