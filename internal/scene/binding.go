// Package scene pairs gallery items with generated layout positions and
// answers where the camera should fly to face an item.
package scene

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"gallery3d/internal/geometry/vector"
	"gallery3d/internal/layout"
	"gallery3d/internal/nav"
)

// ErrUnknownItem is returned for item IDs that have no placement.
var ErrUnknownItem = errors.New("scene: unknown item")

// Item is one gallery entry as supplied by the surrounding application.
type Item struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	ImageURL string `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
}

// Placement is an item with its rendered position.
type Placement struct {
	Item      Item        `json:"item" yaml:"item"`
	Position  vector.Vec3 `json:"position" yaml:"position"`
	Generated vector.Vec3 `json:"generated" yaml:"generated"`
}

// Binding is the immutable item/position pairing for one dataset.
type Binding struct {
	placements []Placement
	unbound    []Item
	index      map[string]int
}

// Bind pairs items with res.Positions by index, in generation order. Items
// past the number of placed positions are kept as unbound. Items without
// an ID are given a random one.
//
// The adjuster runs after separation was enforced. A HeightClamp narrower
// than half the request's HeightRange can therefore bring two rendered
// positions closer than MinDistance; Placement.Generated always keeps the
// separated position.
func Bind(items []Item, res layout.Result, adj Adjuster) (*Binding, error) {
	if adj == nil {
		adj = NoOp
	}

	b := &Binding{index: make(map[string]int, len(items))}
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if _, dup := seen[it.ID]; dup {
			return nil, errors.Errorf("scene: duplicate item id %q", it.ID)
		}
		seen[it.ID] = struct{}{}

		if i >= len(res.Positions) {
			b.unbound = append(b.unbound, it)
			continue
		}
		gen := res.Positions[i]
		b.index[it.ID] = len(b.placements)
		b.placements = append(b.placements, Placement{Item: it, Position: adj.Adjust(gen), Generated: gen})
	}
	return b, nil
}

// Len returns the number of placed items.
func (b *Binding) Len() int {
	if b == nil {
		return 0
	}
	return len(b.placements)
}

// Placements returns a copy of the placements in generation order.
func (b *Binding) Placements() []Placement {
	if b == nil {
		return nil
	}
	cp := make([]Placement, len(b.placements))
	copy(cp, b.placements)
	return cp
}

// Unbound returns items that received no position.
func (b *Binding) Unbound() []Item {
	if b == nil {
		return nil
	}
	cp := make([]Item, len(b.unbound))
	copy(cp, b.unbound)
	return cp
}

// Lookup returns the placement for id.
func (b *Binding) Lookup(id string) (Placement, bool) {
	if b == nil {
		return Placement{}, false
	}
	i, ok := b.index[id]
	if !ok {
		return Placement{}, false
	}
	return b.placements[i], true
}

// TargetFor returns the camera destination for viewing item id from the
// camera position from: the item position pulled standoff units back toward
// the camera. With no standoff, or a camera already at the item, the item
// position itself is the destination.
func (b *Binding) TargetFor(id string, from vector.Vec3, standoff float64) (nav.Target, error) {
	p, ok := b.Lookup(id)
	if !ok {
		return nav.Target{}, errors.Wrapf(ErrUnknownItem, "id %q", id)
	}

	dest := p.Position
	if standoff > 0 {
		if dir := from.Sub(p.Position).Normalize(); !dir.IsZero() {
			dest = dest.Add(dir.Mul(standoff))
		}
	}
	return nav.Target{ItemID: id, Position: dest}, nil
}

// Billboard returns the normal an item plane at itemPos should face so that
// it points at the camera.
func Billboard(itemPos, cameraPos vector.Vec3) vector.Vec3 {
	n := cameraPos.Sub(itemPos).Normalize()
	if n.IsZero() {
		return vector.NewVec3(0, 0, 1)
	}
	return n
}
