// Package spatial answers "which entities are near this point" for the host's
// AI collaborators and for hit-claim validation.
package spatial

import (
	"math"

	"github.com/solarlune/resolv"
)

const (
	tagEntity = "entity"
	tagProbe  = "probe"
)

// Bounds is the world rectangle the grid covers. Positions outside it are
// still stored but bucket into the nearest edge cell.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Grid is a uniform grid over 2D points, bucketed by a resolv.Space.
// It is not safe for concurrent use; the host touches it from its tick only.
type Grid struct {
	space  *resolv.Space
	bounds Bounds
	width  float64
	height float64

	objects   map[string]*resolv.Object
	positions map[string]point
	probe     *resolv.Object
}

type point struct{ x, y float64 }

// NewGrid creates a grid covering bounds with square cells of cellSize units.
func NewGrid(bounds Bounds, cellSize int) *Grid {
	if cellSize < 1 {
		cellSize = 1
	}
	w := int(math.Ceil(bounds.MaxX - bounds.MinX))
	h := int(math.Ceil(bounds.MaxY - bounds.MinY))
	if w < cellSize {
		w = cellSize
	}
	if h < cellSize {
		h = cellSize
	}

	g := &Grid{
		space:     resolv.NewSpace(w, h, cellSize, cellSize),
		bounds:    bounds,
		width:     float64(w),
		height:    float64(h),
		objects:   make(map[string]*resolv.Object),
		positions: make(map[string]point),
	}
	g.probe = resolv.NewObject(0, 0, 1, 1, tagProbe)
	g.space.Add(g.probe)
	return g
}

// Upsert inserts id at (x, y) or moves it there if already present.
func (g *Grid) Upsert(id string, x, y float64) {
	g.positions[id] = point{x, y}
	sx, sy := g.toSpace(x, y)

	if obj, ok := g.objects[id]; ok {
		obj.X, obj.Y = sx, sy
		obj.Update()
		return
	}
	obj := resolv.NewObject(sx, sy, 1, 1, tagEntity)
	obj.Data = id
	g.space.Add(obj)
	g.objects[id] = obj
}

// Remove drops id from the grid. Unknown ids are ignored.
func (g *Grid) Remove(id string) {
	obj, ok := g.objects[id]
	if !ok {
		return
	}
	g.space.Remove(obj)
	delete(g.objects, id)
	delete(g.positions, id)
}

// Position returns the last position stored for id.
func (g *Grid) Position(id string) (x, y float64, ok bool) {
	p, ok := g.positions[id]
	return p.x, p.y, ok
}

// Nearby returns the ids within radius of (x, y), measured with true world
// positions. Order is unspecified.
func (g *Grid) Nearby(x, y, radius float64) []string {
	if radius < 0 || len(g.objects) == 0 {
		return nil
	}

	// Probe the cells covering the query square, then filter exactly. resolv
	// stops at cell floor((X+W-1)/size), so the far edge needs one extra unit
	// to include a cell that starts exactly on it.
	minX, minY := g.toSpace(x-radius, y-radius)
	maxX, maxY := g.toSpace(x+radius, y+radius)
	g.probe.X, g.probe.Y = minX, minY
	g.probe.W = maxX - minX + 1
	g.probe.H = maxY - minY + 1
	g.probe.Update()

	check := g.probe.Check(0, 0, tagEntity)
	if check == nil {
		return nil
	}

	r2 := radius * radius
	var out []string
	for _, obj := range check.Objects {
		id, ok := obj.Data.(string)
		if !ok {
			continue
		}
		p := g.positions[id]
		dx, dy := p.x-x, p.y-y
		if dx*dx+dy*dy <= r2 {
			out = append(out, id)
		}
	}
	return out
}

// Within reports whether id is stored within radius of (x, y).
func (g *Grid) Within(id string, x, y, radius float64) bool {
	for _, near := range g.Nearby(x, y, radius) {
		if near == id {
			return true
		}
	}
	return false
}

// Len returns the number of stored entities.
func (g *Grid) Len() int {
	return len(g.objects)
}

// Clear removes every entity, keeping the allocated space.
func (g *Grid) Clear() {
	for id, obj := range g.objects {
		g.space.Remove(obj)
		delete(g.objects, id)
	}
	clear(g.positions)
}

// toSpace maps a world position into the space rectangle, clamping to its edges.
func (g *Grid) toSpace(x, y float64) (float64, float64) {
	sx := clamp(x-g.bounds.MinX, 0, g.width-1)
	sy := clamp(y-g.bounds.MinY, 0, g.height-1)
	return sx, sy
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
