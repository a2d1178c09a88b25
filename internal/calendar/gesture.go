package calendar

import (
	"math"
	"time"
)

const (
	DefaultDragThreshold  = 5
	DefaultReturnDuration = 200 * time.Millisecond
)

// GestureState is the recognizer state for one pointer interaction.
//
//	Idle --down--> Pressed --move >= threshold--> Dragging
//	Pressed --up--> Idle (tap)
//	Dragging --up--> Idle (drag end, offset animates back to zero)
//	any --cancel--> Idle
type GestureState int

const (
	GestureIdle GestureState = iota
	GesturePressed
	GestureDragging
)

func (s GestureState) String() string {
	switch s {
	case GesturePressed:
		return "pressed"
	case GestureDragging:
		return "dragging"
	default:
		return "idle"
	}
}

// Point is a position or translation in grid units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

func (p Point) Scale(f float64) Point { return Point{X: p.X * f, Y: p.Y * f} }

// GestureKind is what a finished interaction turned out to be.
type GestureKind int

const (
	GestureNone GestureKind = iota
	GestureTap
	GestureDragEnd
)

func (k GestureKind) String() string {
	switch k {
	case GestureTap:
		return "tap"
	case GestureDragEnd:
		return "drag_end"
	default:
		return "none"
	}
}

// GestureResult is emitted by Up. Translation is the total movement since
// Down and is only meaningful for GestureDragEnd.
type GestureResult struct {
	Kind        GestureKind
	Translation Point
}

// Gesture disambiguates taps from drags using a movement threshold and owns
// the transient visual offset of the card being dragged. Tap and drag end
// are mutually exclusive for a single interaction.
type Gesture struct {
	state     GestureState
	origin    Point
	offset    Point
	threshold float64

	returnDur   time.Duration
	returning   bool
	returnFrom  Point
	returnStart time.Time

	now func() time.Time
}

// NewGesture returns an idle recognizer. Non-positive threshold or duration
// select the defaults; a nil clock uses time.Now.
func NewGesture(threshold float64, returnDur time.Duration, now func() time.Time) *Gesture {
	if threshold <= 0 {
		threshold = DefaultDragThreshold
	}
	if returnDur <= 0 {
		returnDur = DefaultReturnDuration
	}
	if now == nil {
		now = time.Now
	}
	return &Gesture{threshold: threshold, returnDur: returnDur, now: now}
}

func (g *Gesture) State() GestureState { return g.state }

func (g *Gesture) Threshold() float64 { return g.threshold }

// Down starts an interaction. It is ignored unless the recognizer is idle.
// A return animation still in flight is dropped.
func (g *Gesture) Down(p Point) bool {
	if g.state != GestureIdle {
		return false
	}
	g.returning = false
	g.state = GesturePressed
	g.origin = p
	g.offset = Point{}
	return true
}

// Move updates the interaction. Movement below the threshold keeps a press a
// press; once crossed the interaction is a drag until Up or Cancel.
func (g *Gesture) Move(p Point) {
	switch g.state {
	case GesturePressed:
		d := p.Sub(g.origin)
		if g.exceeds(d) {
			g.state = GestureDragging
			g.offset = d
		}
	case GestureDragging:
		g.offset = p.Sub(g.origin)
	}
}

// Up finishes the interaction.
func (g *Gesture) Up(p Point) GestureResult {
	switch g.state {
	case GesturePressed:
		d := p.Sub(g.origin)
		if !g.exceeds(d) {
			g.reset()
			return GestureResult{Kind: GestureTap}
		}
		// Released far away without intermediate moves.
		fallthrough
	case GestureDragging:
		d := p.Sub(g.origin)
		g.startReturn(d)
		g.state = GestureIdle
		return GestureResult{Kind: GestureDragEnd, Translation: d}
	default:
		return GestureResult{}
	}
}

// Cancel abandons the interaction without emitting anything.
func (g *Gesture) Cancel() {
	g.reset()
	g.returning = false
}

// Offset is the visual translation to apply to the active card: the live
// drag offset, a decaying offset while animating back to the origin, or zero.
func (g *Gesture) Offset() Point {
	if g.state == GestureDragging {
		return g.offset
	}
	if !g.expireReturn() {
		return Point{}
	}
	p := float64(g.now().Sub(g.returnStart)) / float64(g.returnDur)
	if p < 0 {
		p = 0
	}
	// Ease-out cubic.
	return g.returnFrom.Scale(math.Pow(1-p, 3))
}

// Animating reports whether the card is still returning to its origin.
func (g *Gesture) Animating() bool {
	return g.expireReturn()
}

// expireReturn ends a return animation whose duration has elapsed and
// reports whether one is still running.
func (g *Gesture) expireReturn() bool {
	if g.returning && g.now().Sub(g.returnStart) >= g.returnDur {
		g.returning = false
	}
	return g.returning
}

func (g *Gesture) exceeds(d Point) bool {
	m := math.Max(math.Abs(d.X), math.Abs(d.Y))
	return m > 0 && m >= g.threshold
}

func (g *Gesture) startReturn(from Point) {
	g.returning = true
	g.returnFrom = from
	g.returnStart = g.now()
	g.offset = Point{}
}

func (g *Gesture) reset() {
	g.state = GestureIdle
	g.origin = Point{}
	g.offset = Point{}
}
