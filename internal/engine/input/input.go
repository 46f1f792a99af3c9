// Package input handles SDL2 input events.
package input

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/umapview/internal/engine/camera"
)

// Event types for viewer use
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseMove
	EventMouseDown
	EventMouseUp
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Width  int
	Height int
	MouseX int
	MouseY int
	Button uint8
}

// Input handles all input processing and tracks held keys and buttons
// between frames.
type Input struct {
	events  []Event
	keys    map[sdl.Scancode]bool
	buttons map[uint8]bool

	// Relative mouse movement since the last Update.
	dx, dy float32
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		events:  make([]Event, 0, 16),
		keys:    make(map[sdl.Scancode]bool),
		buttons: make(map[uint8]bool),
	}
}

// Update polls SDL events and converts them to viewer events.
// Returns true if the viewer should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0] // Clear previous events
	i.dx, i.dy = 0, 0

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, Event{Type: EventQuit})
			return true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED {
				i.events = append(i.events, Event{
					Type:   EventWindowResize,
					Width:  int(e.Data1),
					Height: int(e.Data2),
				})
			}

		case *sdl.KeyboardEvent:
			if e.Type == sdl.KEYDOWN {
				i.keys[e.Keysym.Scancode] = true
				i.events = append(i.events, Event{
					Type: EventKeyDown,
					Key:  e.Keysym.Scancode,
				})
			} else if e.Type == sdl.KEYUP {
				delete(i.keys, e.Keysym.Scancode)
				i.events = append(i.events, Event{
					Type: EventKeyUp,
					Key:  e.Keysym.Scancode,
				})
			}

		case *sdl.MouseMotionEvent:
			i.dx += float32(e.XRel)
			i.dy += float32(e.YRel)
			i.events = append(i.events, Event{
				Type:   EventMouseMove,
				MouseX: int(e.X),
				MouseY: int(e.Y),
			})

		case *sdl.MouseButtonEvent:
			if e.Type == sdl.MOUSEBUTTONDOWN {
				i.buttons[e.Button] = true
				i.events = append(i.events, Event{
					Type:   EventMouseDown,
					MouseX: int(e.X),
					MouseY: int(e.Y),
					Button: e.Button,
				})
			} else if e.Type == sdl.MOUSEBUTTONUP {
				delete(i.buttons, e.Button)
				i.events = append(i.events, Event{
					Type:   EventMouseUp,
					MouseX: int(e.X),
					MouseY: int(e.Y),
					Button: e.Button,
				})
			}
		}
	}

	return false
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// IsKeyPressed checks if a specific key was pressed this frame.
func (i *Input) IsKeyPressed(scancode sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == scancode {
			return true
		}
	}
	return false
}

// IsKeyHeld reports whether a key is currently down.
func (i *Input) IsKeyHeld(scancode sdl.Scancode) bool {
	return i.keys[scancode]
}

// IsButtonHeld reports whether a mouse button is currently down.
func (i *Input) IsButtonHeld(button uint8) bool {
	return i.buttons[button]
}

// MouseDelta returns the relative mouse movement of the last Update.
func (i *Input) MouseDelta() (dx, dy float32) {
	return i.dx, i.dy
}

// FlyControls maps the held keys to camera input: WASD to move, Q and E
// down and up, shift to boost, C and X to zoom, and the right mouse button
// to look around.
func (i *Input) FlyControls() camera.Controls {
	c := camera.Controls{
		Forward: i.axis(sdl.SCANCODE_W, sdl.SCANCODE_S),
		Right:   i.axis(sdl.SCANCODE_D, sdl.SCANCODE_A),
		Up:      i.axis(sdl.SCANCODE_E, sdl.SCANCODE_Q),
		Zoom:    i.axis(sdl.SCANCODE_C, sdl.SCANCODE_X),
		Boost:   i.keys[sdl.SCANCODE_LSHIFT] || i.keys[sdl.SCANCODE_RSHIFT],
	}
	if i.buttons[sdl.BUTTON_RIGHT] {
		c.LookX, c.LookY = i.dx, i.dy
	}
	return c
}

func (i *Input) axis(pos, neg sdl.Scancode) float32 {
	var v float32
	if i.keys[pos] {
		v++
	}
	if i.keys[neg] {
		v--
	}
	return v
}
