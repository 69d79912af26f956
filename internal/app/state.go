// Package app provides the live settings store and the frame loop lifecycle.
package app

import (
	"sync"

	"color-counter/internal/pipeline"
	"color-counter/internal/signature"
)

// EventType identifies settings and lifecycle events.
type EventType int

const (
	EventLineChanged EventType = iota
	EventColorChanged
	EventSettingsReplaced
	EventStarted
	EventStopped
	EventReset
)

// String returns the event name.
func (e EventType) String() string {
	switch e {
	case EventLineChanged:
		return "line-changed"
	case EventColorChanged:
		return "color-changed"
	case EventSettingsReplaced:
		return "settings-replaced"
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Events is a minimal listener registry.
type Events struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventListener
}

// On registers an event listener for the specified event type.
func (e *Events) On(event EventType, listener EventListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[EventType][]EventListener)
	}
	e.listeners[event] = append(e.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (e *Events) Emit(event EventType, data interface{}) {
	e.mu.RLock()
	listeners := e.listeners[event]
	e.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Settings holds the live color ranges and line position. Every update is
// validated before it is stored, and Snapshot always returns a consistent
// copy, so the frame loop sees either the old or the new settings.
type Settings struct {
	Events

	mu   sync.RWMutex
	sigs []signature.Signature
	line float64
}

// NewSettings validates and stores the initial settings.
func NewSettings(s pipeline.Settings) (*Settings, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s = s.Clone()
	return &Settings{sigs: s.Signatures, line: s.LineFraction}, nil
}

// Snapshot returns a copy safe to use without holding any lock.
func (s *Settings) Snapshot() pipeline.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pipeline.Settings{Signatures: s.sigs, LineFraction: s.line}.Clone()
}

// Line returns the current line fraction.
func (s *Settings) Line() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.line
}

// Signature looks up a color by name.
func (s *Settings) Signature(name string) (signature.Signature, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sig := range s.sigs {
		if sig.Name == name {
			return sig, true
		}
	}
	return signature.Signature{}, false
}

// SetLine moves the counting line.
func (s *Settings) SetLine(fraction float64) error {
	if err := signature.ValidateLine(fraction); err != nil {
		return err
	}
	s.mu.Lock()
	s.line = fraction
	s.mu.Unlock()
	s.Emit(EventLineChanged, fraction)
	return nil
}

// SetColorRange replaces the bounds of an existing color.
func (s *Settings) SetColorRange(name string, lower, upper signature.Bounds) error {
	s.mu.Lock()
	idx := -1
	for i, sig := range s.sigs {
		if sig.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return signature.UnknownColor(name)
	}
	updated := s.sigs[idx].WithRange(lower, upper)
	if err := updated.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	sigs := append([]signature.Signature(nil), s.sigs...)
	sigs[idx] = updated
	s.sigs = sigs
	s.mu.Unlock()

	s.Emit(EventColorChanged, updated)
	return nil
}

// Replace swaps in a whole new configuration. The color names must match the
// current ones, in order, because the counter is keyed on them.
func (s *Settings) Replace(next pipeline.Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	next = next.Clone()

	s.mu.Lock()
	if len(next.Signatures) != len(s.sigs) {
		s.mu.Unlock()
		return &signature.ConfigurationError{Field: "colors", Reason: "color set cannot change while running"}
	}
	for i, sig := range next.Signatures {
		if sig.Name != s.sigs[i].Name {
			s.mu.Unlock()
			return &signature.ConfigurationError{Field: "colors", Reason: "color set cannot change while running"}
		}
	}
	s.sigs = next.Signatures
	s.line = next.LineFraction
	s.mu.Unlock()

	s.Emit(EventSettingsReplaced, next)
	return nil
}
