// Package signature defines named HSV color ranges and the configuration
// errors raised when they are malformed.
package signature

import (
	"fmt"
	"strconv"
	"strings"
)

// Channels is the number of color channels in a bound (H, S, V).
const Channels = 3

// Bounds is one corner of an HSV range. H uses the OpenCV 0-180 scale but
// every channel accepts 0-255, matching the range trackbars.
type Bounds [Channels]int

// String formats the bounds as "h,s,v".
func (b Bounds) String() string {
	return fmt.Sprintf("%d,%d,%d", b[0], b[1], b[2])
}

// Validate checks every channel lies in 0-255.
func (b Bounds) Validate(field string) error {
	for i, v := range b {
		if v < 0 || v > 255 {
			return &ConfigurationError{
				Field:  fmt.Sprintf("%s[%d]", field, i),
				Reason: fmt.Sprintf("channel value %d outside 0-255", v),
			}
		}
	}
	return nil
}

// ParseBounds converts a variable-length slice into Bounds, rejecting
// anything that is not exactly three channels in range.
func ParseBounds(field string, values []int) (Bounds, error) {
	var b Bounds
	if len(values) != Channels {
		return b, &ConfigurationError{
			Field:  field,
			Reason: fmt.Sprintf("expected %d channels, got %d", Channels, len(values)),
		}
	}
	copy(b[:], values)
	return b, b.Validate(field)
}

// ParseBoundsString parses "h,s,v" as used on the command line.
func ParseBoundsString(field, s string) (Bounds, error) {
	parts := strings.Split(s, ",")
	values := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Bounds{}, &ConfigurationError{Field: field, Reason: fmt.Sprintf("invalid channel %q", p)}
		}
		values = append(values, v)
	}
	return ParseBounds(field, values)
}

// Signature is a named inclusive HSV range.
type Signature struct {
	Name  string `json:"name" yaml:"name" toml:"name"`
	Lower Bounds `json:"lower" yaml:"lower" toml:"lower"`
	Upper Bounds `json:"upper" yaml:"upper" toml:"upper"`
}

// New creates a signature and validates it.
func New(name string, lower, upper Bounds) (Signature, error) {
	s := Signature{Name: name, Lower: lower, Upper: upper}
	return s, s.Validate()
}

// Validate checks the name and both bounds. Lower > Upper is allowed and
// simply matches nothing.
func (s Signature) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &ConfigurationError{Field: "name", Reason: "color name is empty"}
	}
	if err := s.Lower.Validate(s.Name + ".lower"); err != nil {
		return err
	}
	return s.Upper.Validate(s.Name + ".upper")
}

// Contains reports whether an HSV pixel lies inside the range on every
// channel, inclusive.
func (s Signature) Contains(hsv [Channels]uint8) bool {
	for i := 0; i < Channels; i++ {
		v := int(hsv[i])
		if v < s.Lower[i] || v > s.Upper[i] {
			return false
		}
	}
	return true
}

// WithRange returns a copy with new bounds; the name is kept.
func (s Signature) WithRange(lower, upper Bounds) Signature {
	s.Lower = lower
	s.Upper = upper
	return s
}

// ValidateSet validates each signature and rejects duplicate names.
func ValidateSet(sigs []Signature) error {
	seen := make(map[string]bool, len(sigs))
	for _, s := range sigs {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.Name] {
			return &ConfigurationError{Field: "name", Reason: fmt.Sprintf("duplicate color %q", s.Name)}
		}
		seen[s.Name] = true
	}
	return nil
}

// Names returns signature names in order.
func Names(sigs []Signature) []string {
	names := make([]string, len(sigs))
	for i, s := range sigs {
		names[i] = s.Name
	}
	return names
}

// Defaults returns the four stock ranges: red, green, blue, yellow.
func Defaults() []Signature {
	return []Signature{
		{Name: "red", Lower: Bounds{0, 100, 100}, Upper: Bounds{10, 255, 255}},
		{Name: "green", Lower: Bounds{50, 100, 100}, Upper: Bounds{70, 255, 255}},
		{Name: "blue", Lower: Bounds{100, 100, 100}, Upper: Bounds{130, 255, 255}},
		{Name: "yellow", Lower: Bounds{20, 100, 100}, Upper: Bounds{40, 255, 255}},
	}
}
