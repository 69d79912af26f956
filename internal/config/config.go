// Package config loads counter configuration from JSON, YAML or TOML files.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"color-counter/internal/capture"
	"color-counter/internal/pipeline"
	"color-counter/internal/signature"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultLine is the line position when the file does not set one.
	DefaultLine = 0.5
	// DefaultIntervalMS is the frame cadence when the file does not set one.
	DefaultIntervalMS = 30

	maxFileSize = 1 * 1024 * 1024
)

// Format is a config file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported config extension %q", ext)
	}
}

// Color is one named HSV range as written in a config file.
type Color struct {
	Name  string `json:"name" yaml:"name" toml:"name"`
	Lower []int  `json:"lower" yaml:"lower" toml:"lower"`
	Upper []int  `json:"upper" yaml:"upper" toml:"upper"`
}

// File is the on-disk configuration. Omitted fields take their defaults.
type File struct {
	Line       *float64       `json:"line,omitempty" yaml:"line,omitempty" toml:"line,omitempty"`
	IntervalMS int            `json:"interval_ms,omitempty" yaml:"interval_ms,omitempty" toml:"interval_ms,omitempty"`
	Colors     []Color        `json:"colors,omitempty" yaml:"colors,omitempty" toml:"colors,omitempty"`
	Source     capture.Config `json:"source" yaml:"source" toml:"source"`
	Display    bool           `json:"display,omitempty" yaml:"display,omitempty" toml:"display,omitempty"`
	Listen     string         `json:"listen,omitempty" yaml:"listen,omitempty" toml:"listen,omitempty"`
}

// Default returns the four stock colors, a centered line and a 30 ms cadence
// reading from camera 0.
func Default() *File {
	line := DefaultLine
	return &File{
		Line:       &line,
		IntervalMS: DefaultIntervalMS,
		Colors:     colorsFrom(signature.Defaults()),
	}
}

func colorsFrom(sigs []signature.Signature) []Color {
	colors := make([]Color, 0, len(sigs))
	for _, s := range sigs {
		colors = append(colors, Color{
			Name:  s.Name,
			Lower: []int{s.Lower[0], s.Lower[1], s.Lower[2]},
			Upper: []int{s.Upper[0], s.Upper[1], s.Upper[2]},
		})
	}
	return colors
}

// FromSettings captures live settings into a File, keeping the other fields
// of base.
func FromSettings(base *File, s pipeline.Settings) *File {
	f := *base
	line := s.LineFraction
	f.Line = &line
	f.Colors = colorsFrom(s.Signatures)
	return &f
}

// Load reads and validates a config file.
func Load(path string) (*File, error) {
	cleanPath := filepath.Clean(path)
	format, err := FormatOf(cleanPath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, format)
}

// Parse decodes data in the given format and validates the result.
func Parse(data []byte, format Format) (*File, error) {
	f := &File{}
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, f)
	case FormatYAML:
		err = yaml.Unmarshal(data, f)
	case FormatTOML:
		_, err = toml.Decode(string(data), f)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", format, err)
	}

	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return f, nil
}

func (f *File) applyDefaults() {
	if f.Line == nil {
		line := DefaultLine
		f.Line = &line
	}
	if f.IntervalMS == 0 {
		f.IntervalMS = DefaultIntervalMS
	}
	if len(f.Colors) == 0 {
		f.Colors = colorsFrom(signature.Defaults())
	}
}

// Validate checks colors, line, cadence and source.
func (f *File) Validate() error {
	if _, err := f.Settings(); err != nil {
		return err
	}
	if f.IntervalMS < 0 {
		return &signature.ConfigurationError{Field: "interval_ms", Reason: fmt.Sprintf("must be positive, got %d", f.IntervalMS)}
	}
	if err := f.Source.Validate(); err != nil {
		return &signature.ConfigurationError{Field: "source", Reason: err.Error()}
	}
	return nil
}

// LineFraction returns the line position, or the default when unset.
func (f *File) LineFraction() float64 {
	if f.Line == nil {
		return DefaultLine
	}
	return *f.Line
}

// Interval returns the frame cadence.
func (f *File) Interval() time.Duration {
	if f.IntervalMS <= 0 {
		return DefaultIntervalMS * time.Millisecond
	}
	return time.Duration(f.IntervalMS) * time.Millisecond
}

// Signatures converts the color entries, checking arity and range.
func (f *File) Signatures() ([]signature.Signature, error) {
	sigs := make([]signature.Signature, 0, len(f.Colors))
	for i, c := range f.Colors {
		field := fmt.Sprintf("colors[%d]", i)
		if c.Name != "" {
			field = "colors." + c.Name
		}
		lower, err := signature.ParseBounds(field+".lower", c.Lower)
		if err != nil {
			return nil, err
		}
		upper, err := signature.ParseBounds(field+".upper", c.Upper)
		if err != nil {
			return nil, err
		}
		sig, err := signature.New(c.Name, lower, upper)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

// Settings returns the validated per-frame settings.
func (f *File) Settings() (pipeline.Settings, error) {
	sigs, err := f.Signatures()
	if err != nil {
		return pipeline.Settings{}, err
	}
	s := pipeline.Settings{Signatures: sigs, LineFraction: f.LineFraction()}
	if err := s.Validate(); err != nil {
		return pipeline.Settings{}, err
	}
	return s, nil
}

// Marshal encodes f in the given format.
func (f *File) Marshal(format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(f, "", "  ")
	case FormatYAML:
		return yaml.Marshal(f)
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(f); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// Save writes f to path in the format its extension names.
func (f *File) Save(path string) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := f.Marshal(format)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
