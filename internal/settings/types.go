package settings

import (
	"fmt"
	"slices"
)

// Settings maps a setting key to a string, bool or []string value.
type Settings map[string]any

// Clone returns a copy of s that shares no slices with it.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		if list, ok := v.([]string); ok {
			v = slices.Clone(list)
		}
		out[k] = v
	}
	return out
}

// ErrorReporting is the runtime error reporting mask of a profile.
type ErrorReporting string

const (
	ErrorReportingNone ErrorReporting = "none"
	ErrorReportingAll  ErrorReporting = "all"
)

// Verbosity is the value written to system.logging error_level.
type Verbosity string

const (
	VerbosityHide    Verbosity = "hide"
	VerbosityVerbose Verbosity = "verbose"
)

// Profile selects error visibility and log verbosity for an environment.
type Profile int

const (
	ProfileDevelopment Profile = iota
	ProfileProduction
)

// String returns the profile name.
func (p Profile) String() string {
	switch p {
	case ProfileProduction:
		return "production"
	case ProfileDevelopment:
		return "development"
	default:
		return fmt.Sprintf("profile(%d)", int(p))
	}
}

// MarshalText encodes the profile by name for YAML and JSON output.
func (p Profile) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ErrorDisplay reports whether runtime errors should be shown to the client.
func (p Profile) ErrorDisplay() bool {
	return p != ProfileProduction
}

// ErrorReporting returns the error reporting mask for the profile.
func (p Profile) ErrorReporting() ErrorReporting {
	if p == ProfileProduction {
		return ErrorReportingNone
	}
	return ErrorReportingAll
}

// Verbosity returns the log verbosity for the profile.
func (p Profile) Verbosity() Verbosity {
	if p == ProfileProduction {
		return VerbosityHide
	}
	return VerbosityVerbose
}

// OverrideDirective tells the caller to load and merge the override file at Path.
type OverrideDirective struct {
	Path string
}

// Resolution is the outcome of a single Resolve call.
type Resolution struct {
	Settings Settings
	// Config holds configuration object overrides keyed by object name.
	Config  map[string]Settings
	Profile Profile
	// Sources lists service descriptor files in load order.
	Sources  []string
	Override *OverrideDirective
	// OverrideApplied is set once the override file has been merged by Apply.
	OverrideApplied bool
}

// Clone returns a deep copy of r.
func (r Resolution) Clone() Resolution {
	out := Resolution{
		Settings:        r.Settings.Clone(),
		Config:          make(map[string]Settings, len(r.Config)),
		Profile:         r.Profile,
		Sources:         slices.Clone(r.Sources),
		OverrideApplied: r.OverrideApplied,
	}
	for name, obj := range r.Config {
		out.Config[name] = obj.Clone()
	}
	if r.Override != nil {
		directive := *r.Override
		out.Override = &directive
	}
	return out
}

// Document is the serialisable form of a Resolution.
type Document struct {
	Settings       Settings            `yaml:"settings" json:"settings"`
	Config         map[string]Settings `yaml:"config" json:"config"`
	ContainerYAMLs []string            `yaml:"container_yamls" json:"container_yamls"`
	Logging        LoggingDocument     `yaml:"logging" json:"logging"`
	Override       *OverrideDocument   `yaml:"override,omitempty" json:"override,omitempty"`
}

// LoggingDocument describes the selected profile.
type LoggingDocument struct {
	Profile        Profile        `yaml:"profile" json:"profile"`
	ErrorDisplay   bool           `yaml:"error_display" json:"error_display"`
	ErrorReporting ErrorReporting `yaml:"error_reporting" json:"error_reporting"`
	ErrorLevel     Verbosity      `yaml:"error_level" json:"error_level"`
}

// OverrideDocument describes the override directive and whether it was applied.
type OverrideDocument struct {
	Path    string `yaml:"path" json:"path"`
	Applied bool   `yaml:"applied" json:"applied"`
}

// Document converts r into its serialisable form.
func (r Resolution) Document() Document {
	c := r.Clone()
	doc := Document{
		Settings:       c.Settings,
		Config:         c.Config,
		ContainerYAMLs: c.Sources,
		Logging: LoggingDocument{
			Profile:        c.Profile,
			ErrorDisplay:   c.Profile.ErrorDisplay(),
			ErrorReporting: c.Profile.ErrorReporting(),
			ErrorLevel:     c.Profile.Verbosity(),
		},
	}
	if c.Override != nil {
		doc.Override = &OverrideDocument{Path: c.Override.Path, Applied: c.OverrideApplied}
	}
	return doc
}
