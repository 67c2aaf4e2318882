// Package manifest decodes job manifest documents into the structured
// Manifest the admission engine validates and the Job collaborator runs.
package manifest

import (
	"fmt"
	"time"
)

// Manifest is a validated job description. Admission reads only Label and
// Disabled; every other field is opaque to it and passed through to the
// job package unread.
type Manifest struct {
	Label    string `json:"Label" yaml:"Label"`
	Disabled bool   `json:"Disabled" yaml:"Disabled"`

	Program              []string          `json:"Program,omitempty" yaml:"Program,omitempty"`
	WorkingDirectory     string            `json:"WorkingDirectory,omitempty" yaml:"WorkingDirectory,omitempty"`
	EnvironmentVariables map[string]string `json:"EnvironmentVariables,omitempty" yaml:"EnvironmentVariables,omitempty"`
	StandardOutPath      string            `json:"StandardOutPath,omitempty" yaml:"StandardOutPath,omitempty"`
	StandardErrorPath    string            `json:"StandardErrorPath,omitempty" yaml:"StandardErrorPath,omitempty"`
	KeepAlive            bool              `json:"KeepAlive,omitempty" yaml:"KeepAlive,omitempty"`
	ExitTimeout          time.Duration     `json:"ExitTimeout,omitempty" yaml:"ExitTimeout,omitempty"`

	// Supervisor, when non-empty, names an already-running supervision
	// backend ("runit", "daemontools", "s6", "systemd") that this job
	// delegates to instead of being exec'd directly. ServiceDir is the
	// backend's service directory for that case.
	Supervisor string `json:"Supervisor,omitempty" yaml:"Supervisor,omitempty"`
	ServiceDir string `json:"ServiceDir,omitempty" yaml:"ServiceDir,omitempty"`

	// Path is the origin file this manifest was parsed from, set by Parse
	// rather than decoded from the document itself.
	Path string `json:"-" yaml:"-"`

	// Extra carries any keys the schema above does not name, preserved
	// opaquely for the Job collaborator.
	Extra map[string]any `json:"-" yaml:"-"`
}

// Document is the raw decoded form of a manifest, prior to schema
// validation. Keeping the raw map lets Validate compute Extra without a
// second decode pass.
type Document struct {
	raw  map[string]any
	Path string
}

var schemaKeys = map[string]bool{
	"Label": true, "Disabled": true, "Program": true, "WorkingDirectory": true,
	"EnvironmentVariables": true, "StandardOutPath": true, "StandardErrorPath": true,
	"KeepAlive": true, "ExitTimeout": true, "Supervisor": true, "ServiceDir": true,
}

// Validate enforces the admission schema: Label required non-empty,
// Disabled optional bool defaulting to false. Extra keys are preserved,
// never rejected.
func (d Document) Validate() (Manifest, error) {
	labelVal, ok := d.raw["Label"]
	if !ok {
		return Manifest{}, fmt.Errorf("manifest %s: missing required key Label", d.Path)
	}
	label, ok := labelVal.(string)
	if !ok || label == "" {
		return Manifest{}, fmt.Errorf("manifest %s: Label must be a non-empty string", d.Path)
	}

	m := Manifest{Label: label, Path: d.Path}

	if v, ok := d.raw["Disabled"]; ok {
		b, ok := v.(bool)
		if !ok {
			return Manifest{}, fmt.Errorf("manifest %s: Disabled must be a bool", d.Path)
		}
		m.Disabled = b
	}

	if v, ok := d.raw["Program"]; ok {
		items, ok := v.([]any)
		if !ok {
			return Manifest{}, fmt.Errorf("manifest %s: Program must be a list of strings", d.Path)
		}
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return Manifest{}, fmt.Errorf("manifest %s: Program entries must be strings", d.Path)
			}
			m.Program = append(m.Program, s)
		}
	}
	if v, ok := d.raw["WorkingDirectory"].(string); ok {
		m.WorkingDirectory = v
	}
	if v, ok := d.raw["StandardOutPath"].(string); ok {
		m.StandardOutPath = v
	}
	if v, ok := d.raw["StandardErrorPath"].(string); ok {
		m.StandardErrorPath = v
	}
	if v, ok := d.raw["KeepAlive"].(bool); ok {
		m.KeepAlive = v
	}
	if v, ok := d.raw["Supervisor"].(string); ok {
		m.Supervisor = v
	}
	if v, ok := d.raw["ServiceDir"].(string); ok {
		m.ServiceDir = v
	}
	if v, ok := d.raw["ExitTimeout"]; ok {
		switch t := v.(type) {
		case string:
			dur, err := time.ParseDuration(t)
			if err != nil {
				return Manifest{}, fmt.Errorf("manifest %s: invalid ExitTimeout: %w", d.Path, err)
			}
			m.ExitTimeout = dur
		case float64:
			m.ExitTimeout = time.Duration(t) * time.Second
		}
	}
	if v, ok := d.raw["EnvironmentVariables"]; ok {
		envMap, ok := v.(map[string]any)
		if !ok {
			return Manifest{}, fmt.Errorf("manifest %s: EnvironmentVariables must be a map", d.Path)
		}
		m.EnvironmentVariables = make(map[string]string, len(envMap))
		for k, val := range envMap {
			s, ok := val.(string)
			if !ok {
				return Manifest{}, fmt.Errorf("manifest %s: EnvironmentVariables values must be strings", d.Path)
			}
			m.EnvironmentVariables[k] = s
		}
	}

	extra := make(map[string]any)
	for k, v := range d.raw {
		if !schemaKeys[k] {
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		m.Extra = extra
	}

	return m, nil
}
