// Package config holds the server's resolved configuration surface — the
// d/dfmt/dscanner/editor/git option groups workspace/didChangeConfiguration
// and workspace/configuration round-trips carry — plus compiler-version
// gating and file-backed reload.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/saibing/served/internal/jsonx"
	"github.com/saibing/served/internal/logging"
	"github.com/saibing/served/protocol"
)

// Config is the resolved, defaulted configuration. Unlike
// protocol.InitializationOptions (all-pointer, "was this supplied at all")
// this holds concrete values: build it once with NewDefaultConfig, then
// fold in overrides with Apply/ApplyRaw.
type Config struct {
	DubPath            string
	DcdPath            string
	DmdPath            string
	EnableLinting      bool
	EnableFormatting   bool
	EnableAutoComplete bool
	CompletionNoDupes  bool

	DfmtBraceStyle string
	DfmtIndentSize int
	DfmtSoftMax    int

	DscannerIniPath string

	EditorRulerColumns []int
	EditorTabSize      int

	GitPath string

	// CompilerVersion is set by SetCompilerVersion once the resolved DMD
	// or LDC binary reports its version; nil until then.
	CompilerVersion *semver.Version
}

// NewDefaultConfig returns the configuration served starts with before any
// initializationOptions or didChangeConfiguration has arrived.
func NewDefaultConfig() Config {
	return Config{
		DubPath:            "dub",
		DcdPath:            "dcd-client",
		DmdPath:            "dmd",
		EnableLinting:      true,
		EnableFormatting:   true,
		EnableAutoComplete: true,
		DfmtBraceStyle:     "allman",
		DfmtIndentSize:     4,
		DfmtSoftMax:        120,
		EditorTabSize:      4,
		GitPath:            "git",
	}
}

// Apply sets the corresponding field in c for each non-nil field in o's
// option groups, leaving the rest of c untouched.
func (c Config) Apply(o *protocol.InitializationOptions) Config {
	if o == nil {
		return c
	}
	if d := o.D; d != nil {
		if d.DubPath != nil {
			c.DubPath = *d.DubPath
		}
		if d.DcdPath != nil {
			c.DcdPath = *d.DcdPath
		}
		if d.DmdPath != nil {
			c.DmdPath = *d.DmdPath
		}
		if d.EnableLinting != nil {
			c.EnableLinting = *d.EnableLinting
		}
		if d.EnableFormatting != nil {
			c.EnableFormatting = *d.EnableFormatting
		}
		if d.EnableAutoComplete != nil {
			c.EnableAutoComplete = *d.EnableAutoComplete
		}
		if d.CompletionNoDupes != nil {
			c.CompletionNoDupes = *d.CompletionNoDupes
		}
	}
	if d := o.Dfmt; d != nil {
		if d.BraceStyle != nil {
			c.DfmtBraceStyle = *d.BraceStyle
		}
		if d.IndentSize != nil {
			c.DfmtIndentSize = *d.IndentSize
		}
		if d.SoftMax != nil {
			c.DfmtSoftMax = *d.SoftMax
		}
	}
	if d := o.Dscanner; d != nil && d.IniPath != nil {
		c.DscannerIniPath = *d.IniPath
	}
	if e := o.Editor; e != nil {
		if e.RulerColumns != nil {
			c.EditorRulerColumns = e.RulerColumns
		}
		if e.TabSize != nil {
			c.EditorTabSize = *e.TabSize
		}
	}
	if g := o.Git; g != nil && g.Path != nil {
		c.GitPath = *g.Path
	}
	return c
}

// ApplyRaw decodes a raw workspace/didChangeConfiguration settings payload
// section by section. An unrecognized top-level section is ignored with a
// log line; a malformed section is skipped with a warning — neither aborts
// the rest of the update.
func (c Config) ApplyRaw(log *logging.Logger, raw json.RawMessage) Config {
	v, err := jsonx.Parse(raw)
	if err != nil {
		log.Warnf("config: malformed configuration payload: %v", err)
		return c
	}
	obj, err := v.AsObject()
	if err != nil {
		log.Warnf("config: configuration payload must be an object")
		return c
	}

	var opts protocol.InitializationOptions
	for _, key := range obj.Keys() {
		val, _ := obj.Get(key)
		if err := decodeSection(key, val.Raw(), &opts); err != nil {
			log.Warnf("config: skipping malformed %q section: %v", key, err)
		}
	}
	return c.Apply(&opts)
}

func decodeSection(key string, raw json.RawMessage, opts *protocol.InitializationOptions) error {
	switch key {
	case "d":
		var d protocol.DOptions
		if err := json.Unmarshal(raw, &d); err != nil {
			return err
		}
		opts.D = &d
	case "dfmt":
		var d protocol.DfmtOptions
		if err := json.Unmarshal(raw, &d); err != nil {
			return err
		}
		opts.Dfmt = &d
	case "dscanner":
		var d protocol.DscannerOptions
		if err := json.Unmarshal(raw, &d); err != nil {
			return err
		}
		opts.Dscanner = &d
	case "editor":
		var d protocol.EditorOptions
		if err := json.Unmarshal(raw, &d); err != nil {
			return err
		}
		opts.Editor = &d
	case "git":
		var d protocol.GitOptions
		if err := json.Unmarshal(raw, &d); err != nil {
			return err
		}
		opts.Git = &d
	default:
		return fmt.Errorf("unknown configuration section")
	}
	return nil
}

// SetCompilerVersion parses raw (as reported by `dmd --version`/`ldc2
// --version`) and records it for SupportsFeature gating.
func (c *Config) SetCompilerVersion(raw string) error {
	v, err := semver.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("config: parse compiler version %q: %w", raw, err)
	}
	c.CompilerVersion = v
	return nil
}

// SupportsFeature reports whether the resolved compiler version satisfies
// constraint (e.g. ">= 2.100.0"). False if no compiler version is known yet
// or constraint itself fails to parse.
func (c Config) SupportsFeature(constraint string) bool {
	if c.CompilerVersion == nil {
		return false
	}
	cons, err := semver.NewConstraint(constraint)
	if err != nil {
		return false
	}
	return cons.Check(c.CompilerVersion)
}
