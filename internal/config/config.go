// Package config defines the JSON batch configuration for the loader and
// its validation.
//
// Validation returns a flat list of issues rather than failing on the first
// problem, so an operator fixing a config sees everything wrong with it in
// one pass.
package config

import (
	"fmt"

	"tabload/internal/schema"
	"tabload/internal/storage"
	"tabload/internal/uploader"
)

// Batch is the top-level configuration document.
type Batch struct {
	// Job names the batch for logging and metrics tags.
	Job string `json:"job"`

	Storage Storage `json:"storage"`
	Files   []File  `json:"files"`
}

// Storage selects and configures the sink.
type Storage struct {
	// Kind is a registered backend name: postgres, sqlite, mssql.
	Kind string `json:"kind"`

	// DSN, when set, is passed to the driver verbatim and Params is ignored.
	DSN string `json:"dsn,omitempty"`

	Params Params `json:"params,omitempty"`
}

// Params are the individual connection fields, for configs that do not
// carry a full DSN.
type Params struct {
	Host     string `json:"host,omitempty"`
	Port     string `json:"port,omitempty"`
	Database string `json:"database,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// File is one input file in the batch.
type File struct {
	Path string `json:"path"`

	// Table overrides the destination table name derived from the file name.
	Table string `json:"table,omitempty"`

	Overrides []Override `json:"overrides,omitempty"`
}

// Override adjusts one column's plan before coercion.
type Override struct {
	// Column is the original header label the override applies to.
	Column string `json:"column"`

	Rename string `json:"rename,omitempty"`
	Type   string `json:"type,omitempty"`
	Layout string `json:"layout,omitempty"`

	// KeepOriginal keeps the header label as-is instead of normalizing it.
	KeepOriginal bool `json:"keep_original,omitempty"`
}

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding, addressed by a JSON-ish path.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

// Validate checks the batch and returns all findings. An empty result means
// the config is usable; warnings alone do not block a run.
func Validate(b Batch) []Issue {
	var issues []Issue

	add := func(sev Severity, path, format string, a ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	if b.Storage.Kind == "" {
		add(SeverityError, "storage.kind", "storage kind is required")
	}

	if b.Storage.DSN == "" {
		p := b.Storage.toParams()
		// sqlite only needs a database path.
		if b.Storage.Kind == "sqlite" {
			if p.Database == "" {
				add(SeverityError, "storage.params.database", "sqlite requires a database path")
			}
		} else if missing := p.Missing(); len(missing) > 0 {
			for _, name := range missing {
				add(SeverityError, "storage.params", "missing connection field: %s", name)
			}
		}
	} else if b.Storage.Params != (Params{}) {
		add(SeverityWarning, "storage.params", "params are ignored when dsn is set")
	}

	if len(b.Files) == 0 {
		add(SeverityError, "files", "at least one file is required")
	}

	for i, f := range b.Files {
		path := fmt.Sprintf("files[%d]", i)
		if f.Path == "" {
			add(SeverityError, path+".path", "path is required")
		}
		for j, ov := range f.Overrides {
			opath := fmt.Sprintf("%s.overrides[%d]", path, j)
			if ov.Column == "" {
				add(SeverityError, opath+".column", "column is required")
			}
			if ov.Type == "" {
				continue
			}
			tt, ok := schema.ParseTargetType(ov.Type)
			if !ok {
				add(SeverityError, opath+".type", "unknown type %q", ov.Type)
				continue
			}
			if ov.Layout != "" && !tt.Temporal() {
				add(SeverityWarning, opath+".layout", "layout is ignored for type %q", ov.Type)
			}
		}
	}

	return issues
}

// HasError reports whether any issue is severity error.
func HasError(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (s Storage) toParams() storage.Params {
	return storage.Params{
		Host:     s.Params.Host,
		Port:     s.Params.Port,
		Database: s.Params.Database,
		Username: s.Params.Username,
		Password: s.Params.Password,
	}
}

// StorageConfig converts the JSON storage section into the form the storage
// registry takes.
func (b Batch) StorageConfig() storage.Config {
	return storage.Config{
		Kind:   b.Storage.Kind,
		DSN:    b.Storage.DSN,
		Params: b.Storage.toParams(),
	}
}

// Jobs converts the file list into uploader jobs.
func (b Batch) Jobs() []uploader.Job {
	jobs := make([]uploader.Job, 0, len(b.Files))
	for _, f := range b.Files {
		overrides := make([]schema.Override, 0, len(f.Overrides))
		for _, ov := range f.Overrides {
			overrides = append(overrides, schema.Override{
				Column:       ov.Column,
				Rename:       ov.Rename,
				Type:         ov.Type,
				Layout:       ov.Layout,
				KeepOriginal: ov.KeepOriginal,
			})
		}
		if len(overrides) == 0 {
			overrides = nil
		}
		jobs = append(jobs, uploader.Job{
			Path:      f.Path,
			Table:     f.Table,
			Overrides: overrides,
		})
	}
	return jobs
}
