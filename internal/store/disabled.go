package store

import "context"

// Disabled stands in for a backend that is missing its configuration. Reads
// return nothing and writes fail with a ConfigurationError, so callers get a
// typed failure instead of a nil backend.
type Disabled struct {
	id     string
	label  string
	reason string
}

// NewDisabled returns a Disabled backend. reason is shown to callers.
func NewDisabled(id, label, reason string) *Disabled {
	return &Disabled{id: id, label: label, reason: reason}
}

func (d *Disabled) ID() string                 { return d.id }
func (d *Disabled) Label() string              { return d.label + " (not configured)" }
func (d *Disabled) Capabilities() Capabilities { return Capabilities{} }

func (d *Disabled) List(context.Context, ListOptions) ([]Entry, error) {
	return []Entry{}, nil
}

func (d *Disabled) Exists(context.Context, string) (bool, error) {
	return false, nil
}

func (d *Disabled) Upload(context.Context, Object) (Result, error) {
	return Result{}, d.err("upload")
}

func (d *Disabled) Delete(context.Context, string) error {
	return d.err("delete")
}

func (d *Disabled) DeleteAll(context.Context) (int, error) {
	return 0, d.err("deleteAll")
}

func (d *Disabled) err(op string) error {
	return E(KindConfiguration, d.id+"."+op, d.reason)
}

// Reason explains why the backend is disabled.
func (d *Disabled) Reason() string {
	return d.reason
}
