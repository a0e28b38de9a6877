package observe

import "strings"

// OperationMeta identifies a cached operation (or a remote call) for telemetry.
type OperationMeta struct {
	Region string // Cache region the operation reads and writes (may be empty for remote calls)
	Name   string // Operation name (required)
	Kind   string // Span prefix; "cache.invoke" when empty
}

// ID returns the qualified identifier: <region>.<name> or just <name>.
func (m OperationMeta) ID() string {
	if m.Region != "" {
		return m.Region + "." + m.Name
	}
	return m.Name
}

// SpanName returns the deterministic span name for this operation.
// Format: <kind>.<region>.<name> or <kind>.<name>
func (m OperationMeta) SpanName() string {
	kind := m.Kind
	if kind == "" {
		kind = "cache.invoke"
	}
	return kind + "." + m.ID()
}

// Validate reports whether the metadata is usable.
func (m OperationMeta) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrMissingOperationName
	}
	return nil
}
