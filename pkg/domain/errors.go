package domain

import "fmt"

// DescriptorError reports a malformed or conflicting declaration. It is
// always produced before any network call and is fatal at resolution time.
type DescriptorError struct {
	Model  string
	Reason string
}

func (e *DescriptorError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("invalid descriptor: %s", e.Reason)
	}
	return fmt.Sprintf("invalid descriptor for model %q: %s", e.Model, e.Reason)
}

// IndexSyncError wraps a failed index create or drop. Partial progress from
// earlier operations in the same batch is retained, not rolled back; the
// next sync pass re-diffs and retries only the remainder.
type IndexSyncError struct {
	Collection string
	Index      string
	Op         string // "create" or "drop"
	Err        error
}

func (e *IndexSyncError) Error() string {
	return fmt.Sprintf("failed to %s index %q on collection %q: %v", e.Op, e.Index, e.Collection, e.Err)
}

func (e *IndexSyncError) Unwrap() error { return e.Err }

// MigrationApplyError wraps a failed bulk update. It halts processing of any
// remaining migrations in the model's registry.
type MigrationApplyError struct {
	Collection string
	Migration  string
	Err        error
}

func (e *MigrationApplyError) Error() string {
	return fmt.Sprintf("migration %q failed on collection %q: %v", e.Migration, e.Collection, e.Err)
}

func (e *MigrationApplyError) Unwrap() error { return e.Err }

// ConnectivityError marks a transport-level failure surfaced by an adapter.
// The engine never retries these; retrying is at the discretion of the host.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("connectivity failure during %s: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }
