package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConflictResolution is the decision applied to a manual conflict.
type ConflictResolution string

const (
	ResolutionLocal  ConflictResolution = "local"  // keep the local edit
	ResolutionRemote ConflictResolution = "remote" // keep the remote state
	ResolutionMerge  ConflictResolution = "merge"  // caller-supplied merged data
)

// Fields that always come from the remote snapshot when merging, so the
// merged record is re-submitted against the remote's version and cannot
// immediately re-conflict with itself.
var mergeRemoteFields = NewFieldSet("version", "updated_at", "updated_by")

// criticalFields lists, per entity kind, the fields whose conflicting values
// can never be silently auto-merged.
var criticalFields = map[EntityKind]FieldSet{
	KindTask:      NewFieldSet("title", "directory_id", "is_completed"),
	KindDirectory: NewFieldSet("name", "parent_id"),
}

// CriticalFields returns the critical field set for the given kind.
func CriticalFields(kind EntityKind) FieldSet {
	return criticalFields[kind]
}

// ConflictRecord captures a rejected conditional write. It is immutable once
// constructed and consumed exactly once, by either the auto-resolver or the
// manual resolution collaborator.
type ConflictRecord struct {
	ID         string     `json:"id"`
	EntityKind EntityKind `json:"entity_kind"`
	EntityID   int64      `json:"entity_id"`

	LocalVersion  int64 `json:"local_version"`
	RemoteVersion int64 `json:"remote_version"`

	LocalData  Record `json:"local_data"`
	RemoteData Record `json:"remote_data"`

	ConflictingFields FieldSet  `json:"conflicting_fields"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewConflictRecord builds a conflict record from a rejected write.
func NewConflictRecord(kind EntityKind, id int64, localVersion, remoteVersion int64, local, remote Record, conflicting FieldSet) *ConflictRecord {
	return &ConflictRecord{
		ID:                uuid.New().String(),
		EntityKind:        kind,
		EntityID:          id,
		LocalVersion:      localVersion,
		RemoteVersion:     remoteVersion,
		LocalData:         local,
		RemoteData:        remote,
		ConflictingFields: conflicting,
		CreatedAt:         time.Now(),
	}
}

// AutoMerge overlays the local fields onto the remote snapshot, except for
// version/updated_at/updated_by which always come from the remote.
func (c *ConflictRecord) AutoMerge() Record {
	merged := c.RemoteData.Clone()
	for name, v := range c.LocalData {
		if mergeRemoteFields.Has(name) {
			continue
		}
		merged[name] = v
	}
	return merged
}

// Resolution is a decision returned by the resolution collaborator.
type Resolution struct {
	Choice ConflictResolution `json:"choice"`
	// Data carries the merged record for ResolutionMerge; ignored otherwise.
	Data Record `json:"data,omitempty"`
}

// ChosenData returns the record to re-submit for the decision, always against
// the remote version.
func (c *ConflictRecord) ChosenData(res *Resolution) Record {
	switch res.Choice {
	case ResolutionLocal:
		return c.AutoMerge()
	case ResolutionRemote:
		return c.RemoteData.Clone()
	case ResolutionMerge:
		merged := c.RemoteData.Clone()
		for name, v := range res.Data {
			if mergeRemoteFields.Has(name) {
				continue
			}
			merged[name] = v
		}
		return merged
	}
	return c.RemoteData.Clone()
}
