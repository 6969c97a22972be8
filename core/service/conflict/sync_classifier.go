package conflict

import "sync_server/core/domain"

// IsAutoResolvable reports whether a conflict with the given differing fields
// may be merged without user input: true iff none of the fields is critical
// for the entity kind.
func IsAutoResolvable(fields domain.FieldSet, kind domain.EntityKind) bool {
	return !fields.Intersects(domain.CriticalFields(kind))
}
