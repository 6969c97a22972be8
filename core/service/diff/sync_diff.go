// Package diff computes the set of semantically differing fields between two
// record snapshots. It compares a fixed per-kind field list, not every
// storage column: bookkeeping fields (version, timestamps, updated_by) never
// participate.
package diff

import "sync_server/core/domain"

// semanticFields lists, per entity kind, the fields whose difference is a
// user-visible edit. List-valued fields (tags) compare order-sensitively.
var semanticFields = map[domain.EntityKind][]string{
	domain.KindTask: {
		"title",
		"description",
		"directory_id",
		"due_date",
		"due_datetime",
		"start_date",
		"priority",
		"tags",
		"sort_order",
		"is_completed",
	},
	domain.KindDirectory: {
		"name",
		"parent_id",
		"color",
		"icon",
		"sort_order",
	},
}

// Diff returns the names of the semantic fields on which local and remote
// disagree. Pure and total: unknown kinds yield an empty set.
func Diff(local, remote domain.Record, kind domain.EntityKind) domain.FieldSet {
	out := make(domain.FieldSet)
	for _, name := range semanticFields[kind] {
		if !domain.FieldsEqual(local[name], remote[name]) {
			out[name] = struct{}{}
		}
	}
	return out
}

// SemanticFields returns the compared field names for a kind.
func SemanticFields(kind domain.EntityKind) []string {
	fields := semanticFields[kind]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}
