package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"sync_server/core/domain"
	"sync_server/core/port/out"
	"sync_server/core/service/common"
	"sync_server/pkg/logger"
	"sync_server/pkg/snowflake"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sony/gobreaker"
)

// RecordRepository implements out.Storage over Postgres. All writes go through
// the version column: the conditional update is a single UPDATE qualified on
// both id and version, so the compare-and-swap is atomic on the server.
type RecordRepository struct {
	db      *sqlx.DB
	breaker *gobreaker.CircuitBreaker
}

// NewRecordRepository creates a new RecordRepository.
func NewRecordRepository(db *sqlx.DB) out.Storage {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "record-store",
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("[RecordRepository] circuit breaker %s: %s -> %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			// CAS rejections and missing rows are normal outcomes, not
			// storage failures.
			return err == nil || err == errConflict || err == errMissing
		},
	})
	return &RecordRepository{db: db, breaker: breaker}
}

// Internal markers so the breaker can tell protocol outcomes from outages.
var (
	errConflict = fmt.Errorf("cas rejected")
	errMissing  = fmt.Errorf("row missing")
)

// ============================================================================
// Tables
// ============================================================================

var taskColumns = []string{
	"id", "user_id", "directory_id", "title", "description",
	"due_date", "due_datetime", "start_date", "priority", "tags",
	"sort_order", "is_completed", "completed_at",
	"version", "created_at", "updated_at", "updated_by",
}

var directoryColumns = []string{
	"id", "user_id", "name", "parent_id", "color", "icon",
	"sort_order", "version", "created_at", "updated_at", "updated_by",
}

// Columns a conditional update may touch. id, user_id, version and created_at
// are never client-writable.
var taskUpdatable = map[string]bool{
	"directory_id": true, "title": true, "description": true,
	"due_date": true, "due_datetime": true, "start_date": true,
	"priority": true, "tags": true, "sort_order": true,
	"is_completed": true, "completed_at": true,
	"updated_at": true, "updated_by": true,
}

var directoryUpdatable = map[string]bool{
	"name": true, "parent_id": true, "color": true, "icon": true,
	"sort_order": true, "updated_at": true, "updated_by": true,
}

func tableFor(kind domain.EntityKind) (table string, columns []string, updatable map[string]bool, err error) {
	switch kind {
	case domain.KindTask:
		return "tasks", taskColumns, taskUpdatable, nil
	case domain.KindDirectory:
		return "directories", directoryColumns, directoryUpdatable, nil
	}
	return "", nil, nil, fmt.Errorf("unknown entity kind %q", kind)
}

// ============================================================================
// out.Storage
// ============================================================================

func (r *RecordRepository) ConditionalUpdate(ctx context.Context, kind domain.EntityKind, id int64, fields domain.Record, expectedVersion int64) (domain.Record, error) {
	table, columns, updatable, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		if updatable[name] {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("conditional update %s %d: no writable fields", kind, id)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names)+1)
	args := make([]interface{}, 0, len(names)+2)
	argIdx := 1
	for _, name := range names {
		sets = append(sets, fmt.Sprintf("%s = $%d", name, argIdx))
		args = append(args, argValue(fields[name]))
		argIdx++
	}
	sets = append(sets, "version = version + 1")

	query := fmt.Sprintf(`
		UPDATE %s SET %s
		WHERE id = $%d AND version = $%d
		RETURNING %s`,
		table, strings.Join(sets, ", "), argIdx, argIdx+1,
		strings.Join(columns, ", "))
	args = append(args, id, expectedVersion)

	result, err := r.breaker.Execute(func() (interface{}, error) {
		rec, qErr := r.getRecord(ctx, kind, query, args...)
		if qErr == sql.ErrNoRows {
			// Rejected: either the version moved or the row is gone.
			var exists bool
			if exErr := r.db.GetContext(ctx, &exists,
				fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)", table), id); exErr != nil {
				return nil, fmt.Errorf("conditional update existence check: %w", exErr)
			}
			if exists {
				return nil, errConflict
			}
			return nil, errMissing
		}
		return rec, qErr
	})
	switch err {
	case nil:
		return result.(domain.Record), nil
	case errConflict:
		return nil, fmt.Errorf("conditional update %s %d at v%d: %w", kind, id, expectedVersion, common.ErrVersionMismatch)
	case errMissing:
		return nil, fmt.Errorf("conditional update %s %d: %w", kind, id, common.ErrNotFound)
	default:
		return nil, fmt.Errorf("conditional update %s %d: %w", kind, id, err)
	}
}

func (r *RecordRepository) FetchByID(ctx context.Context, kind domain.EntityKind, id int64) (domain.Record, error) {
	table, columns, _, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", strings.Join(columns, ", "), table)

	result, err := r.breaker.Execute(func() (interface{}, error) {
		rec, qErr := r.getRecord(ctx, kind, query, id)
		if qErr == sql.ErrNoRows {
			return nil, errMissing
		}
		return rec, qErr
	})
	if err == errMissing {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s %d: %w", kind, id, err)
	}
	return result.(domain.Record), nil
}

func (r *RecordRepository) Insert(ctx context.Context, kind domain.EntityKind, rec domain.Record) (domain.Record, error) {
	table, columns, _, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	stored := rec.Clone()
	if recID(stored["id"]) == 0 {
		stored["id"] = snowflake.ID()
	}

	placeholders := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, name := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = argValue(stored[name])
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s) VALUES (%s)
		RETURNING %s`,
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "),
		strings.Join(columns, ", "))

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.getRecord(ctx, kind, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", kind, err)
	}
	return result.(domain.Record), nil
}

func (r *RecordRepository) DeleteByID(ctx context.Context, kind domain.EntityKind, id int64) error {
	table, _, _, err := tableFor(kind)
	if err != nil {
		return err
	}

	_, err = r.breaker.Execute(func() (interface{}, error) {
		_, execErr := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
		return nil, execErr
	})
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", kind, id, err)
	}
	return nil
}

// getRecord runs a single-row query and maps it into a Record through the
// kind's row type.
func (r *RecordRepository) getRecord(ctx context.Context, kind domain.EntityKind, query string, args ...interface{}) (domain.Record, error) {
	if kind == domain.KindTask {
		var row taskRow
		if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
			return nil, err
		}
		return row.toRecord(), nil
	}
	var row directoryRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, err
	}
	return row.toRecord(), nil
}

// argValue normalizes loosely-typed record values (JSON round trips produce
// float64 numbers and []any lists) into driver-friendly arguments.
func argValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []string:
		return pq.Array(val)
	case []interface{}:
		strs := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				strs = append(strs, s)
			}
		}
		return pq.Array(strs)
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	case uuid.UUID:
		return val
	default:
		return v
	}
}

func recID(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

// ============================================================================
// Row Types
// ============================================================================

type taskRow struct {
	ID          int64          `db:"id"`
	UserID      uuid.UUID      `db:"user_id"`
	DirectoryID sql.NullInt64  `db:"directory_id"`
	Title       string         `db:"title"`
	Description sql.NullString `db:"description"`
	DueDate     sql.NullTime   `db:"due_date"`
	DueDatetime sql.NullTime   `db:"due_datetime"`
	StartDate   sql.NullTime   `db:"start_date"`
	Priority    int            `db:"priority"`
	Tags        pq.StringArray `db:"tags"`
	SortOrder   int            `db:"sort_order"`
	IsCompleted bool           `db:"is_completed"`
	CompletedAt sql.NullTime   `db:"completed_at"`
	Version     int64          `db:"version"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
	UpdatedBy   sql.NullString `db:"updated_by"`
}

func (r *taskRow) toRecord() domain.Record {
	rec := domain.Record{
		"id":           r.ID,
		"user_id":      r.UserID,
		"title":        r.Title,
		"description":  r.Description.String,
		"priority":     int64(r.Priority),
		"tags":         []string(r.Tags),
		"sort_order":   int64(r.SortOrder),
		"is_completed": r.IsCompleted,
		"version":      r.Version,
		"created_at":   r.CreatedAt,
		"updated_at":   r.UpdatedAt,
		"updated_by":   r.UpdatedBy.String,
	}
	if r.DirectoryID.Valid {
		rec["directory_id"] = &r.DirectoryID.Int64
	} else {
		rec["directory_id"] = nil
	}
	rec["due_date"] = nullTimePtr(r.DueDate)
	rec["due_datetime"] = nullTimePtr(r.DueDatetime)
	rec["start_date"] = nullTimePtr(r.StartDate)
	rec["completed_at"] = nullTimePtr(r.CompletedAt)
	return rec
}

type directoryRow struct {
	ID        int64          `db:"id"`
	UserID    uuid.UUID      `db:"user_id"`
	Name      string         `db:"name"`
	ParentID  sql.NullInt64  `db:"parent_id"`
	Color     sql.NullString `db:"color"`
	Icon      sql.NullString `db:"icon"`
	SortOrder int            `db:"sort_order"`
	Version   int64          `db:"version"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
	UpdatedBy sql.NullString `db:"updated_by"`
}

func (r *directoryRow) toRecord() domain.Record {
	rec := domain.Record{
		"id":         r.ID,
		"user_id":    r.UserID,
		"name":       r.Name,
		"sort_order": int64(r.SortOrder),
		"version":    r.Version,
		"created_at": r.CreatedAt,
		"updated_at": r.UpdatedAt,
		"updated_by": r.UpdatedBy.String,
	}
	if r.ParentID.Valid {
		rec["parent_id"] = &r.ParentID.Int64
	} else {
		rec["parent_id"] = nil
	}
	if r.Color.Valid {
		rec["color"] = &r.Color.String
	} else {
		rec["color"] = nil
	}
	if r.Icon.Valid {
		rec["icon"] = &r.Icon.String
	} else {
		rec["icon"] = nil
	}
	return rec
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
