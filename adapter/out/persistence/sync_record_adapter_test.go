package persistence

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"sync_server/core/domain"
	"sync_server/core/service/common"
	"sync_server/pkg/snowflake"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func TestMain(m *testing.M) {
	if err := snowflake.Init(1); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newMockRepo(t *testing.T) (*RecordRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	repo := NewRecordRepository(sqlx.NewDb(db, "sqlmock")).(*RecordRepository)
	return repo, mock
}

func taskRows(id, version int64, title string, userID uuid.UUID) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(taskColumns).AddRow(
		id, userID.String(), nil, title, "notes",
		nil, nil, nil, 2, "{work,home}",
		0, false, nil,
		version, now, now, "device-a",
	)
}

func TestConditionalUpdate_Applied(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tasks SET title = $1, version = version + 1")).
		WithArgs("renamed", int64(1), int64(3)).
		WillReturnRows(taskRows(1, 4, "renamed", userID))

	rec, err := repo.ConditionalUpdate(context.Background(), domain.KindTask, 1,
		domain.Record{"title": "renamed"}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if rec["title"] != "renamed" || rec.Version() != 4 {
		t.Errorf("record = %q v%d, want renamed v4", rec["title"], rec.Version())
	}
	if got, ok := rec["tags"].([]string); !ok || len(got) != 2 {
		t.Errorf("tags = %v, want the scanned array", rec["tags"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestConditionalUpdate_VersionMoved(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tasks SET title = $1, version = version + 1")).
		WithArgs("stale", int64(1), int64(3)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1)")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := repo.ConditionalUpdate(context.Background(), domain.KindTask, 1,
		domain.Record{"title": "stale"}, 3)
	if !errors.Is(err, common.ErrVersionMismatch) {
		t.Errorf("err = %v, want ErrVersionMismatch when the row survived", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestConditionalUpdate_RowGone(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tasks SET title = $1, version = version + 1")).
		WithArgs("stale", int64(9), int64(3)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1)")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := repo.ConditionalUpdate(context.Background(), domain.KindTask, 9,
		domain.Record{"title": "stale"}, 3)
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound when the row is gone", err)
	}
}

func TestConditionalUpdate_FiltersNonWritableFields(t *testing.T) {
	repo, _ := newMockRepo(t)

	// id, user_id and version are never client-writable, so nothing remains.
	_, err := repo.ConditionalUpdate(context.Background(), domain.KindTask, 1,
		domain.Record{"id": int64(2), "version": int64(9)}, 3)
	if err == nil {
		t.Error("update with no writable fields must be rejected")
	}
}

func TestFetchByID_Missing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE id = $1")).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	rec, err := repo.FetchByID(context.Background(), domain.KindTask, 404)
	if err != nil || rec != nil {
		t.Errorf("missing fetch = %v, %v; want nil, nil", rec, err)
	}
}

func TestInsert_PreservesID(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tasks")).
		WillReturnRows(taskRows(42, 1, "restored", userID))

	rec, err := repo.Insert(context.Background(), domain.KindTask, domain.Record{
		"id": int64(42), "user_id": userID, "title": "restored", "version": int64(1),
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec["id"] != int64(42) {
		t.Errorf("id = %v, want the snapshot id 42", rec["id"])
	}
}

func TestInsert_GeneratesID(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tasks")).
		WillReturnRows(taskRows(7, 1, "fresh", userID))

	// No id in the record: the adapter assigns one before the insert.
	if _, err := repo.Insert(context.Background(), domain.KindTask, domain.Record{
		"user_id": userID, "title": "fresh", "version": int64(1),
	}); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteByID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM directories WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.DeleteByID(context.Background(), domain.KindDirectory, 3); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestArgValue(t *testing.T) {
	if got := argValue(float64(5)); got != int64(5) {
		t.Errorf("whole float = %v (%T), want int64 5", got, got)
	}
	if got := argValue(2.5); got != 2.5 {
		t.Errorf("fractional float = %v, want untouched", got)
	}
	if got := argValue([]interface{}{"a", "b"}); got == nil {
		t.Error("loosely-typed list must map to a pq array")
	}
}
