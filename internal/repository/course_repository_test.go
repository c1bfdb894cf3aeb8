package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newCourseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCourseRepositoryRecomputeCapacity(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("UPDATE courses SET max_students").
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"max_students"}).AddRow(45))

	capacity, err := repo.RecomputeCapacity(context.Background(), "course-1")
	require.NoError(t, err)
	require.Equal(t, 45, capacity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryRecomputeCapacityMissingCourse(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("UPDATE courses SET max_students").
		WithArgs("course-gone").
		WillReturnRows(sqlmock.NewRows([]string{"max_students"}))

	_, err := repo.RecomputeCapacity(context.Background(), "course-gone")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDeleteClearsEdgesAndGroups(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM prerequisites WHERE course_id = $1 OR required_course_id = $1")).
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_groups WHERE course_id = $1")).
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE id = $1")).
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "course-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
