package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campushub/registration-api/internal/models"
)

func newCompletedRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCompletedCourseRepositoryMarkCompletedRemovesEnrollment(t *testing.T) {
	db, mock, cleanup := newCompletedRepoMock(t)
	defer cleanup()
	repo := NewCompletedCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO completed_courses").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE student_id = $1 AND course_id = $2")).
		WithArgs("stu-1", "course-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	removed, err := repo.MarkCompleted(context.Background(), &models.CompletedCourse{
		StudentID: "stu-1",
		CourseID:  "course-1",
	})
	require.NoError(t, err)
	require.True(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletedCourseRepositoryMarkCompletedNoActiveEnrollment(t *testing.T) {
	db, mock, cleanup := newCompletedRepoMock(t)
	defer cleanup()
	repo := NewCompletedCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO completed_courses").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE student_id = $1 AND course_id = $2")).
		WithArgs("stu-1", "course-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	removed, err := repo.MarkCompleted(context.Background(), &models.CompletedCourse{
		StudentID: "stu-1",
		CourseID:  "course-1",
	})
	require.NoError(t, err)
	require.False(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletedCourseRepositoryExists(t *testing.T) {
	db, mock, cleanup := newCompletedRepoMock(t)
	defer cleanup()
	repo := NewCompletedCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM completed_courses WHERE student_id = $1 AND course_id = $2 LIMIT 1")).
		WithArgs("stu-1", "course-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
