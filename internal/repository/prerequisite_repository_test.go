package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newPrerequisiteRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPrerequisiteRepositoryMissingForStudent(t *testing.T) {
	db, mock, cleanup := newPrerequisiteRepoMock(t)
	defer cleanup()
	repo := NewPrerequisiteRepository(db)

	mock.ExpectQuery("SELECT p.required_course_id FROM prerequisites p").
		WithArgs("course-1", "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"required_course_id"}).AddRow("course-intro"))

	missing, err := repo.MissingForStudent(context.Background(), "course-1", "stu-1")
	require.NoError(t, err)
	require.Equal(t, []string{"course-intro"}, missing)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPrerequisiteRepositoryMissingForStudentSatisfied(t *testing.T) {
	db, mock, cleanup := newPrerequisiteRepoMock(t)
	defer cleanup()
	repo := NewPrerequisiteRepository(db)

	mock.ExpectQuery("SELECT p.required_course_id FROM prerequisites p").
		WithArgs("course-1", "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"required_course_id"}))

	missing, err := repo.MissingForStudent(context.Background(), "course-1", "stu-1")
	require.NoError(t, err)
	require.Empty(t, missing)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPrerequisiteRepositoryEdgeExists(t *testing.T) {
	db, mock, cleanup := newPrerequisiteRepoMock(t)
	defer cleanup()
	repo := NewPrerequisiteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM prerequisites WHERE course_id = $1 AND required_course_id = $2 LIMIT 1")).
		WithArgs("course-1", "course-2").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.EdgeExists(context.Background(), "course-1", "course-2")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
