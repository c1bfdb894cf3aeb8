package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/registration-api/internal/models"
	"github.com/campushub/registration-api/internal/repository"
)

type fakeRegEnrollments struct {
	byStudentCourse map[string]models.Enrollment
	countByStudent  map[string]int
	admitErr        error
	admitted        *models.Enrollment
	removed         bool
}

func regKey(studentID, courseID string) string { return studentID + "/" + courseID }

func (f *fakeRegEnrollments) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	if e, ok := f.byStudentCourse[regKey(studentID, courseID)]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRegEnrollments) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return nil, nil
}

func (f *fakeRegEnrollments) CountByStudent(ctx context.Context, studentID string) (int, error) {
	return f.countByStudent[studentID], nil
}

func (f *fakeRegEnrollments) Admit(ctx context.Context, enrollment *models.Enrollment) error {
	if f.admitErr != nil {
		return f.admitErr
	}
	enrollment.ID = "enr-new"
	f.admitted = enrollment
	return nil
}

func (f *fakeRegEnrollments) DeleteByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	return f.removed, nil
}

type fakeRegCourses struct {
	courses map[string]models.Course
}

func (f *fakeRegCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := f.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type fakePrereqs struct {
	missing map[string][]string
}

func (f *fakePrereqs) MissingForStudent(ctx context.Context, courseID, studentID string) ([]string, error) {
	return f.missing[courseID], nil
}

type fakeCompletions struct {
	completed map[string]bool
	byID      map[string]models.CompletedCourse
	marked    *models.CompletedCourse
	deleted   []string
}

func (f *fakeCompletions) Exists(ctx context.Context, studentID, courseID string) (bool, error) {
	return f.completed[regKey(studentID, courseID)], nil
}

func (f *fakeCompletions) FindByID(ctx context.Context, id string) (*models.CompletedCourse, error) {
	completed, ok := f.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &completed, nil
}

func (f *fakeCompletions) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCompletions) ListByStudent(ctx context.Context, studentID string) ([]models.CompletedCourseDetail, error) {
	return nil, nil
}

func (f *fakeCompletions) MarkCompleted(ctx context.Context, completed *models.CompletedCourse) (bool, error) {
	completed.ID = "done-new"
	f.marked = completed
	return true, nil
}

type fakeRegSettings struct {
	open  bool
	limit int
}

func (f *fakeRegSettings) RegistrationOpen(ctx context.Context) (bool, error) { return f.open, nil }
func (f *fakeRegSettings) MaxCoursesLimit(ctx context.Context) (int, error)  { return f.limit, nil }

func newRegistrationFixture() (*RegistrationService, *fakeRegEnrollments, *fakeRegCourses, *fakePrereqs, *fakeCompletions, *fakeRegSettings) {
	enrollments := &fakeRegEnrollments{
		byStudentCourse: map[string]models.Enrollment{},
		countByStudent:  map[string]int{},
	}
	courses := &fakeRegCourses{courses: map[string]models.Course{
		"course-1": {ID: "course-1", Code: "CS101", Name: "Intro", MaxStudents: 30},
	}}
	prereqs := &fakePrereqs{missing: map[string][]string{}}
	completions := &fakeCompletions{completed: map[string]bool{}}
	settings := &fakeRegSettings{open: true, limit: 6}
	svc := NewRegistrationService(enrollments, courses, prereqs, completions, settings, nil, nil)
	return svc, enrollments, courses, prereqs, completions, settings
}

func TestRegistrationEnrollAdmitsUnpaid(t *testing.T) {
	svc, enrollments, _, _, _, _ := newRegistrationFixture()

	decision, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{CourseID: "course-1"})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, "enr-new", decision.EnrollmentID)
	require.NotNil(t, enrollments.admitted)
	assert.Equal(t, models.PaymentStatusUnpaid, enrollments.admitted.PaymentStatus)
}

func TestRegistrationEnrollUnknownCourse(t *testing.T) {
	svc, _, _, _, _, _ := newRegistrationFixture()

	_, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{CourseID: "course-gone"})
	require.Error(t, err)
}

func TestRegistrationEnrollClosed(t *testing.T) {
	svc, _, _, _, _, settings := newRegistrationFixture()
	settings.open = false

	decision, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{CourseID: "course-1"})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, models.DenialRegistrationClosed, decision.Reason)
}

func TestRegistrationEnrollDuplicate(t *testing.T) {
	svc, enrollments, _, _, _, _ := newRegistrationFixture()
	enrollments.byStudentCourse[regKey("stu-1", "course-1")] = models.Enrollment{ID: "enr-1"}

	decision, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{CourseID: "course-1"})
	require.NoError(t, err)
	assert.Equal(t, models.DenialAlreadyEnrolled, decision.Reason)
}

func TestRegistrationEnrollAlreadyCompleted(t *testing.T) {
	svc, _, _, _, completions, _ := newRegistrationFixture()
	completions.completed[regKey("stu-1", "course-1")] = true

	decision, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{CourseID: "course-1"})
	require.NoError(t, err)
	assert.Equal(t, models.DenialAlreadyCompleted, decision.Reason)
}

func TestRegistrationEnrollCourseLimit(t *testing.T) {
	svc, enrollments, _, _, _, settings := newRegistrationFixture()
	settings.limit = 6
	enrollments.countByStudent["stu-1"] = 6

	decision, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{CourseID: "course-1"})
	require.NoError(t, err)
	assert.Equal(t, models.DenialCourseLimitReached, decision.Reason)
	assert.Equal(t, 6, decision.CurrentCount)
	assert.Equal(t, 6, decision.Limit)
}

func TestRegistrationEnrollMissingPrerequisites(t *testing.T) {
	svc, _, _, prereqs, _, _ := newRegistrationFixture()
	prereqs.missing["course-1"] = []string{"course-intro"}

	decision, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{CourseID: "course-1"})
	require.NoError(t, err)
	assert.Equal(t, models.DenialPrerequisitesNotMet, decision.Reason)
	assert.Equal(t, []string{"course-intro"}, decision.MissingPrerequisites)
}

func TestRegistrationEnrollCapacityOutcomes(t *testing.T) {
	cases := []struct {
		name     string
		admitErr error
		reason   models.DenialReason
	}{
		{"course full", repository.ErrCourseFull, models.DenialCourseFull},
		{"group full", repository.ErrGroupFull, models.DenialGroupFull},
		{"group not found", repository.ErrGroupNotFound, models.DenialGroupNotFound},
		{"lost race to duplicate", repository.ErrAlreadyEnrolled, models.DenialAlreadyEnrolled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, enrollments, _, _, _, _ := newRegistrationFixture()
			enrollments.admitErr = tc.admitErr

			decision, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{CourseID: "course-1"})
			require.NoError(t, err)
			assert.False(t, decision.Allowed)
			assert.Equal(t, tc.reason, decision.Reason)
		})
	}
}

func TestRegistrationUnenroll(t *testing.T) {
	svc, enrollments, _, _, _, _ := newRegistrationFixture()
	enrollments.removed = true

	decision, err := svc.Unenroll(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestRegistrationUnenrollNotEnrolled(t *testing.T) {
	svc, _, _, _, _, _ := newRegistrationFixture()

	decision, err := svc.Unenroll(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)
	assert.Equal(t, models.DenialNotEnrolled, decision.Reason)
}

func TestRegistrationMarkCompleted(t *testing.T) {
	svc, _, _, _, completions, _ := newRegistrationFixture()

	completed, err := svc.MarkCompleted(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)
	assert.Equal(t, "done-new", completed.ID)
	require.NotNil(t, completions.marked)
}

func TestRegistrationMarkCompletedTwice(t *testing.T) {
	svc, _, _, _, completions, _ := newRegistrationFixture()
	completions.completed[regKey("stu-1", "course-1")] = true

	_, err := svc.MarkCompleted(context.Background(), "stu-1", "course-1")
	require.Error(t, err)
}

func TestRegistrationPrerequisitesSatisfied(t *testing.T) {
	svc, _, _, prereqs, _, _ := newRegistrationFixture()
	prereqs.missing["course-1"] = []string{"course-intro"}

	ok, missing, err := svc.PrerequisitesSatisfied(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"course-intro"}, missing)
}

func TestRegistrationEnrollmentCount(t *testing.T) {
	svc, enrollments, _, _, _, settings := newRegistrationFixture()
	enrollments.countByStudent["stu-1"] = 3
	settings.limit = 6

	count, limit, err := svc.EnrollmentCount(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 6, limit)
}

func TestRegistrationRemoveCompleted(t *testing.T) {
	svc, _, _, _, completions, _ := newRegistrationFixture()
	completions.byID = map[string]models.CompletedCourse{
		"done-1": {ID: "done-1", StudentID: "stu-1", CourseID: "course-1"},
	}

	require.NoError(t, svc.RemoveCompleted(context.Background(), "done-1"))
	assert.Equal(t, []string{"done-1"}, completions.deleted)
}

func TestRegistrationRemoveCompletedMissing(t *testing.T) {
	svc, _, _, _, completions, _ := newRegistrationFixture()
	completions.byID = map[string]models.CompletedCourse{}

	err := svc.RemoveCompleted(context.Background(), "nope")
	require.Error(t, err)
	assert.Empty(t, completions.deleted)
}
