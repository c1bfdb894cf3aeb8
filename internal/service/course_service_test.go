package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/registration-api/internal/models"
)

type fakeCourseRepo struct {
	courses    map[string]models.Course
	byCode     map[string]string
	deleted    []string
	recomputed map[string]int
}

func (f *fakeCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	return nil, 0, nil
}

func (f *fakeCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := f.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCourseRepo) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	if id, ok := f.byCode[code]; ok {
		c := f.courses[id]
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = "course-new"
	}
	if f.courses == nil {
		f.courses = map[string]models.Course{}
	}
	if f.byCode == nil {
		f.byCode = map[string]string{}
	}
	f.courses[course.ID] = *course
	f.byCode[course.Code] = course.ID
	return nil
}

func (f *fakeCourseRepo) Update(ctx context.Context, course *models.Course) error {
	f.courses[course.ID] = *course
	return nil
}

func (f *fakeCourseRepo) Delete(ctx context.Context, id string) error {
	delete(f.courses, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCourseRepo) RecomputeCapacity(ctx context.Context, courseID string) (int, error) {
	if _, ok := f.courses[courseID]; !ok {
		return 0, sql.ErrNoRows
	}
	return f.recomputed[courseID], nil
}

func (f *fakeCourseRepo) Statistics(ctx context.Context) ([]models.CourseStatistics, error) {
	return []models.CourseStatistics{
		{CourseID: "course-1", MaxStudents: 30, EnrolledCount: 15},
		{CourseID: "course-empty", MaxStudents: 0, EnrolledCount: 0},
	}, nil
}

type fakeCoursePrereqs struct {
	edges   map[string]models.Prerequisite
	created *models.Prerequisite
}

func edgeKey(courseID, requiredID string) string { return courseID + "->" + requiredID }

func (f *fakeCoursePrereqs) ListByCourse(ctx context.Context, courseID string) ([]models.PrerequisiteDetail, error) {
	return nil, nil
}

func (f *fakeCoursePrereqs) FindByID(ctx context.Context, id string) (*models.Prerequisite, error) {
	for _, p := range f.edges {
		if p.ID == id {
			edge := p
			return &edge, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCoursePrereqs) EdgeExists(ctx context.Context, courseID, requiredCourseID string) (bool, error) {
	_, ok := f.edges[edgeKey(courseID, requiredCourseID)]
	return ok, nil
}

func (f *fakeCoursePrereqs) Create(ctx context.Context, prerequisite *models.Prerequisite) error {
	if f.edges == nil {
		f.edges = map[string]models.Prerequisite{}
	}
	prerequisite.ID = "prereq-new"
	f.edges[edgeKey(prerequisite.CourseID, prerequisite.RequiredCourseID)] = *prerequisite
	f.created = prerequisite
	return nil
}

func (f *fakeCoursePrereqs) Delete(ctx context.Context, id string) error {
	for key, p := range f.edges {
		if p.ID == id {
			delete(f.edges, key)
		}
	}
	return nil
}

type fakeCourseEnrollmentCounter struct {
	counts map[string]int
}

func (f *fakeCourseEnrollmentCounter) CountByCourse(ctx context.Context, courseID string) (int, error) {
	return f.counts[courseID], nil
}

type fakeCourseDepartments struct {
	departments map[string]models.Department
}

func (f *fakeCourseDepartments) FindByID(ctx context.Context, id string) (*models.Department, error) {
	if d, ok := f.departments[id]; ok {
		return &d, nil
	}
	return nil, sql.ErrNoRows
}

func newCourseFixture() (*CourseService, *fakeCourseRepo, *fakeCoursePrereqs, *fakeCourseEnrollmentCounter) {
	repo := &fakeCourseRepo{
		courses: map[string]models.Course{
			"course-1": {ID: "course-1", Code: "CS101", Name: "Intro", MaxStudents: 30},
			"course-2": {ID: "course-2", Code: "CS201", Name: "Data Structures", MaxStudents: 30},
		},
		byCode:     map[string]string{"CS101": "course-1", "CS201": "course-2"},
		recomputed: map[string]int{"course-1": 45},
	}
	prereqs := &fakeCoursePrereqs{edges: map[string]models.Prerequisite{}}
	counter := &fakeCourseEnrollmentCounter{counts: map[string]int{}}
	departments := &fakeCourseDepartments{departments: map[string]models.Department{
		"dept-1": {ID: "dept-1", Name: "Computer Science"},
	}}
	svc := NewCourseService(repo, prereqs, counter, departments, 30, nil, nil)
	return svc, repo, prereqs, counter
}

func TestCourseCreateUsesDefaultCapacity(t *testing.T) {
	svc, repo, _, _ := newCourseFixture()

	course, err := svc.Create(context.Background(), CreateCourseRequest{Code: "CS301", Name: "Algorithms"})
	require.NoError(t, err)
	assert.Equal(t, 30, course.MaxStudents)
	assert.Contains(t, repo.courses, course.ID)
}

func TestCourseCreateDuplicateCode(t *testing.T) {
	svc, _, _, _ := newCourseFixture()

	_, err := svc.Create(context.Background(), CreateCourseRequest{Code: "CS101", Name: "Another Intro"})
	require.Error(t, err)
}

func TestCourseDeleteGuardedByEnrollments(t *testing.T) {
	svc, repo, _, counter := newCourseFixture()
	counter.counts["course-1"] = 3

	err := svc.Delete(context.Background(), "course-1")
	require.Error(t, err)
	assert.Empty(t, repo.deleted)

	counter.counts["course-1"] = 0
	require.NoError(t, svc.Delete(context.Background(), "course-1"))
	assert.Equal(t, []string{"course-1"}, repo.deleted)
}

func TestCourseRecomputeCapacity(t *testing.T) {
	svc, _, _, _ := newCourseFixture()

	capacity, err := svc.RecomputeCapacity(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, 45, capacity)
}

func TestCourseStatisticsFillPercentage(t *testing.T) {
	svc, _, _, _ := newCourseFixture()

	stats, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.InDelta(t, 50.0, stats[0].FillPercentage, 0.001)
	assert.Zero(t, stats[1].FillPercentage)
}

func TestCourseAddPrerequisite(t *testing.T) {
	svc, _, prereqs, _ := newCourseFixture()

	prerequisite, err := svc.AddPrerequisite(context.Background(), "course-2", AddPrerequisiteRequest{RequiredCourseID: "course-1"})
	require.NoError(t, err)
	assert.Equal(t, "course-2", prerequisite.CourseID)
	assert.Equal(t, "course-1", prerequisite.RequiredCourseID)
	require.NotNil(t, prereqs.created)
}

func TestCourseAddPrerequisiteSelfLoop(t *testing.T) {
	svc, _, _, _ := newCourseFixture()

	_, err := svc.AddPrerequisite(context.Background(), "course-1", AddPrerequisiteRequest{RequiredCourseID: "course-1"})
	require.Error(t, err)
}

func TestCourseAddPrerequisiteMutualEdge(t *testing.T) {
	svc, _, prereqs, _ := newCourseFixture()
	prereqs.edges[edgeKey("course-1", "course-2")] = models.Prerequisite{ID: "prereq-1", CourseID: "course-1", RequiredCourseID: "course-2"}

	_, err := svc.AddPrerequisite(context.Background(), "course-2", AddPrerequisiteRequest{RequiredCourseID: "course-1"})
	require.Error(t, err)
}

func TestCourseAddPrerequisiteDuplicate(t *testing.T) {
	svc, _, prereqs, _ := newCourseFixture()
	prereqs.edges[edgeKey("course-2", "course-1")] = models.Prerequisite{ID: "prereq-1", CourseID: "course-2", RequiredCourseID: "course-1"}

	_, err := svc.AddPrerequisite(context.Background(), "course-2", AddPrerequisiteRequest{RequiredCourseID: "course-1"})
	require.Error(t, err)
}

func TestCourseRemovePrerequisiteWrongCourse(t *testing.T) {
	svc, _, prereqs, _ := newCourseFixture()
	prereqs.edges[edgeKey("course-2", "course-1")] = models.Prerequisite{ID: "prereq-1", CourseID: "course-2", RequiredCourseID: "course-1"}

	err := svc.RemovePrerequisite(context.Background(), "course-1", "prereq-1")
	require.Error(t, err)

	require.NoError(t, svc.RemovePrerequisite(context.Background(), "course-2", "prereq-1"))
}
