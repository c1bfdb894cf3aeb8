package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campushub/registration-api/internal/models"
)

type fakeStudentRepo struct {
	students map[string]models.Student
	numbers  map[string]bool
	deleted  []string
}

func (f *fakeStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	return nil, 0, nil
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := f.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := f.students[id]; ok {
		return &models.StudentDetail{Student: s}, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	for _, s := range f.students {
		if s.UserID != nil && *s.UserID == userID {
			student := s
			return &student, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) NumberExists(ctx context.Context, studentNumber, registrationNumber, excludeID string) (bool, error) {
	return f.numbers[studentNumber] || f.numbers[registrationNumber], nil
}

func (f *fakeStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if f.students == nil {
		f.students = map[string]models.Student{}
	}
	student.ID = "stu-new"
	f.students[student.ID] = *student
	return nil
}

func (f *fakeStudentRepo) Update(ctx context.Context, student *models.Student) error {
	f.students[student.ID] = *student
	return nil
}

func (f *fakeStudentRepo) DeleteCascade(ctx context.Context, studentID string, userID *string) error {
	delete(f.students, studentID)
	f.deleted = append(f.deleted, studentID)
	return nil
}

type fakeStudentUsers struct {
	users   map[string]models.User
	created *models.User
}

func (f *fakeStudentUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if u, ok := f.users[username]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentUsers) Create(ctx context.Context, user *models.User) error {
	if f.users == nil {
		f.users = map[string]models.User{}
	}
	user.ID = "user-new"
	f.users[user.Username] = *user
	f.created = user
	return nil
}

type fakeStudentDepartments struct {
	departments map[string]models.Department
}

func (f *fakeStudentDepartments) FindByID(ctx context.Context, id string) (*models.Department, error) {
	if d, ok := f.departments[id]; ok {
		return &d, nil
	}
	return nil, sql.ErrNoRows
}

type fakeStudentEnrollmentCounter struct {
	counts map[string]int
}

func (f *fakeStudentEnrollmentCounter) CountByStudent(ctx context.Context, studentID string) (int, error) {
	return f.counts[studentID], nil
}

func newStudentFixture() (*StudentService, *fakeStudentRepo, *fakeStudentUsers, *fakeStudentEnrollmentCounter) {
	userID := "user-1"
	repo := &fakeStudentRepo{
		students: map[string]models.Student{
			"stu-1": {ID: "stu-1", StudentNumber: "1001", RegistrationNumber: "REG-1001", FullName: "Sara Ahmed", UserID: &userID},
		},
		numbers: map[string]bool{"1001": true, "REG-1001": true},
	}
	users := &fakeStudentUsers{users: map[string]models.User{}}
	departments := &fakeStudentDepartments{departments: map[string]models.Department{
		"dept-1": {ID: "dept-1", Name: "Computer Science"},
	}}
	counter := &fakeStudentEnrollmentCounter{counts: map[string]int{}}
	return NewStudentService(repo, users, departments, counter, nil, nil), repo, users, counter
}

func TestStudentCreateProvisionsCredential(t *testing.T) {
	svc, repo, users, _ := newStudentFixture()

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		StudentNumber:      "1002",
		RegistrationNumber: "REG-1002",
		FullName:           "Omar Khaled",
	})
	require.NoError(t, err)
	assert.Contains(t, repo.students, student.ID)
	require.NotNil(t, users.created)
	assert.Equal(t, "REG-1002", users.created.Username)
	assert.Equal(t, models.RoleStudent, users.created.Role)
	require.NotNil(t, student.UserID)
	assert.Equal(t, users.created.ID, *student.UserID)
	// student number is the default initial password
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.created.PasswordHash), []byte("1002")))
}

func TestStudentCreateDuplicateNumber(t *testing.T) {
	svc, _, _, _ := newStudentFixture()

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		StudentNumber:      "1001",
		RegistrationNumber: "REG-9999",
		FullName:           "Duplicate",
	})
	require.Error(t, err)
}

func TestStudentCreateUnknownDepartment(t *testing.T) {
	svc, _, _, _ := newStudentFixture()
	deptID := "dept-gone"

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		StudentNumber:      "1003",
		RegistrationNumber: "REG-1003",
		FullName:           "No Department",
		DepartmentID:       &deptID,
	})
	require.Error(t, err)
}

func TestStudentDeleteGuardedByEnrollments(t *testing.T) {
	svc, repo, _, counter := newStudentFixture()
	counter.counts["stu-1"] = 2

	err := svc.Delete(context.Background(), "stu-1", false)
	require.Error(t, err)
	assert.Empty(t, repo.deleted)

	require.NoError(t, svc.Delete(context.Background(), "stu-1", true))
	assert.Equal(t, []string{"stu-1"}, repo.deleted)
}

func TestStudentFindByUser(t *testing.T) {
	svc, _, _, _ := newStudentFixture()

	student, err := svc.FindByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", student.ID)

	_, err = svc.FindByUser(context.Background(), "user-unknown")
	require.Error(t, err)
}
