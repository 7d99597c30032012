package services

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/flowhq/flow/internal/adapters/memory"
	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/ports"
)

func TestMain(m *testing.M) {
	PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

const testPassword = "secret123"

type fakeMailer struct {
	mu   sync.Mutex
	sent []ports.InvitationEmail
	err  error
}

func (f *fakeMailer) SendInvitation(ctx context.Context, msg ports.InvitationEmail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) messages() []ports.InvitationEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.InvitationEmail(nil), f.sent...)
}

type testEnv struct {
	repos       *ports.Repositories
	mailer      *fakeMailer
	auth        *AuthService
	users       *UserService
	projects    *ProjectService
	tasks       *TaskService
	invitations *InvitationService
	activity    *ActivityService
	analytics   *AnalyticsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := logger.NewNop()
	repos := memory.NewRepositories()
	mailer := &fakeMailer{}
	activity := NewActivityService(repos.Activity, repos.Projects, repos.Tasks, repos.Users, log)

	return &testEnv{
		repos:       repos,
		mailer:      mailer,
		auth:        NewAuthService(repos.Users, log),
		users:       NewUserService(repos.Users, repos.Projects, repos.Invitations, log),
		projects:    NewProjectService(repos.Projects, repos.Users, activity, entities.DefaultTemplateCatalog(), log),
		tasks:       NewTaskService(repos.Tasks, repos.Projects, repos.Users, activity, log),
		invitations: NewInvitationService(repos.Invitations, repos.Projects, repos.Users, activity, mailer, "http://app.test/", 48*time.Hour, log),
		activity:    activity,
		analytics:   NewAnalyticsService(repos.Tasks, repos.Projects, repos.Activity, repos.Users, log),
	}
}

func (e *testEnv) signup(t *testing.T, name, email string) *entities.User {
	t.Helper()
	user, err := e.auth.Signup(context.Background(), ports.SignupRequest{Name: name, Email: email, Password: testPassword})
	require.NoError(t, err)
	return user
}

func (e *testEnv) project(t *testing.T, owner *entities.User, name string) *entities.Project {
	t.Helper()
	p, err := e.projects.CreateProject(context.Background(), owner.ID, ports.CreateProjectRequest{Name: name})
	require.NoError(t, err)
	return p
}

// join adds a user straight through the repository, skipping invitations.
func (e *testEnv) join(t *testing.T, projectID uuid.UUID, user *entities.User, role entities.MemberRole) {
	t.Helper()
	err := e.repos.Projects.AddMember(context.Background(), projectID, entities.Member{UserID: user.ID, Role: role, JoinedAt: time.Now()})
	require.NoError(t, err)
}

func (e *testEnv) task(t *testing.T, user *entities.User, projectID uuid.UUID, req ports.CreateTaskRequest) *ports.TaskView {
	t.Helper()
	v, err := e.tasks.CreateTask(context.Background(), user.ID, projectID, req)
	require.NoError(t, err)
	return v
}

func (e *testEnv) actions(t *testing.T, projectID uuid.UUID) []entities.ActivityAction {
	t.Helper()
	entries, err := e.repos.Activity.List(context.Background(), ports.ActivityFilter{ProjectIDs: []uuid.UUID{projectID}})
	require.NoError(t, err)
	out := make([]entities.ActivityAction, 0, len(entries))
	for _, a := range entries {
		out = append(out, a.Action)
	}
	return out
}

var errMailDown = errors.New("smtp unavailable")
