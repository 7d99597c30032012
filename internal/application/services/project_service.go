package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/ports"
)

// maxKeyAttempts bounds the collision loop when deriving a project key.
const maxKeyAttempts = 1000

// ProjectService handles project-related operations
type ProjectService struct {
	projectRepo ports.ProjectRepository
	userRepo    ports.UserRepository
	activity    ports.ActivityRecorder
	templates   *entities.TemplateCatalog
	logger      *logger.Logger
	now         func() time.Time
}

// NewProjectService creates a new project service
func NewProjectService(projectRepo ports.ProjectRepository, userRepo ports.UserRepository, activity ports.ActivityRecorder, templates *entities.TemplateCatalog, logger *logger.Logger) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		userRepo:    userRepo,
		activity:    activity,
		templates:   templates,
		logger:      logger,
		now:         time.Now,
	}
}

// Templates lists the board templates offered at creation time
func (s *ProjectService) Templates() []entities.ProjectTemplate {
	return s.templates.All()
}

// CreateProject creates a new project owned by the user, who also becomes its
// first admin.
func (s *ProjectService) CreateProject(ctx context.Context, userID uuid.UUID, req ports.CreateProjectRequest) (*entities.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, entities.ErrProjectNameRequired
	}

	columns := entities.DefaultColumns()
	var labels []entities.Label
	if req.Template != "" {
		tpl, err := s.templates.Get(req.Template)
		if err != nil {
			return nil, err
		}
		columns, labels = tpl.Columns, tpl.Labels
	}

	now := s.now()
	project := &entities.Project{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		OwnerID:     userID,
		Members:     []entities.Member{{UserID: userID, Role: entities.MemberRoleAdmin, JoinedAt: now}},
		Columns:     columns,
		Labels:      labels,
		TaskCount:   0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.createWithUniqueKey(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Infow("Project created successfully", "project_id", project.ID, "key", project.Key)
	s.activity.Record(ctx, entities.ActivityLog{
		ProjectID: project.ID,
		UserID:    userID,
		Action:    entities.ActionProjectCreated,
		NewValue:  project.Name,
		Metadata:  map[string]interface{}{"key": project.Key, "template": req.Template},
	})
	return project, nil
}

// createWithUniqueKey tries base, base1, base2... until an insert succeeds.
// A concurrent insert that wins the same key shows up as ErrProjectKeyTaken
// and moves the loop on.
func (s *ProjectService) createWithUniqueKey(ctx context.Context, project *entities.Project) error {
	base := entities.BaseProjectKey(project.Name)
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key := entities.ProjectKeyCandidate(base, attempt)

		exists, err := s.projectRepo.KeyExists(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to check project key: %w", err)
		}
		if exists {
			continue
		}

		project.Key = key
		err = s.projectRepo.Create(ctx, project)
		if errors.Is(err, entities.ErrProjectKeyTaken) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		return nil
	}
	return fmt.Errorf("no free project key for base %s: %w", base, entities.ErrProjectKeyTaken)
}

// ListProjects returns the user's projects, newest first
func (s *ProjectService) ListProjects(ctx context.Context, userID uuid.UUID) ([]*entities.Project, error) {
	projects, err := s.projectRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// GetProject returns a project with owner and members populated
func (s *ProjectService) GetProject(ctx context.Context, userID, projectID uuid.UUID) (*ports.ProjectDetails, error) {
	project, err := memberProject(ctx, s.projectRepo, projectID, userID)
	if err != nil {
		return nil, err
	}

	members, err := s.memberViews(ctx, project)
	if err != nil {
		return nil, err
	}

	details := &ports.ProjectDetails{Project: project, Members: members}
	for i := range members {
		if members[i].ID == project.OwnerID {
			owner := members[i].UserSummary
			details.Owner = &owner
		}
	}
	return details, nil
}

// ListMembers returns the project's people with their roles
func (s *ProjectService) ListMembers(ctx context.Context, userID, projectID uuid.UUID) ([]ports.MemberView, error) {
	project, err := memberProject(ctx, s.projectRepo, projectID, userID)
	if err != nil {
		return nil, err
	}
	return s.memberViews(ctx, project)
}

func (s *ProjectService) memberViews(ctx context.Context, project *entities.Project) ([]ports.MemberView, error) {
	users, err := userSummaries(ctx, s.userRepo, project.MemberIDs())
	if err != nil {
		return nil, err
	}

	views := make([]ports.MemberView, 0, len(project.Members)+1)
	ownerListed := false
	for _, m := range project.Members {
		u, ok := users[m.UserID]
		if !ok {
			continue
		}
		if m.UserID == project.OwnerID {
			ownerListed = true
		}
		views = append(views, ports.MemberView{UserSummary: u, Role: m.Role, JoinedAt: m.JoinedAt})
	}
	if !ownerListed {
		if u, ok := users[project.OwnerID]; ok {
			views = append([]ports.MemberView{{UserSummary: u, Role: entities.MemberRoleAdmin, JoinedAt: project.CreatedAt}}, views...)
		}
	}
	return views, nil
}

// UpdateProject changes name, description and key
func (s *ProjectService) UpdateProject(ctx context.Context, userID, projectID uuid.UUID, req ports.UpdateProjectRequest) (*entities.Project, error) {
	project, err := adminProject(ctx, s.projectRepo, projectID, userID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, entities.ErrProjectNameRequired
	}

	key := strings.ToUpper(strings.TrimSpace(req.Key))
	if err := entities.ValidateProjectKey(key); err != nil {
		return nil, err
	}
	if key != project.Key {
		exists, err := s.projectRepo.KeyExists(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to check project key: %w", err)
		}
		if exists {
			return nil, entities.ErrProjectKeyTaken
		}
	}

	changed := map[string]interface{}{}
	if name != project.Name {
		changed["name"] = name
		project.Name = name
	}
	if desc := strings.TrimSpace(req.Description); desc != project.Description {
		changed["description"] = desc
		project.Description = desc
	}
	if key != project.Key {
		changed["key"] = key
		project.Key = key
	}
	if len(changed) == 0 {
		return project, nil
	}

	project.UpdatedAt = s.now()
	if err := s.projectRepo.Update(ctx, project); err != nil {
		if errors.Is(err, entities.ErrProjectKeyTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	s.activity.Record(ctx, entities.ActivityLog{
		ProjectID: project.ID,
		UserID:    userID,
		Action:    entities.ActionProjectUpdated,
		Metadata:  changed,
	})
	return project, nil
}

// UpdateColumns replaces the board columns. Tasks keep their status even when
// it no longer names a column.
func (s *ProjectService) UpdateColumns(ctx context.Context, userID, projectID uuid.UUID, req ports.UpdateColumnsRequest) (*entities.Project, error) {
	project, err := adminProject(ctx, s.projectRepo, projectID, userID)
	if err != nil {
		return nil, err
	}

	columns, err := entities.NormalizeColumns(req.Columns)
	if err != nil {
		return nil, err
	}
	project.Columns = columns
	project.UpdatedAt = s.now()

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update columns: %w", err)
	}

	s.activity.Record(ctx, entities.ActivityLog{
		ProjectID: project.ID,
		UserID:    userID,
		Action:    entities.ActionProjectUpdated,
		Field:     "columns",
		Metadata:  map[string]interface{}{"count": len(columns)},
	})
	return project, nil
}

// UpdateLabels replaces the label set
func (s *ProjectService) UpdateLabels(ctx context.Context, userID, projectID uuid.UUID, req ports.UpdateLabelsRequest) (*entities.Project, error) {
	project, err := adminProject(ctx, s.projectRepo, projectID, userID)
	if err != nil {
		return nil, err
	}

	if err := entities.ValidateLabels(req.Labels); err != nil {
		return nil, err
	}
	project.Labels = append([]entities.Label{}, req.Labels...)
	project.UpdatedAt = s.now()

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update labels: %w", err)
	}

	s.activity.Record(ctx, entities.ActivityLog{
		ProjectID: project.ID,
		UserID:    userID,
		Action:    entities.ActionProjectUpdated,
		Field:     "labels",
		Metadata:  map[string]interface{}{"count": len(req.Labels)},
	})
	return project, nil
}

// RemoveMember takes a user off the project. Removing someone who is not a
// member is a no-op.
func (s *ProjectService) RemoveMember(ctx context.Context, userID, projectID, memberID uuid.UUID) error {
	project, err := adminProject(ctx, s.projectRepo, projectID, userID)
	if err != nil {
		return err
	}
	if memberID == project.OwnerID {
		return entities.ErrOwnerRemoval
	}
	if !project.IsMember(memberID) {
		return nil
	}

	if err := s.projectRepo.RemoveMember(ctx, projectID, memberID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	s.logger.Infow("Project member removed", "project_id", projectID, "member_id", memberID, "by", userID)
	s.activity.Record(ctx, entities.ActivityLog{
		ProjectID: projectID,
		UserID:    userID,
		Action:    entities.ActionMemberRemoved,
		Metadata:  map[string]interface{}{"memberId": memberID.String()},
	})
	return nil
}

// DismissOnboarding hides the project's getting-started panel
func (s *ProjectService) DismissOnboarding(ctx context.Context, userID, projectID uuid.UUID) error {
	project, err := memberProject(ctx, s.projectRepo, projectID, userID)
	if err != nil {
		return err
	}
	if project.OnboardingDismissed {
		return nil
	}

	project.OnboardingDismissed = true
	project.UpdatedAt = s.now()
	if err := s.projectRepo.Update(ctx, project); err != nil {
		return fmt.Errorf("failed to dismiss onboarding: %w", err)
	}
	return nil
}

// DeleteProject removes the project and everything in it
func (s *ProjectService) DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error {
	if _, err := adminProject(ctx, s.projectRepo, projectID, userID); err != nil {
		return err
	}

	if err := s.projectRepo.Delete(ctx, projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.logger.LogUserAction(userID.String(), "project_deleted", map[string]interface{}{"project_id": projectID})
	return nil
}
