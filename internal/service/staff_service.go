package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pioneer-isp/helpdesk/internal/access"
	"github.com/pioneer-isp/helpdesk/internal/auth"
	"github.com/pioneer-isp/helpdesk/internal/domain"
	"github.com/pioneer-isp/helpdesk/internal/lifecycle"
	"github.com/pioneer-isp/helpdesk/internal/repository"
	apperrors "github.com/pioneer-isp/helpdesk/pkg/util/errorutil"
)

const systemActor = "system"

// StaffService manages staff accounts and derives group membership from them.
type StaffService struct {
	store      repository.Store
	bcryptCost int
	adminGroup string
	logger     *zap.Logger
}

// StaffDependencies bundles what the staff service needs.
type StaffDependencies struct {
	Store      repository.Store
	BcryptCost int
	AdminGroup string
	Logger     *zap.Logger
}

// StaffListFilters define listing parameters.
type StaffListFilters struct {
	Group  *string
	Active *bool
	Limit  int
	Offset int
}

// CreateStaffInput is the admin payload for a new account.
type CreateStaffInput struct {
	Username    string
	DisplayName string
	Group       string
	Password    string
}

// NewStaffService constructs the service.
func NewStaffService(deps StaffDependencies) *StaffService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaffService{
		store:      deps.Store,
		bcryptCost: deps.BcryptCost,
		adminGroup: deps.AdminGroup,
		logger:     logger,
	}
}

func requireAdmin(scope access.Scope) error {
	if !scope.IsAdmin() {
		return apperrors.NewPermissionDenied("admin group required", map[string]any{"actor": scope.Actor()})
	}
	return nil
}

func (s *StaffService) activeStaff(ctx context.Context) ([]domain.StaffMember, error) {
	active := true
	return s.store.Repositories().Staff.List(ctx, repository.StaffFilter{Active: &active, Limit: repository.NoLimit})
}

// Directory maps each group to its active members. A group is also a member of
// itself so tickets assigned to the team name stay visible to the team.
func (s *StaffService) Directory(ctx context.Context) (access.GroupDirectory, error) {
	staff, err := s.activeStaff(ctx)
	if err != nil {
		return nil, err
	}
	directory := access.GroupDirectory{}
	for _, member := range staff {
		if member.Group == "" {
			continue
		}
		if _, ok := directory[member.Group]; !ok {
			directory[member.Group] = []string{member.Group}
		}
		directory[member.Group] = append(directory[member.Group], member.Username)
	}
	return directory, nil
}

// Assignees returns every name a ticket may be assigned to: active usernames and group names.
func (s *StaffService) Assignees(ctx context.Context) (lifecycle.AssigneeSet, error) {
	staff, err := s.activeStaff(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(staff)*2)
	for _, member := range staff {
		names = append(names, member.Username, member.Group)
	}
	return lifecycle.NewAssigneeSet(names...), nil
}

// ScopeFor resolves the ticket visibility of a staff member.
func (s *StaffService) ScopeFor(ctx context.Context, staff domain.StaffMember) (access.Scope, error) {
	directory, err := s.Directory(ctx)
	if err != nil {
		return access.Scope{}, err
	}
	return access.NewScope(staff.Username, staff.Group, s.adminGroup, directory), nil
}

// ResolvePrincipal implements auth.PrincipalResolver.
func (s *StaffService) ResolvePrincipal(ctx context.Context, staffID string) (*auth.Principal, error) {
	staff, err := s.store.Repositories().Staff.GetByID(ctx, staffID)
	if err != nil {
		return nil, err
	}
	scope, err := s.ScopeFor(ctx, *staff)
	if err != nil {
		return nil, err
	}
	return &auth.Principal{Staff: *staff, Scope: scope}, nil
}

// Credentials implements CredentialStore.
func (s *StaffService) Credentials(ctx context.Context, username string) (*domain.StaffMember, error) {
	return s.store.Repositories().Staff.GetByUsername(ctx, strings.TrimSpace(username))
}

// Groups lists the distinct groups of active staff plus the admin group.
func (s *StaffService) Groups(ctx context.Context) ([]string, error) {
	directory, err := s.Directory(ctx)
	if err != nil {
		return nil, err
	}
	groups := make([]string, 0, len(directory)+1)
	for group := range directory {
		groups = append(groups, group)
	}
	if _, ok := directory[s.adminGroup]; !ok && s.adminGroup != "" {
		groups = append(groups, s.adminGroup)
	}
	sort.Strings(groups)
	return groups, nil
}

// ListStaff returns staff accounts for administrators.
func (s *StaffService) ListStaff(ctx context.Context, scope access.Scope, filters StaffListFilters) ([]domain.StaffMember, error) {
	if err := requireAdmin(scope); err != nil {
		return nil, err
	}
	return s.store.Repositories().Staff.List(ctx, repository.StaffFilter{
		Group:  filters.Group,
		Active: filters.Active,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
}

// CreateStaff registers a new active account with a bcrypt password hash.
func (s *StaffService) CreateStaff(ctx context.Context, scope access.Scope, input CreateStaffInput) (*domain.StaffMember, error) {
	if err := requireAdmin(scope); err != nil {
		return nil, err
	}
	return s.createStaff(ctx, scope.Actor(), input)
}

// BootstrapStaff creates an account without an acting administrator. It backs
// the admin CLI and first-run seeding.
func (s *StaffService) BootstrapStaff(ctx context.Context, input CreateStaffInput) (*domain.StaffMember, error) {
	return s.createStaff(ctx, systemActor, input)
}

func (s *StaffService) createStaff(ctx context.Context, actor string, input CreateStaffInput) (*domain.StaffMember, error) {
	username := strings.TrimSpace(input.Username)
	group := strings.TrimSpace(input.Group)
	if username == "" || group == "" {
		return nil, apperrors.NewValidationError("username and group are required", nil)
	}
	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		return nil, apperrors.NewValidationError("password too short", map[string]any{"min_length": auth.MinPasswordLength})
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = username
	}
	staff := &domain.StaffMember{
		Username:     username,
		DisplayName:  displayName,
		Group:        group,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.store.Repositories().Staff.Create(ctx, staff); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("username already exists", map[string]any{"username": username})
		}
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("staff created",
		zap.String("actor", actor),
		zap.String("username", staff.Username),
		zap.String("group", staff.Group))
	return staff, nil
}

// SetActive enables or disables an account. Disabled accounts cannot log in
// and drop out of the assignee list.
func (s *StaffService) SetActive(ctx context.Context, scope access.Scope, username string, active bool) (*domain.StaffMember, error) {
	if err := requireAdmin(scope); err != nil {
		return nil, err
	}
	var updated *domain.StaffMember
	err := s.store.RunInTx(ctx, func(repos repository.Repositories) error {
		staff, err := repos.Staff.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		if !active && strings.EqualFold(staff.Username, domain.ProtectedUsername) {
			return apperrors.NewPermissionDenied("the admin account cannot be disabled", map[string]any{"username": staff.Username})
		}
		staff.Active = active
		if err := repos.Staff.Update(ctx, staff); err != nil {
			return err
		}
		updated = staff
		return nil
	})
	if err != nil {
		return nil, notFoundAs(err, "staff member", map[string]any{"username": username})
	}
	s.logger.Info("staff active flag changed",
		zap.String("actor", scope.Actor()),
		zap.String("username", updated.Username),
		zap.Bool("active", active))
	return updated, nil
}

// DeleteStaff removes an account. The built-in admin account is protected.
func (s *StaffService) DeleteStaff(ctx context.Context, scope access.Scope, username string) error {
	if err := requireAdmin(scope); err != nil {
		return err
	}
	if strings.EqualFold(strings.TrimSpace(username), domain.ProtectedUsername) {
		return apperrors.NewPermissionDenied("the admin account cannot be deleted", map[string]any{"username": username})
	}
	err := s.store.RunInTx(ctx, func(repos repository.Repositories) error {
		staff, err := repos.Staff.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		return repos.Staff.Delete(ctx, staff.ID)
	})
	if err != nil {
		return notFoundAs(err, "staff member", map[string]any{"username": username})
	}
	s.logger.Info("staff deleted", zap.String("actor", scope.Actor()), zap.String("username", username))
	return nil
}

// notFoundAs turns a missing row into a NotFound naming resource; other errors pass through MapError.
func notFoundAs(err error, resource string, details map[string]any) error {
	if apperrors.IsNoRows(err) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.MapError(err)
}
