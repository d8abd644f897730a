package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rfeflow/rfe-api/internal/models"
	"github.com/rfeflow/rfe-api/internal/policy"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.User, error)
	ExistsEmail(ctx context.Context, email, excludeID string) (bool, error)
	List(ctx context.Context, tenantID string, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}

// InviteMailer delivers invitation mail. The default implementation only logs;
// wiring a real provider is a deploy-time concern.
type InviteMailer interface {
	SendInvite(ctx context.Context, user *models.User) error
}

type logMailer struct {
	logger *zap.Logger
}

func (m *logMailer) SendInvite(_ context.Context, user *models.User) error {
	m.logger.Info("invitation mail queued",
		zap.String("user_id", user.ID),
		zap.String("email", user.Email))
	return nil
}

// NewLogMailer returns an InviteMailer that records invitations in the log.
func NewLogMailer(logger *zap.Logger) InviteMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logMailer{logger: logger}
}

// CreateUserRequest invites a new member into the firm.
type CreateUserRequest struct {
	Email     string          `json:"email" validate:"required,email"`
	FirstName string          `json:"first_name" validate:"required,max=100"`
	LastName  string          `json:"last_name" validate:"required,max=100"`
	Role      models.UserRole `json:"role" validate:"required"`
	BarNumber *string         `json:"bar_number" validate:"omitempty,max=32"`
}

// UpdateUserRequest edits a member; nil means unchanged.
type UpdateUserRequest struct {
	FirstName *string            `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string            `json:"last_name" validate:"omitempty,max=100"`
	Role      *models.UserRole   `json:"role"`
	Status    *models.UserStatus `json:"status"`
	BarNumber *string            `json:"bar_number" validate:"omitempty,max=32"`
}

// ListUsersRequest captures list filters from the query string.
type ListUsersRequest struct {
	Role     string `form:"role"`
	Status   string `form:"status"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// UserService manages firm membership. All writes are admin-only.
type UserService struct {
	repo      userRepository
	mailer    InviteMailer
	audit     *AuditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(repo userRepository, mailer InviteMailer, audit *AuditRecorder, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if mailer == nil {
		mailer = NewLogMailer(logger)
	}
	return &UserService{repo: repo, mailer: mailer, audit: audit, validator: validate, logger: logger}
}

// List returns the tenant's members.
func (s *UserService) List(ctx context.Context, claims *models.JWTClaims, req ListUsersRequest) ([]models.User, int, error) {
	filter := models.UserFilter{
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Role != "" {
		role := models.UserRole(req.Role)
		if !role.Valid() {
			return nil, 0, appErrors.WithDetails(appErrors.ErrValidation, "unknown role")
		}
		filter.Role = &role
	}
	if req.Status != "" {
		status := models.UserStatus(req.Status)
		if !status.Valid() {
			return nil, 0, appErrors.WithDetails(appErrors.ErrValidation, "unknown status")
		}
		filter.Status = &status
	}

	users, total, err := s.repo.List(ctx, claims.TenantID, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, total, nil
}

// Get returns one member of the tenant.
func (s *UserService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.User, error) {
	return s.loadUser(ctx, claims.TenantID, id)
}

// Create invites a new member. The account starts in invited status with an
// unusable password; activation happens through the invitation flow.
func (s *UserService) Create(ctx context.Context, claims *models.JWTClaims, req CreateUserRequest, meta RequestMeta) (*models.User, error) {
	if err := policy.Authorize(claims.Role, policy.ActionManageUsers); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if !req.Role.Valid() {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "unknown role")
	}

	taken, err := s.repo.ExistsEmail(ctx, req.Email, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if taken {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "email is already registered")
	}

	// The placeholder hash never matches a login attempt; the user sets a
	// real password when accepting the invitation.
	placeholder, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to initialize account")
	}

	user := &models.User{
		TenantID:     claims.TenantID,
		Email:        req.Email,
		PasswordHash: string(placeholder),
		JTI:          uuid.NewString(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
		Status:       models.UserInvited,
		BarNumber:    req.BarNumber,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	if err := s.mailer.SendInvite(ctx, user); err != nil {
		s.logger.Warn("invitation mail failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionCreate,
		models.EntityRef{Kind: models.EntityUser, ID: user.ID},
		map[string]string{"email": user.Email, "role": string(user.Role)}, meta)

	return user, nil
}

// Update edits a member's profile, role, or status.
func (s *UserService) Update(ctx context.Context, claims *models.JWTClaims, id string, req UpdateUserRequest, meta RequestMeta) (*models.User, error) {
	user, err := s.loadUser(ctx, claims.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(claims.Role, policy.ActionManageUsers); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "unknown role")
		}
		user.Role = *req.Role
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "unknown status")
		}
		user.Status = *req.Status
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.BarNumber != nil {
		user.BarNumber = req.BarNumber
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionUpdate,
		models.EntityRef{Kind: models.EntityUser, ID: user.ID}, nil, meta)

	return user, nil
}

// ResendInvitation re-sends the invitation mail for a member still in
// invited status.
func (s *UserService) ResendInvitation(ctx context.Context, claims *models.JWTClaims, id string, meta RequestMeta) error {
	user, err := s.loadUser(ctx, claims.TenantID, id)
	if err != nil {
		return err
	}
	if err := policy.Authorize(claims.Role, policy.ActionManageUsers); err != nil {
		return err
	}
	if user.Status != models.UserInvited {
		return appErrors.WithDetails(appErrors.ErrValidation, "user is not in invited status")
	}

	if err := s.mailer.SendInvite(ctx, user); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send invitation")
	}

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionResendInvite,
		models.EntityRef{Kind: models.EntityUser, ID: user.ID}, nil, meta)

	return nil
}

func (s *UserService) loadUser(ctx context.Context, tenantID, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}
