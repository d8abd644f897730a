package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rfeflow/rfe-api/internal/lifecycle"
	"github.com/rfeflow/rfe-api/internal/models"
	"github.com/rfeflow/rfe-api/internal/policy"
	"github.com/rfeflow/rfe-api/internal/repository"
	"github.com/rfeflow/rfe-api/pkg/crypto"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
)

type caseRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Case, error)
	ExistsCaseNumber(ctx context.Context, tenantID, caseNumber, excludeID string) (bool, error)
	List(ctx context.Context, tenantID string, filter models.CaseFilter) ([]models.Case, int, error)
	Create(ctx context.Context, c *models.Case) error
	Update(ctx context.Context, c *models.Case) error
	TransitionStatus(ctx context.Context, tenantID, id string, from, to models.CaseStatus, stamp repository.CaseTransitionStamp) (int64, error)
	AssignAttorney(ctx context.Context, tenantID, id, attorneyID string) error
	Delete(ctx context.Context, tenantID, id string) error
}

type caseUserRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.User, error)
}

// analysisDispatcher hands a case to the analysis pipeline. Dispatch must
// not block: the lifecycle transition has already committed when it runs.
type analysisDispatcher interface {
	DispatchCase(tenantID, caseID string)
}

// CreateCaseRequest is the payload for opening a new case.
type CreateCaseRequest struct {
	CaseNumber         string     `json:"case_number" validate:"required,max=64"`
	USCISReceiptNumber *string    `json:"uscis_receipt_number" validate:"omitempty,max=32"`
	VisaType           string     `json:"visa_type" validate:"required,max=32"`
	PetitionerName     string     `json:"petitioner_name" validate:"required,max=255"`
	BeneficiaryName    string     `json:"beneficiary_name" validate:"required,max=255"`
	RFEReceivedDate    *time.Time `json:"rfe_received_date"`
	RFEDeadline        *time.Time `json:"rfe_deadline"`
	Notes              *string    `json:"notes"`
}

// UpdateCaseRequest carries the mutable intake fields; nil means unchanged.
type UpdateCaseRequest struct {
	CaseNumber         *string    `json:"case_number" validate:"omitempty,max=64"`
	USCISReceiptNumber *string    `json:"uscis_receipt_number" validate:"omitempty,max=32"`
	VisaType           *string    `json:"visa_type" validate:"omitempty,max=32"`
	PetitionerName     *string    `json:"petitioner_name" validate:"omitempty,max=255"`
	BeneficiaryName    *string    `json:"beneficiary_name" validate:"omitempty,max=255"`
	RFEReceivedDate    *time.Time `json:"rfe_received_date"`
	RFEDeadline        *time.Time `json:"rfe_deadline"`
	Notes              *string    `json:"notes"`
}

// ListCasesRequest carries list filters from the query string.
type ListCasesRequest struct {
	Status          string `form:"status"`
	VisaType        string `form:"visa_type"`
	AssignedTo      string `form:"assigned_to"`
	Search          string `form:"search"`
	BeneficiaryName string `form:"beneficiary_name"`
	Page            int    `form:"page"`
	PageSize        int    `form:"page_size"`
}

// CaseService implements case CRUD and the lifecycle member operations.
type CaseService struct {
	repo       caseRepository
	users      caseUserRepository
	cipher     *crypto.FieldCipher
	audit      *AuditRecorder
	dispatcher analysisDispatcher
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewCaseService constructs a CaseService instance.
func NewCaseService(repo caseRepository, users caseUserRepository, cipher *crypto.FieldCipher, audit *AuditRecorder, dispatcher analysisDispatcher, validate *validator.Validate, logger *zap.Logger) *CaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CaseService{repo: repo, users: users, cipher: cipher, audit: audit, dispatcher: dispatcher, validator: validate, logger: logger}
}

// Create opens a new case in draft.
func (s *CaseService) Create(ctx context.Context, claims *models.JWTClaims, req CreateCaseRequest, meta RequestMeta) (*models.Case, error) {
	if err := policy.Authorize(claims.Role, policy.ActionCreateCase); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid case payload")
	}

	taken, err := s.repo.ExistsCaseNumber(ctx, claims.TenantID, req.CaseNumber, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check case number")
	}
	if taken {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "case_number is already in use")
	}

	enc, err := s.cipher.Encrypt(req.BeneficiaryName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to protect beneficiary name")
	}

	c := &models.Case{
		TenantID:            claims.TenantID,
		CreatedByID:         claims.UserID,
		CaseNumber:          req.CaseNumber,
		USCISReceiptNumber:  req.USCISReceiptNumber,
		VisaType:            req.VisaType,
		Status:              lifecycle.Initial,
		PetitionerName:      req.PetitionerName,
		BeneficiaryNameEnc:  enc,
		BeneficiaryNameBidx: s.cipher.BlindIndex(req.BeneficiaryName),
		RFEReceivedDate:     req.RFEReceivedDate,
		RFEDeadline:         req.RFEDeadline,
		Notes:               req.Notes,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create case")
	}
	c.BeneficiaryName = req.BeneficiaryName

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionCreate,
		models.EntityRef{Kind: models.EntityCase, ID: c.ID},
		map[string]string{"case_number": c.CaseNumber, "status": string(c.Status)}, meta)

	return c, nil
}

// Get returns one case with the beneficiary name decrypted.
func (s *CaseService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Case, error) {
	c, err := s.loadCase(ctx, claims.TenantID, id)
	if err != nil {
		return nil, err
	}
	s.decryptBeneficiary(c)
	return c, nil
}

// List returns cases matching the filter. A beneficiary_name filter matches
// via the blind index so the plaintext never reaches SQL.
func (s *CaseService) List(ctx context.Context, claims *models.JWTClaims, req ListCasesRequest) ([]models.Case, *models.Pagination, error) {
	filter := models.CaseFilter{
		VisaType:   req.VisaType,
		AssignedTo: req.AssignedTo,
		Search:     req.Search,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}
	if req.Status != "" {
		status := models.CaseStatus(req.Status)
		if !status.Valid() {
			return nil, nil, appErrors.WithDetails(appErrors.ErrValidation, "unknown status filter")
		}
		filter.Status = &status
	}
	if req.BeneficiaryName != "" {
		filter.BeneficiaryBidx = s.cipher.BlindIndex(req.BeneficiaryName)
	}

	cases, total, err := s.repo.List(ctx, claims.TenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cases")
	}
	for i := range cases {
		s.decryptBeneficiary(&cases[i])
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return cases, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Update edits intake fields. Status never changes here.
func (s *CaseService) Update(ctx context.Context, claims *models.JWTClaims, id string, req UpdateCaseRequest, meta RequestMeta) (*models.Case, error) {
	c, err := s.loadCase(ctx, claims.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(claims.Role, policy.ActionUpdateCase); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid case payload")
	}

	if req.CaseNumber != nil && *req.CaseNumber != c.CaseNumber {
		taken, err := s.repo.ExistsCaseNumber(ctx, claims.TenantID, *req.CaseNumber, c.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check case number")
		}
		if taken {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "case_number is already in use")
		}
		c.CaseNumber = *req.CaseNumber
	}
	if req.USCISReceiptNumber != nil {
		c.USCISReceiptNumber = req.USCISReceiptNumber
	}
	if req.VisaType != nil {
		c.VisaType = *req.VisaType
	}
	if req.PetitionerName != nil {
		c.PetitionerName = *req.PetitionerName
	}
	if req.BeneficiaryName != nil {
		enc, err := s.cipher.Encrypt(*req.BeneficiaryName)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to protect beneficiary name")
		}
		c.BeneficiaryNameEnc = enc
		c.BeneficiaryNameBidx = s.cipher.BlindIndex(*req.BeneficiaryName)
	}
	if req.RFEReceivedDate != nil {
		c.RFEReceivedDate = req.RFEReceivedDate
	}
	if req.RFEDeadline != nil {
		c.RFEDeadline = req.RFEDeadline
	}
	if req.Notes != nil {
		c.Notes = req.Notes
	}

	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update case")
	}
	s.decryptBeneficiary(c)

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionUpdate,
		models.EntityRef{Kind: models.EntityCase, ID: c.ID}, nil, meta)

	return c, nil
}

// Delete removes a case and its children. Admin only.
func (s *CaseService) Delete(ctx context.Context, claims *models.JWTClaims, id string, meta RequestMeta) error {
	if _, err := s.loadCase(ctx, claims.TenantID, id); err != nil {
		return err
	}
	if err := policy.Authorize(claims.Role, policy.ActionDeleteCase); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, claims.TenantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete case")
	}
	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionDelete,
		models.EntityRef{Kind: models.EntityCase, ID: id}, nil, meta)
	return nil
}

// StartAnalysis moves a draft case to analyzing and hands it to the analysis
// pipeline. The dispatch is fire-and-forget; the transition never waits.
func (s *CaseService) StartAnalysis(ctx context.Context, claims *models.JWTClaims, id string, meta RequestMeta) (*models.Case, error) {
	c, err := s.transition(ctx, claims, id, policy.ActionStartAnalysis, lifecycle.StartAnalysis, repository.CaseTransitionStamp{}, meta)
	if err != nil {
		return nil, err
	}
	if s.dispatcher != nil {
		s.dispatcher.DispatchCase(claims.TenantID, c.ID)
	}
	return c, nil
}

// CompleteAnalysis advances analyzing to review. The analysis collaborator
// calls this once sections and drafts are written; sections are not required
// to exist.
func (s *CaseService) CompleteAnalysis(ctx context.Context, claims *models.JWTClaims, id string, meta RequestMeta) (*models.Case, error) {
	return s.transition(ctx, claims, id, policy.ActionUpdateCase, lifecycle.CompleteAnalysis, repository.CaseTransitionStamp{}, meta)
}

// MarkReviewed completes the analysis review pass: the case advances to
// review and the attorney sign-off is stamped in the same statement.
func (s *CaseService) MarkReviewed(ctx context.Context, claims *models.JWTClaims, id string, meta RequestMeta) (*models.Case, error) {
	return s.transition(ctx, claims, id, policy.ActionMarkReviewed, lifecycle.CompleteAnalysis, repository.CaseTransitionStamp{AttorneyReviewed: true}, meta)
}

// MarkResponded records that the response packet was filed.
func (s *CaseService) MarkResponded(ctx context.Context, claims *models.JWTClaims, id string, meta RequestMeta) (*models.Case, error) {
	return s.transition(ctx, claims, id, policy.ActionUpdateCase, lifecycle.MarkResponded, repository.CaseTransitionStamp{Submitted: true}, meta)
}

// Archive retires a case from the active set.
func (s *CaseService) Archive(ctx context.Context, claims *models.JWTClaims, id string, meta RequestMeta) (*models.Case, error) {
	return s.transition(ctx, claims, id, policy.ActionUpdateCase, lifecycle.Archive, repository.CaseTransitionStamp{}, meta)
}

// Reopen returns an archived case to draft.
func (s *CaseService) Reopen(ctx context.Context, claims *models.JWTClaims, id string, meta RequestMeta) (*models.Case, error) {
	return s.transition(ctx, claims, id, policy.ActionUpdateCase, lifecycle.Reopen, repository.CaseTransitionStamp{}, meta)
}

// AssignAttorney sets the responsible attorney. The assignee must be an
// active attorney or admin inside the same tenant.
func (s *CaseService) AssignAttorney(ctx context.Context, claims *models.JWTClaims, id, attorneyID string, meta RequestMeta) (*models.Case, error) {
	c, err := s.loadCase(ctx, claims.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(claims.Role, policy.ActionAssignAttorney); err != nil {
		return nil, err
	}

	attorney, err := s.users.FindByID(ctx, claims.TenantID, attorneyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "attorney_id does not identify a user in this firm")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attorney")
	}
	if attorney.Status != models.UserActive || (attorney.Role != models.RoleAttorney && attorney.Role != models.RoleAdmin) {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "assignee must be an active attorney or admin")
	}

	if err := s.repo.AssignAttorney(ctx, claims.TenantID, c.ID, attorney.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign attorney")
	}
	c.AssignedAttorneyID = &attorney.ID
	s.decryptBeneficiary(c)

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionAssignAttorney,
		models.EntityRef{Kind: models.EntityCase, ID: c.ID},
		map[string]string{"attorney_id": attorney.ID}, meta)

	return c, nil
}

// transition loads the case, authorizes, consults the lifecycle table, and
// commits the move with the status=from guard. Zero rows affected means the
// row vanished or another writer got there first; the re-read decides which.
func (s *CaseService) transition(ctx context.Context, claims *models.JWTClaims, id string, action policy.Action, event lifecycle.Event, stamp repository.CaseTransitionStamp, meta RequestMeta) (*models.Case, error) {
	c, err := s.loadCase(ctx, claims.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(claims.Role, action); err != nil {
		return nil, err
	}

	next, err := lifecycle.Next(c.Status, event)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.TransitionStatus(ctx, claims.TenantID, c.ID, c.Status, next, stamp)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transition")
	}
	if rows == 0 {
		fresh, err := s.repo.FindByID(ctx, claims.TenantID, c.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload case")
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			"cannot "+string(event)+" a case in status "+string(fresh.Status))
	}

	s.logger.Info("case transitioned",
		zap.String("case_id", c.ID),
		zap.String("from", string(c.Status)),
		zap.String("to", string(next)),
		zap.String("event", string(event)))

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionStatusTransition,
		models.EntityRef{Kind: models.EntityCase, ID: c.ID},
		map[string]string{"from": string(c.Status), "to": string(next), "event": string(event)}, meta)

	updated, err := s.repo.FindByID(ctx, claims.TenantID, c.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload case")
	}
	s.decryptBeneficiary(updated)
	return updated, nil
}

func (s *CaseService) loadCase(ctx context.Context, tenantID, id string) (*models.Case, error) {
	c, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	return c, nil
}

func (s *CaseService) decryptBeneficiary(c *models.Case) {
	name, err := s.cipher.Decrypt(c.BeneficiaryNameEnc)
	if err != nil {
		s.logger.Warn("failed to decrypt beneficiary name", zap.String("case_id", c.ID), zap.Error(err))
		return
	}
	c.BeneficiaryName = name
}
