package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfeflow/rfe-api/internal/models"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
)

var allRoles = []models.UserRole{
	models.RoleAdmin, models.RoleAttorney, models.RoleParalegal, models.RoleViewer,
}

func TestViewOpenToEveryRole(t *testing.T) {
	views := []Action{
		ActionViewCase, ActionViewDocument, ActionViewSection, ActionViewChecklist,
		ActionViewDraft, ActionViewExhibit, ActionViewKnowledge, ActionViewUser,
		ActionViewTenant, ActionViewDashboard,
	}
	for _, role := range allRoles {
		for _, action := range views {
			assert.True(t, Allowed(role, action), "%s should view via %s", role, action)
		}
	}
}

func TestEditGroupMatrix(t *testing.T) {
	edits := []Action{
		ActionCreateCase, ActionUpdateCase, ActionStartAnalysis, ActionCreateDocument,
		ActionUpdateSection, ActionReclassify, ActionUpdateChecklist, ActionToggleCollected,
		ActionUpdateDraft, ActionRegenerateDraft, ActionCreateExhibit, ActionUpdateExhibit,
		ActionCreateKnowledge, ActionUpdateKnowledge,
	}
	for _, action := range edits {
		assert.True(t, Allowed(models.RoleAdmin, action))
		assert.True(t, Allowed(models.RoleAttorney, action))
		assert.True(t, Allowed(models.RoleParalegal, action))
		assert.False(t, Allowed(models.RoleViewer, action), "viewer must not %s", action)
	}
}

func TestAttorneyGroupMatrix(t *testing.T) {
	actions := []Action{ActionAssignAttorney, ActionMarkReviewed, ActionExportCase, ActionApproveDraft}
	for _, action := range actions {
		assert.True(t, Allowed(models.RoleAdmin, action))
		assert.True(t, Allowed(models.RoleAttorney, action))
		assert.False(t, Allowed(models.RoleParalegal, action), "paralegal must not %s", action)
		assert.False(t, Allowed(models.RoleViewer, action))
	}
}

func TestAdminOnlyMatrix(t *testing.T) {
	actions := []Action{ActionDeleteCase, ActionDeleteKnowledge, ActionManageUsers, ActionUpdateTenant}
	for _, action := range actions {
		assert.True(t, Allowed(models.RoleAdmin, action))
		assert.False(t, Allowed(models.RoleAttorney, action))
		assert.False(t, Allowed(models.RoleParalegal, action))
		assert.False(t, Allowed(models.RoleViewer, action))
	}
}

func TestExhibitDeleteAsymmetry(t *testing.T) {
	// Paralegals may delete exhibits but never cases.
	assert.True(t, Allowed(models.RoleParalegal, ActionDeleteExhibit))
	assert.True(t, Allowed(models.RoleAttorney, ActionDeleteExhibit))
	assert.False(t, Allowed(models.RoleParalegal, ActionDeleteCase))
	assert.False(t, Allowed(models.RoleAttorney, ActionDeleteCase))
	assert.False(t, Allowed(models.RoleViewer, ActionDeleteExhibit))
}

func TestUnknownRoleAndActionDenied(t *testing.T) {
	assert.False(t, Allowed(models.UserRole("superuser"), ActionViewCase))
	assert.False(t, Allowed(models.RoleAdmin, Action("case.unknown")))
}

func TestAuthorizeReturnsForbidden(t *testing.T) {
	require.NoError(t, Authorize(models.RoleAdmin, ActionDeleteCase))

	err := Authorize(models.RoleViewer, ActionCreateCase)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}
