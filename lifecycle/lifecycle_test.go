package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"civicgrid-be/apperr"
	"civicgrid-be/models"
)

func issueOwnedBy(userID string) *models.Issue {
	return &models.Issue{ID: "issue-1", ReporterID: &userID, Status: models.StatusResolved}
}

func TestRoleFor(t *testing.T) {
	owned := issueOwnedBy("user-1")
	orphan := &models.Issue{ID: "issue-2"} // reporter account removed

	tests := []struct {
		name  string
		actor Actor
		issue *models.Issue
		want  Role
	}{
		{"owner", Actor{UserID: "user-1"}, owned, RoleOwner},
		{"staff outranks ownership", Actor{UserID: "user-1", IsStaff: true}, owned, RoleStaff},
		{"staff on foreign issue", Actor{UserID: "user-9", IsStaff: true}, owned, RoleStaff},
		{"stranger", Actor{UserID: "user-2"}, owned, RoleNone},
		{"nobody owns an orphaned issue", Actor{UserID: "user-1"}, orphan, RoleNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoleFor(tt.actor, tt.issue))
		})
	}
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name    string
		role    Role
		target  models.IssueStatus
		wantErr bool
	}{
		{"owner may revert a resolved marking", RoleOwner, models.StatusReported, false},
		{"owner may flag in progress", RoleOwner, models.StatusInProgress, false},
		{"owner may not self-resolve", RoleOwner, models.StatusResolved, true},
		{"staff may resolve", RoleStaff, models.StatusResolved, false},
		{"staff may reopen", RoleStaff, models.StatusReported, false},
		{"staff may set in progress", RoleStaff, models.StatusInProgress, false},
		{"stranger may do nothing", RoleNone, models.StatusReported, true},
		{"stranger may not resolve", RoleNone, models.StatusResolved, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.role, tt.target)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrForbidden)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCanDelete(t *testing.T) {
	assert.True(t, CanDelete(RoleOwner))
	assert.False(t, CanDelete(RoleStaff), "no staff deletion path exists")
	assert.False(t, CanDelete(RoleNone))
}
