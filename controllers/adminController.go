package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"civicgrid-be/apperr"
	"civicgrid-be/lifecycle"
	"civicgrid-be/middlewares"
	"civicgrid-be/models"
)

// AdminUpdateIssueStatus is the staff transition endpoint: any issue, any of
// the three statuses. The staff gate itself is the route middleware.
func (ic *IssueController) AdminUpdateIssueStatus(c *gin.Context) {
	if _, ok := middlewares.CurrentActor(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	requested := c.PostForm("status")
	if !models.ValidIssueStatus(requested) {
		respondError(c, ic.Log, apperr.Validationf("invalid status %q", requested))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	issue, err := ic.Store.FindByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, ic.Log, err)
		return
	}

	target := models.IssueStatus(requested)
	if err := lifecycle.Authorize(lifecycle.RoleStaff, target); err != nil {
		respondError(c, ic.Log, err)
		return
	}

	changed, err := ic.Store.UpdateStatus(ctx, issue.ID, target)
	if err != nil {
		respondError(c, ic.Log, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/admin/issues?status_changed="+boolParam(changed))
}
