package controllers

import (
	"net/http"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"civicgrid-be/apperr"
)

// respondError maps taxonomy errors to responses. Validation and ownership
// failures carry their message to the caller; anything unexpected is logged
// with context and surfaced as a generic message.
func respondError(c *gin.Context, logger log.Interface, err error) {
	status := apperr.HTTPStatus(err)
	switch status {
	case http.StatusBadRequest:
		c.JSON(status, gin.H{"success": false, "message": err.Error()})
	case http.StatusForbidden:
		c.JSON(status, gin.H{"success": false, "message": "You are not allowed to do that"})
	case http.StatusNotFound:
		c.JSON(status, gin.H{"success": false, "message": "Issue not found"})
	default:
		logger.WithError(err).Error("unexpected error")
		c.JSON(status, gin.H{"success": false, "message": "Something went wrong"})
	}
}
