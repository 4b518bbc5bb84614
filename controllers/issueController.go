package controllers

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"civicgrid-be/apperr"
	"civicgrid-be/config"
	"civicgrid-be/lifecycle"
	"civicgrid-be/middlewares"
	"civicgrid-be/models"
	"civicgrid-be/normalize"
	"civicgrid-be/store"
)

const storeTimeout = 10 * time.Second

// IssueController handles issue creation and owner-side mutation.
type IssueController struct {
	Store store.IssueStore
	Norm  *normalize.Normalizer
	Log   log.Interface
	Cfg   *config.Config
}

func NewIssueController(s store.IssueStore, n *normalize.Normalizer, logger log.Interface, cfg *config.Config) *IssueController {
	return &IssueController{Store: s, Norm: n, Log: logger, Cfg: cfg}
}

// ReportIssue handles the multipart report form: validates the fields,
// normalizes coordinates and intensity, stores up to 3 images and writes the
// issue atomically. A failed image write aborts the whole creation (strict
// policy): files written for this request are removed and nothing commits.
func (ic *IssueController) ReportIssue(c *gin.Context) {
	actor, ok := middlewares.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	issueType := c.PostForm("issue_type")
	if !models.ValidIssueType(issueType) {
		respondError(c, ic.Log, apperr.Validationf("invalid issue type %q", issueType))
		return
	}

	description := strings.TrimSpace(c.PostForm("description"))
	if description == "" {
		respondError(c, ic.Log, apperr.Validationf("description is required"))
		return
	}

	subCategory := strings.TrimSpace(c.PostForm("sub_category"))
	if models.IssueType(issueType) == models.Other && subCategory == "" {
		respondError(c, ic.Log, apperr.Validationf("sub_category is required for issue type %q", models.Other))
		return
	}

	lat, lon, err := ic.Norm.Coordinates(c.PostForm("latitude"), c.PostForm("longitude"))
	if err != nil {
		respondError(c, ic.Log, err)
		return
	}

	intensity, err := ic.Norm.Intensity(c.Request.Context(), description)
	if err != nil {
		respondError(c, ic.Log, err)
		return
	}

	images, savedPaths, err := ic.saveImages(c)
	if err != nil {
		respondError(c, ic.Log, err)
		return
	}

	issue := &models.Issue{
		ReporterID:  &actor.UserID,
		IssueType:   models.IssueType(issueType),
		SubCategory: subCategory,
		Latitude:    lat,
		Longitude:   lon,
		Description: description,
		Intensity:   intensity,
		Status:      models.StatusReported,
		ReportedAt:  time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	if err := ic.Store.Create(ctx, issue, images); err != nil {
		ic.removeFiles(savedPaths)
		respondError(c, ic.Log, err)
		return
	}

	ic.Log.WithField("issue", issue.ID).WithField("reporter", actor.UserID).
		Info("issue reported")
	c.Redirect(http.StatusSeeOther, "/profile")
}

// saveImages writes the uploaded files under MediaDir/issue_photos. At most
// MaxImagesPerIssue files are taken; the rest are ignored. On any write
// failure every file saved for this request is removed.
func (ic *IssueController) saveImages(c *gin.Context) ([]models.IssueImage, []string, error) {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil, nil, nil
	}
	files := form.File["issue_images"]
	if len(files) == 0 {
		return nil, nil, nil
	}
	if len(files) > models.MaxImagesPerIssue {
		files = files[:models.MaxImagesPerIssue]
	}

	dir := filepath.Join(ic.Cfg.MediaDir, "issue_photos")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}

	images := make([]models.IssueImage, 0, len(files))
	saved := make([]string, 0, len(files))
	for _, fh := range files {
		name := uuid.NewString() + filepath.Ext(fh.Filename)
		rel := path.Join("issue_photos", name)
		dst := filepath.Join(ic.Cfg.MediaDir, "issue_photos", name)
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			ic.removeFiles(saved)
			return nil, nil, err
		}
		saved = append(saved, dst)
		images = append(images, models.IssueImage{Path: rel})
	}
	return images, saved, nil
}

func (ic *IssueController) removeFiles(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			ic.Log.WithError(err).WithField("path", p).Warn("failed to remove stored image")
		}
	}
}

// UpdateIssueStatus is the owner-restricted transition endpoint. The lookup
// is scoped by ownership, so someone else's issue reads as not found.
func (ic *IssueController) UpdateIssueStatus(c *gin.Context) {
	actor, ok := middlewares.CurrentActor(c)
	if !ok {
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
	if !issue.OwnedBy(actor.UserID) {
		respondError(c, ic.Log, apperr.ErrNotFound)
		return
	}

	target := models.IssueStatus(requested)
	if err := lifecycle.Authorize(lifecycle.RoleOwner, target); err != nil {
		respondError(c, ic.Log, err)
		return
	}

	changed, err := ic.Store.UpdateStatus(ctx, issue.ID, target)
	if err != nil {
		respondError(c, ic.Log, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/profile?status_changed="+boolParam(changed))
}

// DeleteIssue removes the owner's issue together with its images.
func (ic *IssueController) DeleteIssue(c *gin.Context) {
	actor, ok := middlewares.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	issue, err := ic.Store.FindByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, ic.Log, err)
		return
	}
	if !issue.OwnedBy(actor.UserID) {
		respondError(c, ic.Log, apperr.ErrNotFound)
		return
	}
	if !lifecycle.CanDelete(lifecycle.RoleOwner) {
		respondError(c, ic.Log, apperr.ErrForbidden)
		return
	}

	images, err := ic.Store.Delete(ctx, issue.ID)
	if err != nil {
		respondError(c, ic.Log, err)
		return
	}
	for _, img := range images {
		full := filepath.Join(ic.Cfg.MediaDir, filepath.FromSlash(img.Path))
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			ic.Log.WithError(err).WithField("path", full).Warn("failed to remove image file")
		}
	}

	ic.Log.WithField("issue", issue.ID).WithField("reporter", actor.UserID).
		Info("issue deleted")
	c.Redirect(http.StatusSeeOther, "/profile?deleted=1")
}

func boolParam(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
