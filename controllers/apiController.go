package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"civicgrid-be/apperr"
	"civicgrid-be/config"
	"civicgrid-be/models"
	"civicgrid-be/store"
)

// recentFeedLimit caps the recent-activity feed regardless of filters.
const recentFeedLimit = 15

// APIController serves the JSON feeds consumed by the map widget and the
// dashboards.
type APIController struct {
	Store store.IssueStore
	Log   log.Interface
	Cfg   *config.Config
}

func NewAPIController(s store.IssueStore, logger log.Interface, cfg *config.Config) *APIController {
	return &APIController{Store: s, Log: logger, Cfg: cfg}
}

// mapPoint is one heatmap tuple. Coordinates and intensity are emitted as
// numbers for direct consumption by the map widget.
type mapPoint struct {
	Latitude    float64            `json:"latitude"`
	Longitude   float64            `json:"longitude"`
	Intensity   float64            `json:"intensity"`
	IssueType   models.IssueType   `json:"issueType"`
	Description string             `json:"description"`
	Status      models.IssueStatus `json:"status"`
}

// IssueData is the heatmap/list feed. Filterable by status and type
// (repeated or comma-separated params, conjunctive), sortable by newest
// (default) or intensity. The result is capped by MAP_FEED_LIMIT.
func (ac *APIController) IssueData(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		respondError(c, ac.Log, err)
		return
	}

	order := store.OrderNewest
	if c.DefaultQuery("sort", "newest") == "intensity" {
		order = store.OrderIntensity
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	issues, err := ac.Store.FindFiltered(ctx, filter, order, ac.Cfg.MapFeedLimit)
	if err != nil {
		respondError(c, ac.Log, err)
		return
	}

	points := make([]mapPoint, 0, len(issues))
	for _, issue := range issues {
		points = append(points, mapPoint{
			Latitude:    issue.Latitude.InexactFloat64(),
			Longitude:   issue.Longitude.InexactFloat64(),
			Intensity:   issue.Intensity.InexactFloat64(),
			IssueType:   issue.IssueType,
			Description: issue.Description,
			Status:      issue.Status,
		})
	}

	c.JSON(http.StatusOK, gin.H{"issues": points})
}

// RecentIssues returns the 15 most recently reported issues with a resolved
// detail-page URL each.
func (ac *APIController) RecentIssues(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	issues, err := ac.Store.FindRecent(ctx, recentFeedLimit)
	if err != nil {
		respondError(c, ac.Log, err)
		return
	}

	type recentEntry struct {
		ID          string             `json:"id"`
		IssueType   models.IssueType   `json:"issueType"`
		Description string             `json:"description"`
		Status      models.IssueStatus `json:"status"`
		Latitude    float64            `json:"latitude"`
		Longitude   float64            `json:"longitude"`
		ReportedAt  time.Time          `json:"reportedAt"`
		URL         string             `json:"url"`
	}

	entries := make([]recentEntry, 0, len(issues))
	for _, issue := range issues {
		entries = append(entries, recentEntry{
			ID:          issue.ID,
			IssueType:   issue.IssueType,
			Description: issue.Description,
			Status:      issue.Status,
			Latitude:    issue.Latitude.InexactFloat64(),
			Longitude:   issue.Longitude.InexactFloat64(),
			ReportedAt:  issue.ReportedAt,
			URL:         detailURL(issue.ID),
		})
	}

	c.JSON(http.StatusOK, gin.H{"issues": entries})
}

// IssueDetail returns one issue with its image URLs.
func (ac *APIController) IssueDetail(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	issue, err := ac.Store.FindByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, ac.Log, err)
		return
	}

	images, err := ac.Store.FindImages(ctx, issue.ID)
	if err != nil {
		respondError(c, ac.Log, err)
		return
	}

	imageURLs := make([]string, 0, len(images))
	for _, img := range images {
		imageURLs = append(imageURLs, "/media/"+img.Path)
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          issue.ID,
		"issueType":   issue.IssueType,
		"subCategory": issue.SubCategory,
		"latitude":    issue.Latitude.InexactFloat64(),
		"longitude":   issue.Longitude.InexactFloat64(),
		"description": issue.Description,
		"intensity":   issue.Intensity.InexactFloat64(),
		"status":      issue.Status,
		"reportedAt":  issue.ReportedAt,
		"images":      imageURLs,
	})
}

// detailURL resolves the detail-page link for an issue, substituting a
// placeholder when the id cannot be resolved.
func detailURL(id string) string {
	if id == "" {
		return "#"
	}
	return fmt.Sprintf("/issue/%s/", id)
}

func parseFilter(c *gin.Context) (store.Filter, error) {
	var f store.Filter
	for _, raw := range splitParams(c.QueryArray("status")) {
		if !models.ValidIssueStatus(raw) {
			return store.Filter{}, apperr.Validationf("invalid status filter %q", raw)
		}
		f.Statuses = append(f.Statuses, models.IssueStatus(raw))
	}
	for _, raw := range splitParams(c.QueryArray("type")) {
		if !models.ValidIssueType(raw) {
			return store.Filter{}, apperr.Validationf("invalid type filter %q", raw)
		}
		f.Types = append(f.Types, models.IssueType(raw))
	}
	return f, nil
}

func splitParams(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
