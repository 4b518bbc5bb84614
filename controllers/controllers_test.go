package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"github.com/gin-gonic/gin"
	"github.com/jknair0/beforeeach"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicgrid-be/apperr"
	"civicgrid-be/config"
	"civicgrid-be/middlewares"
	"civicgrid-be/models"
	"civicgrid-be/normalize"
	"civicgrid-be/store"
	authUtils "civicgrid-be/utils"
)

const testSecret = "test-secret"

// fakeStore is an in-memory IssueStore. The repository interface keeps the
// handlers oblivious to what sits behind it.
type fakeStore struct {
	mu         sync.Mutex
	seq        int
	issues     []models.Issue
	images     map[string][]models.IssueImage
	failCreate bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{images: map[string][]models.IssueImage{}}
}

func (f *fakeStore) Create(_ context.Context, issue *models.Issue, images []models.IssueImage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errors.New("store write failed")
	}
	f.seq++
	issue.ID = fmt.Sprintf("issue-%03d", f.seq)
	for i := range images {
		f.seq++
		images[i].ID = fmt.Sprintf("image-%03d", f.seq)
		images[i].IssueID = issue.ID
	}
	f.issues = append(f.issues, *issue)
	if len(images) > 0 {
		f.images[issue.ID] = append([]models.IssueImage{}, images...)
	}
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, id string) (*models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, issue := range f.issues {
		if issue.ID == id {
			found := issue
			return &found, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeStore) FindFiltered(_ context.Context, filter store.Filter, order store.Order, limit int64) ([]models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Issue
	for _, issue := range f.issues {
		if matchesFilter(issue, filter) {
			out = append(out, issue)
		}
	}
	if order == store.OrderIntensity {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Intensity.GreaterThan(out[j].Intensity) })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].ReportedAt.After(out[j].ReportedAt) })
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesFilter(issue models.Issue, filter store.Filter) bool {
	if len(filter.Statuses) > 0 {
		ok := false
		for _, s := range filter.Statuses {
			if issue.Status == s {
				ok = true
			}
		}
		if !ok {
			return false
		}
	}
	if len(filter.Types) > 0 {
		ok := false
		for _, t := range filter.Types {
			if issue.IssueType == t {
				ok = true
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func (f *fakeStore) FindRecent(ctx context.Context, limit int64) ([]models.Issue, error) {
	return f.FindFiltered(ctx, store.Filter{}, store.OrderNewest, limit)
}

func (f *fakeStore) UpdateStatus(_ context.Context, id string, status models.IssueStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.issues {
		if f.issues[i].ID == id {
			changed := f.issues[i].Status != status
			f.issues[i].Status = status
			return changed, nil
		}
	}
	return false, apperr.ErrNotFound
}

func (f *fakeStore) Delete(_ context.Context, id string) ([]models.IssueImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.issues {
		if f.issues[i].ID == id {
			f.issues = append(f.issues[:i], f.issues[i+1:]...)
			images := f.images[id]
			delete(f.images, id)
			return images, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeStore) FindImages(_ context.Context, issueID string) ([]models.IssueImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.IssueImage{}, f.images[issueID]...), nil
}

type fixedScorer struct{ compound float64 }

func (s fixedScorer) Compound(string) float64 { return s.compound }

var (
	fs       *fakeStore
	cfg      *config.Config
	router   *gin.Engine
	mediaDir string
)

func setUp() {
	var err error
	mediaDir, err = os.MkdirTemp("", "civicgrid-media")
	if err != nil {
		panic(err)
	}
	fs = newFakeStore()
	cfg = &config.Config{
		JWTSecret:        testSecret,
		Environment:      "test",
		MediaDir:         mediaDir,
		PublicMapAPI:     true,
		MapFeedLimit:     1000,
		SentimentTimeout: time.Second,
	}
	router = newTestRouter()
}

func tearDown() {
	os.RemoveAll(mediaDir)
}

var it = beforeeach.Create(setUp, tearDown)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := &log.Logger{Handler: discard.New(), Level: log.ErrorLevel}
	norm := normalize.New(fixedScorer{compound: -0.5}, time.Second)

	ic := NewIssueController(fs, norm, logger, cfg)
	ac := NewAPIController(fs, logger, cfg)
	auth := middlewares.AuthMiddleware(cfg.JWTSecret)

	r := gin.New()
	r.POST("/report", auth, ic.ReportIssue)
	r.POST("/profile/issue/:id/status/update", auth, ic.UpdateIssueStatus)
	r.POST("/profile/issue/:id/delete", auth, ic.DeleteIssue)
	r.POST("/admin/issues/:id/status/update", auth, middlewares.StaffOnly(), ic.AdminUpdateIssueStatus)
	r.GET("/api/issue-data", ac.IssueData)
	r.GET("/api/recent-issues", auth, ac.RecentIssues)
	r.GET("/api/issue-detail/:id", auth, ac.IssueDetail)
	return r
}

func token(t *testing.T, userID string, isStaff bool) string {
	t.Helper()
	tok, err := authUtils.GenerateToken(userID, isStaff, testSecret)
	require.NoError(t, err)
	return tok
}

func reportForm(t *testing.T, fields map[string]string, imageCount int) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for i := 0; i < imageCount; i++ {
		part, err := w.CreateFormFile("issue_images", fmt.Sprintf("photo%d.jpg", i))
		require.NoError(t, err)
		_, err = part.Write([]byte("jpeg-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func doReport(t *testing.T, tok string, fields map[string]string, imageCount int) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := reportForm(t, fields, imageCount)
	req := httptest.NewRequest(http.MethodPost, "/report", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doForm(t *testing.T, tok, path string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doGet(t *testing.T, tok, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedIssue(t *testing.T, reporter string, issueType models.IssueType, status models.IssueStatus, reportedAt time.Time, intensity string, imageCount int) string {
	t.Helper()
	issue := &models.Issue{
		IssueType:   issueType,
		Latitude:    decimal.RequireFromString("12.971600"),
		Longitude:   decimal.RequireFromString("77.594600"),
		Description: "seeded issue",
		Intensity:   decimal.RequireFromString(intensity),
		Status:      status,
		ReportedAt:  reportedAt,
	}
	if reporter != "" {
		issue.ReporterID = &reporter
	}
	images := make([]models.IssueImage, imageCount)
	for i := range images {
		images[i] = models.IssueImage{Path: fmt.Sprintf("issue_photos/seed%d.jpg", i)}
	}
	require.NoError(t, fs.Create(context.Background(), issue, images))
	return issue.ID
}

func validReportFields() map[string]string {
	return map[string]string{
		"issue_type":  "pothole",
		"description": "Huge pothole swallowing tires near the crossing.",
		"latitude":    "12.9716",
		"longitude":   "77.5946",
	}
}

func TestReportIssue(t *testing.T) {
	it(func() {
		w := doReport(t, token(t, "user-1", false), validReportFields(), 0)

		require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())

		require.Len(t, fs.issues, 1)
		issue := fs.issues[0]
		assert.Equal(t, models.Pothole, issue.IssueType)
		assert.Equal(t, models.StatusReported, issue.Status)
		require.NotNil(t, issue.ReporterID)
		assert.Equal(t, "user-1", *issue.ReporterID)
		assert.Equal(t, "12.971600", issue.Latitude.StringFixed(6))
		assert.Equal(t, "77.594600", issue.Longitude.StringFixed(6))
		// compound -0.5 maps to (1 - -0.5) / 2
		assert.Equal(t, "0.75", issue.Intensity.StringFixed(2))
		assert.False(t, issue.ReportedAt.IsZero())
	})
}

func TestReportIssuePersistsAtMostThreeImages(t *testing.T) {
	it(func() {
		w := doReport(t, token(t, "user-1", false), validReportFields(), 4)

		require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
		require.Len(t, fs.issues, 1)

		images := fs.images[fs.issues[0].ID]
		assert.Len(t, images, models.MaxImagesPerIssue)

		stored, err := os.ReadDir(filepath.Join(mediaDir, "issue_photos"))
		require.NoError(t, err)
		assert.Len(t, stored, models.MaxImagesPerIssue)
	})
}

func TestReportIssueMissingLatitude(t *testing.T) {
	it(func() {
		fields := validReportFields()
		delete(fields, "latitude")

		w := doReport(t, token(t, "user-1", false), fields, 2)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"success":false`)
		// Nothing persisted, no files left behind.
		assert.Empty(t, fs.issues)
		_, err := os.ReadDir(filepath.Join(mediaDir, "issue_photos"))
		assert.True(t, os.IsNotExist(err))
	})
}

func TestReportIssueValidation(t *testing.T) {
	it(func() {
		tok := token(t, "user-1", false)

		tests := []struct {
			name   string
			mutate func(map[string]string)
		}{
			{"unknown issue type", func(f map[string]string) { f["issue_type"] = "ufo_landing" }},
			{"empty description", func(f map[string]string) { f["description"] = "   " }},
			{"other requires sub_category", func(f map[string]string) { f["issue_type"] = "other" }},
			{"latitude out of range", func(f map[string]string) { f["latitude"] = "91" }},
			{"longitude not a number", func(f map[string]string) { f["longitude"] = "east" }},
		}

		for _, tt := range tests {
			fields := validReportFields()
			tt.mutate(fields)
			w := doReport(t, tok, fields, 0)
			assert.Equal(t, http.StatusBadRequest, w.Code, tt.name)
		}
		assert.Empty(t, fs.issues)
	})
}

func TestReportIssueOtherWithSubCategory(t *testing.T) {
	it(func() {
		fields := validReportFields()
		fields["issue_type"] = "other"
		fields["sub_category"] = "fallen tree"

		w := doReport(t, token(t, "user-1", false), fields, 0)

		require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
		require.Len(t, fs.issues, 1)
		assert.Equal(t, "fallen tree", fs.issues[0].SubCategory)
	})
}

func TestReportIssueStoreFailureCleansUpFiles(t *testing.T) {
	it(func() {
		fs.failCreate = true

		w := doReport(t, token(t, "user-1", false), validReportFields(), 2)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "Something went wrong")
		assert.Empty(t, fs.issues)

		stored, err := os.ReadDir(filepath.Join(mediaDir, "issue_photos"))
		require.NoError(t, err)
		assert.Empty(t, stored, "a failed creation must not leave files behind")
	})
}

func TestOwnerStatusTransitions(t *testing.T) {
	it(func() {
		id := seedIssue(t, "user-1", models.Pothole, models.StatusResolved, time.Now(), "0.75", 0)
		tok := token(t, "user-1", false)

		// Disputing a resolved marking by reverting it works.
		w := doForm(t, tok, "/profile/issue/"+id+"/status/update", url.Values{"status": {"Reported"}})
		require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
		assert.Contains(t, w.Header().Get("Location"), "status_changed=1")

		issue, err := fs.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusReported, issue.Status)

		// Self-marking resolved is forbidden.
		w = doForm(t, tok, "/profile/issue/"+id+"/status/update", url.Values{"status": {"Resolved"}})
		assert.Equal(t, http.StatusForbidden, w.Code)

		// A no-op request succeeds but is reported as unchanged.
		w = doForm(t, tok, "/profile/issue/"+id+"/status/update", url.Values{"status": {"Reported"}})
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Contains(t, w.Header().Get("Location"), "status_changed=0")
	})
}

func TestStatusUpdateRejectsUnknownStatus(t *testing.T) {
	it(func() {
		id := seedIssue(t, "user-1", models.Pothole, models.StatusReported, time.Now(), "0.75", 0)

		w := doForm(t, token(t, "user-1", false), "/profile/issue/"+id+"/status/update", url.Values{"status": {"Closed"}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestNonOwnerCannotMutate(t *testing.T) {
	it(func() {
		id := seedIssue(t, "user-1", models.Garbage, models.StatusReported, time.Now(), "0.75", 1)
		stranger := token(t, "user-2", false)

		w := doForm(t, stranger, "/profile/issue/"+id+"/status/update", url.Values{"status": {"In Progress"}})
		assert.Equal(t, http.StatusNotFound, w.Code, "ownership scoping hides foreign issues")

		w = doForm(t, stranger, "/profile/issue/"+id+"/delete", url.Values{})
		assert.Equal(t, http.StatusNotFound, w.Code)

		require.Len(t, fs.issues, 1)
		assert.Equal(t, models.StatusReported, fs.issues[0].Status)
	})
}

func TestOwnerDeleteCascadesImages(t *testing.T) {
	it(func() {
		id := seedIssue(t, "user-1", models.Waterlogging, models.StatusInProgress, time.Now(), "0.75", 2)

		w := doForm(t, token(t, "user-1", false), "/profile/issue/"+id+"/delete", url.Values{})
		require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())

		_, err := fs.FindByID(context.Background(), id)
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		images, err := fs.FindImages(context.Background(), id)
		require.NoError(t, err)
		assert.Empty(t, images, "deletion cascades to attached images")
	})
}

func TestAdminStatusUpdate(t *testing.T) {
	it(func() {
		id := seedIssue(t, "user-1", models.Crime, models.StatusReported, time.Now(), "0.75", 0)

		// Staff may resolve anyone's issue.
		w := doForm(t, token(t, "staff-1", true), "/admin/issues/"+id+"/status/update", url.Values{"status": {"Resolved"}})
		require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())

		issue, err := fs.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusResolved, issue.Status)

		// Non-staff cannot reach the admin path at all.
		w = doForm(t, token(t, "user-1", false), "/admin/issues/"+id+"/status/update", url.Values{"status": {"Reported"}})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestIssueDataFiltering(t *testing.T) {
	it(func() {
		base := time.Now()
		seedIssue(t, "user-1", models.Pothole, models.StatusReported, base.Add(-3*time.Hour), "0.75", 0)
		seedIssue(t, "user-1", models.Garbage, models.StatusReported, base.Add(-2*time.Hour), "0.25", 0)
		seedIssue(t, "user-2", models.Pothole, models.StatusResolved, base.Add(-1*time.Hour), "0.95", 0)

		type feed struct {
			Issues []struct {
				IssueType string  `json:"issueType"`
				Intensity float64 `json:"intensity"`
			} `json:"issues"`
		}

		// Type filter returns only matching issues.
		w := doGet(t, "", "/api/issue-data?type=pothole")
		require.Equal(t, http.StatusOK, w.Code)
		var filtered feed
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &filtered))
		require.Len(t, filtered.Issues, 2)
		for _, p := range filtered.Issues {
			assert.Equal(t, "pothole", p.IssueType)
		}

		// No filters returns everything, newest first.
		w = doGet(t, "", "/api/issue-data")
		require.Equal(t, http.StatusOK, w.Code)
		var all feed
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
		require.Len(t, all.Issues, 3)
		assert.Equal(t, 0.95, all.Issues[0].Intensity, "most recent first")

		// Intensity ordering.
		w = doGet(t, "", "/api/issue-data?sort=intensity")
		var byIntensity feed
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &byIntensity))
		require.Len(t, byIntensity.Issues, 3)
		assert.Equal(t, 0.95, byIntensity.Issues[0].Intensity)
		assert.Equal(t, 0.25, byIntensity.Issues[2].Intensity)

		// Conjunctive status + type filter.
		w = doGet(t, "", "/api/issue-data?type=pothole&status=Resolved")
		var both feed
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &both))
		assert.Len(t, both.Issues, 1)

		// Unknown filter values are validation failures.
		w = doGet(t, "", "/api/issue-data?type=volcano")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRecentIssuesCappedAtFifteen(t *testing.T) {
	it(func() {
		base := time.Now()
		for i := 0; i < 20; i++ {
			seedIssue(t, "user-1", models.Garbage, models.StatusReported, base.Add(time.Duration(i)*time.Minute), "0.50", 0)
		}

		w := doGet(t, token(t, "user-1", false), "/api/recent-issues")
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Issues []struct {
				ID  string `json:"id"`
				URL string `json:"url"`
			} `json:"issues"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Issues, 15)
		for _, entry := range resp.Issues {
			assert.Equal(t, "/issue/"+entry.ID+"/", entry.URL)
		}
	})
}

func TestIssueDetail(t *testing.T) {
	it(func() {
		id := seedIssue(t, "user-1", models.StreetLight, models.StatusReported, time.Now(), "0.60", 2)

		w := doGet(t, token(t, "user-1", false), "/api/issue-detail/"+id)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			ID        string   `json:"id"`
			IssueType string   `json:"issueType"`
			Intensity float64  `json:"intensity"`
			Images    []string `json:"images"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, id, resp.ID)
		assert.Equal(t, "street_light", resp.IssueType)
		assert.Equal(t, 0.6, resp.Intensity)
		require.Len(t, resp.Images, 2)
		for _, u := range resp.Images {
			assert.True(t, strings.HasPrefix(u, "/media/issue_photos/"), u)
		}

		w = doGet(t, token(t, "user-1", false), "/api/issue-detail/nonexistent")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUnauthenticatedAccess(t *testing.T) {
	it(func() {
		w := doReport(t, "bad.token.value", validReportFields(), 0)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		req := httptest.NewRequest(http.MethodGet, "/api/recent-issues", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
