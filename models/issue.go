package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// IssueType enum
type IssueType string

const (
	Garbage      IssueType = "garbage"
	Pothole      IssueType = "pothole"
	Waterlogging IssueType = "waterlogging"
	StreetLight  IssueType = "street_light"
	Accident     IssueType = "accident"
	Crime        IssueType = "crime"
	Other        IssueType = "other"
)

// IssueTypes lists every valid category.
var IssueTypes = []IssueType{Garbage, Pothole, Waterlogging, StreetLight, Accident, Crime, Other}

// ValidIssueType reports whether s names a known category.
func ValidIssueType(s string) bool {
	for _, t := range IssueTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}

// IssueStatus enum
type IssueStatus string

const (
	StatusReported   IssueStatus = "Reported"
	StatusInProgress IssueStatus = "In Progress"
	StatusResolved   IssueStatus = "Resolved"
)

// ValidIssueStatus reports whether s names a known status.
func ValidIssueStatus(s string) bool {
	switch IssueStatus(s) {
	case StatusReported, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Issue represents a citizen-submitted problem report.
//
// ReporterID is nil when the reporting account has been removed; the issue
// itself is retained. Latitude and longitude are quantized to 6 fractional
// digits, intensity to 2, before an issue ever reaches the store.
type Issue struct {
	ID          string          `json:"id"`
	ReporterID  *string         `json:"reporterId,omitempty"`
	IssueType   IssueType       `json:"issueType"`
	SubCategory string          `json:"subCategory,omitempty"`
	Latitude    decimal.Decimal `json:"latitude"`
	Longitude   decimal.Decimal `json:"longitude"`
	Description string          `json:"description"`
	Intensity   decimal.Decimal `json:"intensity"`
	Status      IssueStatus     `json:"status"`
	ReportedAt  time.Time       `json:"reportedAt"`
}

// OwnedBy reports whether userID is the issue's reporter.
func (i *Issue) OwnedBy(userID string) bool {
	return i.ReporterID != nil && *i.ReporterID == userID
}

// MaxImagesPerIssue caps image attachments per issue. Enforced at write time,
// not by the store.
const MaxImagesPerIssue = 3

// IssueImage is a photo attached to an issue. Images are owned exclusively by
// their issue and are removed with it.
type IssueImage struct {
	ID      string `json:"id"`
	IssueID string `json:"issueId"`
	// Path is the stored file path relative to the media root.
	Path string `json:"path"`
}
