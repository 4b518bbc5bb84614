// Package store is the persistence boundary. The lifecycle and handlers
// depend only on the IssueStore and UserStore interfaces; the Mongo
// implementation lives behind them.
package store

import (
	"context"

	"civicgrid-be/models"
)

// IssueStore persists issues and their attached images.
type IssueStore interface {
	// Create writes the issue and its images atomically: either all of it
	// becomes visible or none of it does. The issue's and images' IDs are
	// assigned by the store.
	Create(ctx context.Context, issue *models.Issue, images []models.IssueImage) error

	// FindByID returns apperr.ErrNotFound for unknown ids.
	FindByID(ctx context.Context, id string) (*models.Issue, error)

	// FindFiltered returns issues matching the conjunctive filter, ordered
	// per order. limit caps the result; 0 means unbounded.
	FindFiltered(ctx context.Context, filter Filter, order Order, limit int64) ([]models.Issue, error)

	// FindRecent returns the limit most recently reported issues.
	FindRecent(ctx context.Context, limit int64) ([]models.Issue, error)

	// UpdateStatus sets the issue's status and reports whether anything
	// actually changed. A no-op update succeeds with changed == false.
	UpdateStatus(ctx context.Context, id string, status models.IssueStatus) (changed bool, err error)

	// Delete removes the issue and cascades removal of its images,
	// atomically. It returns the removed images so the caller can clean up
	// stored files.
	Delete(ctx context.Context, id string) ([]models.IssueImage, error)

	// FindImages lists the images attached to an issue.
	FindImages(ctx context.Context, issueID string) ([]models.IssueImage, error)
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}
