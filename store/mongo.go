package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"civicgrid-be/apperr"
	"civicgrid-be/models"
)

// MongoStore implements IssueStore and UserStore on MongoDB.
//
// Coordinates and intensity are persisted as fixed-width decimal strings
// ("-12.345678", "0.50") so the quantized values survive storage verbatim.
// Multi-document writes run in transactions, which needs the server to be a
// replica set.
type MongoStore struct {
	client *mongo.Client
	issues *mongo.Collection
	images *mongo.Collection
	users  *mongo.Collection
	log    log.Interface
}

func NewMongoStore(client *mongo.Client, db *mongo.Database, logger log.Interface) *MongoStore {
	return &MongoStore{
		client: client,
		issues: db.Collection("issues"),
		images: db.Collection("issue_images"),
		users:  db.Collection("users"),
		log:    logger,
	}
}

type issueDoc struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"`
	ReporterID  *primitive.ObjectID `bson:"reporterId,omitempty"`
	IssueType   string              `bson:"issueType"`
	SubCategory string              `bson:"subCategory,omitempty"`
	Latitude    string              `bson:"latitude"`
	Longitude   string              `bson:"longitude"`
	Description string              `bson:"description"`
	Intensity   string              `bson:"intensity"`
	Status      string              `bson:"status"`
	ReportedAt  time.Time           `bson:"reportedAt"`
}

type imageDoc struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	IssueID primitive.ObjectID `bson:"issueId"`
	Path    string             `bson:"path"`
}

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	IsStaff   bool               `bson:"isStaff"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func issueToDoc(i *models.Issue) (issueDoc, error) {
	doc := issueDoc{
		IssueType:   string(i.IssueType),
		SubCategory: i.SubCategory,
		Latitude:    i.Latitude.StringFixed(6),
		Longitude:   i.Longitude.StringFixed(6),
		Description: i.Description,
		Intensity:   i.Intensity.StringFixed(2),
		Status:      string(i.Status),
		ReportedAt:  i.ReportedAt,
	}
	if i.ID != "" {
		id, err := primitive.ObjectIDFromHex(i.ID)
		if err != nil {
			return issueDoc{}, fmt.Errorf("invalid issue id %q: %w", i.ID, err)
		}
		doc.ID = id
	}
	if i.ReporterID != nil {
		rid, err := primitive.ObjectIDFromHex(*i.ReporterID)
		if err != nil {
			return issueDoc{}, fmt.Errorf("invalid reporter id %q: %w", *i.ReporterID, err)
		}
		doc.ReporterID = &rid
	}
	return doc, nil
}

func (s *MongoStore) issueFromDoc(doc issueDoc) models.Issue {
	issue := models.Issue{
		ID:          doc.ID.Hex(),
		IssueType:   models.IssueType(doc.IssueType),
		SubCategory: doc.SubCategory,
		Latitude:    s.parseDecimal(doc.ID, "latitude", doc.Latitude),
		Longitude:   s.parseDecimal(doc.ID, "longitude", doc.Longitude),
		Description: doc.Description,
		Intensity:   s.parseDecimal(doc.ID, "intensity", doc.Intensity),
		Status:      models.IssueStatus(doc.Status),
		ReportedAt:  doc.ReportedAt,
	}
	if doc.ReporterID != nil {
		rid := doc.ReporterID.Hex()
		issue.ReporterID = &rid
	}
	return issue
}

func (s *MongoStore) parseDecimal(id primitive.ObjectID, field, raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		s.log.WithField("issue", id.Hex()).WithField("field", field).
			Warnf("stored value %q is not a decimal, using 0", raw)
		return decimal.Zero
	}
	return v
}

func (s *MongoStore) Create(ctx context.Context, issue *models.Issue, images []models.IssueImage) error {
	issueID := primitive.NewObjectID()
	issue.ID = issueID.Hex()

	doc, err := issueToDoc(issue)
	if err != nil {
		return err
	}

	imageDocs := make([]interface{}, 0, len(images))
	for i := range images {
		imgID := primitive.NewObjectID()
		images[i].ID = imgID.Hex()
		images[i].IssueID = issue.ID
		imageDocs = append(imageDocs, imageDoc{ID: imgID, IssueID: issueID, Path: images[i].Path})
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := s.issues.InsertOne(sc, doc); err != nil {
			return nil, err
		}
		if len(imageDocs) > 0 {
			if _, err := s.images.InsertMany(sc, imageDocs); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to create issue: %w", err)
	}
	return nil
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*models.Issue, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.ErrNotFound
	}

	var doc issueDoc
	err = s.issues.FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find issue %s: %w", id, err)
	}
	issue := s.issueFromDoc(doc)
	return &issue, nil
}

func (s *MongoStore) FindFiltered(ctx context.Context, filter Filter, order Order, limit int64) ([]models.Issue, error) {
	opts := options.Find().SetSort(sortSpec(order))
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}

	cursor, err := s.issues.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer cursor.Close(ctx)

	return s.decodeIssues(ctx, cursor)
}

func (s *MongoStore) FindRecent(ctx context.Context, limit int64) ([]models.Issue, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "reportedAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.issues.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent issues: %w", err)
	}
	defer cursor.Close(ctx)

	return s.decodeIssues(ctx, cursor)
}

func (s *MongoStore) decodeIssues(ctx context.Context, cursor *mongo.Cursor) ([]models.Issue, error) {
	var docs []issueDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode issues: %w", err)
	}
	issues := make([]models.Issue, 0, len(docs))
	for _, doc := range docs {
		issues = append(issues, s.issueFromDoc(doc))
	}
	return issues, nil
}

func (s *MongoStore) UpdateStatus(ctx context.Context, id string, status models.IssueStatus) (bool, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, apperr.ErrNotFound
	}

	result, err := s.issues.UpdateOne(ctx,
		bson.M{"_id": objID},
		bson.M{"$set": bson.M{"status": string(status)}})
	if err != nil {
		return false, fmt.Errorf("failed to update status of issue %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return false, apperr.ErrNotFound
	}
	return result.ModifiedCount > 0, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) ([]models.IssueImage, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.ErrNotFound
	}

	images, err := s.FindImages(ctx, id)
	if err != nil {
		return nil, err
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		result, err := s.issues.DeleteOne(sc, bson.M{"_id": objID})
		if err != nil {
			return nil, err
		}
		if result.DeletedCount == 0 {
			return nil, apperr.ErrNotFound
		}
		if _, err := s.images.DeleteMany(sc, bson.M{"issueId": objID}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete issue %s: %w", id, err)
	}
	return images, nil
}

func (s *MongoStore) FindImages(ctx context.Context, issueID string) ([]models.IssueImage, error) {
	objID, err := primitive.ObjectIDFromHex(issueID)
	if err != nil {
		return nil, apperr.ErrNotFound
	}

	cursor, err := s.images.Find(ctx, bson.M{"issueId": objID})
	if err != nil {
		return nil, fmt.Errorf("failed to query images of issue %s: %w", issueID, err)
	}
	defer cursor.Close(ctx)

	var docs []imageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode images: %w", err)
	}
	images := make([]models.IssueImage, 0, len(docs))
	for _, doc := range docs {
		images = append(images, models.IssueImage{
			ID:      doc.ID.Hex(),
			IssueID: doc.IssueID.Hex(),
			Path:    doc.Path,
		})
	}
	return images, nil
}

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	id := primitive.NewObjectID()
	user.ID = id.Hex()

	_, err := s.users.InsertOne(ctx, userDoc{
		ID:        id,
		Name:      user.Name,
		Email:     user.Email,
		Password:  user.Password,
		IsStaff:   user.IsStaff,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	var doc userDoc
	err = s.users.FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user %s: %w", id, err)
	}
	return userFromDoc(doc), nil
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return userFromDoc(doc), nil
}

func (s *MongoStore) EmailExists(ctx context.Context, email string) (bool, error) {
	count, err := s.users.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return false, fmt.Errorf("failed to count users by email: %w", err)
	}
	return count > 0, nil
}

func userFromDoc(doc userDoc) *models.User {
	return &models.User{
		ID:        doc.ID.Hex(),
		Name:      doc.Name,
		Email:     doc.Email,
		Password:  doc.Password,
		IsStaff:   doc.IsStaff,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}
