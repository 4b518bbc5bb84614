package store

import (
	"go.mongodb.org/mongo-driver/bson"

	"civicgrid-be/models"
)

// Filter restricts an issue query. Predicates are conjunctive; an empty set
// means no restriction on that field, never "match nothing".
type Filter struct {
	Statuses []models.IssueStatus
	Types    []models.IssueType
}

// Order selects the result ordering.
type Order int

const (
	// OrderNewest sorts by reportedAt descending. This is the default.
	OrderNewest Order = iota
	// OrderIntensity sorts by intensity descending; records without an
	// intensity sort last.
	OrderIntensity
)

// query translates the filter to a Mongo query document.
func (f Filter) query() bson.M {
	q := bson.M{}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q["status"] = bson.M{"$in": statuses}
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		q["issueType"] = bson.M{"$in": types}
	}
	return q
}

// sortSpec translates the order to a Mongo sort document. Intensity is
// persisted as a fixed-width "d.dd" string in [0.00, 1.00], so a descending
// lexicographic sort matches numeric order, and documents missing the field
// compare as null and come last.
func sortSpec(o Order) bson.D {
	switch o {
	case OrderIntensity:
		return bson.D{{Key: "intensity", Value: -1}, {Key: "reportedAt", Value: -1}}
	default:
		return bson.D{{Key: "reportedAt", Value: -1}}
	}
}
