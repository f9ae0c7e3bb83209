package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/presensi/attendance-api/internal/core/domain"
	"github.com/presensi/attendance-api/internal/core/ports"
)

const collectionAttendances = "attendances"

// AttendanceRepository implements ports.AttendanceRepository using MongoDB.
type AttendanceRepository struct {
	col *mongo.Collection
}

func NewAttendanceRepository(db *mongo.Database) *AttendanceRepository {
	return &AttendanceRepository{col: db.Collection(collectionAttendances)}
}

// attendanceDoc carries a denormalised open flag so a partial unique index
// can guard the one-open-session rule.
type attendanceDoc struct {
	ID        string     `bson:"_id"`
	UserID    string     `bson:"user_id"`
	CheckIn   time.Time  `bson:"check_in"`
	CheckOut  *time.Time `bson:"check_out"`
	Open      bool       `bson:"open"`
	Latitude  *float64   `bson:"latitude,omitempty"`
	Longitude *float64   `bson:"longitude,omitempty"`
	Photo     string     `bson:"photo,omitempty"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

func toAttendanceDoc(a *domain.Attendance) attendanceDoc {
	doc := attendanceDoc{
		ID:        a.ID,
		UserID:    a.UserID,
		CheckIn:   a.CheckInTime.UTC(),
		Open:      a.IsOpen(),
		Latitude:  a.Latitude,
		Longitude: a.Longitude,
		Photo:     a.PhotoPath,
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
	if a.CheckOutTime != nil {
		out := a.CheckOutTime.UTC()
		doc.CheckOut = &out
	}
	return doc
}

func (d *attendanceDoc) toDomain() *domain.Attendance {
	a := &domain.Attendance{
		ID:          d.ID,
		UserID:      d.UserID,
		CheckInTime: d.CheckIn.UTC(),
		Latitude:    d.Latitude,
		Longitude:   d.Longitude,
		PhotoPath:   d.Photo,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if d.CheckOut != nil {
		out := d.CheckOut.UTC()
		a.CheckOutTime = &out
	}
	return a
}

// Create inserts a new attendance document.
func (r *AttendanceRepository) Create(ctx context.Context, a *domain.Attendance) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, toAttendanceDoc(a)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrOpenSessionExists
		}
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// FindOne returns the most recent record matching f.
func (r *AttendanceRepository) FindOne(ctx context.Context, f ports.AttendanceFilter) (*domain.Attendance, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "check_in", Value: -1}})

	var doc attendanceDoc
	if err := r.col.FindOne(ctx, attendanceFilter(f), opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *AttendanceRepository) FindAll(ctx context.Context, f ports.AttendanceFilter) ([]*domain.Attendance, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "check_in", Value: -1}})
	cursor, err := r.col.Find(ctx, attendanceFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []attendanceDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode attendance: %w", err)
	}

	out := make([]*domain.Attendance, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*domain.Attendance, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc attendanceDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("find attendance %s: %w", id, err)
	}
	return doc.toDomain(), nil
}

// Update rewrites the timestamps and keeps the open flag in sync.
func (r *AttendanceRepository) Update(ctx context.Context, a *domain.Attendance) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toAttendanceDoc(a)
	update := bson.M{"$set": bson.M{
		"check_in":   doc.CheckIn,
		"check_out":  doc.CheckOut,
		"open":       doc.Open,
		"updated_at": doc.UpdatedAt,
	}}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": a.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrOpenSessionExists
		}
		return fmt.Errorf("update attendance %s: %w", a.ID, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete attendance %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

type reportDoc struct {
	attendanceDoc `bson:",inline"`
	User          userDoc `bson:"user"`
}

// Report joins attendance documents with their owners via $lookup.
func (r *AttendanceRepository) Report(ctx context.Context, f ports.ReportFilter) ([]*domain.ReportEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{}
	if rng := checkInRange(f.CheckInFrom, f.CheckInTo); rng != nil {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"check_in": rng}}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         collectionUsers,
			"localField":   "user_id",
			"foreignField": "_id",
			"as":           "user",
		}}},
		bson.D{{Key: "$unwind", Value: "$user"}},
	)
	if f.EmailContains != "" {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{
			"user.email": primitive.Regex{Pattern: regexp.QuoteMeta(strings.ToLower(f.EmailContains)), Options: "i"},
		}}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$sort", Value: bson.D{{Key: "check_in", Value: -1}}}})

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("attendance report: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []reportDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}

	out := make([]*domain.ReportEntry, 0, len(docs))
	for i := range docs {
		out = append(out, &domain.ReportEntry{
			Attendance: *docs[i].attendanceDoc.toDomain(),
			User: domain.ReportUser{
				ID:    docs[i].User.ID,
				Email: docs[i].User.Email,
				Role:  docs[i].User.Role,
			},
		})
	}
	return out, nil
}

// EnsureIndexes creates the indexes the repository relies on.
func (r *AttendanceRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_open_session").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"open": true}),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "check_in", Value: -1}}},
		{Keys: bson.D{{Key: "check_in", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func attendanceFilter(f ports.AttendanceFilter) bson.M {
	filter := bson.M{}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.OpenOnly {
		filter["open"] = true
	}
	if rng := checkInRange(f.CheckInFrom, f.CheckInTo); rng != nil {
		filter["check_in"] = rng
	}
	return filter
}

func checkInRange(from, to time.Time) bson.M {
	rng := bson.M{}
	if !from.IsZero() {
		rng["$gte"] = from.UTC()
	}
	if !to.IsZero() {
		rng["$lte"] = to.UTC()
	}
	if len(rng) == 0 {
		return nil
	}
	return rng
}
