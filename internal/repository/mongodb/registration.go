package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/domain/registration"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	collectionRegistrations = "registrations"

	indexEmpCode    = "empCode_unique"
	indexLineUserID = "lineUserId_unique"
)

type todayCheckinDocument struct {
	Date         string `bson:"date"`
	TimeRecordID string `bson:"timeRecordId"`
	StartTime    string `bson:"startTime"`
	Shift        string `bson:"shift"`
}

type registrationDocument struct {
	ID              primitive.ObjectID    `bson:"_id,omitempty"`
	DeptCode        string                `bson:"deptCode"`
	DeptName        string                `bson:"deptName"`
	EmpCode         string                `bson:"empCode"`
	Prefix          string                `bson:"prefix"`
	FirstName       string                `bson:"firstName"`
	LastName        string                `bson:"lastName"`
	Mobile          string                `bson:"mobile"`
	LineID          string                `bson:"lineId"`
	LineUserID      string                `bson:"lineUserId"`
	LineDisplayName string                `bson:"lineDisplayName"`
	PhotoURL        string                `bson:"photoUrl,omitempty"`
	Status          string                `bson:"status"`
	CreatedAt       time.Time             `bson:"createdAt"`
	UpdatedAt       *time.Time            `bson:"updatedAt,omitempty"`
	TodayCheckin    *todayCheckinDocument `bson:"todayCheckin,omitempty"`
}

func (d registrationDocument) toEntity() registration.Registration {
	reg := registration.Registration{
		ID:              d.ID.Hex(),
		DeptCode:        d.DeptCode,
		DeptName:        d.DeptName,
		EmpCode:         d.EmpCode,
		Prefix:          d.Prefix,
		FirstName:       d.FirstName,
		LastName:        d.LastName,
		Mobile:          d.Mobile,
		LineID:          d.LineID,
		LineUserID:      d.LineUserID,
		LineDisplayName: d.LineDisplayName,
		PhotoURL:        d.PhotoURL,
		Status:          registration.Status(d.Status),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.TodayCheckin != nil {
		reg.TodayCheckin = &registration.TodayCheckin{
			Date:         d.TodayCheckin.Date,
			TimeRecordID: d.TodayCheckin.TimeRecordID,
			StartTime:    d.TodayCheckin.StartTime,
			Shift:        d.TodayCheckin.Shift,
		}
	}
	return reg
}

type registrationRepositoryImpl struct {
	db         *database.MongoDB
	collection *mongo.Collection
}

func NewRegistrationRepository(db *database.MongoDB) registration.Repository {
	return &registrationRepositoryImpl{
		db:         db,
		collection: db.Database.Collection(collectionRegistrations),
	}
}

// EnsureIndexes creates the uniqueness indexes on empCode and lineUserId.
// Registrations without a LINE user id are exempt from the second one.
func EnsureIndexes(ctx context.Context, db *database.MongoDB) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "empCode", Value: 1}},
			Options: options.Index().SetName(indexEmpCode).SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "lineUserId", Value: 1}},
			Options: options.Index().
				SetName(indexLineUserID).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"lineUserId": bson.M{"$gt": ""}}),
		},
		{
			Keys:    bson.D{{Key: "todayCheckin.date", Value: 1}},
			Options: options.Index().SetName("todayCheckin_date"),
		},
	}
	if _, err := db.Database.Collection(collectionRegistrations).Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create registration indexes: %w", err)
	}
	return nil
}

// duplicateKeyError maps a unique index violation onto a domain error by
// the index name carried in the server message.
func duplicateKeyError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	switch {
	case strings.Contains(err.Error(), indexEmpCode):
		return registration.ErrEmpCodeExists
	case strings.Contains(err.Error(), indexLineUserID):
		return registration.ErrLineUserExists
	}
	return nil
}

// Create implements registration.Repository.
func (r *registrationRepositoryImpl) Create(ctx context.Context, newRegistration registration.Registration) (registration.Registration, error) {
	doc := registrationDocument{
		ID:              primitive.NewObjectID(),
		DeptCode:        newRegistration.DeptCode,
		DeptName:        newRegistration.DeptName,
		EmpCode:         newRegistration.EmpCode,
		Prefix:          newRegistration.Prefix,
		FirstName:       newRegistration.FirstName,
		LastName:        newRegistration.LastName,
		Mobile:          newRegistration.Mobile,
		LineID:          newRegistration.LineID,
		LineUserID:      newRegistration.LineUserID,
		LineDisplayName: newRegistration.LineDisplayName,
		PhotoURL:        newRegistration.PhotoURL,
		Status:          string(newRegistration.Status),
		CreatedAt:       newRegistration.CreatedAt,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	// BSON stores milliseconds
	doc.CreatedAt = doc.CreatedAt.Truncate(time.Millisecond)

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if dup := duplicateKeyError(err); dup != nil {
			return registration.Registration{}, dup
		}
		return registration.Registration{}, fmt.Errorf("failed to insert registration: %w", err)
	}
	return doc.toEntity(), nil
}

func (r *registrationRepositoryImpl) findOne(ctx context.Context, filter bson.M) (registration.Registration, error) {
	var doc registrationDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return registration.Registration{}, registration.ErrRegistrationNotFound
		}
		return registration.Registration{}, fmt.Errorf("failed to find registration: %w", err)
	}
	return doc.toEntity(), nil
}

// GetByEmpCode implements registration.Repository.
func (r *registrationRepositoryImpl) GetByEmpCode(ctx context.Context, empCode string) (registration.Registration, error) {
	return r.findOne(ctx, bson.M{"empCode": empCode})
}

// GetByLineUserID implements registration.Repository.
func (r *registrationRepositoryImpl) GetByLineUserID(ctx context.Context, lineUserID string) (registration.Registration, error) {
	if lineUserID == "" {
		return registration.Registration{}, registration.ErrRegistrationNotFound
	}
	return r.findOne(ctx, bson.M{"lineUserId": lineUserID})
}

// ListByLineUserID implements registration.Repository.
func (r *registrationRepositoryImpl) ListByLineUserID(ctx context.Context, lineUserID string) ([]registration.Registration, error) {
	if lineUserID == "" {
		return []registration.Registration{}, nil
	}
	return r.find(ctx, bson.M{"lineUserId": lineUserID})
}

// List implements registration.Repository.
func (r *registrationRepositoryImpl) List(ctx context.Context) ([]registration.Registration, error) {
	return r.find(ctx, bson.M{})
}

func (r *registrationRepositoryImpl) find(ctx context.Context, filter bson.M) ([]registration.Registration, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []registrationDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode registrations: %w", err)
	}

	registrations := make([]registration.Registration, 0, len(docs))
	for _, doc := range docs {
		registrations = append(registrations, doc.toEntity())
	}
	return registrations, nil
}

// Update implements registration.Repository.
func (r *registrationRepositoryImpl) Update(ctx context.Context, empCode string, req registration.UpdateRegistrationRequest) (registration.Registration, error) {
	set := bson.M{}
	fields := map[string]*string{
		"deptCode":        req.DeptCode,
		"deptName":        req.DeptName,
		"prefix":          req.Prefix,
		"firstName":       req.FirstName,
		"lastName":        req.LastName,
		"mobile":          req.Mobile,
		"lineId":          req.LineID,
		"lineUserId":      req.LineUserID,
		"lineDisplayName": req.LineDisplayName,
		"photoUrl":        req.PhotoURL,
		"status":          req.Status,
	}
	for key, value := range fields {
		if value != nil {
			set[key] = *value
		}
	}
	updatedAt := req.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	set["updatedAt"] = updatedAt.Truncate(time.Millisecond)

	var doc registrationDocument
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"empCode": empCode},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return registration.Registration{}, registration.ErrRegistrationNotFound
		}
		if dup := duplicateKeyError(err); dup != nil {
			return registration.Registration{}, dup
		}
		return registration.Registration{}, fmt.Errorf("failed to update registration %s: %w", empCode, err)
	}
	return doc.toEntity(), nil
}

// Delete implements registration.Repository.
func (r *registrationRepositoryImpl) Delete(ctx context.Context, empCode string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"empCode": empCode})
	if err != nil {
		return fmt.Errorf("failed to delete registration %s: %w", empCode, err)
	}
	if res.DeletedCount == 0 {
		return registration.ErrRegistrationNotFound
	}
	return nil
}

// Ping implements registration.Repository.
func (r *registrationRepositoryImpl) Ping(ctx context.Context) error {
	return r.db.Client.Ping(ctx, readpref.Primary())
}

// OpenCheckin implements registration.Repository.
func (r *registrationRepositoryImpl) OpenCheckin(ctx context.Context, lineUserID string, checkin registration.TodayCheckin) error {
	if lineUserID == "" {
		return registration.ErrRegistrationNotFound
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"lineUserId": lineUserID},
		bson.M{"$set": bson.M{"todayCheckin": todayCheckinDocument{
			Date:         checkin.Date,
			TimeRecordID: checkin.TimeRecordID,
			StartTime:    checkin.StartTime,
			Shift:        checkin.Shift,
		}}},
	)
	if err != nil {
		return fmt.Errorf("failed to open check-in: %w", err)
	}
	if res.MatchedCount == 0 {
		return registration.ErrRegistrationNotFound
	}
	return nil
}

// CloseCheckin implements registration.Repository.
func (r *registrationRepositoryImpl) CloseCheckin(ctx context.Context, lineUserID string, timeRecordID string) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"lineUserId": lineUserID, "todayCheckin.timeRecordId": timeRecordID},
		bson.M{"$unset": bson.M{"todayCheckin": ""}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to close check-in: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// ExpireCheckins implements registration.Repository.
func (r *registrationRepositoryImpl) ExpireCheckins(ctx context.Context, beforeDate string) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"todayCheckin.date": bson.M{"$lt": beforeDate}},
		bson.M{"$unset": bson.M{"todayCheckin": ""}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire check-ins: %w", err)
	}
	return res.ModifiedCount, nil
}
