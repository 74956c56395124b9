package models

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PromotionType string

const (
	PromotionFeatured    PromotionType = "featured"
	PromotionTrending    PromotionType = "trending"
	PromotionSearchBoost PromotionType = "search_boost"
	PromotionNone        PromotionType = "none"
)

// Purchasable reports whether t can be bought through a promotion.
func (t PromotionType) Purchasable() bool {
	switch t {
	case PromotionFeatured, PromotionTrending, PromotionSearchBoost:
		return true
	}
	return false
}

const DefaultCurrency = "TZS"

type Service struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProviderID      primitive.ObjectID `bson:"provider_id" json:"provider_id"`
	Title           string             `bson:"title" json:"title" validate:"required,max=255"`
	Description     string             `bson:"description" json:"description" validate:"required"`
	Category        string             `bson:"category" json:"category" validate:"required"`
	Subcategory     string             `bson:"subcategory,omitempty" json:"subcategory,omitempty"`
	Price           float64            `bson:"price" json:"price" validate:"gte=0"`
	Currency        string             `bson:"currency" json:"currency"`
	Duration        float64            `bson:"duration,omitempty" json:"duration,omitempty"`
	MaxParticipants int                `bson:"max_participants,omitempty" json:"max_participants,omitempty"`
	Location        string             `bson:"location,omitempty" json:"location,omitempty"`
	Country         string             `bson:"country,omitempty" json:"country,omitempty"`
	Region          string             `bson:"region,omitempty" json:"region,omitempty"`
	District        string             `bson:"district,omitempty" json:"district,omitempty"`
	Area            string             `bson:"area,omitempty" json:"area,omitempty"`
	Images          []string           `bson:"images" json:"images"`
	Amenities       []string           `bson:"amenities" json:"amenities"`

	IsActive          bool          `bson:"is_active" json:"is_active"`
	IsFeatured        bool          `bson:"is_featured" json:"is_featured"`
	FeaturedUntil     *time.Time    `bson:"featured_until,omitempty" json:"featured_until,omitempty"`
	FeaturedPriority  int64         `bson:"featured_priority" json:"featured_priority"`
	PromotionType     PromotionType `bson:"promotion_type" json:"promotion_type" validate:"oneof=featured trending search_boost none"`
	PromotionLocation string        `bson:"promotion_location,omitempty" json:"promotion_location,omitempty"`

	ViewsCount    int64   `bson:"views_count" json:"views_count"`
	BookingsCount int64   `bson:"bookings_count" json:"bookings_count"`
	AverageRating float64 `bson:"average_rating" json:"average_rating" validate:"min=0,max=5"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (s *Service) BeforeCreate(now time.Time) {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	s.Title = strings.TrimSpace(s.Title)
	s.Category = strings.TrimSpace(s.Category)
	if s.Currency == "" {
		s.Currency = DefaultCurrency
	}
	if s.Images == nil {
		s.Images = []string{}
	}
	if s.Amenities == nil {
		s.Amenities = []string{}
	}
	s.IsActive = true
	s.IsFeatured = false
	s.FeaturedUntil = nil
	s.FeaturedPriority = 0
	s.PromotionType = PromotionNone
	s.ViewsCount = 0
	s.BookingsCount = 0
	s.AverageRating = 0
	s.CreatedAt = now
	s.UpdatedAt = now
}

// PromotionLive reports whether the service is inside a paid visibility
// window at now. The stored is_featured flag alone is not enough: nothing
// flips it back when featured_until passes.
func (s *Service) PromotionLive(now time.Time) bool {
	return s.IsActive && s.IsFeatured && s.FeaturedUntil != nil && s.FeaturedUntil.After(now)
}

// ServiceEditableFields maps request keys to stored fields for updates.
var ServiceEditableFields = map[string]string{
	"title":            "title",
	"description":      "description",
	"category":         "category",
	"subcategory":      "subcategory",
	"price":            "price",
	"currency":         "currency",
	"duration":         "duration",
	"maxParticipants":  "max_participants",
	"max_participants": "max_participants",
	"location":         "location",
	"country":          "country",
	"region":           "region",
	"district":         "district",
	"area":             "area",
	"images":           "images",
	"amenities":        "amenities",
}

// PromotionState is the current-state projection of one promotion purchase.
type PromotionState struct {
	Type          PromotionType
	Location      string
	FeaturedUntil time.Time
}

// RankedView describes one of the public promoted listings.
type RankedView struct {
	Name      string
	Locations []string
	Type      PromotionType
	Limit     int
	ByViews   bool
}

var (
	FeaturedSlidesView = RankedView{
		Name:      "featured_slides",
		Locations: []string{"homepage", "both", "homepage_slides", "top_carousel"},
		Limit:     5,
	}
	TrendingView = RankedView{
		Name:      "trending",
		Locations: []string{"trending_section", "increased_visibility", "search_priority"},
		Type:      PromotionTrending,
		Limit:     12,
		ByViews:   true,
	}
)

func (v RankedView) Matches(s *Service, now time.Time) bool {
	if !s.PromotionLive(now) {
		return false
	}
	if v.Type != "" && s.PromotionType != v.Type {
		return false
	}
	for _, loc := range v.Locations {
		if s.PromotionLocation == loc {
			return true
		}
	}
	return false
}

// Rank filters candidates by the view at now, orders them and applies the cap.
// The input slice is not modified.
func (v RankedView) Rank(candidates []*Service, now time.Time) []*Service {
	out := make([]*Service, 0, len(candidates))
	for _, s := range candidates {
		if v.Matches(s, now) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.FeaturedPriority != b.FeaturedPriority {
			return a.FeaturedPriority > b.FeaturedPriority
		}
		if v.ByViews && a.ViewsCount != b.ViewsCount {
			return a.ViewsCount > b.ViewsCount
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	if v.Limit > 0 && len(out) > v.Limit {
		out = out[:v.Limit]
	}
	return out
}

func (v RankedView) filter(now time.Time) bson.M {
	f := bson.M{
		"is_active":          true,
		"is_featured":        true,
		"featured_until":     bson.M{"$gt": now},
		"promotion_location": bson.M{"$in": v.Locations},
	}
	if v.Type != "" {
		f["promotion_type"] = v.Type
	}
	return f
}

func (v RankedView) sort() bson.D {
	d := bson.D{{Key: "featured_priority", Value: -1}}
	if v.ByViews {
		d = append(d, bson.E{Key: "views_count", Value: -1})
	}
	return append(d, bson.E{Key: "created_at", Value: -1})
}

type ServiceFilter struct {
	ProviderID primitive.ObjectID
	ActiveOnly bool
	Category   string
	Location   string
	MinPrice   float64
	MaxPrice   float64
	Search     string
	SortBy     string
}

func (f ServiceFilter) query() bson.M {
	q := bson.M{}
	if !f.ProviderID.IsZero() {
		q["provider_id"] = f.ProviderID
	}
	if f.ActiveOnly {
		q["is_active"] = true
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Location != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Location), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"location": pattern},
			bson.M{"region": pattern},
			bson.M{"district": pattern},
			bson.M{"area": pattern},
		}
	}
	price := bson.M{}
	if f.MinPrice > 0 {
		price["$gte"] = f.MinPrice
	}
	if f.MaxPrice > 0 {
		price["$lte"] = f.MaxPrice
	}
	if len(price) > 0 {
		q["price"] = price
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		search := bson.A{bson.M{"title": pattern}, bson.M{"description": pattern}}
		if existing, ok := q["$or"]; ok {
			q["$and"] = bson.A{bson.M{"$or": existing}, bson.M{"$or": search}}
			delete(q, "$or")
		} else {
			q["$or"] = search
		}
	}
	return q
}

// SortFields returns the stored sort for a public sort_by value.
func SortFields(sortBy string) bson.D {
	switch sortBy {
	case "price_asc":
		return bson.D{{Key: "price", Value: 1}}
	case "price_desc":
		return bson.D{{Key: "price", Value: -1}}
	case "rating":
		return bson.D{{Key: "average_rating", Value: -1}}
	case "popular":
		return bson.D{{Key: "bookings_count", Value: -1}, {Key: "views_count", Value: -1}}
	case "newest":
		return bson.D{{Key: "created_at", Value: -1}}
	default:
		return bson.D{{Key: "featured_priority", Value: -1}, {Key: "created_at", Value: -1}}
	}
}

type ServicesRepo interface {
	CreateService(ctx context.Context, service *Service) error
	GetServiceByID(ctx context.Context, id primitive.ObjectID) (*Service, error)
	GetServicesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*Service, error)
	CountServices(ctx context.Context, filter ServiceFilter) (int64, error)
	DistinctServiceLocations(ctx context.Context) (int, error)
	ListServices(ctx context.Context, filter ServiceFilter, offset, limit int) ([]*Service, int64, error)
	UpdateService(ctx context.Context, id primitive.ObjectID, fields bson.M) (*Service, error)
	DeleteService(ctx context.Context, id, providerID primitive.ObjectID) (bool, error)
	IncrementServiceCounter(ctx context.Context, id primitive.ObjectID, field string, delta int) error
	ApplyPromotion(ctx context.Context, id primitive.ObjectID, state PromotionState) (*Service, error)
	RestorePromotion(ctx context.Context, id primitive.ObjectID, state *PromotionState, priority int64) error
	FindPromotedServices(ctx context.Context, view RankedView, now time.Time) ([]*Service, error)
	ClearExpiredPromotions(ctx context.Context, now time.Time) (int64, error)
}

func (mdb *MongodbRepo) CreateService(ctx context.Context, service *Service) error {
	col, err := mdb.GetCollection(ctx, ServicesColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if _, err := col.InsertOne(ctx, service); err != nil {
		return fmt.Errorf("error inserting service: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) GetServiceByID(ctx context.Context, id primitive.ObjectID) (*Service, error) {
	col, err := mdb.GetCollection(ctx, ServicesColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	var service Service
	err = col.FindOne(ctx, bson.M{"_id": id}).Decode(&service)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding service: %w", err)
	}
	return &service, nil
}

func (mdb *MongodbRepo) ListServices(ctx context.Context, filter ServiceFilter, offset, limit int) ([]*Service, int64, error) {
	col, err := mdb.GetCollection(ctx, ServicesColName)
	if err != nil {
		return nil, 0, fmt.Errorf("error getting collection: %w", err)
	}
	query := filter.query()

	opts := options.Find().SetSort(SortFields(filter.SortBy)).SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("error finding services: %w", err)
	}
	defer cursor.Close(ctx)

	services := []*Service{}
	if err := cursor.All(ctx, &services); err != nil {
		return nil, 0, fmt.Errorf("error decoding services: %w", err)
	}

	total, err := col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting services: %w", err)
	}
	return services, total, nil
}

func (mdb *MongodbRepo) UpdateService(ctx context.Context, id primitive.ObjectID, fields bson.M) (*Service, error) {
	col, err := mdb.GetCollection(ctx, ServicesColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var service Service
	err = col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, opts).Decode(&service)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error updating service: %w", err)
	}
	return &service, nil
}

func (mdb *MongodbRepo) DeleteService(ctx context.Context, id, providerID primitive.ObjectID) (bool, error) {
	col, err := mdb.GetCollection(ctx, ServicesColName)
	if err != nil {
		return false, fmt.Errorf("error getting collection: %w", err)
	}
	res, err := col.DeleteOne(ctx, bson.M{"_id": id, "provider_id": providerID})
	if err != nil {
		return false, fmt.Errorf("error deleting service: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (mdb *MongodbRepo) IncrementServiceCounter(ctx context.Context, id primitive.ObjectID, field string, delta int) error {
	switch field {
	case "views_count", "bookings_count":
	default:
		return fmt.Errorf("unknown service counter %q", field)
	}
	col, err := mdb.GetCollection(ctx, ServicesColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	_, err = col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{field: delta}})
	if err != nil {
		return fmt.Errorf("error incrementing %s: %w", field, err)
	}
	return nil
}

// ApplyPromotion sets the promotion fields and bumps featured_priority in a
// single update so concurrent purchases never lose an increment.
func (mdb *MongodbRepo) ApplyPromotion(ctx context.Context, id primitive.ObjectID, state PromotionState) (*Service, error) {
	col, err := mdb.GetCollection(ctx, ServicesColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	update := bson.M{
		"$set": bson.M{
			"is_featured":        true,
			"featured_until":     state.FeaturedUntil,
			"promotion_type":     state.Type,
			"promotion_location": state.Location,
			"updated_at":         time.Now(),
		},
		"$inc": bson.M{"featured_priority": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var service Service
	err = col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&service)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error applying promotion: %w", err)
	}
	return &service, nil
}

// RestorePromotion overwrites the promotion projection, used when rebuilding
// it from the ledger. A nil state clears the promotion.
func (mdb *MongodbRepo) RestorePromotion(ctx context.Context, id primitive.ObjectID, state *PromotionState, priority int64) error {
	col, err := mdb.GetCollection(ctx, ServicesColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	set := bson.M{"featured_priority": priority, "updated_at": time.Now()}
	update := bson.M{"$set": set}
	if state == nil {
		set["is_featured"] = false
		set["promotion_type"] = PromotionNone
		update["$unset"] = bson.M{"featured_until": "", "promotion_location": ""}
	} else {
		set["is_featured"] = true
		set["featured_until"] = state.FeaturedUntil
		set["promotion_type"] = state.Type
		set["promotion_location"] = state.Location
	}
	if _, err := col.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return fmt.Errorf("error restoring promotion: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) FindPromotedServices(ctx context.Context, view RankedView, now time.Time) ([]*Service, error) {
	col, err := mdb.GetCollection(ctx, ServicesColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	opts := options.Find().SetSort(view.sort()).SetLimit(int64(view.Limit))

	cursor, err := col.Find(ctx, view.filter(now), opts)
	if err != nil {
		return nil, fmt.Errorf("error finding %s services: %w", view.Name, err)
	}
	defer cursor.Close(ctx)

	services := []*Service{}
	if err := cursor.All(ctx, &services); err != nil {
		return nil, fmt.Errorf("error decoding %s services: %w", view.Name, err)
	}
	return services, nil
}

func (mdb *MongodbRepo) ClearExpiredPromotions(ctx context.Context, now time.Time) (int64, error) {
	col, err := mdb.GetCollection(ctx, ServicesColName)
	if err != nil {
		return 0, fmt.Errorf("error getting collection: %w", err)
	}
	res, err := col.UpdateMany(ctx,
		bson.M{"is_featured": true, "featured_until": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"is_featured": false, "updated_at": now}},
	)
	if err != nil {
		return 0, fmt.Errorf("error clearing expired promotions: %w", err)
	}
	return res.ModifiedCount, nil
}

func (mdb *MongodbRepo) GetServicesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*Service, error) {
	if len(ids) == 0 {
		return []*Service{}, nil
	}
	col, err := mdb.GetCollection(ctx, ServicesColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	cursor, err := col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("error finding services: %w", err)
	}
	defer cursor.Close(ctx)

	services := []*Service{}
	if err := cursor.All(ctx, &services); err != nil {
		return nil, fmt.Errorf("error decoding services: %w", err)
	}
	return services, nil
}

func (mdb *MongodbRepo) CountServices(ctx context.Context, filter ServiceFilter) (int64, error) {
	col, err := mdb.GetCollection(ctx, ServicesColName)
	if err != nil {
		return 0, fmt.Errorf("error getting collection: %w", err)
	}
	count, err := col.CountDocuments(ctx, filter.query())
	if err != nil {
		return 0, fmt.Errorf("error counting services: %w", err)
	}
	return count, nil
}

// DistinctServiceLocations counts the distinct locations of active services.
func (mdb *MongodbRepo) DistinctServiceLocations(ctx context.Context) (int, error) {
	col, err := mdb.GetCollection(ctx, ServicesColName)
	if err != nil {
		return 0, fmt.Errorf("error getting collection: %w", err)
	}
	locations, err := col.Distinct(ctx, "location", bson.M{"is_active": true})
	if err != nil {
		return 0, fmt.Errorf("error listing service locations: %w", err)
	}
	return len(locations), nil
}
