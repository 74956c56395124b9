package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/joshua-takyi/isafari/internal/helpers"
	"github.com/joshua-takyi/isafari/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var errStoreDown = errors.New("store unavailable")

func duplicateKey() error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "duplicate key"}}}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// memStore is an in-memory stand-in for the Mongo repository. It keeps the
// uniqueness rules the real indexes enforce.
type memStore struct {
	mu            sync.Mutex
	users         map[primitive.ObjectID]*models.User
	providers     map[primitive.ObjectID]*models.ServiceProvider
	services      map[primitive.ObjectID]*models.Service
	bookings      map[primitive.ObjectID]*models.Booking
	promotions    []*models.ServicePromotion
	payments      []*models.Payment
	reviews       []*models.Review
	notifications []*models.Notification
	stories       map[primitive.ObjectID]*models.TravelerStory
	likes         map[string]bool
	comments      []*models.StoryComment
	views         map[string]time.Time

	failCreateProvider bool
	promotedQueries    int
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[primitive.ObjectID]*models.User{},
		providers: map[primitive.ObjectID]*models.ServiceProvider{},
		services:  map[primitive.ObjectID]*models.Service{},
		bookings:  map[primitive.ObjectID]*models.Booking{},
		stories:   map[primitive.ObjectID]*models.TravelerStory{},
		likes:     map[string]bool{},
		views:     map[string]time.Time{},
	}
}

// users

func (m *memStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email || (user.GoogleID != "" && u.GoogleID == user.GoogleID) {
			return duplicateKey()
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memStore) DeleteUser(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = models.NormalizeEmail(email)
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetUserByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.GoogleID != "" && u.GoogleID == googleID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetUsersByIDs(_ context.Context, ids []primitive.ObjectID) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.User{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) UpdateUser(_ context.Context, id primitive.ObjectID, fields bson.M) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	for key, value := range fields {
		switch key {
		case "first_name":
			u.FirstName = value.(string)
		case "last_name":
			u.LastName = value.(string)
		case "phone":
			u.Phone = value.(string)
		case "country":
			u.Country = value.(string)
		case "avatar_url":
			u.AvatarURL = value.(string)
		case "google_id":
			u.GoogleID = value.(string)
		case "is_verified":
			u.IsVerified = value.(bool)
		case "updated_at":
			u.UpdatedAt = value.(time.Time)
		}
	}
	cp := *u
	return &cp, nil
}

// providers

func (m *memStore) CreateProvider(_ context.Context, provider *models.ServiceProvider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateProvider {
		return errStoreDown
	}
	for _, p := range m.providers {
		if p.UserID == provider.UserID {
			return duplicateKey()
		}
	}
	if provider.ID.IsZero() {
		provider.ID = primitive.NewObjectID()
	}
	cp := *provider
	m.providers[provider.ID] = &cp
	return nil
}

func (m *memStore) GetProviderByID(_ context.Context, id primitive.ObjectID) (*models.ServiceProvider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.providers[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) GetProviderByUserID(_ context.Context, userID primitive.ObjectID) (*models.ServiceProvider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.providers {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListProviders(_ context.Context, filter models.ProviderFilter, offset, limit int) ([]*models.ServiceProvider, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.ServiceProvider{}
	for _, p := range m.providers {
		if filter.VerifiedOnly && !p.IsVerified {
			continue
		}
		if filter.Country != "" && p.Country != filter.Country {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	return page(out, offset, limit), int64(len(out)), nil
}

func (m *memStore) UpdateProvider(_ context.Context, id primitive.ObjectID, fields bson.M) (*models.ServiceProvider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.providers[id]
	if !ok {
		return nil, nil
	}
	if v, ok := fields["business_name"].(string); ok {
		p.BusinessName = v
	}
	if v, ok := fields["description"].(string); ok {
		p.Description = v
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) IncrementProviderBookings(_ context.Context, id primitive.ObjectID, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.providers[id]; ok {
		p.TotalBookings += int64(delta)
	}
	return nil
}

func (m *memStore) SetProviderRating(_ context.Context, id primitive.ObjectID, rating float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.providers[id]; ok {
		p.Rating = rating
	}
	return nil
}

// services

func (m *memStore) CreateService(_ context.Context, service *models.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if service.ID.IsZero() {
		service.ID = primitive.NewObjectID()
	}
	cp := *service
	m.services[service.ID] = &cp
	return nil
}

func (m *memStore) GetServiceByID(_ context.Context, id primitive.ObjectID) (*models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.services[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) GetServicesByIDs(_ context.Context, ids []primitive.ObjectID) ([]*models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Service{}
	for _, id := range ids {
		if s, ok := m.services[id]; ok {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func serviceMatches(s *models.Service, f models.ServiceFilter) bool {
	if !f.ProviderID.IsZero() && s.ProviderID != f.ProviderID {
		return false
	}
	if f.ActiveOnly && !s.IsActive {
		return false
	}
	if f.Category != "" && s.Category != f.Category {
		return false
	}
	return true
}

func (m *memStore) CountServices(_ context.Context, filter models.ServiceFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.services {
		if serviceMatches(s, filter) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) DistinctServiceLocations(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	for _, s := range m.services {
		if s.IsActive && s.Location != "" {
			seen[s.Location] = true
		}
	}
	return len(seen), nil
}

func (m *memStore) ListServices(_ context.Context, filter models.ServiceFilter, offset, limit int) ([]*models.Service, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Service{}
	for _, s := range m.services {
		if serviceMatches(s, filter) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, offset, limit), int64(len(out)), nil
}

func (m *memStore) UpdateService(_ context.Context, id primitive.ObjectID, fields bson.M) (*models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return nil, nil
	}
	for key, value := range fields {
		switch key {
		case "title":
			s.Title = value.(string)
		case "description":
			s.Description = value.(string)
		case "price":
			s.Price = value.(float64)
		case "is_active":
			s.IsActive = value.(bool)
		case "bookings_count":
			s.BookingsCount = value.(int64)
		case "average_rating":
			s.AverageRating = value.(float64)
		case "images":
			s.Images = value.([]string)
		case "updated_at":
			s.UpdatedAt = value.(time.Time)
		}
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) DeleteService(_ context.Context, id, providerID primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok || s.ProviderID != providerID {
		return false, nil
	}
	delete(m.services, id)
	return true, nil
}

func (m *memStore) IncrementServiceCounter(_ context.Context, id primitive.ObjectID, field string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return nil
	}
	switch field {
	case "views_count":
		s.ViewsCount += int64(delta)
	case "bookings_count":
		s.BookingsCount += int64(delta)
	}
	return nil
}

func (m *memStore) ApplyPromotion(_ context.Context, id primitive.ObjectID, state models.PromotionState) (*models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return nil, nil
	}
	until := state.FeaturedUntil
	s.IsFeatured = true
	s.FeaturedUntil = &until
	s.PromotionType = state.Type
	s.PromotionLocation = state.Location
	s.FeaturedPriority++
	cp := *s
	return &cp, nil
}

func (m *memStore) RestorePromotion(_ context.Context, id primitive.ObjectID, state *models.PromotionState, priority int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return nil
	}
	s.FeaturedPriority = priority
	if state == nil {
		s.IsFeatured = false
		s.FeaturedUntil = nil
		s.PromotionType = models.PromotionNone
		s.PromotionLocation = ""
		return nil
	}
	until := state.FeaturedUntil
	s.IsFeatured = true
	s.FeaturedUntil = &until
	s.PromotionType = state.Type
	s.PromotionLocation = state.Location
	return nil
}

func (m *memStore) FindPromotedServices(_ context.Context, view models.RankedView, now time.Time) ([]*models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promotedQueries++
	all := []*models.Service{}
	for _, s := range m.services {
		cp := *s
		all = append(all, &cp)
	}
	return view.Rank(all, now), nil
}

func (m *memStore) ClearExpiredPromotions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.services {
		if s.IsFeatured && s.FeaturedUntil != nil && !s.FeaturedUntil.After(now) {
			s.IsFeatured = false
			n++
		}
	}
	return n, nil
}

// bookings

func bookingMatches(b *models.Booking, f models.BookingFilter) bool {
	if !f.TravelerID.IsZero() && b.TravelerID != f.TravelerID {
		return false
	}
	if !f.ProviderID.IsZero() && b.ProviderID != f.ProviderID {
		return false
	}
	if !f.ServiceID.IsZero() && b.ServiceID != f.ServiceID {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Status == "" && len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if s == b.Status {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && b.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !b.CreatedAt.Before(f.To) {
		return false
	}
	return true
}

func (m *memStore) CreateBooking(_ context.Context, booking *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *booking
	m.bookings[booking.ID] = &cp
	return nil
}

func (m *memStore) GetBookingByID(_ context.Context, id primitive.ObjectID) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) ListBookings(_ context.Context, filter models.BookingFilter, offset, limit int) ([]*models.Booking, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Booking{}
	for _, b := range m.bookings {
		if bookingMatches(b, filter) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, offset, limit), int64(len(out)), nil
}

func (m *memStore) CountBookings(ctx context.Context, filter models.BookingFilter) (int64, error) {
	_, total, err := m.ListBookings(ctx, filter, 0, 0)
	return total, err
}

func (m *memStore) DistinctTravelers(ctx context.Context, filter models.BookingFilter) (int, error) {
	bookings, _, err := m.ListBookings(ctx, filter, 0, 0)
	if err != nil {
		return 0, err
	}
	seen := map[primitive.ObjectID]bool{}
	for _, b := range bookings {
		seen[b.TravelerID] = true
	}
	return len(seen), nil
}

func (m *memStore) UpdateBookingStatus(_ context.Context, id primitive.ObjectID, from, to models.BookingStatus) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != from {
		return nil, nil
	}
	b.Status = to
	cp := *b
	return &cp, nil
}

// promotions and payments

func (m *memStore) CreatePromotion(_ context.Context, promotion *models.ServicePromotion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *promotion
	m.promotions = append(m.promotions, &cp)
	return nil
}

func (m *memStore) LatestPromotion(_ context.Context, serviceID primitive.ObjectID) (*models.ServicePromotion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.ServicePromotion
	for _, p := range m.promotions {
		if p.ServiceID == serviceID && (latest == nil || !p.CreatedAt.Before(latest.CreatedAt)) {
			latest = p
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *memStore) ListPromotions(_ context.Context, serviceID primitive.ObjectID) ([]*models.ServicePromotion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.ServicePromotion{}
	for _, p := range m.promotions {
		if p.ServiceID == serviceID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) CreatePayment(_ context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *payment
	m.payments = append(m.payments, &cp)
	return nil
}

func (m *memStore) ListPaymentsByUser(_ context.Context, userID primitive.ObjectID, _ int) ([]*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Payment{}
	for _, p := range m.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

// reviews

func (m *memStore) CreateReview(_ context.Context, review *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if review.BookingID != nil {
		for _, r := range m.reviews {
			if r.BookingID != nil && *r.BookingID == *review.BookingID {
				return duplicateKey()
			}
		}
	}
	if review.Direct {
		for _, r := range m.reviews {
			if r.Direct && r.ServiceID == review.ServiceID && r.TravelerID == review.TravelerID {
				return duplicateKey()
			}
		}
	}
	cp := *review
	m.reviews = append(m.reviews, &cp)
	return nil
}

func (m *memStore) ListReviewsByService(_ context.Context, serviceID primitive.ObjectID, offset, limit int) ([]*models.Review, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Review{}
	for _, r := range m.reviews {
		if r.ServiceID == serviceID {
			out = append(out, r)
		}
	}
	return page(out, offset, limit), int64(len(out)), nil
}

func (m *memStore) ListReviewsByBookings(_ context.Context, ids []primitive.ObjectID) ([]*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []*models.Review{}
	for _, r := range m.reviews {
		if r.BookingID != nil && want[*r.BookingID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) SummarizeRatings(_ context.Context, field string, id primitive.ObjectID) (models.RatingSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum, n int
	for _, r := range m.reviews {
		if (field == "service_id" && r.ServiceID == id) || (field == "provider_id" && r.ProviderID == id) {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return models.RatingSummary{}, nil
	}
	return models.RatingSummary{Average: float64(sum) / float64(n), Count: int64(n)}, nil
}

// notifications

func (m *memStore) CreateNotification(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.notifications = append(m.notifications, &cp)
	return nil
}

func (m *memStore) ListNotifications(_ context.Context, userID primitive.ObjectID, unreadOnly bool, offset, limit int) ([]*models.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Notification{}
	for _, n := range m.notifications {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return page(out, offset, limit), int64(len(out)), nil
}

func (m *memStore) MarkNotificationRead(_ context.Context, id, userID primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) notificationsFor(userID primitive.ObjectID) []*models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Notification{}
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// stories

func (m *memStore) CreateStory(_ context.Context, story *models.TravelerStory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *story
	m.stories[story.ID] = &cp
	return nil
}

func (m *memStore) GetStoryByID(_ context.Context, id primitive.ObjectID) (*models.TravelerStory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stories[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) ListVisibleStories(_ context.Context, offset, limit int) ([]*models.TravelerStory, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.TravelerStory{}
	for _, s := range m.stories {
		if s.Visible() {
			cp := *s
			out = append(out, &cp)
		}
	}
	return page(out, offset, limit), int64(len(out)), nil
}

func (m *memStore) CreateLike(_ context.Context, like *models.StoryLike) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := like.StoryID.Hex() + ":" + like.UserID.Hex()
	if m.likes[key] {
		return duplicateKey()
	}
	m.likes[key] = true
	return nil
}

func (m *memStore) CreateComment(_ context.Context, comment *models.StoryComment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *comment
	m.comments = append(m.comments, &cp)
	return nil
}

func (m *memStore) ListComments(_ context.Context, storyID primitive.ObjectID, limit int) ([]*models.StoryComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.StoryComment{}
	for i := len(m.comments) - 1; i >= 0; i-- {
		if m.comments[i].StoryID == storyID {
			out = append(out, m.comments[i])
		}
	}
	return page(out, 0, limit), nil
}

func (m *memStore) IncrementStoryCounter(_ context.Context, id primitive.ObjectID, field string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stories[id]
	if !ok {
		return nil
	}
	switch field {
	case "likes_count":
		s.LikesCount += int64(delta)
	case "comments_count":
		s.CommentsCount += int64(delta)
	}
	return nil
}

// views

func (m *memStore) TrackServiceView(_ context.Context, view *models.ServiceView, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := view.ServiceID.Hex() + ":" + view.SessionID
	if last, ok := m.views[key]; ok && last.After(now.Add(-models.ViewDedupWindow)) {
		return false, nil
	}
	m.views[key] = now
	return true, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// seed helpers

func (m *memStore) addUser(userType models.UserType, country string) *models.User {
	u := &models.User{
		ID:        primitive.NewObjectID(),
		Email:     primitive.NewObjectID().Hex() + "@example.com",
		FirstName: "Amani",
		LastName:  "Mushi",
		Country:   country,
		UserType:  userType,
		IsActive:  true,
	}
	m.users[u.ID] = u
	return u
}

func (m *memStore) addProvider() (*models.User, *models.ServiceProvider) {
	u := m.addUser(models.UserTypeServiceProvider, "Tanzania")
	p := &models.ServiceProvider{
		ID:           primitive.NewObjectID(),
		UserID:       u.ID,
		BusinessName: "Kilima Tours",
		IsVerified:   true,
	}
	m.providers[p.ID] = p
	return u, p
}

func (m *memStore) addService(providerID primitive.ObjectID, price float64, created time.Time) *models.Service {
	s := &models.Service{
		ProviderID:  providerID,
		Title:       "Serengeti day trip",
		Description: "Game drive",
		Category:    "safari",
		Price:       price,
		Location:    "Arusha",
	}
	s.BeforeCreate(created)
	m.services[s.ID] = s
	return s
}

type fakeVerifier struct {
	identity *helpers.GoogleIdentity
	err      error
}

func (f fakeVerifier) Verify(context.Context, string) (*helpers.GoogleIdentity, error) {
	return f.identity, f.err
}

type recordingUploader struct {
	folders []string
}

func (r *recordingUploader) UploadImages(_ context.Context, images []string, folder string) ([]string, error) {
	r.folders = append(r.folders, folder)
	out := make([]string, len(images))
	for i := range images {
		out[i] = "https://res.example.com/" + folder + "/" + primitive.NewObjectID().Hex()
	}
	return out, nil
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) InvalidateRankings() { c.calls++ }
