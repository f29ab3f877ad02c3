package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Mahmoudshahin94/M-R-MOTORS/internal/realtime"
	"github.com/Mahmoudshahin94/M-R-MOTORS/internal/session"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrUnauthenticated rejects an attributed mutation before any
	// database call is issued.
	ErrUnauthenticated = errors.New("catalog: must be signed in")
	// ErrListingNotFound indicates no listing exists for the id.
	ErrListingNotFound = errors.New("catalog: listing not found")
	// ErrEmptyComment rejects comments that are blank after sanitizing.
	ErrEmptyComment = errors.New("catalog: comment text required")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingListingID  = errors.New("listing id is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError wraps a failure with an operation.reason code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew    = "catalog.service.new"
	opListListings  = "catalog.listings.list"
	opGetListing    = "catalog.listings.get"
	opCreateListing = "catalog.listings.create"
	opUpdateListing = "catalog.listings.update"
	opDeleteListing = "catalog.listings.delete"
	opListComments  = "catalog.comments.list"
	opCreateComment = "catalog.comments.create"
	opDeleteComment = "catalog.comments.delete"
	opListLikes     = "catalog.likes.list"
	opToggleLike    = "catalog.likes.toggle"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IDProvider issues unique record identifiers.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies the catalog service needs.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Dispatcher *realtime.Dispatcher
	Sanitizer  *bluemonday.Policy
	Logger     *zap.Logger
}

// Service wraps every create/read/update/delete and live-subscription
// operation over listings, comments and likes.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	dispatcher *realtime.Dispatcher
	sanitizer  *bluemonday.Policy
	logger     *zap.Logger
}

// NewService validates configuration and constructs the catalog service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	dispatcher := cfg.Dispatcher
	if dispatcher == nil {
		dispatcher = realtime.NewDispatcher()
	}
	sanitizer := cfg.Sanitizer
	if sanitizer == nil {
		sanitizer = bluemonday.StrictPolicy()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		dispatcher: dispatcher,
		sanitizer:  sanitizer,
		logger:     logger,
	}, nil
}

// ListListings returns every listing, newest first.
func (s *Service) ListListings(ctx context.Context) ([]Listing, error) {
	var listings []Listing
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&listings).Error; err != nil {
		s.logError(opListListings, "query_failed", err)
		return nil, newServiceError(opListListings, "query_failed", err)
	}
	return listings, nil
}

// GetListing returns a single listing by id.
func (s *Service) GetListing(ctx context.Context, id string) (Listing, error) {
	if strings.TrimSpace(id) == "" {
		return Listing{}, newServiceError(opGetListing, "missing_id", errMissingListingID)
	}
	var listing Listing
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Listing{}, ErrListingNotFound
	}
	if err != nil {
		s.logError(opGetListing, "query_failed", err, zap.String("listing_id", id))
		return Listing{}, newServiceError(opGetListing, "query_failed", err)
	}
	return listing, nil
}

// CreateListing stores a new listing attributed to the identity. The owner
// id and creation timestamp are stamped here, from the identity and the
// local clock, never taken from the input.
func (s *Service) CreateListing(ctx context.Context, ident session.Identity, input ListingInput) (string, error) {
	if ident.ID == "" {
		return "", ErrUnauthenticated
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateListing, "id_generation_failed", err)
		return "", newServiceError(opCreateListing, "id_generation_failed", err)
	}
	listing := Listing{
		ID:          id,
		Title:       strings.TrimSpace(input.Title),
		CarModel:    strings.TrimSpace(input.CarModel),
		Year:        input.Year,
		Price:       input.Price,
		ImageURL:    strings.TrimSpace(input.ImageURL),
		Description: s.sanitizer.Sanitize(input.Description),
		OwnerID:     ident.ID,
		CreatedAt:   s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&listing).Error; err != nil {
		s.logError(opCreateListing, "insert_failed", err, zap.String("owner_id", ident.ID))
		return "", newServiceError(opCreateListing, "insert_failed", err)
	}
	s.publishListings(id)
	return id, nil
}

// UpdateListing writes only the supplied fields. Ownership is not
// re-verified here; any caller with write access may update any listing.
func (s *Service) UpdateListing(ctx context.Context, id string, patch ListingPatch) error {
	if strings.TrimSpace(id) == "" {
		return newServiceError(opUpdateListing, "missing_id", errMissingListingID)
	}
	updates := patch.changes()
	if len(updates) == 0 {
		return nil
	}
	if desc, ok := updates["description"].(string); ok {
		updates["description"] = s.sanitizer.Sanitize(desc)
	}
	result := s.db.WithContext(ctx).Model(&Listing{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		s.logError(opUpdateListing, "update_failed", result.Error, zap.String("listing_id", id))
		return newServiceError(opUpdateListing, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrListingNotFound
	}
	s.publishListings(id)
	return nil
}

// DeleteListing removes a listing by id.
func (s *Service) DeleteListing(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return newServiceError(opDeleteListing, "missing_id", errMissingListingID)
	}
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Listing{}).Error; err != nil {
		s.logError(opDeleteListing, "delete_failed", err, zap.String("listing_id", id))
		return newServiceError(opDeleteListing, "delete_failed", err)
	}
	s.publishListings(id)
	return nil
}

// CommentsForListing returns the comments on a listing, oldest first.
func (s *Service) CommentsForListing(ctx context.Context, listingID string) ([]Comment, error) {
	var comments []Comment
	if err := s.db.WithContext(ctx).
		Where("post_id = ?", listingID).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		s.logError(opListComments, "query_failed", err, zap.String("listing_id", listingID))
		return nil, newServiceError(opListComments, "query_failed", err)
	}
	return comments, nil
}

// AddComment stores a comment attributed to the identity.
func (s *Service) AddComment(ctx context.Context, ident session.Identity, listingID, text string) (string, error) {
	if ident.ID == "" {
		return "", ErrUnauthenticated
	}
	clean := strings.TrimSpace(s.sanitizer.Sanitize(text))
	if clean == "" {
		return "", ErrEmptyComment
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateComment, "id_generation_failed", err)
		return "", newServiceError(opCreateComment, "id_generation_failed", err)
	}
	comment := Comment{
		ID:        id,
		PostID:    listingID,
		UserID:    ident.ID,
		Text:      clean,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		s.logError(opCreateComment, "insert_failed", err, zap.String("listing_id", listingID))
		return "", newServiceError(opCreateComment, "insert_failed", err)
	}
	s.publish(realtime.KindComments, listingID)
	return id, nil
}

// DeleteComment removes a comment by id.
func (s *Service) DeleteComment(ctx context.Context, id string) error {
	var comment Comment
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		s.logError(opDeleteComment, "query_failed", err, zap.String("comment_id", id))
		return newServiceError(opDeleteComment, "query_failed", err)
	}
	if err := s.db.WithContext(ctx).Delete(&comment).Error; err != nil {
		s.logError(opDeleteComment, "delete_failed", err, zap.String("comment_id", id))
		return newServiceError(opDeleteComment, "delete_failed", err)
	}
	s.publish(realtime.KindComments, comment.PostID)
	return nil
}

// LikesForListing returns the likes on a listing.
func (s *Service) LikesForListing(ctx context.Context, listingID string) ([]Like, error) {
	var likes []Like
	if err := s.db.WithContext(ctx).
		Where("post_id = ?", listingID).
		Find(&likes).Error; err != nil {
		s.logError(opListLikes, "query_failed", err, zap.String("listing_id", listingID))
		return nil, newServiceError(opListLikes, "query_failed", err)
	}
	return likes, nil
}

// ToggleLike flips the identity's like on a listing: deletes the like when
// one exists, creates one otherwise, and reports the resulting state.
//
// The read-then-write is not transactional. Two concurrent toggles from the
// same identity can both observe "absent" and insert duplicate likes, or
// both attempt the delete (harmless, the second one affects zero rows).
// The backend exposes no compare-and-swap for this shape, so the race is
// documented rather than fixed.
func (s *Service) ToggleLike(ctx context.Context, ident session.Identity, listingID string) (bool, error) {
	if ident.ID == "" {
		return false, ErrUnauthenticated
	}
	var existing Like
	err := s.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", listingID, ident.ID).
		First(&existing).Error
	switch {
	case err == nil:
		if err := s.db.WithContext(ctx).Where("id = ?", existing.ID).Delete(&Like{}).Error; err != nil {
			s.logError(opToggleLike, "delete_failed", err, zap.String("listing_id", listingID))
			return false, newServiceError(opToggleLike, "delete_failed", err)
		}
		s.publish(realtime.KindLikes, listingID)
		return false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		id, idErr := s.idProvider.NewID()
		if idErr != nil {
			s.logError(opToggleLike, "id_generation_failed", idErr)
			return false, newServiceError(opToggleLike, "id_generation_failed", idErr)
		}
		like := Like{
			ID:        id,
			PostID:    listingID,
			UserID:    ident.ID,
			CreatedAt: s.clock().UTC(),
		}
		if err := s.db.WithContext(ctx).Create(&like).Error; err != nil {
			s.logError(opToggleLike, "insert_failed", err, zap.String("listing_id", listingID))
			return false, newServiceError(opToggleLike, "insert_failed", err)
		}
		s.publish(realtime.KindLikes, listingID)
		return true, nil
	default:
		s.logError(opToggleLike, "query_failed", err, zap.String("listing_id", listingID))
		return false, newServiceError(opToggleLike, "query_failed", err)
	}
}

func (s *Service) publish(kind realtime.Kind, listingID string) {
	s.dispatcher.Publish(realtime.Notice{
		Topic: realtime.Topic{Kind: kind, ListingID: listingID},
		At:    s.clock().UTC(),
	})
}

func (s *Service) publishListings(listingID string) {
	s.publish(realtime.KindListings, listingID)
	s.dispatcher.Publish(realtime.Notice{
		Topic: realtime.Topic{Kind: realtime.KindListings},
		At:    s.clock().UTC(),
	})
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("catalog service error", attrs...)
}
