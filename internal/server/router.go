package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/Mahmoudshahin94/M-R-MOTORS/internal/admin"
	"github.com/Mahmoudshahin94/M-R-MOTORS/internal/auth"
	"github.com/Mahmoudshahin94/M-R-MOTORS/internal/catalog"
	"github.com/Mahmoudshahin94/M-R-MOTORS/internal/session"
)

const identityContextKey = "mrmotors_identity"

var (
	errMissingGoogleVerifier = errors.New("google verifier dependency required")
	errMissingTokenManager   = errors.New("token manager dependency required")
	errMissingCatalogService = errors.New("catalog service dependency required")
	errMissingAccounts       = errors.New("accounts dependency required")
	errInvalidAuthorization  = errors.New("authorization header missing or invalid")
)

type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (auth.GoogleClaims, error)
}

type BackendTokenManager interface {
	IssueBackendToken(ctx context.Context, claims auth.GoogleClaims) (string, int64, error)
	ValidateToken(token string) (string, error)
}

type AccountDirectory interface {
	Resolve(ctx context.Context, subject string, email string) (session.Identity, error)
	Lookup(ctx context.Context, userID string) (session.Identity, error)
}

type Dependencies struct {
	GoogleVerifier GoogleVerifier
	TokenManager   BackendTokenManager
	Catalog        *catalog.Service
	Accounts       AccountDirectory
	Exporter       *admin.Exporter
	Logger         *zap.Logger
	Clock          func() time.Time

	// ContactPhone is the dealership number used for WhatsApp contact links.
	ContactPhone     string
	PlaceholderImage string

	// RequestsPerSec and RequestBurst bound per-client request rates;
	// zero values disable the limiter.
	RequestsPerSec float64
	RequestBurst   int
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.GoogleVerifier == nil {
		return nil, errMissingGoogleVerifier
	}
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Catalog == nil {
		return nil, errMissingCatalogService
	}
	if deps.Accounts == nil {
		return nil, errMissingAccounts
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	if deps.RequestsPerSec > 0 && deps.RequestBurst > 0 {
		router.Use(rateLimitMiddleware(deps.RequestsPerSec, deps.RequestBurst))
	}

	handler := &httpHandler{
		verifier:         deps.GoogleVerifier,
		tokens:           deps.TokenManager,
		catalog:          deps.Catalog,
		accounts:         deps.Accounts,
		exporter:         deps.Exporter,
		logger:           logger,
		clock:            clock,
		contactPhone:     deps.ContactPhone,
		placeholderImage: deps.PlaceholderImage,
	}

	router.POST("/auth/google", handler.handleGoogleAuth)
	router.GET("/listings", handler.handleListListings)
	router.GET("/listings/:id", handler.handleGetListing)
	router.GET("/listings/:id/comments", handler.handleListComments)
	router.GET("/listings/:id/likes", handler.handleListLikes)
	router.GET("/listings/:id/events", handler.handleListingEvents)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/listings", handler.handleCreateListing)
	protected.PUT("/listings/:id", handler.handleUpdateListing)
	protected.DELETE("/listings/:id", handler.handleDeleteListing)
	protected.POST("/listings/:id/comments", handler.handleAddComment)
	protected.DELETE("/comments/:id", handler.handleDeleteComment)
	protected.POST("/listings/:id/like", handler.handleToggleLike)

	adminGroup := protected.Group("/admin")
	adminGroup.Use(handler.requireAdmin)
	adminGroup.GET("/listings", handler.handleAdminListings)
	adminGroup.GET("/inventory.csv", handler.handleInventoryExport)

	return router, nil
}

type httpHandler struct {
	verifier         GoogleVerifier
	tokens           BackendTokenManager
	catalog          *catalog.Service
	accounts         AccountDirectory
	exporter         *admin.Exporter
	logger           *zap.Logger
	clock            func() time.Time
	contactPhone     string
	placeholderImage string
}

type authRequestPayload struct {
	IDToken string `json:"id_token"`
}

type identityPayload struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	IsAdmin     bool   `json:"is_admin"`
}

type authResponsePayload struct {
	AccessToken string          `json:"access_token"`
	ExpiresIn   int64           `json:"expires_in"`
	TokenType   string          `json:"token_type"`
	User        identityPayload `json:"user"`
}

func (h *httpHandler) handleGoogleAuth(c *gin.Context) {
	var request authRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.IDToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	claims, err := h.verifier.Verify(c.Request.Context(), request.IDToken)
	if err != nil {
		h.logger.Warn("google token verification failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	identity, err := h.accounts.Resolve(c.Request.Context(), claims.Subject, claims.Email)
	if err != nil {
		h.logger.Error("failed to resolve account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "account_resolve_failed"})
		return
	}

	token, expiresIn, err := h.tokens.IssueBackendToken(c.Request.Context(), claims)
	if err != nil {
		h.logger.Error("failed to issue backend token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, authResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		User: identityPayload{
			UserID:      identity.ID,
			Email:       identity.Email,
			DisplayName: identity.DisplayName(),
			IsAdmin:     identity.IsAdmin,
		},
	})
}

type listingPayload struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	CarModel     string  `json:"car_model"`
	Year         int     `json:"year"`
	Price        float64 `json:"price"`
	PriceDisplay string  `json:"price_display"`
	ImageURL     string  `json:"image_url"`
	Description  string  `json:"description"`
	OwnerID      string  `json:"owner_id"`
	CreatedAt    int64   `json:"created_at_s"`
	Posted       string  `json:"posted"`
	WhatsAppLink string  `json:"whatsapp_link"`
}

func (h *httpHandler) listingToPayload(listing catalog.Listing) listingPayload {
	imageURL := listing.ImageURL
	if imageURL == "" && h.placeholderImage != "" {
		imageURL = h.placeholderImage
	}
	return listingPayload{
		ID:           listing.ID,
		Title:        listing.Title,
		CarModel:     listing.CarModel,
		Year:         listing.Year,
		Price:        listing.Price,
		PriceDisplay: catalog.FormatPrice(listing.Price),
		ImageURL:     imageURL,
		Description:  listing.Description,
		OwnerID:      listing.OwnerID,
		CreatedAt:    listing.CreatedAt.Unix(),
		Posted:       catalog.FormatTimestamp(listing.CreatedAt, h.clock()),
		WhatsAppLink: catalog.WhatsAppLink(h.contactPhone, listing),
	}
}

func (h *httpHandler) handleListListings(c *gin.Context) {
	listings, err := h.catalog.ListListings(c.Request.Context())
	if err != nil {
		h.renderCatalogError(c, err)
		return
	}
	payload := make([]listingPayload, 0, len(listings))
	for _, listing := range listings {
		payload = append(payload, h.listingToPayload(listing))
	}
	c.JSON(http.StatusOK, gin.H{"listings": payload})
}

func (h *httpHandler) handleGetListing(c *gin.Context) {
	listing, err := h.catalog.GetListing(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": h.listingToPayload(listing)})
}

type listingRequestPayload struct {
	Title       string  `json:"title"`
	CarModel    string  `json:"car_model"`
	Year        int     `json:"year"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url"`
	Description string  `json:"description"`
}

func (p listingRequestPayload) toInput() catalog.ListingInput {
	return catalog.ListingInput{
		Title:       p.Title,
		CarModel:    p.CarModel,
		Year:        p.Year,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Description: p.Description,
	}
}

func (h *httpHandler) handleCreateListing(c *gin.Context) {
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}

	var request listingRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	input := request.toInput()
	if result := admin.ValidateListing(input); !result.OK {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "errors": result.Errors})
		return
	}

	id, err := h.catalog.CreateListing(c.Request.Context(), identity, input)
	if err != nil {
		h.renderCatalogError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

type listingPatchPayload struct {
	Title       *string  `json:"title"`
	CarModel    *string  `json:"car_model"`
	Year        *int     `json:"year"`
	Price       *float64 `json:"price"`
	ImageURL    *string  `json:"image_url"`
	Description *string  `json:"description"`
}

func (h *httpHandler) handleUpdateListing(c *gin.Context) {
	if _, ok := h.currentIdentity(c); !ok {
		return
	}

	var request listingPatchPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	patch := catalog.ListingPatch{
		Title:       request.Title,
		CarModel:    request.CarModel,
		Year:        request.Year,
		Price:       request.Price,
		ImageURL:    request.ImageURL,
		Description: request.Description,
	}
	if err := h.catalog.UpdateListing(c.Request.Context(), c.Param("id"), patch); err != nil {
		h.renderCatalogError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleDeleteListing(c *gin.Context) {
	if _, ok := h.currentIdentity(c); !ok {
		return
	}
	if err := h.catalog.DeleteListing(c.Request.Context(), c.Param("id")); err != nil {
		h.renderCatalogError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type commentPayload struct {
	ID        string `json:"id"`
	ListingID string `json:"listing_id"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at_s"`
}

func commentToPayload(comment catalog.Comment) commentPayload {
	return commentPayload{
		ID:        comment.ID,
		ListingID: comment.PostID,
		UserID:    comment.UserID,
		Text:      comment.Text,
		CreatedAt: comment.CreatedAt.Unix(),
	}
}

func (h *httpHandler) handleListComments(c *gin.Context) {
	comments, err := h.catalog.CommentsForListing(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderCatalogError(c, err)
		return
	}
	payload := make([]commentPayload, 0, len(comments))
	for _, comment := range comments {
		payload = append(payload, commentToPayload(comment))
	}
	c.JSON(http.StatusOK, gin.H{"comments": payload})
}

type commentRequestPayload struct {
	Text string `json:"text"`
}

func (h *httpHandler) handleAddComment(c *gin.Context) {
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}

	var request commentRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	id, err := h.catalog.AddComment(c.Request.Context(), identity, c.Param("id"), request.Text)
	if err != nil {
		h.renderCatalogError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *httpHandler) handleDeleteComment(c *gin.Context) {
	if _, ok := h.currentIdentity(c); !ok {
		return
	}
	if err := h.catalog.DeleteComment(c.Request.Context(), c.Param("id")); err != nil {
		h.renderCatalogError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type likePayload struct {
	ListingID string `json:"listing_id"`
	UserID    string `json:"user_id"`
}

func (h *httpHandler) handleListLikes(c *gin.Context) {
	likes, err := h.catalog.LikesForListing(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderCatalogError(c, err)
		return
	}
	payload := make([]likePayload, 0, len(likes))
	for _, like := range likes {
		payload = append(payload, likePayload{ListingID: like.PostID, UserID: like.UserID})
	}
	c.JSON(http.StatusOK, gin.H{"likes": payload})
}

func (h *httpHandler) handleToggleLike(c *gin.Context) {
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}
	liked, err := h.catalog.ToggleLike(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		h.renderCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

func (h *httpHandler) handleAdminListings(c *gin.Context) {
	listings, err := h.catalog.ListListings(c.Request.Context())
	if err != nil {
		h.renderCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": admin.FormatRows(listings, h.placeholderImage)})
}

func (h *httpHandler) handleInventoryExport(c *gin.Context) {
	if h.exporter == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "export_unavailable"})
		return
	}
	file, err := h.exporter.ExportInventory(c.Request.Context())
	if err != nil {
		if errors.Is(err, admin.ErrNothingToExport) {
			c.JSON(http.StatusConflict, gin.H{"error": "nothing_to_export"})
			return
		}
		h.logger.Error("inventory export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export_failed"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	identity, err := h.accounts.Lookup(c.Request.Context(), subject)
	if err != nil {
		if errors.Is(err, session.ErrAccountNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		h.logger.Error("account lookup failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "account_lookup_failed"})
		return
	}
	c.Set(identityContextKey, identity)
	c.Next()
}

func (h *httpHandler) requireAdmin(c *gin.Context) {
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}
	if !identity.IsAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin_required"})
		return
	}
	c.Next()
}

func (h *httpHandler) currentIdentity(c *gin.Context) (session.Identity, bool) {
	value, exists := c.Get(identityContextKey)
	if !exists {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return session.Identity{}, false
	}
	identity, ok := value.(session.Identity)
	if !ok || identity.ID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return session.Identity{}, false
	}
	return identity, true
}

func (h *httpHandler) renderCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, catalog.ErrListingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "listing_not_found"})
	case errors.Is(err, catalog.ErrEmptyComment):
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty_comment"})
	default:
		h.logger.Error("catalog operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
