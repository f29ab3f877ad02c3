package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	eventComments  = "comments"
	eventLikes     = "likes"
	eventHeartbeat = "heartbeat"

	heartbeatInterval = 25 * time.Second
)

// handleListingEvents streams live comment and like snapshots for one
// listing over server-sent events. Each delivery carries the full current
// collection, so clients replace rather than merge.
func (h *httpHandler) handleListingEvents(c *gin.Context) {
	listingID := c.Param("id")
	if _, err := h.catalog.GetListing(c.Request.Context(), listingID); err != nil {
		h.renderCatalogError(c, err)
		return
	}

	ctx := c.Request.Context()
	comments, cancelComments := h.catalog.SubscribeComments(ctx, listingID)
	defer cancelComments()
	likes, cancelLikes := h.catalog.SubscribeLikes(ctx, listingID)
	defer cancelLikes()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case update, ok := <-comments:
			if !ok {
				return false
			}
			if update.Err != nil {
				return true
			}
			payload := make([]commentPayload, 0, len(update.Comments))
			for _, comment := range update.Comments {
				payload = append(payload, commentToPayload(comment))
			}
			c.SSEvent(eventComments, payload)
			return true
		case update, ok := <-likes:
			if !ok {
				return false
			}
			if update.Err != nil {
				return true
			}
			payload := make([]likePayload, 0, len(update.Likes))
			for _, like := range update.Likes {
				payload = append(payload, likePayload{ListingID: like.PostID, UserID: like.UserID})
			}
			c.SSEvent(eventLikes, payload)
			return true
		case <-heartbeat.C:
			c.SSEvent(eventHeartbeat, time.Now().UTC().Unix())
			return true
		}
	})
}
