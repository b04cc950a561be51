package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quicklyapp/quickly-backend/internal/services"
)

type FeedHandler struct {
	feedService    services.FeedService
	listingService services.ListingService
}

func NewFeedHandler(feedService services.FeedService, listingService services.ListingService) *FeedHandler {
	return &FeedHandler{feedService: feedService, listingService: listingService}
}

// Generate builds (or serves from cache) the feed for a topic.
func (fh *FeedHandler) Generate(c *gin.Context) {
	var req struct {
		Topic string `json:"topic"`
		Count int    `json:"count"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	feed, err := fh.feedService.Build(c.Request.Context(), req.Topic, req.Count)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidTopic):
			c.JSON(http.StatusBadRequest, gin.H{"error": "topic is required"})
		case errors.Is(err, services.ErrGenerationFailed), errors.Is(err, services.ErrFeedBuildFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, feed)
}

// List pages through the persisted public pool.
func (fh *FeedHandler) List(c *gin.Context) {
	limit, err := intQuery(c, "limit", 10)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be an integer"})
		return
	}

	var seed *int64
	if raw := c.Query("seed"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "seed must be an integer"})
			return
		}
		seed = &parsed
	}

	page, err := fh.listingService.List(c.Request.Context(), limit, offset, seed)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, page)
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
