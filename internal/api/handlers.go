package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	customerrors "shorturl/internal/errors"
	"shorturl/internal/models"
	"shorturl/internal/services"
)

// SetupRoutes configures all gin routes and injects the service. baseURL is
// the prefix used to build returned short links.
func SetupRoutes(router *gin.Engine, svc *services.ShortURLService, baseURL string) {
	router.GET("/health", HealthCheckHandler(svc))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/shorturls", CreateShortURLHandler(svc, baseURL))
	router.GET("/shorturls/:shortCode", GetShortURLStatsHandler(svc))

	// Redirection lives at the root so short links stay short.
	router.GET("/:shortCode", RedirectHandler(svc))
}

// CreateShortURLRequest is the JSON body of POST /shorturls.
type CreateShortURLRequest struct {
	URL       string `json:"url" binding:"required"`
	Validity  *int   `json:"validity"`  // minutes; absent means the configured default
	ShortCode string `json:"shortcode"` // optional custom code
}

// CreateShortURLResponse is the 201 body of POST /shorturls.
type CreateShortURLResponse struct {
	ShortLink string `json:"shortLink"`
	Expiry    string `json:"expiry"`
}

// CreateShortURLHandler handles creation of a shortened URL.
func CreateShortURLHandler(svc *services.ShortURLService, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateShortURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		params := services.CreateParams{
			URL:       req.URL,
			ShortCode: req.ShortCode,
		}
		if req.Validity != nil {
			params.ValidityMinutes = *req.Validity
			if *req.Validity == 0 {
				// Explicit zero is not a meaningful validity.
				params.ValidityMinutes = -1
			}
		}

		u, err := svc.CreateShortURL(c.Request.Context(), params)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, CreateShortURLResponse{
			ShortLink: baseURL + "/" + u.ShortCode,
			Expiry:    u.ExpiresAt.Format(time.RFC3339),
		})
	}
}

// RedirectHandler resolves a short code, records the click and answers with
// a 302 to the original URL.
func RedirectHandler(svc *services.ShortURLService) gin.HandlerFunc {
	return func(c *gin.Context) {
		shortCode := c.Param("shortCode")

		meta := models.ClickMeta{
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
			Referer:   c.GetHeader("Referer"),
		}

		originalURL, err := svc.RedirectToOriginalURL(c.Request.Context(), shortCode, meta)
		if err != nil {
			respondError(c, err)
			return
		}

		redirectsTotal.Inc()
		c.Redirect(http.StatusFound, originalURL)
	}
}

// GetShortURLStatsHandler returns the stats snapshot for a short code,
// including its full click history.
func GetShortURLStatsHandler(svc *services.ShortURLService) gin.HandlerFunc {
	return func(c *gin.Context) {
		shortCode := c.Param("shortCode")

		stats, err := svc.GetShortURLStats(c.Request.Context(), shortCode)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// HealthCheckHandler reports liveness plus the aggregated service stats.
func HealthCheckHandler(svc *services.ShortURLService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svc.GetServiceStats(c.Request.Context())
		if err != nil {
			log.Printf("Error retrieving service stats: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "stats": stats})
	}
}

// respondError maps an error's kind to its HTTP status. Unkinded errors are
// internal faults: logged, answered with a generic 500.
func respondError(c *gin.Context, err error) {
	kind := customerrors.KindOf(err)
	if kind == customerrors.KindUnknown {
		log.Printf("Internal error handling %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(kind.HTTPStatus(), gin.H{"error": err.Error()})
}
