package handlers

import (
	"context"
	"crypto/subtle"
	"image"
	"image/jpeg"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/amuthap/wedding-automation/internal/greeter"
	"github.com/amuthap/wedding-automation/internal/models"
)

// Runner runs one greeting pass.
type Runner interface {
	RunOccasion(ctx context.Context, occasion string, today time.Time, dryRun bool) (*greeter.Summary, error)
}

// Renderer draws a greeting without saving it.
type Renderer interface {
	Render(ctx context.Context, row models.RosterRow) (*image.RGBA, error)
}

// GreetingsHandler exposes manual runs and composition previews. Runs and
// previews are serialised: fonts are not safe for concurrent use and only
// one pass may send at a time.
type GreetingsHandler struct {
	runner   Runner
	renderer Renderer
	token    string
	now      func() time.Time
	mu       sync.Mutex
}

// NewGreetingsHandler guards /run and /preview with token. An empty token
// rejects every guarded request.
func NewGreetingsHandler(runner Runner, renderer Renderer, token string) *GreetingsHandler {
	return &GreetingsHandler{runner: runner, renderer: renderer, token: token, now: time.Now}
}

// Register mounts the routes on r.
func (h *GreetingsHandler) Register(r gin.IRoutes) {
	auth := RequireToken(h.token)
	r.GET("/health", h.Health)
	r.POST("/run", auth, h.Run)
	r.GET("/preview", auth, h.Preview)
}

func (h *GreetingsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Run triggers a pass. Query: occasion (default birthday), date
// (YYYY-MM-DD, default today), dry_run.
func (h *GreetingsHandler) Run(c *gin.Context) {
	occasion := c.DefaultQuery("occasion", "birthday")
	dryRun := c.Query("dry_run") == "true" || c.Query("dry_run") == "1"

	today := h.now()
	if d := c.Query("date"); d != "" {
		parsed, err := time.ParseInLocation("2006-01-02", d, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		today = parsed
	}

	if !h.mu.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"error": "a run is already in progress"})
		return
	}
	defer h.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"occasion": occasion,
		"date":     today.Format("2006-01-02"),
		"dry_run":  dryRun,
	}).Info("Manual run requested")

	// A pass is never cut short: the client going away must not cancel
	// downloads or sends halfway through the roster.
	sum, err := h.runner.RunOccasion(context.WithoutCancel(c.Request.Context()), occasion, today, dryRun)
	if err != nil {
		logrus.WithError(err).Error("Manual run failed")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Preview renders a greeting for the query's name, club, role and image
// and returns it as JPEG.
func (h *GreetingsHandler) Preview(c *gin.Context) {
	row := models.RosterRow{
		Name:     c.Query("name"),
		Address:  c.Query("club"),
		Role:     c.DefaultQuery("role", "member"),
		ImageURL: c.Query("image"),
	}
	if row.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	h.mu.Lock()
	img, err := h.renderer.Render(c.Request.Context(), row)
	h.mu.Unlock()
	if err != nil {
		logrus.WithError(err).WithField("member", row.Name).Error("Preview failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "image/jpeg")
	c.Status(http.StatusOK)
	if err := jpeg.Encode(c.Writer, img, &jpeg.Options{Quality: 85}); err != nil {
		logrus.WithError(err).Error("Failed to encode preview")
	}
}

// RequireToken accepts requests carrying "Authorization: Bearer <token>".
func RequireToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" || !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			logrus.WithFields(logrus.Fields{
				"path":   c.Request.URL.Path,
				"client": c.ClientIP(),
			}).Warn("Rejected request with missing or invalid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

// RequestLogger logs method, path and query of every request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		logrus.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"query":  c.Request.URL.RawQuery,
		}).Info("Incoming request")
		c.Next()
	}
}
