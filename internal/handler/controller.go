package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"indexnow-go/internal/service"
	"indexnow-go/pkg/audit"
	"indexnow-go/pkg/logger"
)

// MaxLimit caps the limit query parameter of the read endpoints
const MaxLimit = 1000

type Controller struct {
	audit   service.AuditService
	tracker service.TrackerService
	metrics http.Handler
	log     *logger.Logger
	now     func() time.Time
}

type ControllerConfig struct {
	Audit   service.AuditService
	Tracker service.TrackerService

	// Metrics is mounted at /metrics when set
	Metrics http.Handler
}

type HealthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	AuditLog    string `json:"auditLog"`
	TrackedURLs *int   `json:"trackedUrls,omitempty"`
}

type SubmissionsResponse struct {
	Count   int           `json:"count"`
	Entries []audit.Entry `json:"entries"`
}

type RotateResponse struct {
	Rotated     bool   `json:"rotated"`
	RotatedFile string `json:"rotatedFile,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewController(config ControllerConfig) *Controller {
	return &Controller{
		audit:   config.Audit,
		tracker: config.Tracker,
		metrics: config.Metrics,
		log:     logger.GetLogger().WithField("component", "stats_controller"),
		now:     time.Now,
	}
}

// NewApp builds a fiber app serving the controller routes
func NewApp(c *Controller) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "indexnow-stats",
		DisableStartupMessage: true,
		ErrorHandler:          c.handleError,
	})
	app.Use(recover.New())
	c.Register(app)
	return app
}

func (c *Controller) Register(app *fiber.App) {
	app.Get("/health", c.Health)

	v1 := app.Group("/api/v1")
	v1.Get("/stats", c.Stats)
	v1.Get("/submissions", c.Submissions)
	v1.Post("/rotate", c.Rotate)

	if c.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(c.metrics))
	}
}

func (c *Controller) Health(ctx *fiber.Ctx) error {
	resp := HealthResponse{
		Status:    "ok",
		Timestamp: c.now().UTC().Format(time.RFC3339),
		AuditLog:  c.audit.Path(),
	}

	if c.tracker != nil {
		count, err := c.tracker.Count(ctx.UserContext())
		if err != nil {
			c.log.WithError(err).Warn("Failed to count tracked URLs")
			resp.Status = "degraded"
		} else {
			resp.TrackedURLs = &count
		}
	}
	return ctx.JSON(resp)
}

func (c *Controller) Stats(ctx *fiber.Ctx) error {
	limit, err := parseLimit(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(c.audit.GetStatistics(limit))
}

func (c *Controller) Submissions(ctx *fiber.Ctx) error {
	limit, err := parseLimit(ctx)
	if err != nil {
		return err
	}

	entries, err := c.audit.RecentEntries(limit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to read audit log")
	}
	return ctx.JSON(SubmissionsResponse{Count: len(entries), Entries: entries})
}

func (c *Controller) Rotate(ctx *fiber.Ctx) error {
	rotated, err := c.audit.RotateLogFile()
	if err != nil {
		c.log.WithError(err).Error("Manual audit log rotation failed")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to rotate audit log")
	}
	return ctx.JSON(RotateResponse{Rotated: rotated != "", RotatedFile: rotated})
}

// parseLimit returns 0 when the parameter is absent so the audit logger applies its default window
func parseLimit(ctx *fiber.Ctx) (int, error) {
	raw := ctx.Query("limit")
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > MaxLimit {
		return 0, fiber.NewError(fiber.StatusBadRequest, "limit must be an integer between 1 and "+strconv.Itoa(MaxLimit))
	}
	return limit, nil
}

func (c *Controller) handleError(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		c.log.WithError(err).WithField("path", ctx.Path()).Error("Request failed")
	}
	return ctx.Status(code).JSON(ErrorResponse{Error: err.Error()})
}
