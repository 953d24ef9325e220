package server

import (
	"time"

	"blockyweb/internal/actions"
	"blockyweb/internal/config"
	"blockyweb/internal/handlers"
	"blockyweb/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deps are the components the HTTP surface is wired from.
type Deps struct {
	Config     *config.Config
	Logger     *zap.Logger
	Status     handlers.StatusSource
	Dispatcher *actions.Dispatcher
	Metrics    *metrics.Collector
	Version    string
}

// New builds the Fiber app with every route registered.
func New(d Deps) *fiber.App {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := fiber.ErrInternalServerError.Message
			if e, ok := err.(*fiber.Error); ok {
				code, msg = e.Code, e.Message
			} else {
				logger.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
			}
			return c.Status(code).SendString(msg)
		},
	})

	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(requestID())
	app.Use(requestLogger(logger))
	if d.Metrics != nil {
		app.Use(d.Metrics.Middleware())
	}

	app.Static("/static", d.Config.StaticDir())

	app.Get("/", handlers.Redirect(d.Config, logger))
	app.Get("/block", handlers.BlockPage(d.Status, d.Version, logger))
	app.Get("/admin", handlers.AdminPage(d.Status, d.Version, logger))
	app.Post("/api", handlers.API(d.Dispatcher, logger))

	app.Get("/healthz", handlers.Health())
	if d.Metrics != nil {
		app.Get("/metrics", d.Metrics.Handler())
	}

	return app
}

// requestID tags each request and response with an X-Request-ID.
func requestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(fiber.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals("request_id", id)
		c.Set(fiber.HeaderXRequestID, id)
		return c.Next()
	}
}

func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}
		id, _ := c.Locals("request_id").(string)
		logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		)
		return err
	}
}
