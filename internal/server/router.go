package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/static"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/cache"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/metrics"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/server/routes"
)

// AppOptions controls which namespace the Fiber application exposes.
type AppOptions struct {
	Logger    *logrus.Logger
	Store     cache.Store
	Namespace string
	// MergedDir, when set, is served as the static root; otherwise cached files are
	// streamed straight from the namespace directory.
	MergedDir       string
	ExcludeSuffixes []string
	Metrics         *metrics.Recorder
}

const contextKeyRequestID = "_assetcache_request_id"

// NewApp builds a Fiber application with request-id/access-log middleware, the /-/
// diagnostics endpoints and the file handler.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}
	if err := cache.ValidateSegment(opts.Namespace); err != nil {
		return nil, fmt.Errorf("invalid namespace: %w", err)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts.Logger))

	h := &handlers{
		store:     opts.Store,
		namespace: opts.Namespace,
		excludes:  opts.ExcludeSuffixes,
	}
	app.Get("/-/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "namespace": opts.Namespace})
	})
	app.Get("/-/assets", h.assetMap)
	app.Get("/-/resolve", h.resolve)
	app.Get("/-/metrics", adaptor.HTTPHandler(opts.Metrics.Handler()))
	routes.RegisterKindRoutes(app)

	if opts.MergedDir != "" {
		app.Get("/*", static.New(opts.MergedDir))
	} else {
		app.Get("/:name", h.file)
	}

	return app, nil
}

// requestContextMiddleware 负责生成请求 ID，并在请求结束后输出访问日志。
func requestContextMiddleware(logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		started := time.Now()
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		err := c.Next()

		fields := logrus.Fields{
			"action":     "serve",
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"elapsed_ms": time.Since(started).Milliseconds(),
			"request_id": reqID,
		}
		if err != nil {
			fields["error"] = err.Error()
			logger.WithFields(fields).Warn("request_failed")
			return err
		}
		logger.WithFields(fields).Debug("request_complete")
		return nil
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
