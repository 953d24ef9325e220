package handlers

import (
	"context"

	"blockyweb/internal/blocky"
	"blockyweb/internal/logging"
	"blockyweb/views/pages"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// StatusSource reports the current blocking state.
type StatusSource interface {
	Status(ctx context.Context) (blocky.BlockingStatus, error)
}

// currentStatus never fails: an unreachable API renders as unknown.
func currentStatus(ctx context.Context, src StatusSource, logger *zap.Logger) pages.StatusView {
	st, err := src.Status(ctx)
	if err != nil {
		logger.Warn("blocking status unavailable", zap.Error(err))
		return pages.StatusView{}
	}
	return pages.StatusView{Known: true, Enabled: st.Enabled, AutoEnableInSec: st.AutoEnableInSec}
}

func BlockPage(src StatusSource, version string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		domain, ok := blockedDomain(c.Query("domain"))
		if !ok {
			logger.Info("block page without valid domain", zap.String("domain", logging.Sanitize(c.Query("domain"))))
			return c.Status(fiber.StatusBadRequest).SendString("A valid domain query parameter is required")
		}

		data := pages.BlockData{
			Domain:  domain,
			Status:  currentStatus(c.UserContext(), src, logger),
			Version: version,
		}

		c.Set("Content-Type", "text/html; charset=utf-8")
		return pages.Block(data).Render(c.Context(), c.Response().BodyWriter())
	}
}

func AdminPage(src StatusSource, version string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data := pages.AdminData{
			Status:  currentStatus(c.UserContext(), src, logger),
			Version: version,
		}

		c.Set("Content-Type", "text/html; charset=utf-8")
		return pages.Admin(data).Render(c.Context(), c.Response().BodyWriter())
	}
}
