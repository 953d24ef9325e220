package handlers

import (
	"net"
	"net/url"
	"strings"

	"blockyweb/internal/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Redirect bounces a request for any blocked domain to the block page on
// the admin host, carrying the original Host header as the domain parameter.
func Redirect(cfg *config.Config, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		host := cfg.Host
		if host == "" {
			host = serverHost(c)
		}
		if host == "" {
			logger.Error("unable to determine server address; set blocky_web_server_host")
			return c.Status(fiber.StatusInternalServerError).
				SendString("Unable to determine server settings. Please set blocky_web_server_host.")
		}

		target := url.URL{
			Scheme:   "http",
			Host:     host,
			Path:     "/block",
			RawQuery: url.Values{"domain": {string(c.Request().Host())}}.Encode(),
		}
		return c.Redirect(target.String(), fiber.StatusTemporaryRedirect)
	}
}

// serverHost returns the host part of the local address the request
// arrived on, or "" when it is unknown.
func serverHost(c *fiber.Ctx) string {
	addr := c.Context().LocalAddr()
	if addr == nil {
		return ""
	}
	h, _, err := net.SplitHostPort(addr.String())
	if err != nil || h == "" {
		return ""
	}
	if strings.Contains(h, ":") {
		return "[" + h + "]"
	}
	return h
}
