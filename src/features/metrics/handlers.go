package metrics

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Handler serves the Prometheus endpoint and the JSON stats summary.
type Handler struct {
	service    *Service
	promHandle fiber.Handler
}

// NewHandler creates a metrics handler. promhttp speaks net/http, so it is
// bridged into Fiber through the fasthttp adaptor.
func NewHandler(service *Service, collectors *Collectors) *Handler {
	prom := promhttp.HandlerFor(collectors.Registry(), promhttp.HandlerOpts{})
	return &Handler{
		service:    service,
		promHandle: adaptHTTPHandler(prom),
	}
}

// Prometheus serves the metrics exposition format.
func (h *Handler) Prometheus(c *fiber.Ctx) error {
	return h.promHandle(c)
}

// GetStats serves the JSON pipeline summary.
func (h *Handler) GetStats(c *fiber.Ctx) error {
	return c.JSON(h.service.Stats())
}

func adaptHTTPHandler(handler http.Handler) fiber.Handler {
	fastHandler := fasthttpadaptor.NewFastHTTPHandler(handler)
	return func(c *fiber.Ctx) error {
		fastHandler(c.Context())
		return nil
	}
}
