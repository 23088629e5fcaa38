package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/telemetry"
	"github.com/trezcool/academia/services/metrics"
)

type telemetryApi struct {
	fwd     *telemetry.Forwarder
	metrics *metricsvc.Metrics
}

func registerTelemetryAPI(g *echo.Group, allowedOrigins []string, fwd *telemetry.Forwarder, m *metricsvc.Metrics) {
	api := telemetryApi{fwd: fwd, metrics: m}

	// browsers export traces cross-origin
	og := g.Group("/otlp", middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	og.POST("/v1/traces", api.traces)
	// preflights are answered by the CORS middleware
	og.OPTIONS("/v1/traces", echo.MethodNotAllowedHandler)
}

// Handlers

func (api *telemetryApi) traces(ctx echo.Context) error {
	req := ctx.Request()

	timer := api.metrics.UpstreamTimer("otlp")
	reply, err := api.fwd.ForwardTraces(req.Context(), req.Header.Get(echo.HeaderContentType), req.Body)
	timer.ObserveDuration()
	if err != nil {
		api.metrics.UpstreamErrorInc("otlp")
		return errors.Wrap(err, "forwarding traces")
	}
	return relay(ctx, reply)
}
