package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/proxy"
	"github.com/trezcool/academia/services/metrics"
)

const sessionsMount = "/api/sessions"

// proxyMounts are the path prefixes relayed to other services.
var proxyMounts = []string{sessionsMount, "/api/imprinter", "/api/kamikaze", "/api/ingestion"}

type proxyApi struct {
	name    string
	mount   string
	fwd     *proxy.Forwarder
	metrics *metricsvc.Metrics
}

func registerSessionsAPI(g *echo.Group, conf core.BackendConfig, client proxy.Doer, m *metricsvc.Metrics) {
	base := conf.APIURL
	if base == "" {
		base = core.DefaultBackendAPIURL
	}

	sessions := &proxyApi{name: "sessions", mount: sessionsMount, fwd: proxy.NewForwarder(base+"/sessions", client), metrics: m}
	// job status lives beside the sessions collection on the backend
	status := &proxyApi{name: "status", mount: sessionsMount, fwd: proxy.NewForwarder(base, client), metrics: m}

	sg := g.Group("/sessions")
	sg.GET("/status/:jobId", status.forward)
	sg.Any("", sessions.forward)
	sg.Any("/*", sessions.forward)

	mounts := []struct{ name, base string }{
		{"imprinter", conf.ImprinterBase},
		{"kamikaze", conf.KamikazeBase},
		{"ingestion", conf.IngestionURL},
	}
	for _, mnt := range mounts {
		if mnt.base == "" {
			continue
		}
		api := &proxyApi{name: mnt.name, mount: "/api/" + mnt.name, fwd: proxy.NewForwarder(mnt.base, client), metrics: m}
		g.Any("/"+mnt.name, api.forward)
		g.Any("/"+mnt.name+"/*", api.forward)
	}
}

// Handlers

func (api *proxyApi) forward(ctx echo.Context) error {
	req := ctx.Request()
	suffix := strings.TrimPrefix(req.URL.EscapedPath(), api.mount)

	timer := api.metrics.UpstreamTimer(api.name)
	reply, err := api.fwd.Forward(req.Context(), req, suffix)
	timer.ObserveDuration()
	if err != nil {
		api.metrics.UpstreamErrorInc(api.name)
		return errors.Wrapf(err, "forwarding to %s", api.name)
	}
	return relay(ctx, reply)
}

// relay writes an upstream reply back to the client unchanged.
func relay(ctx echo.Context, reply *proxy.Reply) error {
	switch {
	case reply.IsEmpty():
		return ctx.NoContent(http.StatusNoContent)
	case reply.JSON != nil:
		return ctx.JSONBlob(reply.Status, reply.JSON)
	default:
		defer func() { _ = reply.Body.Close() }()
		return ctx.Stream(reply.Status, reply.ContentType, reply.Body)
	}
}
