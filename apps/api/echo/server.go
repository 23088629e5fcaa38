package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/images"
	"github.com/trezcool/academia/core/proxy"
	"github.com/trezcool/academia/core/role"
	"github.com/trezcool/academia/core/social"
	"github.com/trezcool/academia/core/telemetry"
	"github.com/trezcool/academia/core/voice"
	"github.com/trezcool/academia/services/metrics"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Metrics    *metricsvc.Metrics
		Validate   *validator.Validate
		Translator ut.Translator
		// HTTPClient is used by the session forwarders; nil means http.DefaultClient.
		HTTPClient proxy.Doer

		SocialSvc social.ServiceInterface
		RoleSvc   role.ServiceInterface
		VoiceSvc  voice.ServiceInterface
		Images    images.Searcher
		Telemetry *telemetry.Forwarder
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	if conf.Debug {
		s.app.Logger.SetLevel(log.DEBUG)
	}
	// forwarded-for headers are client controlled unless a proxy in a private range sets them
	if conf.Server.TrustProxy {
		s.app.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		s.app.IPExtractor = echo.ExtractIPDirect()
	}

	// proxied paths are relayed verbatim, trailing slash included
	s.app.Pre(middleware.RemoveTrailingSlashWithConfig(middleware.TrailingSlashConfig{Skipper: isProxiedPath}))
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metricsMiddleware(s.deps.Metrics))

	s.app.GET("/", s.home)

	api := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf.SecretKey))

	registerSessionsAPI(api, conf.Backend, s.deps.HTTPClient, s.deps.Metrics)
	registerVoiceAPI(api, s.deps.VoiceSvc, s.deps.Validate)
	registerSparksAPI(api, s.deps.SocialSvc, s.deps.Validate)
	registerRoleAPI(api, jwt, s.deps.RoleSvc)
	registerTelemetryAPI(api, conf.Server.AllowedOrigins, s.deps.Telemetry, s.deps.Metrics)
	registerImagesAPI(api, conf.Images.RateLimit, s.deps.Images, s.deps.Validate, s.deps.Metrics)
}

// Start listens on conf.Server.Address until Shutdown; failures are sent to Errors().
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

func isProxiedPath(ctx echo.Context) bool {
	p := ctx.Request().URL.Path
	for _, mount := range proxyMounts {
		if p == mount || strings.HasPrefix(p, mount+"/") {
			return true
		}
	}
	return false
}
