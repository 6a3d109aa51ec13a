package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/attendance"
	"github.com/shankerdev/campus/core/calendar"
	"github.com/shankerdev/campus/core/course"
	"github.com/shankerdev/campus/core/coursework"
	"github.com/shankerdev/campus/core/fee"
	"github.com/shankerdev/campus/core/notification"
	"github.com/shankerdev/campus/core/profile"
)

type (
	// Metrics is what the API needs from the metrics backend.
	Metrics interface {
		core.Metrics
		ObserveRequest(route, method, status string, seconds float64)
	}

	// Limiter throttles login attempts per client.
	Limiter interface {
		Allow(ctx context.Context, key string) (bool, error)
	}

	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Metrics        Metrics // optional
		Limiter        Limiter // optional
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool

		AccountSvc      *account.Service
		ProfileSvc      *profile.Service
		CourseSvc       *course.Service
		NotificationSvc *notification.Service
		AttendanceSvc   *attendance.Service
		CourseworkSvc   *coursework.Service
		FeeSvc          *fee.Service
		CalendarSvc     *calendar.Service
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *authenticator
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		auth:     newAuthenticator(deps.Conf, deps.AccountSvc),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if s.deps.Metrics != nil {
		s.app.Use(metricsMiddleware(s.deps.Metrics, s.deps.Translator))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.HideBanner = true
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := s.auth.middleware()
	h := s.hooks()

	registerAccountAPI(v1, jwt, s.auth, s.deps.AccountSvc, s.deps.Limiter, s.deps.Logger, h)
	registerProfileAPI(v1, jwt, s.deps.ProfileSvc)
	registerCourseAPI(v1, jwt, s.deps.CourseSvc, h)
	registerNotificationAPI(v1, jwt, s.deps.NotificationSvc, h)
	registerAttendanceAPI(v1, jwt, s.deps.AttendanceSvc, h)
	registerCourseworkAPI(v1, jwt, s.deps.CourseworkSvc, h)
	registerFeeAPI(v1, jwt, s.deps.FeeSvc, h)
	registerCalendarAPI(v1, jwt, s.deps.CalendarSvc, h)
	registerDashboardAPI(v1, jwt, dashboardDeps{
		accounts:      s.deps.AccountSvc,
		profiles:      s.deps.ProfileSvc,
		attendance:    s.deps.AttendanceSvc,
		notifications: s.deps.NotificationSvc,
		coursework:    s.deps.CourseworkSvc,
		fees:          s.deps.FeeSvc,
		calendar:      s.deps.CalendarSvc,
	})
}

// hooks returns the runner handlers use once their write went through.
func (s *server) hooks() hookRunner {
	var metrics core.Metrics = core.NopMetrics
	if s.deps.Metrics != nil {
		metrics = s.deps.Metrics
	}
	return hookRunner{logger: s.deps.Logger, metrics: metrics}
}

func (s *server) Start() {
	s.app.Logger.Info("API listening on ", s.deps.Conf.Server.Host)
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

// hookRunner runs the post-commit side effects of a request.
type hookRunner struct {
	logger  core.Logger
	metrics core.Metrics
}

// run executes hooks with the request context. Failures are logged and counted, never returned.
func (h hookRunner) run(ctx echo.Context, hooks core.AfterCommit) int {
	if len(hooks) == 0 {
		return 0
	}
	return hooks.Run(ctx.Request().Context(), h.logger, h.metrics)
}
