package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/shankerdev/campus/apps/api/echo"
	"github.com/shankerdev/campus/apps/container"
	"github.com/shankerdev/campus/core"
	emailsvc "github.com/shankerdev/campus/services/email"
	logsvc "github.com/shankerdev/campus/services/logger"
	metricsvc "github.com/shankerdev/campus/services/metrics"
	"github.com/shankerdev/campus/services/ratelimit"
	"github.com/shankerdev/campus/storage/database"
	inmemdb "github.com/shankerdev/campus/storage/database/inmem"
)

// memoryEngine keeps every record in process memory. Nothing survives a restart.
const memoryEngine = "memory"

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// set up loggers
	out, closeOut := logsvc.NewWriter(conf)
	defer func() { _ = closeOut.Close() }()

	logger := logsvc.NewRollbarLogger(log.New(out, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	defer logger.Close()
	dbLogger := logsvc.NewRollbarLogger(log.New(out, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up repositories
	var repos container.Repositories
	if conf.Database.Engine == memoryEngine {
		logger.Warn("using the in-memory database: data is lost on exit")
		repos = container.InmemRepositories(inmemdb.Open())
	} else {
		db, err := setUpDB(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				dbLogger.Error("Failed to close", err)
			}
		}()
		repos = container.SQLRepositories(db)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator, err := container.NewValidator(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("initializing validators: %v", err), err)
	}
	if err = container.ParseEmailTemplates(conf); err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf)
	}
	metrics := metricsvc.NewPrometheus()
	svcs := container.NewServices(repos, mailSvc, metrics, validate, conf)

	var limiter echoapi.Limiter
	if conf.Redis.Addr != "" {
		limiter = ratelimit.NewRedis(ratelimit.NewRedisClient(conf.Redis.Addr), "campus:ratelimit:", conf.Server.LoginRatePerMin)
	} else {
		limiter = ratelimit.NewTokenBucket(conf.Server.LoginRatePerMin, conf.Server.LoginRatePerMin)
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus scrape endpoint.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/metrics", metrics.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Metrics:    metrics,
			Limiter:    limiter,
			Validate:   validate,
			Translator: translator,

			AccountSvc:      svcs.Account,
			ProfileSvc:      svcs.Profile,
			CourseSvc:       svcs.Course,
			NotificationSvc: svcs.Notification,
			AttendanceSvc:   svcs.Attendance,
			CourseworkSvc:   svcs.Coursework,
			FeeSvc:          svcs.Fee,
			CalendarSvc:     svcs.Calendar,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)
		os.Exit(1)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
