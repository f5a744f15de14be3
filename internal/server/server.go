package server

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Tomlord1122/todo-service/internal/blobstore"
	"github.com/Tomlord1122/todo-service/internal/config"
	"github.com/Tomlord1122/todo-service/internal/database"
	"github.com/Tomlord1122/todo-service/internal/logger"
	"github.com/Tomlord1122/todo-service/internal/service"
)

type Server struct {
	cfg               *config.Config
	todoService       service.TodoService
	attachmentService service.AttachmentService
	db                database.Service
	store             blobstore.Store
	log               *logger.Logger
	limiter           *rate.Limiter
	registry          *prometheus.Registry
}

// Options carries the dependencies of the HTTP layer.
type Options struct {
	Config      *config.Config
	Todos       service.TodoService
	Attachments service.AttachmentService
	DB          database.Service
	Store       blobstore.Store
	Logger      *logger.Logger
}

func newServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	s := &Server{
		cfg:               opts.Config,
		todoService:       opts.Todos,
		attachmentService: opts.Attachments,
		db:                opts.DB,
		store:             opts.Store,
		log:               log.WithComponent("http"),
		registry:          prometheus.NewRegistry(),
	}

	sec := opts.Config.Security
	if sec.RateLimitRequests > 0 && sec.RateLimitWindow > 0 {
		// RateLimitRequests per RateLimitWindow, with a full window as burst.
		limit := rate.Limit(float64(sec.RateLimitRequests) / sec.RateLimitWindow.Seconds())
		s.limiter = rate.NewLimiter(limit, sec.RateLimitRequests)
	}
	return s
}

func NewServer(opts Options) *http.Server {
	appServer := newServer(opts)
	cfg := opts.Config.Server

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      appServer.RegisterRoutes(),
		IdleTimeout:  cfg.IdleTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorLog:     appServer.log.StdLog(zap.ErrorLevel),
	}
}
