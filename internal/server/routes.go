package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Tomlord1122/todo-service/internal/service"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Request-Id"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if s.cfg.Metrics.Enabled {
		metricsMiddleware, metricsHandler := s.setupMetrics()
		r.Use(metricsMiddleware)
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Get("/", s.HelloWorldHandler)
	r.Get("/health", s.healthHandler)

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(rateLimit(s.limiter))
		}

		r.Route("/todos", func(r chi.Router) {
			r.Post("/", s.createTodoHandler)
			r.Get("/", s.getAllTodosHandler)
			r.Post("/search", s.markFoundHandler)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getTodoByIDHandler)
				r.Put("/", s.updateTodoHandler)
				r.Delete("/", s.deleteTodoHandler)
				r.Post("/toggle", s.toggleCompletedHandler)
				r.Post("/edit", s.setEditingHandler)

				r.Route("/attachments", func(r chi.Router) {
					r.Post("/", s.uploadAttachmentHandler)
					r.Get("/", s.listAttachmentsHandler)
					r.Get("/{attachmentId}", s.getAttachmentHandler)
					r.Get("/{attachmentId}/content", s.downloadAttachmentHandler)
					r.Delete("/{attachmentId}", s.deleteAttachmentHandler)
				})
			})
		})
	})

	return r
}

func (s *Server) allowedOrigins() []string {
	if len(s.cfg.Security.CORSAllowedOrigins) > 0 {
		return s.cfg.Security.CORSAllowedOrigins
	}
	return []string{"https://*", "http://*"}
}

func (s *Server) HelloWorldHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Hello World from " + s.cfg.App.Name + "!"})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthStats := s.db.Health()

	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.ValidateSetup(ctx); err != nil {
			s.log.WithError(err).Warn("storage health check failed")
			healthStats["storage"] = "down"
			healthStats["status"] = "down"
		} else {
			healthStats["storage"] = "up"
		}
	}

	if status, ok := healthStats["status"]; ok && status == "down" {
		respondWithJSON(w, http.StatusServiceUnavailable, healthStats)
		return
	}
	respondWithJSON(w, http.StatusOK, healthStats)
}

func (s *Server) createTodoHandler(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTodoRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	todoResp, err := s.todoService.CreateTodo(r.Context(), req)
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to create todo")
		return
	}

	respondWithJSON(w, http.StatusCreated, todoResp)
}

func (s *Server) getAllTodosHandler(w http.ResponseWriter, r *http.Request) {
	todos, err := s.todoService.GetAllTodos(r.Context())
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to retrieve todos")
		return
	}

	respondWithJSON(w, http.StatusOK, todos)
}

func (s *Server) getTodoByIDHandler(w http.ResponseWriter, r *http.Request) {
	todo, err := s.todoService.GetTodoByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to retrieve todo")
		return
	}

	respondWithJSON(w, http.StatusOK, todo)
}

func (s *Server) updateTodoHandler(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateTodoRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	updatedTodo, err := s.todoService.UpdateTodo(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to update todo")
		return
	}

	respondWithJSON(w, http.StatusOK, updatedTodo)
}

func (s *Server) deleteTodoHandler(w http.ResponseWriter, r *http.Request) {
	result, err := s.todoService.DeleteTodo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to delete todo")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (s *Server) toggleCompletedHandler(w http.ResponseWriter, r *http.Request) {
	todo, err := s.todoService.ToggleCompleted(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to toggle todo")
		return
	}

	respondWithJSON(w, http.StatusOK, todo)
}

func (s *Server) setEditingHandler(w http.ResponseWriter, r *http.Request) {
	todo, err := s.todoService.SetEditing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to set editing todo")
		return
	}

	respondWithJSON(w, http.StatusOK, todo)
}

func (s *Server) markFoundHandler(w http.ResponseWriter, r *http.Request) {
	var req service.SearchRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	todos, err := s.todoService.MarkFound(r.Context(), req.Title)
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to search todos")
		return
	}

	respondWithJSON(w, http.StatusOK, todos)
}
