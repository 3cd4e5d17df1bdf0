package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	// BackendAPIKey guards /v1 via X-API-Key or Authorization: Bearer.
	// Empty disables auth (development).
	BackendAPIKey string

	// CorsAllowedOrigins is comma-separated. Empty allows all.
	CorsAllowedOrigins string

	// MediaDir and MediaPath serve the local media store. Empty MediaDir
	// disables the route.
	MediaDir  string
	MediaPath string
}

func parseOrigins(raw string) []string {
	origins := []string{}
	for _, o := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(o); s != "" {
			origins = append(origins, s)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   parseOrigins(cfg.CorsAllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	if cfg.MediaDir != "" {
		prefix := "/" + strings.Trim(cfg.MediaPath, "/")
		if prefix == "/" {
			prefix = "/media"
		}
		r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.MediaDir))))
	}

	r.Route("/v1", func(r chi.Router) {
		if cfg.BackendAPIKey != "" {
			r.Use(APIKeyAuth(cfg.BackendAPIKey))
		}

		r.Get("/state", h.GetState)
		r.Get("/events", h.Events)
		r.Get("/jobs", h.ListJobs)
		r.Get("/jobs/{id}", h.GetJob)
		r.Get("/queue", h.QueueDepth)
		r.Get("/styles", h.ListStyles)

		// Projects
		r.Get("/projects", h.ListProjects)
		r.Post("/projects", h.CreateProject)
		r.Put("/projects/active", h.SelectProject)
		r.Patch("/projects/{id}", h.RenameProject)
		r.Delete("/projects/{id}", h.DeleteProject)

		// Active project
		r.Route("/project", func(r chi.Router) {
			r.Put("/mode", h.SetMode)
			r.Put("/brief", h.SetBrief)
			r.Put("/style", h.SetStyle)
			r.Put("/single", h.UpdateSingle)
			r.Put("/background", h.SetBackground)
			r.Post("/images", h.AddImage)
			r.Delete("/images/{imageId}", h.RemoveImage)
			r.Put("/images/{imageId}/role", h.SetImageRole)

			r.Post("/generate", h.Generate)
			r.Post("/spark", h.CreativeSpark)
			r.Put("/overture", h.SyncOverture)
			r.Delete("/error", h.ClearError)

			r.Put("/scenes/{sceneId}", h.EditScene)
			r.Delete("/scenes/{sceneId}", h.DeleteScene)
			r.Post("/scenes/{sceneId}/regenerate", h.RegenerateScene)
			r.Post("/scenes/{sceneId}/video", h.SceneVideo)
			r.Post("/scenes/{sceneId}/audio", h.SceneAudio)
		})

		// Chats
		r.Get("/chats", h.ListChats)
		r.Post("/chats", h.CreateChat)
		r.Put("/chats/active", h.SelectChat)
		r.Patch("/chats/{id}", h.UpdateChat)
		r.Delete("/chats/{id}", h.DeleteChat)

		r.Post("/chat/messages", h.SendChatMessage)
		r.Post("/chat/finalize", h.FinalizeChat)
		r.Put("/chat/dialogue", h.SetDialogue)
	})

	return r
}
