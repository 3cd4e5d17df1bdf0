package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bobarin/storyboard/internal/db"
	"github.com/bobarin/storyboard/internal/models"
	"github.com/bobarin/storyboard/internal/orchestrator"
	"github.com/bobarin/storyboard/internal/queue"
	"github.com/bobarin/storyboard/internal/services"
	"github.com/bobarin/storyboard/internal/workspace"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// JobStore is the optional job log.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, limit int) ([]models.Job, error)
}

type Handler struct {
	orch   *orchestrator.Orchestrator
	broker queue.Broker
	jobs   JobStore
	styles *services.StyleCatalogue

	eventInterval time.Duration
}

// NewHandler builds the HTTP handlers. jobs may be nil; a nil styles
// catalogue lists the built-in descriptions.
func NewHandler(orch *orchestrator.Orchestrator, broker queue.Broker, jobs JobStore, styles *services.StyleCatalogue) *Handler {
	return &Handler{
		orch:          orch,
		broker:        broker,
		jobs:          jobs,
		styles:        styles,
		eventInterval: 500 * time.Millisecond,
	}
}

// detached keeps a generation running if the client goes away; the result
// still lands in the project.
func detached(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// GetState handles GET /v1/state
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.orch.State())
}

// Projects

// ListProjects handles GET /v1/projects
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	st := h.orch.State()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"projects":        st.Projects,
		"activeProjectId": st.ActiveProjectID,
	})
}

// CreateProject handles POST /v1/projects
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	p := h.orch.CreateProject(r.Context())
	respondJSON(w, http.StatusCreated, models.CreateProjectResponse{ProjectID: p.ID})
}

// SelectProject handles PUT /v1/projects/active
func (h *Handler) SelectProject(w http.ResponseWriter, r *http.Request) {
	var req models.SelectRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.orch.SelectProject(r.Context(), req.ID); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.orch.ActiveProject())
}

// RenameProject handles PATCH /v1/projects/{id}
func (h *Handler) RenameProject(w http.ResponseWriter, r *http.Request) {
	var req models.RenameRequest
	if !decode(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.orch.RenameProject(r.Context(), id, req.Name); err != nil {
		respondErr(w, err)
		return
	}

	p, _ := h.orch.Project(id)
	respondJSON(w, http.StatusOK, p)
}

// DeleteProject handles DELETE /v1/projects/{id}
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Active project inputs

// SetMode handles PUT /v1/project/mode
func (h *Handler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req models.ModeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.orch.SwitchMode(r.Context(), req.Mode); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.orch.ActiveProject())
}

// SetBrief handles PUT /v1/project/brief
func (h *Handler) SetBrief(w http.ResponseWriter, r *http.Request) {
	var req models.BriefRequest
	if !decode(w, r, &req) {
		return
	}
	h.respondActive(w, h.orch.SetBrief(r.Context(), req.Brief))
}

// SetStyle handles PUT /v1/project/style
func (h *Handler) SetStyle(w http.ResponseWriter, r *http.Request) {
	var req models.StyleRequest
	if !decode(w, r, &req) {
		return
	}
	h.respondActive(w, h.orch.SetStyle(r.Context(), req.Style))
}

// UpdateSingle handles PUT /v1/project/single
func (h *Handler) UpdateSingle(w http.ResponseWriter, r *http.Request) {
	var req models.SingleRequest
	if !decode(w, r, &req) {
		return
	}
	h.respondActive(w, h.orch.UpdateSingle(r.Context(), req))
}

// SetBackground handles PUT /v1/project/background
func (h *Handler) SetBackground(w http.ResponseWriter, r *http.Request) {
	var req models.BackgroundRequest
	if !decode(w, r, &req) {
		return
	}
	h.respondActive(w, h.orch.SetBackground(r.Context(), req.Image))
}

// AddImage handles POST /v1/project/images
func (h *Handler) AddImage(w http.ResponseWriter, r *http.Request) {
	var req models.AddImageRequest
	if !decode(w, r, &req) {
		return
	}

	img, err := h.orch.AddObjectImage(r.Context(), req.Image, req.Role)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, img)
}

// RemoveImage handles DELETE /v1/project/images/{imageId}
func (h *Handler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.RemoveObjectImage(r.Context(), chi.URLParam(r, "imageId")); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetImageRole handles PUT /v1/project/images/{imageId}/role
func (h *Handler) SetImageRole(w http.ResponseWriter, r *http.Request) {
	var req models.RoleRequest
	if !decode(w, r, &req) {
		return
	}
	h.respondActive(w, h.orch.SetImageRole(r.Context(), chi.URLParam(r, "imageId"), req.Role))
}

// Generation

// Generate handles POST /v1/project/generate
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	p := h.orch.ActiveProject()
	if p.Mode == models.ModeStoryboard && strings.TrimSpace(p.MainBrief) == "" {
		respondError(w, http.StatusBadRequest, "Please write a brief first.")
		return
	}

	if err := h.orch.Generate(detached(r)); err != nil {
		respondErr(w, err)
		return
	}

	updated, _ := h.orch.Project(p.ID)
	respondJSON(w, http.StatusOK, updated)
}

// CreativeSpark handles POST /v1/project/spark
func (h *Handler) CreativeSpark(w http.ResponseWriter, r *http.Request) {
	spark, err := h.orch.CreativeSpark(detached(r))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"spark": spark,
		"brief": h.orch.ActiveProject().MainBrief,
	})
}

// ClearError handles DELETE /v1/project/error
func (h *Handler) ClearError(w http.ResponseWriter, r *http.Request) {
	h.orch.ClearError()
	respondJSON(w, http.StatusOK, h.orch.Session())
}

// Jobs

// ListJobs handles GET /v1/jobs
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		respondJSON(w, http.StatusOK, []models.Job{})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	jobs, err := h.jobs.ListJobs(r.Context(), limit)
	if err != nil {
		log.Printf("[API] Failed to list jobs: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to get jobs")
		return
	}
	respondJSON(w, http.StatusOK, jobs)
}

// GetJob handles GET /v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}
	if h.jobs == nil {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	job, err := h.jobs.GetJob(r.Context(), id)
	if errors.Is(err, db.ErrJobNotFound) {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		log.Printf("[API] Failed to get job %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// QueueDepth handles GET /v1/queue
func (h *Handler) QueueDepth(w http.ResponseWriter, r *http.Request) {
	depth := map[models.JobType]int64{}
	for _, t := range []models.JobType{models.JobTypeSceneVideo, models.JobTypeSceneAudio} {
		name, _ := queue.NameFor(t)
		n, err := h.broker.Length(r.Context(), name)
		if err != nil {
			log.Printf("[API] Failed to read queue %s: %v", name, err)
			respondError(w, http.StatusInternalServerError, "Failed to read queue")
			return
		}
		depth[t] = n
	}
	respondJSON(w, http.StatusOK, depth)
}

// ListStyles handles GET /v1/styles
func (h *Handler) ListStyles(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.styles.Styles())
}

// Helpers

func (h *Handler) respondActive(w http.ResponseWriter, err error) {
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.orch.ActiveProject())
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, workspace.ErrProjectNotFound),
		errors.Is(err, workspace.ErrChatNotFound),
		errors.Is(err, orchestrator.ErrSceneNotFound):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrInvalidInput),
		errors.Is(err, orchestrator.ErrNoScript),
		errors.Is(err, orchestrator.ErrEmptyBrief),
		errors.Is(err, orchestrator.ErrEmptyPrompt),
		errors.Is(err, orchestrator.ErrEmptyMessage),
		errors.Is(err, orchestrator.ErrEmptyHistory),
		errors.Is(err, orchestrator.ErrNoVoiceOver),
		errors.Is(err, orchestrator.ErrTooManyImages):
		return http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrRegenerationInProgress),
		errors.Is(err, orchestrator.ErrMediaInProgress),
		errors.Is(err, orchestrator.ErrChatBusy),
		errors.Is(err, orchestrator.ErrStaleResult):
		return http.StatusConflict
	}
	return http.StatusBadGateway
}

func respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusBadGateway {
		log.Printf("[API] Backend error: %v", err)
	}
	respondError(w, status, err.Error())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
