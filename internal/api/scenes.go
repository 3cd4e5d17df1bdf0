package api

import (
	"context"
	"log"
	"net/http"

	"github.com/bobarin/storyboard/internal/models"
	"github.com/bobarin/storyboard/internal/queue"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SyncOverture handles PUT /v1/project/overture
func (h *Handler) SyncOverture(w http.ResponseWriter, r *http.Request) {
	var req models.OvertureRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.orch.SyncOverture(detached(r), req.Indonesian); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.orch.ActiveProject().GeneratedPrompts)
}

// RegenerateScene handles POST /v1/project/scenes/{sceneId}/regenerate
func (h *Handler) RegenerateScene(w http.ResponseWriter, r *http.Request) {
	sceneID := chi.URLParam(r, "sceneId")
	if err := h.orch.RegenerateScene(detached(r), sceneID); err != nil {
		respondErr(w, err)
		return
	}
	h.respondScene(w, sceneID)
}

// EditScene handles PUT /v1/project/scenes/{sceneId}
func (h *Handler) EditScene(w http.ResponseWriter, r *http.Request) {
	var req models.SceneEditRequest
	if !decode(w, r, &req) {
		return
	}

	sceneID := chi.URLParam(r, "sceneId")
	if err := h.orch.EditScene(detached(r), sceneID, req); err != nil {
		respondErr(w, err)
		return
	}
	h.respondScene(w, sceneID)
}

// DeleteScene handles DELETE /v1/project/scenes/{sceneId}
func (h *Handler) DeleteScene(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.DeleteScene(r.Context(), chi.URLParam(r, "sceneId")); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SceneVideo handles POST /v1/project/scenes/{sceneId}/video
func (h *Handler) SceneVideo(w http.ResponseWriter, r *http.Request) {
	h.queueSceneMedia(w, r, models.JobTypeSceneVideo)
}

// SceneAudio handles POST /v1/project/scenes/{sceneId}/audio
func (h *Handler) SceneAudio(w http.ResponseWriter, r *http.Request) {
	h.queueSceneMedia(w, r, models.JobTypeSceneAudio)
}

// queueSceneMedia flips the scene to GENERATING, then hands the render to
// the worker. Like every /v1/project route it addresses the active project;
// a scene of another project cannot be queued until that project is selected.
func (h *Handler) queueSceneMedia(w http.ResponseWriter, r *http.Request, kind models.JobType) {
	ctx := r.Context()
	projectID := h.orch.ActiveProject().ID
	sceneID := chi.URLParam(r, "sceneId")

	if err := h.orch.BeginSceneMedia(ctx, kind, projectID, sceneID); err != nil {
		respondErr(w, err)
		return
	}

	jobID := uuid.New()
	if h.jobs != nil {
		job := &models.Job{
			ID:        jobID,
			ProjectID: projectID,
			SceneID:   sceneID,
			Type:      kind,
			Status:    models.JobStatusQueued,
		}
		if err := h.jobs.CreateJob(ctx, job); err != nil {
			log.Printf("[API] Failed to record job %s: %v", jobID, err)
		}
	}

	if err := queue.EnqueueSceneJob(ctx, h.broker, kind, projectID, sceneID, jobID); err != nil {
		log.Printf("[API] Failed to enqueue %s for scene %s: %v", kind, sceneID, err)
		h.orch.FailSceneMedia(context.WithoutCancel(ctx), kind, projectID, sceneID, err)
		respondError(w, http.StatusInternalServerError, "Failed to queue job")
		return
	}

	respondJSON(w, http.StatusAccepted, models.AcceptedResponse{
		JobID:   jobID,
		SceneID: sceneID,
		Status:  models.StatusGenerating,
	})
}

func (h *Handler) respondScene(w http.ResponseWriter, sceneID string) {
	gp := h.orch.ActiveProject().GeneratedPrompts
	if gp != nil {
		if i := gp.SceneIndex(sceneID); i >= 0 {
			respondJSON(w, http.StatusOK, gp.Scenes[i])
			return
		}
	}
	respondError(w, http.StatusNotFound, "Scene not found")
}
