package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devclub-edu/leaderboard/internal/models"
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	tasks := user.Tasks
	if tasks == nil {
		tasks = []models.Task{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": tasks,
		"user":  models.ProfileOf(user),
	})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskId")
	if taskID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "task id is required")
		return
	}

	var req models.UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Completed == nil {
		respondError(w, http.StatusBadRequest, "validation_error", "Invalid request. 'completed' must be a boolean.")
		return
	}

	user := UserFromContext(r.Context())
	points, err := s.tracker.SetTaskCompletion(r.Context(), user.ID, taskID, *req.Completed)
	if err != nil {
		respondServiceError(w, err, "update task")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Task updated successfully",
		"taskId":    taskID,
		"completed": *req.Completed,
		"points":    points,
	})
}
