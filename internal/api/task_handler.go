package api

import (
	"fmt"
	"net/http"

	"talent-match/internal/embedding"
)

// EmbeddingTasksHandler lists embedding tasks for a tenant
// @Summary List embedding tasks
// @Description A tenant's embedding tasks in one state, newest first. Defaults to failed, the operator view
// @Tags embeddings
// @Produce json
// @Param tenant_id query string true "Tenant ID"
// @Param status query string false "pending, processing, completed or failed (default failed)"
// @Success 200 {array} embedding.Task
// @Failure 400 {object} map[string]string
// @Router /embeddings/tasks [get]
func (a *API) EmbeddingTasksHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	status := embedding.TaskStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = embedding.TaskFailed
	}
	switch status {
	case embedding.TaskPending, embedding.TaskProcessing, embedding.TaskCompleted, embedding.TaskFailed:
	default:
		writeError(w, http.StatusBadRequest, "status must be pending, processing, completed or failed")
		return
	}

	tasks, err := a.db.TasksByStatus(r.Context(), tenantID, status, 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load tasks: %v", err))
		return
	}
	if tasks == nil {
		tasks = []embedding.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

type retryTaskRequest struct {
	TaskID string `json:"task_id"`
}

// RetryEmbeddingTaskHandler re-enqueues a failed task
// @Summary Retry a failed embedding task
// @Description Returns a terminally failed task to pending with a fresh retry budget
// @Tags embeddings
// @Accept json
// @Produce json
// @Param request body retryTaskRequest true "Task to retry"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /embeddings/tasks/retry [post]
func (a *API) RetryEmbeddingTaskHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req retryTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TaskID == "" {
		writeError(w, http.StatusBadRequest, "task_id is required")
		return
	}
	if err := a.db.RetryTask(r.Context(), req.TaskID); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "requeued", "task_id": req.TaskID})
}
