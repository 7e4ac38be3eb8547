package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"spendsage-server/src/services"
	"spendsage-server/src/util"

	"go.uber.org/zap"
)

const taskNotFound = "Background task not found"

func ListTasks(tasks *services.TaskService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		list, err := tasks.List(r.Context(), p)
		if err != nil {
			writeFailure(w, log, err, "Failed to retrieve background tasks", taskNotFound)
			return
		}
		util.WriteSuccess(w, http.StatusOK, "Background tasks retrieved successfully", list)
	}
}

func GetTask(tasks *services.TaskService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, taskNotFound)
		if !ok {
			return
		}
		task, err := tasks.Get(r.Context(), p, id)
		if err != nil {
			writeFailure(w, log, err, "Failed to retrieve background task", taskNotFound)
			return
		}
		util.WriteSuccess(w, http.StatusOK, "Background task retrieved successfully", task)
	}
}

// GetTaskResult streams the artifact of the caller's finished task.
func GetTaskResult(tasks *services.TaskService, log *zap.Logger) http.HandlerFunc {
	const notFound = "Task result not found"
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, notFound)
		if !ok {
			return
		}
		path, err := tasks.ResultPath(r.Context(), p, id)
		if err != nil {
			writeFailure(w, log, err, "Failed to retrieve task result", notFound)
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
		if filepath.Ext(path) == ".csv" {
			w.Header().Set("Content-Type", "text/csv")
		}
		http.ServeFile(w, r, path)
	}
}

// EnqueueTask starts a background task of taskType for the caller and
// answers 202 with the PENDING record.
func EnqueueTask(tasks *services.TaskService, taskType, message string, log *zap.Logger) http.HandlerFunc {
	const failMsg = "Failed to start background task"
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		task, err := tasks.Enqueue(r.Context(), p, taskType)
		if errors.Is(err, services.ErrDispatch) {
			util.WriteError(w, http.StatusServiceUnavailable, failMsg, map[string]any{
				"detail": "The task could not be queued. Try again later.",
				"task":   task,
			})
			return
		}
		if err != nil {
			writeFailure(w, log, err, failMsg, "")
			return
		}
		util.WriteSuccess(w, http.StatusAccepted, message, task)
	}
}
