package handler

import (
	"fmt"
	"net/http"

	"github.com/runt18/edx-ora2/internal/ai"
	"github.com/runt18/edx-ora2/internal/model"
)

// defaultAlgorithmID names the classifier algorithm used when a training
// request does not pick one.
const defaultAlgorithmID = "ease"

type scheduleTrainingRequest struct {
	CourseID    string                  `json:"course_id"`
	ItemID      string                  `json:"item_id"`
	AlgorithmID string                  `json:"algorithm_id"`
	Rubric      model.Rubric            `json:"rubric"`
	Examples    []model.TrainingExample `json:"examples"`
}

func (h *Handler) handleScheduleTraining(w http.ResponseWriter, r *http.Request) {
	var req scheduleTrainingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, failure("invalid request body: "+err.Error()))
		return
	}
	if req.CourseID == "" || req.ItemID == "" {
		writeJSON(w, http.StatusBadRequest, failure("course_id and item_id are required"))
		return
	}
	if len(req.Examples) == 0 {
		writeJSON(w, http.StatusOK, failure("Example Based Assessment is not configured for this location."))
		return
	}
	if req.AlgorithmID == "" {
		req.AlgorithmID = defaultAlgorithmID
	}

	workflowUUID, err := h.ai.ScheduleTraining(req.Rubric, req.Examples, req.CourseID, req.ItemID, req.AlgorithmID)
	if err != nil {
		writeJSON(w, http.StatusOK, failure(
			fmt.Sprintf("An error occurred scheduling classifier training: %v", err)))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"workflow_uuid": workflowUUID,
		"msg":           fmt.Sprintf("Training scheduled with new Workflow UUID: %s", workflowUUID),
	})
}

type rescheduleRequest struct {
	CourseID string `json:"course_id"`
	ItemID   string `json:"item_id"`
}

func (h *Handler) handleReschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, failure("invalid request body: "+err.Error()))
		return
	}
	if req.CourseID == "" || req.ItemID == "" {
		writeJSON(w, http.StatusBadRequest, failure("course_id and item_id are required"))
		return
	}

	if err := h.ai.RescheduleUnfinishedTasks(r.Context(), req.CourseID, req.ItemID, ai.TaskTypeGrade); err != nil {
		writeJSON(w, http.StatusOK, failure(
			fmt.Sprintf("An error occurred while rescheduling tasks: %v", err)))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"msg":     "All AI tasks associated with this item have been rescheduled successfully.",
	})
}
