// Package handler exposes the staff area as a JSON API. The host platform
// renders its own UI; every endpoint takes and returns JSON and reports
// failures as {"success": false, "msg": ...}.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/runt18/edx-ora2/internal/ai"
	"github.com/runt18/edx-ora2/internal/assessment"
	"github.com/runt18/edx-ora2/internal/fileupload"
	"github.com/runt18/edx-ora2/internal/model"
	"github.com/runt18/edx-ora2/internal/submissions"
	"github.com/runt18/edx-ora2/internal/workflow"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	submissions *submissions.Service
	peer        *assessment.PeerService
	self        *assessment.SelfService
	staff       *assessment.StaffService
	workflow    *workflow.Service
	ai          *ai.Service
	files       fileupload.Service
}

// New creates a new Handler.
func New(
	subs *submissions.Service,
	peer *assessment.PeerService,
	self *assessment.SelfService,
	staff *assessment.StaffService,
	wf *workflow.Service,
	aiSvc *ai.Service,
	files fileupload.Service,
) *Handler {
	return &Handler{
		submissions: subs,
		peer:        peer,
		self:        self,
		staff:       staff,
		workflow:    wf,
		ai:          aiSvc,
		files:       files,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/staff", func(r chi.Router) {
		r.With(requireCourseStaff("You do not have permission to access the ORA staff area")).
			Get("/info", h.handleStaffInfo)
		r.With(requireCourseStaff("You do not have permission to access ORA learner information.")).
			Get("/learner", h.handleLearnerInfo)

		grading := requireCourseStaff("You do not have permission to access ORA staff grading.")
		r.With(grading).Get("/grade-next", h.handleGradeNext)
		r.With(grading).Post("/assessments", h.handleStaffAssess)
		r.With(grading).Post("/cancel", h.handleCancel)

		r.With(requireGlobalAdmin("You do not have permission to schedule training")).
			Post("/training", h.handleScheduleTraining)
		r.With(requireGlobalAdmin("You do not have permission to reschedule tasks.")).
			Post("/reschedule", h.handleReschedule)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func failure(msg string) map[string]any {
	return map[string]any{"success": false, "msg": msg}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// location pulls the course and item ids out of the query string.
func location(r *http.Request) (courseID, itemID string, ok bool) {
	courseID = r.URL.Query().Get("course_id")
	itemID = r.URL.Query().Get("item_id")
	return courseID, itemID, courseID != "" && itemID != ""
}

type staffInfoResponse struct {
	CourseID       string                   `json:"course_id"`
	ItemID         string                   `json:"item_id"`
	StatusCounts   map[string]int           `json:"status_counts"`
	NumSubmissions int                      `json:"num_submissions"`
	StaffGrading   model.StaffGradingStats  `json:"staff_grading"`
	ClassifierSet  *model.ClassifierSetInfo `json:"classifier_set,omitempty"`
}

func (h *Handler) handleStaffInfo(w http.ResponseWriter, r *http.Request) {
	courseID, itemID, ok := location(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, failure("course_id and item_id are required"))
		return
	}

	counts, total, err := h.workflow.StatusCounts(courseID, itemID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, failure(err.Error()))
		return
	}
	stats, err := h.staff.GradingStatistics(courseID, itemID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, failure(err.Error()))
		return
	}
	resp := staffInfoResponse{
		CourseID:       courseID,
		ItemID:         itemID,
		StatusCounts:   counts,
		NumSubmissions: total,
		StaffGrading:   stats,
	}
	if info, err := h.ai.LatestClassifierSetInfo(courseID, itemID); err != nil {
		writeJSON(w, http.StatusInternalServerError, failure(err.Error()))
		return
	} else if info != nil {
		resp.ClassifierSet = info
	}
	writeJSON(w, http.StatusOK, resp)
}

type learnerInfoResponse struct {
	Submission           *model.Submission           `json:"submission"`
	FileURL              string                      `json:"file_url,omitempty"`
	PeerAssessments      []model.Assessment          `json:"peer_assessments"`
	SubmittedAssessments []model.Assessment          `json:"submitted_assessments"`
	SelfAssessment       *model.Assessment           `json:"self_assessment,omitempty"`
	AIAssessment         *model.Assessment           `json:"ai_assessment,omitempty"`
	Workflow             *model.Workflow             `json:"workflow,omitempty"`
	Cancellation         *model.WorkflowCancellation `json:"cancellation,omitempty"`
	RubricMaxScores      map[string]int              `json:"rubric_max_scores,omitempty"`
}

func (h *Handler) handleLearnerInfo(w http.ResponseWriter, r *http.Request) {
	courseID, itemID, ok := location(r)
	studentID := r.URL.Query().Get("student_id")
	if !ok || studentID == "" {
		writeJSON(w, http.StatusBadRequest, failure("course_id, item_id and student_id are required"))
		return
	}

	subs, err := h.submissions.List(model.StudentItem{
		StudentID: studentID,
		CourseID:  courseID,
		ItemID:    itemID,
		ItemType:  model.ItemTypeOpenAssessment,
	}, 1)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, failure(err.Error()))
		return
	}
	if len(subs) == 0 {
		// The learner exists only through their submissions, so an
		// unknown student and one who never submitted look the same.
		writeJSON(w, http.StatusOK, learnerInfoResponse{})
		return
	}
	sub := subs[0]

	resp := learnerInfoResponse{
		Submission: &sub,
		FileURL:    h.fileURL(sub),
	}
	if resp.PeerAssessments, err = h.peer.Assessments(sub.UUID); err != nil {
		writeJSON(w, http.StatusInternalServerError, failure(err.Error()))
		return
	}
	if resp.SubmittedAssessments, err = h.peer.SubmittedAssessments(sub.UUID); err != nil {
		writeJSON(w, http.StatusInternalServerError, failure(err.Error()))
		return
	}
	if resp.SelfAssessment, err = h.self.Assessment(sub.UUID); err != nil {
		writeJSON(w, http.StatusInternalServerError, failure(err.Error()))
		return
	}
	if resp.AIAssessment, err = h.ai.LatestAssessment(sub.UUID); err != nil {
		writeJSON(w, http.StatusInternalServerError, failure(err.Error()))
		return
	}
	if resp.Cancellation, err = h.workflow.Cancellation(sub.UUID); err != nil {
		writeJSON(w, http.StatusInternalServerError, failure(err.Error()))
		return
	}
	wf, err := h.workflow.Get(sub.UUID)
	switch {
	case err == nil:
		resp.Workflow = &wf
	case errors.Is(err, workflow.ErrNotFound):
		// A submission without a workflow still shows up here.
	default:
		writeJSON(w, http.StatusInternalServerError, failure(err.Error()))
		return
	}
	if len(resp.PeerAssessments) > 0 {
		if resp.RubricMaxScores, err = h.peer.RubricMaxScores(sub.UUID); err != nil {
			writeJSON(w, http.StatusInternalServerError, failure(err.Error()))
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// fileURL resolves the download URL for a submission's attached file. URL
// resolution failures are logged and leave the rest of the learner info
// intact, matching how the staff pages degrade.
func (h *Handler) fileURL(sub model.Submission) string {
	if sub.Answer.FileKey == "" {
		return ""
	}
	url, err := h.files.DownloadURL(sub.Answer.FileKey)
	if err != nil {
		slog.Warn("could not resolve file download URL",
			"submission_uuid", sub.UUID, "file_key", sub.Answer.FileKey, "error", err)
		return ""
	}
	return url
}

func (h *Handler) handleGradeNext(w http.ResponseWriter, r *http.Request) {
	courseID, itemID, ok := location(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, failure("course_id and item_id are required"))
		return
	}

	sub, err := h.staff.SubmissionToAssess(courseID, itemID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, failure(err.Error()))
		return
	}
	if sub == nil {
		writeJSON(w, http.StatusOK, failure("No other learner responses are available for grading at this time."))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"submission": sub,
		"file_url":   h.fileURL(*sub),
	})
}

type staffAssessRequest struct {
	SubmissionUUID    string            `json:"submission_uuid"`
	OptionsSelected   map[string]string `json:"options_selected"`
	CriterionFeedback map[string]string `json:"criterion_feedback"`
	OverallFeedback   string            `json:"overall_feedback"`
	Rubric            model.Rubric      `json:"rubric"`
}

func (h *Handler) handleStaffAssess(w http.ResponseWriter, r *http.Request) {
	var req staffAssessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, failure("invalid request body: "+err.Error()))
		return
	}
	if req.SubmissionUUID == "" {
		writeJSON(w, http.StatusOK, failure("The submission ID of the submission being assessed was not found."))
		return
	}

	a, err := h.staff.CreateAssessment(
		req.SubmissionUUID, caller(r),
		req.OptionsSelected, req.CriterionFeedback,
		req.OverallFeedback, req.Rubric,
	)
	if err != nil {
		slog.Warn("staff assessment rejected", "submission_uuid", req.SubmissionUUID, "error", err)
		writeJSON(w, http.StatusOK, failure("Your staff assessment could not be submitted."))
		return
	}

	// Let the workflow pick up the new grade; requirements stay whatever
	// was recorded before. Submissions without a workflow (practice
	// rounds, scorer dummies) are still assessable.
	if _, err := h.workflow.UpdateFromAssessments(req.SubmissionUUID, nil); err != nil && !errors.Is(err, workflow.ErrNotFound) {
		writeJSON(w, http.StatusInternalServerError, failure(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "assessment": a, "msg": ""})
}

type cancelRequest struct {
	SubmissionUUID string `json:"submission_uuid"`
	Comments       string `json:"comments"`
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, failure("invalid request body: "+err.Error()))
		return
	}
	if req.Comments == "" {
		writeJSON(w, http.StatusOK, failure("Please enter valid reason to remove the submission."))
		return
	}

	if err := h.workflow.Cancel(req.SubmissionUUID, req.Comments, caller(r)); err != nil {
		slog.Error("cancel workflow", "submission_uuid", req.SubmissionUUID, "error", err)
		writeJSON(w, http.StatusOK, failure(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"msg": "The learner submission has been removed from peer assessment. " +
			"The learner receives a grade of zero unless you delete " +
			"the learner's state for the problem to allow them to " +
			"resubmit a response.",
	})
}
