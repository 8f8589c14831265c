package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/runt18/edx-ora2/internal/model"
)

// BuildExport assembles the full export report for a location: every student
// item with its submissions, the assessments each received, and workflow
// state.
func (s *Store) BuildExport(courseID, itemID string) (*model.CourseItemExport, error) {
	items, err := s.ListStudentItems(courseID, itemID)
	if err != nil {
		return nil, fmt.Errorf("list student items: %w", err)
	}

	export := &model.CourseItemExport{
		CourseID:    courseID,
		ItemID:      itemID,
		GeneratedAt: time.Now(),
	}
	for _, item := range items {
		subs, err := s.ListSubmissionsForItem(item.ID, 0)
		if err != nil {
			return nil, fmt.Errorf("list submissions for %s: %w", item.StudentID, err)
		}

		student := model.StudentExport{StudentID: item.StudentID, ItemType: item.ItemType}
		for _, sub := range subs {
			se, err := s.exportSubmission(sub)
			if err != nil {
				return nil, fmt.Errorf("export submission %s: %w", sub.UUID, err)
			}
			student.Submissions = append(student.Submissions, se)
		}
		export.Students = append(export.Students, student)
	}
	return export, nil
}

func (s *Store) exportSubmission(sub model.Submission) (model.SubmissionExport, error) {
	se := model.SubmissionExport{
		UUID:          sub.UUID,
		AttemptNumber: sub.AttemptNumber,
		Answer:        sub.Answer,
		SubmittedAt:   sub.SubmittedAt,
	}

	var err error
	se.PeerAssessments, err = s.GetAssessments(sub.UUID, model.PeerAssessmentType)
	if err != nil {
		return se, err
	}
	se.SelfAssessment, err = s.LatestAssessment(sub.UUID, model.SelfAssessmentType)
	if err != nil {
		return se, err
	}
	se.StaffAssessment, err = s.LatestAssessment(sub.UUID, model.StaffAssessmentType)
	if err != nil {
		return se, err
	}
	se.AIAssessment, err = s.LatestAssessment(sub.UUID, model.AIAssessmentType)
	if err != nil {
		return se, err
	}

	wf, err := s.GetWorkflow(sub.UUID)
	if err == sql.ErrNoRows {
		return se, nil
	}
	if err != nil {
		return se, err
	}
	cancellation, err := s.GetWorkflowCancellation(sub.UUID)
	if err != nil {
		return se, err
	}
	se.Workflow = &model.WorkflowExport{
		Status:       wf.Status,
		Steps:        wf.Steps,
		Requirements: wf.Requirements,
		Score:        wf.Score,
		Cancellation: cancellation,
	}
	return se, nil
}
