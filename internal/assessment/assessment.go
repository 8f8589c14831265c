// Package assessment implements the grading steps: peer assessment, self
// assessment and staff assessment. All three record assessments against the
// shared rubric model; the peer step additionally tracks who grades whom.
package assessment

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/runt18/edx-ora2/internal/model"
)

var (
	// ErrSubmissionNotFound means an assessment referenced a submission
	// that was never recorded.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrMissingSelection means a rubric criterion got no option selected.
	ErrMissingSelection = errors.New("missing option selection")
	// ErrUnknownCriterion means a selection named a criterion the rubric
	// does not have.
	ErrUnknownCriterion = errors.New("unknown criterion")
	// ErrUnknownOption means a selection named an option its criterion
	// does not have.
	ErrUnknownOption = errors.New("unknown option")
)

// SelectParts resolves option selections (criterion name to option name)
// against a rubric, producing assessment parts with points filled in. Every
// criterion must have a selection, and selections naming criteria outside the
// rubric are rejected.
func SelectParts(rubric model.Rubric, optionsSelected, criterionFeedback map[string]string) ([]model.AssessmentPart, error) {
	if err := rubric.Validate(); err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(rubric.Criteria))
	for _, c := range rubric.Criteria {
		known[c.Name] = true
	}
	for name := range optionsSelected {
		if !known[name] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCriterion, name)
		}
	}
	var parts []model.AssessmentPart
	for _, c := range rubric.Criteria {
		optionName, ok := optionsSelected[c.Name]
		if !ok {
			return nil, fmt.Errorf("%w: criterion %q", ErrMissingSelection, c.Name)
		}
		opt, ok := rubric.CriterionOption(c.Name, optionName)
		if !ok {
			return nil, fmt.Errorf("%w: criterion %q has no option %q", ErrUnknownOption, c.Name, optionName)
		}
		parts = append(parts, model.AssessmentPart{
			CriterionName: c.Name,
			OptionName:    opt.Name,
			Points:        opt.Points,
			Feedback:      criterionFeedback[c.Name],
		})
	}
	return parts, nil
}

// medianPartScores computes the per-criterion median of the given
// assessments' part points. An even number of scores takes the ceiling of
// the middle pair's mean.
func medianPartScores(assessments []model.Assessment) map[string]int {
	byCriterion := make(map[string][]int)
	for _, a := range assessments {
		for _, p := range a.Parts {
			byCriterion[p.CriterionName] = append(byCriterion[p.CriterionName], p.Points)
		}
	}
	medians := make(map[string]int, len(byCriterion))
	for name, scores := range byCriterion {
		sort.Ints(scores)
		n := len(scores)
		if n%2 == 1 {
			medians[name] = scores[n/2]
		} else {
			medians[name] = int(math.Ceil(float64(scores[n/2-1]+scores[n/2]) / 2))
		}
	}
	return medians
}
