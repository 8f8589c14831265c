// Package fixture generates dummy submissions and assessments for manual QA
// and load testing of the grading tools. Every generated submission gets the
// full grading lifecycle: a workflow over the peer and self steps, peer
// assessments from synthetic scorers, and one self assessment, all sharing
// one randomly generated rubric.
package fixture

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/runt18/edx-ora2/internal/assessment"
	"github.com/runt18/edx-ora2/internal/model"
	"github.com/runt18/edx-ora2/internal/submissions"
	"github.com/runt18/edx-ora2/internal/workflow"
)

const (
	// NumPeerAssessments is how many synthetic scorers assess each
	// generated submission.
	NumPeerAssessments = 3
	// NumCriteria and NumOptions set the shape of every generated rubric.
	NumCriteria = 5
	NumOptions  = 5
)

// workflowSteps is the step list every generated workflow runs through.
var workflowSteps = []string{model.StepPeer, model.StepSelf}

var (
	// ErrInvalidLocation rejects an empty course or item id.
	ErrInvalidLocation = errors.New("course id and item id are required")
	// ErrNegativeCount rejects a negative submission count.
	ErrNegativeCount = errors.New("number of submissions must not be negative")
)

// Generator drives the grading services to produce test data.
type Generator struct {
	submissions *submissions.Service
	peer        *assessment.PeerService
	self        *assessment.SelfService
	workflow    *workflow.Service
}

func NewGenerator(subs *submissions.Service, peer *assessment.PeerService, self *assessment.SelfService, wf *workflow.Service) *Generator {
	return &Generator{submissions: subs, peer: peer, self: self, workflow: wf}
}

// assessable is proof that a submission went through the full intake
// sequence: submission recorded, workflow created, requirements set. The
// peer and self steps take one instead of a raw UUID, which pins the
// service-call order the workflow engine depends on.
type assessable struct {
	submissionUUID string
	item           model.StudentItem
}

// Generate creates numSubmissions submissions at the given location, each
// with NumPeerAssessments peer assessments and one self assessment, and
// returns the student items the submissions were created for. Inputs are
// validated before anything is created. Service errors propagate unchanged
// and abort the remaining work; fixtures created before the failure stay
// persisted, and the items created so far are still returned.
func (g *Generator) Generate(courseID, itemID string, numSubmissions int) ([]model.StudentItem, error) {
	if courseID == "" || itemID == "" {
		return nil, ErrInvalidLocation
	}
	if numSubmissions < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeCount, numSubmissions)
	}

	slog.Info("creating submissions",
		"count", numSubmissions, "course_id", courseID, "item_id", itemID)

	created := make([]model.StudentItem, 0, numSubmissions)
	for subNum := 0; subNum < numSubmissions; subNum++ {
		slog.Info("creating submission", "num", subNum)

		target, err := g.createDummySubmission(model.StudentItem{
			StudentID: studentToken(),
			CourseID:  courseID,
			ItemID:    itemID,
			ItemType:  model.ItemTypeOpenAssessment,
		})
		if err != nil {
			return created, err
		}
		created = append(created, target.item)

		rubric, optionsSelected := dummyRubric()

		for num := 0; num < NumPeerAssessments; num++ {
			slog.Info("creating peer assessment", "num", num, "submission", subNum)
			if err := g.createPeerAssessment(num, target, rubric, optionsSelected); err != nil {
				return created, err
			}
		}

		slog.Info("creating self assessment", "submission", subNum)
		_, err = g.self.CreateAssessment(target.submissionUUID, target.item.StudentID, optionsSelected, rubric)
		if err != nil {
			return created, err
		}
	}
	return created, nil
}

// createDummySubmission records a lorem-ipsum submission for the student item
// and registers its workflow. The workflow must exist and have requirements
// recorded before any assessment lands: the workflow engine treats a workflow
// without requirements as not gradable, so the ordering here is a correctness
// requirement.
func (g *Generator) createDummySubmission(item model.StudentItem) (assessable, error) {
	sub, err := g.submissions.Create(item, model.Answer{Text: loremAnswer()})
	if err != nil {
		return assessable{}, err
	}
	if _, err := g.workflow.Create(sub.UUID, workflowSteps); err != nil {
		return assessable{}, err
	}
	requirements := model.Requirements{
		model.StepPeer: {MustGrade: 1, MustBeGradedBy: 1},
	}
	if _, err := g.workflow.UpdateFromAssessments(sub.UUID, requirements); err != nil {
		return assessable{}, err
	}
	return assessable{submissionUUID: sub.UUID, item: sub.StudentItem}, nil
}

// createPeerAssessment has scorer test_{n} assess the target. The scorer gets
// a submission of their own first (grading opens only after submitting) and
// is linked to the target directly instead of through any grading queue:
// guaranteed coverage of this exact submission is the point here, not
// realistic queue behavior.
func (g *Generator) createPeerAssessment(n int, target assessable, rubric model.Rubric, optionsSelected map[string]string) error {
	scorerItem := model.StudentItem{
		StudentID: fmt.Sprintf("test_%d", n),
		CourseID:  target.item.CourseID,
		ItemID:    target.item.ItemID,
		ItemType:  target.item.ItemType,
	}
	scorerSub, err := g.submissions.Create(scorerItem, model.Answer{Text: loremAnswer()})
	if err != nil {
		return err
	}
	if _, err := g.peer.CreateWorkflowItem(scorerSub.UUID, target.submissionUUID); err != nil {
		return err
	}
	_, err = g.peer.CreateAssessment(
		scorerSub.UUID, scorerItem.StudentID,
		optionsSelected, map[string]string{},
		gofakeit.LoremIpsumParagraph(2, 3, 10, "  "),
		rubric, NumPeerAssessments,
	)
	return err
}

// dummyRubric builds a rubric with NumCriteria criteria of NumOptions options
// each and picks an option per criterion. Names follow a combinatorial scheme
// so they are unique at any configured size; option points grow with the
// ordinal, and the selection always names the lowest-scoring option, keeping
// the synthetic answer key score-computable.
func dummyRubric() (model.Rubric, map[string]string) {
	rubric := model.Rubric{Criteria: make([]model.Criterion, 0, NumCriteria)}
	optionsSelected := make(map[string]string, NumCriteria)

	for i := 0; i < NumCriteria; i++ {
		criterion := model.Criterion{
			Order:  i,
			Name:   fmt.Sprintf("criterion-%d", i),
			Prompt: gofakeit.LoremIpsumParagraph(1, 2, 8, " "),
		}
		for j := 0; j < NumOptions; j++ {
			criterion.Options = append(criterion.Options, model.Option{
				Order:       j,
				Points:      j,
				Name:        fmt.Sprintf("option-%d-%d", i, j),
				Explanation: gofakeit.LoremIpsumParagraph(1, 2, 8, " "),
			})
		}
		rubric.Criteria = append(rubric.Criteria, criterion)
		optionsSelected[criterion.Name] = criterion.Options[0].Name
	}
	return rubric, optionsSelected
}

// studentToken returns a short opaque student id for a synthetic learner.
func studentToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

func loremAnswer() string {
	return gofakeit.LoremIpsumParagraph(5, 4, 12, "  ")
}
