package evaluate

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/anishjha12309/itero/internal/models"
)

var errNoJSON = errors.New("no JSON object in evaluation response")

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)
var multiSpace = regexp.MustCompile(`\s+`)

// parseEvaluation extracts the evaluation object from a model
// response. Models wrap JSON in prose or markdown fences, and
// sometimes emit raw control characters inside string values, so the
// object is cut out first and sanitized before decoding.
func parseEvaluation(response string) (*models.Evaluation, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return nil, errNoJSON
	}
	raw := response[start : end+1]

	clean := controlChars.ReplaceAllString(raw, " ")
	clean = multiSpace.ReplaceAllString(clean, " ")

	var eval models.Evaluation
	if err := json.Unmarshal([]byte(clean), &eval); err != nil {
		return nil, err
	}
	return sanitize(&eval), nil
}

// sanitize clamps the score and backfills empty sections so callers
// always get a presentable evaluation.
func sanitize(eval *models.Evaluation) *models.Evaluation {
	if eval.OverallScore == 0 {
		eval.OverallScore = 5
	}
	if eval.OverallScore < 1 {
		eval.OverallScore = 1
	}
	if eval.OverallScore > 10 {
		eval.OverallScore = 10
	}
	if len(eval.Strengths) == 0 {
		eval.Strengths = []string{"Good attempt at solving the problem"}
	}
	if len(eval.Improvements) == 0 {
		eval.Improvements = []string{"Consider practicing more problems"}
	}
	if eval.MissingEdgeCases == nil {
		eval.MissingEdgeCases = []string{}
	}
	if len(eval.NextSteps) == 0 {
		eval.NextSteps = []string{"Keep practicing!"}
	}
	if eval.CodeReview == "" {
		eval.CodeReview = "Code submitted for review."
	}
	return eval
}

// DefaultEvaluation is attached when the evaluation backend fails or
// is not configured.
func DefaultEvaluation() *models.Evaluation {
	return &models.Evaluation{
		OverallScore:     5,
		Strengths:        []string{"You attempted the problem"},
		Improvements:     []string{"Unable to generate detailed feedback due to an error"},
		MissingEdgeCases: []string{},
		NextSteps:        []string{"Try again with a new interview session"},
		CodeReview:       "Evaluation could not be completed.",
	}
}
