package evaluate

import (
	"fmt"
	"strings"

	"github.com/anishjha12309/itero/internal/models"
)

// systemPrompt pins the model to JSON-only output.
const systemPrompt = "You are an expert technical interviewer. Respond only with valid JSON."

// buildPrompt renders the evaluation request for one finished
// interview.
func buildPrompt(interview *models.Interview) string {
	var transcript strings.Builder
	for i, entry := range interview.Transcript {
		if i > 0 {
			transcript.WriteString("\n")
		}
		speaker := "Candidate"
		if entry.Role == models.RoleAgent {
			speaker = "Interviewer"
		}
		transcript.WriteString(speaker)
		transcript.WriteString(": ")
		transcript.WriteString(entry.Content)
	}
	transcriptText := transcript.String()
	if transcriptText == "" {
		transcriptText = "No transcript available."
	}

	code := interview.Code
	if code == "" {
		code = "// No code submitted"
	}

	questions := "No specific questions recorded."
	if len(interview.Questions) > 0 {
		var qs strings.Builder
		for i, q := range interview.Questions {
			if i > 0 {
				qs.WriteString("\n")
			}
			fmt.Fprintf(&qs, "%d. %s", i+1, q)
		}
		questions = qs.String()
	}

	return fmt.Sprintf(`You are an expert technical interviewer evaluator. Analyze the following coding interview and provide detailed feedback.

## Interview Transcript:
%s

## Candidate's Code:
`+"```%s\n%s\n```"+`

## Questions Asked:
%s

Please provide a comprehensive evaluation in the following JSON format:
{
  "overallScore": <number from 1-10>,
  "strengths": [<list of things the candidate did well>],
  "improvements": [<list of areas that need improvement>],
  "missingEdgeCases": [<list of edge cases the candidate missed>],
  "nextSteps": [<list of recommended next steps for preparation>],
  "codeReview": "<detailed code review with suggestions>"
}

Be specific, constructive, and encouraging. Focus on actionable feedback.`,
		transcriptText, interview.Language, code, questions)
}
