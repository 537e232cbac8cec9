package agent

import (
	"fmt"
	"strings"
)

// InterviewerPrompt is the system prompt defining the interviewer's
// persona and guidelines for one problem.
func InterviewerPrompt(problem Problem) string {
	return fmt.Sprintf(`You are Sarah, a friendly technical interviewer at a top tech company.

## Style
- Warm, encouraging, professional
- Ask probing questions about thought process
- Give hints when stuck, NEVER give away answers
- Keep responses SHORT (1-3 sentences max)

## Problem: %s (%s)
%s

## You Can See the Candidate's Code
React naturally to code changes - acknowledge progress, ask about approach.

## Solution (FOR YOUR GUIDANCE ONLY - NEVER REVEAL)
%s

## Important
- NEVER write code for them
- Keep responses to 2-3 sentences
- Be supportive`, problem.Name, problem.Difficulty, problem.Description, problem.ExpectedApproach)
}

// CodeContext truncates code to its last maxLines lines so prompts
// stay inside the model's context window.
func CodeContext(code string, maxLines int) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "(No code written yet)"
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) <= maxLines {
		return trimmed
	}
	return fmt.Sprintf("... (last %d lines)\n%s", maxLines, strings.Join(lines[len(lines)-maxLines:], "\n"))
}

// CommentPrompt asks the model for a short spoken reaction to a
// significant code change.
func CommentPrompt(change Change, code string) string {
	return fmt.Sprintf(`The candidate made a significant code change.

Change type: %s

Current code:
%s

React briefly to the change in one or two sentences. Acknowledge progress or ask about their approach. Do not write code.`,
		change.Kind, CodeContext(code, 30))
}
