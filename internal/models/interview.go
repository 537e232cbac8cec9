// Package models defines the data structures for interview sessions.
package models

import "time"

// Role identifies which side of the conversation produced a transcript entry.
type Role string

const (
	RoleAgent Role = "agent"
	RoleUser  Role = "user"
)

// Status is the lifecycle status of an interview record.
type Status string

const (
	// StatusActive - Interview is in progress.
	StatusActive Status = "active"
	// StatusCompleted - Interview ended, final transcript persisted.
	StatusCompleted Status = "completed"
	// StatusEvaluated - LLM evaluation attached to the record.
	StatusEvaluated Status = "evaluated"
)

// TranscriptEntry is a single accepted utterance in the session transcript.
// Entries are immutable once appended; ids are unique within a session.
type TranscriptEntry struct {
	ID        string    `json:"id" bson:"id"`
	Role      Role      `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Evaluation is the structured feedback produced by the LLM evaluator.
type Evaluation struct {
	OverallScore     int      `json:"overallScore" bson:"overallScore"`
	Strengths        []string `json:"strengths" bson:"strengths"`
	Improvements     []string `json:"improvements" bson:"improvements"`
	MissingEdgeCases []string `json:"missingEdgeCases" bson:"missingEdgeCases"`
	NextSteps        []string `json:"nextSteps" bson:"nextSteps"`
	CodeReview       string   `json:"codeReview" bson:"codeReview"`
}

// Interview is the persisted record of one mock-interview session.
type Interview struct {
	SessionID  string            `json:"sessionId" bson:"sessionId"`
	Status     Status            `json:"status" bson:"status"`
	Code       string            `json:"code" bson:"code"`
	Language   string            `json:"language" bson:"language"`
	Transcript []TranscriptEntry `json:"transcript" bson:"transcript"`
	Questions  []string          `json:"questions" bson:"questions"`
	StartedAt  time.Time         `json:"startedAt" bson:"startedAt"`
	EndedAt    *time.Time        `json:"endedAt,omitempty" bson:"endedAt,omitempty"`
	Evaluation *Evaluation       `json:"evaluation,omitempty" bson:"evaluation,omitempty"`
}
