package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/anishjha12309/itero/internal/models"
)

// SQLiteStore persists interviews in a single SQLite table. Variable
// shape fields (transcript, questions, evaluation) are stored as JSON
// columns; queries only ever filter on session id and start time.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and creates if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS interviews (
		session_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		code TEXT,
		language TEXT,
		transcript TEXT,
		questions TEXT,
		evaluation TEXT,
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP
	)`)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, interview *models.Interview) error {
	transcript, err := json.Marshal(interview.Transcript)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	questions, err := json.Marshal(interview.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	var evaluation []byte
	if interview.Evaluation != nil {
		if evaluation, err = json.Marshal(interview.Evaluation); err != nil {
			return fmt.Errorf("marshal evaluation: %w", err)
		}
	}
	var endedAt any
	if interview.EndedAt != nil {
		endedAt = interview.EndedAt.UTC()
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO interviews
		(session_id, status, code, language, transcript, questions, evaluation, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			status = excluded.status,
			code = excluded.code,
			language = excluded.language,
			transcript = excluded.transcript,
			questions = excluded.questions,
			evaluation = excluded.evaluation,
			ended_at = excluded.ended_at`,
		interview.SessionID, string(interview.Status), interview.Code, interview.Language,
		string(transcript), string(questions), nullableString(evaluation),
		interview.StartedAt.UTC(), endedAt)
	if err != nil {
		return fmt.Errorf("save interview: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*models.Interview, error) {
	row := s.db.QueryRowContext(ctx, `SELECT session_id, status, code, language,
		transcript, questions, evaluation, started_at, ended_at
		FROM interviews WHERE session_id = ?`, sessionID)
	interview, err := scanInterview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return interview, err
}

func (s *SQLiteStore) List(ctx context.Context) ([]*models.Interview, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id, status, code, language,
		transcript, questions, evaluation, started_at, ended_at
		FROM interviews ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	defer rows.Close()

	var out []*models.Interview
	for rows.Next() {
		interview, err := scanInterview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, interview)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInterview(row rowScanner) (*models.Interview, error) {
	var (
		interview  models.Interview
		status     string
		transcript string
		questions  string
		evaluation sql.NullString
		endedAt    sql.NullTime
	)
	err := row.Scan(&interview.SessionID, &status, &interview.Code, &interview.Language,
		&transcript, &questions, &evaluation, &interview.StartedAt, &endedAt)
	if err != nil {
		return nil, err
	}

	interview.Status = models.Status(status)
	if err := json.Unmarshal([]byte(transcript), &interview.Transcript); err != nil {
		return nil, fmt.Errorf("unmarshal transcript: %w", err)
	}
	if err := json.Unmarshal([]byte(questions), &interview.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	if evaluation.Valid && evaluation.String != "" {
		interview.Evaluation = &models.Evaluation{}
		if err := json.Unmarshal([]byte(evaluation.String), interview.Evaluation); err != nil {
			return nil, fmt.Errorf("unmarshal evaluation: %w", err)
		}
	}
	if endedAt.Valid {
		t := endedAt.Time
		interview.EndedAt = &t
	}
	return &interview, nil
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
