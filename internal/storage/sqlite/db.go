package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"supporttriage/internal/domain"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS classification_history (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		ticket_id     TEXT NOT NULL,
		title         TEXT NOT NULL,
		client        TEXT DEFAULT '',
		channel       TEXT DEFAULT '',
		priority      TEXT NOT NULL,
		urgency       TEXT NOT NULL,
		impact        TEXT NOT NULL,
		confidence    REAL NOT NULL,
		model_used    TEXT DEFAULT '',
		classified_at DATETIME NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_ch_ticket ON classification_history(ticket_id);
	CREATE INDEX IF NOT EXISTS idx_ch_date ON classification_history(classified_at);

	CREATE TABLE IF NOT EXISTS ticket_feedback (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		ticket_id        TEXT NOT NULL,
		corrected_fields TEXT NOT NULL,
		comment          TEXT DEFAULT '',
		created_at       DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_fb_date ON ticket_feedback(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// --- Classification History ---

func InsertClassification(db *sql.DB, r domain.ClassificationRecord) (int64, error) {
	if r.ClassifiedAt.IsZero() {
		r.ClassifiedAt = time.Now().UTC()
	}
	res, err := db.Exec(
		`INSERT INTO classification_history
		 (ticket_id, title, client, channel, priority, urgency, impact, confidence, model_used, classified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.TicketID, r.Title, r.Client, r.Channel,
		string(r.Priority), string(r.Urgency), string(r.Impact),
		r.Confidence, r.ModelUsed, r.ClassifiedAt.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func GetClassificationByTicketID(db *sql.DB, ticketID string) (domain.ClassificationRecord, error) {
	var r domain.ClassificationRecord
	err := db.QueryRow(
		`SELECT id, ticket_id, title, client, channel, priority, urgency, impact, confidence, model_used, classified_at
		 FROM classification_history
		 WHERE ticket_id = ?`,
		ticketID,
	).Scan(
		&r.ID, &r.TicketID, &r.Title, &r.Client, &r.Channel,
		&r.Priority, &r.Urgency, &r.Impact,
		&r.Confidence, &r.ModelUsed, &r.ClassifiedAt,
	)
	return r, err
}

func GetRecentClassifications(db *sql.DB, limit int) ([]domain.ClassificationRecord, error) {
	rows, err := db.Query(
		`SELECT id, ticket_id, title, client, channel, priority, urgency, impact, confidence, model_used, classified_at
		 FROM classification_history
		 ORDER BY classified_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ClassificationRecord
	for rows.Next() {
		var r domain.ClassificationRecord
		if err := rows.Scan(
			&r.ID, &r.TicketID, &r.Title, &r.Client, &r.Channel,
			&r.Priority, &r.Urgency, &r.Impact,
			&r.Confidence, &r.ModelUsed, &r.ClassifiedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Feedback ---

// InsertFeedback appends a correction. Entries are never updated or deleted.
func InsertFeedback(db *sql.DB, f domain.FeedbackEntry) (domain.FeedbackEntry, error) {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	fields, err := json.Marshal(f.CorrectedFields)
	if err != nil {
		return f, fmt.Errorf("encoding corrected fields: %w", err)
	}
	res, err := db.Exec(
		`INSERT INTO ticket_feedback (ticket_id, corrected_fields, comment, created_at)
		 VALUES (?, ?, ?, ?)`,
		f.TicketID, string(fields), f.Comment, f.CreatedAt.UTC(),
	)
	if err != nil {
		return f, err
	}
	f.ID, err = res.LastInsertId()
	return f, err
}

// GetRecentFeedback returns the last limit entries, oldest first.
func GetRecentFeedback(db *sql.DB, limit int) ([]domain.FeedbackEntry, error) {
	rows, err := db.Query(
		`SELECT id, ticket_id, corrected_fields, comment, created_at FROM (
		   SELECT id, ticket_id, corrected_fields, comment, created_at
		   FROM ticket_feedback
		   ORDER BY id DESC
		   LIMIT ?
		 ) ORDER BY id ASC`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.FeedbackEntry{}
	for rows.Next() {
		var f domain.FeedbackEntry
		var fields string
		if err := rows.Scan(&f.ID, &f.TicketID, &fields, &f.Comment, &f.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(fields), &f.CorrectedFields); err != nil {
			return nil, fmt.Errorf("decoding corrected fields for feedback %d: %w", f.ID, err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// --- Stats ---

func GetClassificationStats(db *sql.DB, since time.Time, heuristicModel string) (domain.ClassificationStats, error) {
	var s domain.ClassificationStats
	err := db.QueryRow(
		`SELECT COUNT(*), COALESCE(AVG(confidence), 0),
		        COALESCE(SUM(CASE WHEN model_used = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN confidence < 0.50 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN confidence >= 0.50 AND confidence < 0.70 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN confidence >= 0.70 AND confidence < 0.90 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN confidence >= 0.90 THEN 1 ELSE 0 END), 0)
		 FROM classification_history WHERE classified_at >= ?`,
		heuristicModel, since.UTC(),
	).Scan(&s.TotalClassifications, &s.AvgConfidence, &s.HeuristicCount,
		&s.BucketBelow50, &s.Bucket50to70, &s.Bucket70to90, &s.Bucket90Plus)
	if err != nil {
		return s, err
	}

	err = db.QueryRow(
		`SELECT COUNT(*) FROM ticket_feedback WHERE created_at >= ?`,
		since.UTC(),
	).Scan(&s.TotalFeedback)
	return s, err
}
