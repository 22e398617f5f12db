package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/Sadman-Shakib-Aungon/quizzyverse/core"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/consultation"
)

type consultationRow struct {
	ID                    string         `db:"id"`
	StudentID             string         `db:"student_id"`
	ConsultantID          string         `db:"consultant_id"`
	QuizID                string         `db:"quiz_id"`
	QuizTitle             string         `db:"quiz_title"`
	QuizSubject           string         `db:"quiz_subject"`
	QuizScore             float64        `db:"quiz_score"`
	QuizTotalMarks        float64        `db:"quiz_total_marks"`
	QuizPercentage        float64        `db:"quiz_percentage"`
	Type                  string         `db:"type"`
	Priority              string         `db:"priority"`
	Status                string         `db:"status"`
	ScheduledAt           sql.NullTime   `db:"scheduled_at"`
	DurationMinutes       int            `db:"duration_minutes"`
	Meeting               types.JSONText `db:"meeting"`
	StudentNotes          sql.NullString `db:"student_notes"`
	ConsultantNotes       sql.NullString `db:"consultant_notes"`
	Feedback              types.JSONText `db:"feedback"`
	AutomaticallyAssigned bool           `db:"automatically_assigned"`
	AssignmentReason      sql.NullString `db:"assignment_reason"`
	IsActive              bool           `db:"is_active"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
}

type consultationRepository struct {
	db *sqlx.DB
}

var _ consultation.Repository = (*consultationRepository)(nil) // interface compliance check

func NewConsultationRepository(db *sql.DB) *consultationRepository {
	return &consultationRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo consultationRepository) getExec(svcExec []core.DBExecutor) sqlx.ExtContext {
	if len(svcExec) > 0 {
		if ext, ok := svcExec[0].(sqlx.ExtContext); ok {
			return ext
		}
	}
	return repo.db
}

func (repo consultationRepository) row(c consultation.Consultation) (consultationRow, error) {
	row := consultationRow{
		ID:                    c.ID,
		StudentID:             c.StudentID,
		ConsultantID:          c.ConsultantID,
		QuizID:                c.TriggerQuiz.QuizID,
		QuizTitle:             c.TriggerQuiz.Title,
		QuizSubject:           c.TriggerQuiz.Subject,
		QuizScore:             c.TriggerQuiz.Score,
		QuizTotalMarks:        c.TriggerQuiz.TotalMarks,
		QuizPercentage:        c.TriggerQuiz.Percentage,
		Type:                  c.Type,
		Priority:              c.Priority,
		Status:                c.Status,
		ScheduledAt:           sql.NullTime{Time: c.ScheduledAt.UTC(), Valid: !c.ScheduledAt.IsZero()},
		DurationMinutes:       int(c.Duration.Minutes()),
		StudentNotes:          sql.NullString{String: c.StudentNotes, Valid: c.StudentNotes != ""},
		ConsultantNotes:       sql.NullString{String: c.ConsultantNotes, Valid: c.ConsultantNotes != ""},
		AutomaticallyAssigned: c.AutomaticallyAssigned,
		AssignmentReason:      sql.NullString{String: c.AssignmentReason, Valid: c.AssignmentReason != ""},
		IsActive:              c.IsActive == nil || *c.IsActive,
		CreatedAt:             c.CreatedAt.UTC(),
		UpdatedAt:             c.UpdatedAt.UTC(),
	}

	var err error
	if row.Meeting, err = json.Marshal(c.Meeting); err != nil {
		return row, errors.Wrap(err, "marshaling meeting")
	}
	if row.Feedback, err = json.Marshal(c.Feedback); err != nil {
		return row, errors.Wrap(err, "marshaling feedback")
	}
	return row, nil
}

func (repo consultationRepository) unrow(row consultationRow) (consultation.Consultation, error) {
	c := consultation.Consultation{
		ID:           row.ID,
		StudentID:    row.StudentID,
		ConsultantID: row.ConsultantID,
		TriggerQuiz: consultation.TriggerQuiz{
			QuizID:     row.QuizID,
			Title:      row.QuizTitle,
			Subject:    row.QuizSubject,
			Score:      row.QuizScore,
			TotalMarks: row.QuizTotalMarks,
			Percentage: row.QuizPercentage,
		},
		Type:                  row.Type,
		Priority:              row.Priority,
		Status:                row.Status,
		Duration:              time.Duration(row.DurationMinutes) * time.Minute,
		StudentNotes:          row.StudentNotes.String,
		ConsultantNotes:       row.ConsultantNotes.String,
		AutomaticallyAssigned: row.AutomaticallyAssigned,
		AssignmentReason:      row.AssignmentReason.String,
		CreatedAt:             row.CreatedAt,
		UpdatedAt:             row.UpdatedAt,
	}
	c.SetActive(row.IsActive)
	if row.ScheduledAt.Valid {
		c.ScheduledAt = row.ScheduledAt.Time
	}
	if len(row.Meeting) > 0 {
		if err := json.Unmarshal(row.Meeting, &c.Meeting); err != nil {
			return c, errors.Wrap(err, "unmarshaling meeting")
		}
	}
	if len(row.Feedback) > 0 {
		if err := json.Unmarshal(row.Feedback, &c.Feedback); err != nil {
			return c, errors.Wrap(err, "unmarshaling feedback")
		}
	}
	return c, nil
}

func (repo consultationRepository) unrowSlice(rows []consultationRow) ([]consultation.Consultation, error) {
	consuls := make([]consultation.Consultation, 0, len(rows))
	for _, row := range rows {
		c, err := repo.unrow(row)
		if err != nil {
			return nil, err
		}
		consuls = append(consuls, c)
	}
	return consuls, nil
}

// trapNoRowsErr maps psql "no rows" err to consultation.ErrNotFound
func (repo consultationRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return consultation.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo consultationRepository) CreateConsultation(ctx context.Context, c consultation.Consultation, exec ...core.DBExecutor) (consultation.Consultation, error) {
	c.ID = uuid.New().String()
	row, err := repo.row(c)
	if err != nil {
		return consultation.Consultation{}, err
	}

	const query = `
		INSERT INTO consultation (id, student_id, consultant_id, quiz_id, quiz_title, quiz_subject,
		    quiz_score, quiz_total_marks, quiz_percentage, type, priority, status, scheduled_at,
		    duration_minutes, meeting, student_notes, consultant_notes, feedback, automatically_assigned,
		    assignment_reason, is_active, created_at, updated_at)
		VALUES (:id, :student_id, :consultant_id, :quiz_id, :quiz_title, :quiz_subject,
		    :quiz_score, :quiz_total_marks, :quiz_percentage, :type, :priority, :status, :scheduled_at,
		    :duration_minutes, :meeting, :student_notes, :consultant_notes, :feedback, :automatically_assigned,
		    :assignment_reason, :is_active, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, repo.getExec(exec), query, row); err != nil {
		return consultation.Consultation{}, errors.Wrap(err, "inserting consultation")
	}
	return c, nil
}

func (repo consultationRepository) GetConsultationByID(ctx context.Context, id string, exec ...core.DBExecutor) (consultation.Consultation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return consultation.Consultation{}, consultation.ErrNotFound
	}
	var row consultationRow
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, `SELECT * FROM consultation WHERE id = $1`, id); err != nil {
		return consultation.Consultation{}, repo.trapNoRowsErr(err, "finding consultation")
	}
	return repo.unrow(row)
}

func (repo consultationRepository) UpdateConsultation(ctx context.Context, c consultation.Consultation, exec ...core.DBExecutor) (consultation.Consultation, error) {
	row, err := repo.row(c)
	if err != nil {
		return consultation.Consultation{}, err
	}

	const query = `
		UPDATE consultation
		SET type = :type, priority = :priority, status = :status, scheduled_at = :scheduled_at,
		    duration_minutes = :duration_minutes, meeting = :meeting, student_notes = :student_notes,
		    consultant_notes = :consultant_notes, feedback = :feedback, is_active = :is_active,
		    updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), query, row)
	if err != nil {
		return consultation.Consultation{}, errors.Wrap(err, "updating consultation")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return consultation.Consultation{}, consultation.ErrNotFound
	}
	return c, nil
}

func (repo consultationRepository) queryBy(ctx context.Context, column, id, status string, limit, offset int, exec []core.DBExecutor) ([]consultation.Consultation, int, error) {
	query := `SELECT * FROM consultation WHERE ` + column + ` = $1 AND is_active = TRUE`
	countQuery := `SELECT COUNT(*) FROM consultation WHERE ` + column + ` = $1 AND is_active = TRUE`
	args := []interface{}{id}
	if status != "" {
		query += ` AND status = $2`
		countQuery += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	exe := repo.getExec(exec)
	var total int
	if err := sqlx.GetContext(ctx, exe, &total, countQuery, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting consultations")
	}

	query, args = paginate(query, args, limit, offset)
	var rows []consultationRow
	if err := sqlx.SelectContext(ctx, exe, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying consultations")
	}
	consuls, err := repo.unrowSlice(rows)
	if err != nil {
		return nil, 0, err
	}
	return consuls, total, nil
}

func (repo consultationRepository) QueryConsultationsByStudent(ctx context.Context, studentID, status string, limit, offset int, exec ...core.DBExecutor) ([]consultation.Consultation, int, error) {
	return repo.queryBy(ctx, "student_id", studentID, status, limit, offset, exec)
}

func (repo consultationRepository) QueryConsultationsByConsultant(ctx context.Context, consultantID, status string, limit, offset int, exec ...core.DBExecutor) ([]consultation.Consultation, int, error) {
	return repo.queryBy(ctx, "consultant_id", consultantID, status, limit, offset, exec)
}

func (repo consultationRepository) QueryRatedByConsultant(ctx context.Context, consultantID string, exec ...core.DBExecutor) ([]consultation.Consultation, error) {
	const query = `
		SELECT * FROM consultation
		WHERE consultant_id = $1 AND is_active = TRUE AND (feedback ->> 'student_rating')::int > 0`
	var rows []consultationRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, query, consultantID); err != nil {
		return nil, errors.Wrap(err, "querying rated consultations")
	}
	return repo.unrowSlice(rows)
}

func (repo consultationRepository) ConsultationStats(ctx context.Context, exec ...core.DBExecutor) (consultation.Stats, error) {
	stats := consultation.Stats{
		ByStatus:  make(map[string]int),
		BySubject: make(map[string]int),
	}
	exe := repo.getExec(exec)

	byStatus, err := exe.QueryxContext(ctx,
		`SELECT status, COUNT(*) FROM consultation WHERE is_active = TRUE GROUP BY status`)
	if err != nil {
		return stats, errors.Wrap(err, "querying consultation stats")
	}
	defer func() { _ = byStatus.Close() }()
	for byStatus.Next() {
		var status string
		var count int
		if err = byStatus.Scan(&status, &count); err != nil {
			return stats, errors.Wrap(err, "scanning consultation stats")
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if err = byStatus.Err(); err != nil {
		return stats, errors.Wrap(err, "querying consultation stats")
	}

	bySubject, err := exe.QueryxContext(ctx,
		`SELECT quiz_subject, COUNT(*) FROM consultation WHERE is_active = TRUE GROUP BY quiz_subject`)
	if err != nil {
		return stats, errors.Wrap(err, "querying consultation stats")
	}
	defer func() { _ = bySubject.Close() }()
	for bySubject.Next() {
		var subject string
		var count int
		if err = bySubject.Scan(&subject, &count); err != nil {
			return stats, errors.Wrap(err, "scanning consultation stats")
		}
		stats.BySubject[subject] = count
	}
	if err = bySubject.Err(); err != nil {
		return stats, errors.Wrap(err, "querying consultation stats")
	}
	return stats, nil
}
