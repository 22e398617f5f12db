package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/Sadman-Shakib-Aungon/quizzyverse/core"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/notification"
)

type notificationRow struct {
	ID                  string          `db:"id"`
	StudentID           string          `db:"student_id"`
	ParentID            string          `db:"parent_id"`
	QuizID              string          `db:"quiz_id"`
	QuizTitle           string          `db:"quiz_title"`
	QuizSubject         string          `db:"quiz_subject"`
	TotalMarks          float64         `db:"total_marks"`
	PassingMarks        float64         `db:"passing_marks"`
	ScoreObtained       float64         `db:"score_obtained"`
	ScorePercentage     float64         `db:"score_percentage"`
	Grade               string          `db:"grade"`
	Type                string          `db:"type"`
	Severity            string          `db:"severity"`
	Priority            string          `db:"priority"`
	MessageSubject      string          `db:"message_subject"`
	MessageBody         string          `db:"message_body"`
	Recommendations     pq.StringArray  `db:"recommendations"`
	EmailStatus         string          `db:"email_status"`
	EmailSentAt         sql.NullTime    `db:"email_sent_at"`
	EmailID             sql.NullString  `db:"email_id"`
	EmailFailureReason  sql.NullString  `db:"email_failure_reason"`
	EmailRetryCount     int             `db:"email_retry_count"`
	EmailMaxRetries     int             `db:"email_max_retries"`
	Acknowledged        bool            `db:"acknowledged"`
	AcknowledgedAt      sql.NullTime    `db:"acknowledged_at"`
	ParentResponse      sql.NullString  `db:"parent_response"`
	RequestMeeting      bool            `db:"request_meeting"`
	MeetingScheduled    bool            `db:"meeting_scheduled"`
	RelatedConsultation sql.NullString  `db:"related_consultation"`
	IsActive            bool            `db:"is_active"`
	CreatedAt           time.Time       `db:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"`
}

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sql.DB) *notificationRepository {
	return &notificationRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo notificationRepository) getExec(svcExec []core.DBExecutor) sqlx.ExtContext {
	if len(svcExec) > 0 {
		if ext, ok := svcExec[0].(sqlx.ExtContext); ok {
			return ext
		}
	}
	return repo.db
}

func (repo notificationRepository) row(n notification.ParentNotification) notificationRow {
	return notificationRow{
		ID:                  n.ID,
		StudentID:           n.StudentID,
		ParentID:            n.ParentID,
		QuizID:              n.Quiz.QuizID,
		QuizTitle:           n.Quiz.Title,
		QuizSubject:         n.Quiz.Subject,
		TotalMarks:          n.Quiz.TotalMarks,
		PassingMarks:        n.Quiz.PassingMarks,
		ScoreObtained:       n.Score.Obtained,
		ScorePercentage:     n.Score.Percentage,
		Grade:               n.Score.Grade,
		Type:                n.Type,
		Severity:            n.Severity,
		Priority:            n.Priority,
		MessageSubject:      n.Message.Subject,
		MessageBody:         n.Message.Body,
		Recommendations:     n.Message.Recommendations,
		EmailStatus:         n.Email.Status,
		EmailSentAt:         sql.NullTime{Time: n.Email.SentAt.UTC(), Valid: !n.Email.SentAt.IsZero()},
		EmailID:             sql.NullString{String: n.Email.EmailID, Valid: n.Email.EmailID != ""},
		EmailFailureReason:  sql.NullString{String: n.Email.FailureReason, Valid: n.Email.FailureReason != ""},
		EmailRetryCount:     n.Email.RetryCount,
		EmailMaxRetries:     n.Email.MaxRetries,
		Acknowledged:        n.Response.Acknowledged,
		AcknowledgedAt:      sql.NullTime{Time: n.Response.AcknowledgedAt.UTC(), Valid: !n.Response.AcknowledgedAt.IsZero()},
		ParentResponse:      sql.NullString{String: n.Response.Response, Valid: n.Response.Response != ""},
		RequestMeeting:      n.Response.RequestMeeting,
		MeetingScheduled:    n.Response.MeetingScheduled,
		RelatedConsultation: sql.NullString{String: n.RelatedConsultation, Valid: n.RelatedConsultation != ""},
		IsActive:            n.IsActive == nil || *n.IsActive,
		CreatedAt:           n.CreatedAt.UTC(),
		UpdatedAt:           n.UpdatedAt.UTC(),
	}
}

func (repo notificationRepository) unrow(row notificationRow) notification.ParentNotification {
	n := notification.ParentNotification{
		ID:        row.ID,
		StudentID: row.StudentID,
		ParentID:  row.ParentID,
		Quiz: notification.QuizSnapshot{
			QuizID:       row.QuizID,
			Title:        row.QuizTitle,
			Subject:      row.QuizSubject,
			TotalMarks:   row.TotalMarks,
			PassingMarks: row.PassingMarks,
		},
		Score: notification.Score{
			Obtained:   row.ScoreObtained,
			Percentage: row.ScorePercentage,
			Grade:      row.Grade,
		},
		Type:     row.Type,
		Severity: row.Severity,
		Priority: row.Priority,
		Message: notification.Message{
			Subject:         row.MessageSubject,
			Body:            row.MessageBody,
			Recommendations: row.Recommendations,
		},
		Email: notification.EmailDetails{
			Status:        row.EmailStatus,
			EmailID:       row.EmailID.String,
			FailureReason: row.EmailFailureReason.String,
			RetryCount:    row.EmailRetryCount,
			MaxRetries:    row.EmailMaxRetries,
		},
		Response: notification.ParentResponse{
			Acknowledged:     row.Acknowledged,
			Response:         row.ParentResponse.String,
			RequestMeeting:   row.RequestMeeting,
			MeetingScheduled: row.MeetingScheduled,
		},
		RelatedConsultation: row.RelatedConsultation.String,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
	n.SetActive(row.IsActive)
	if row.EmailSentAt.Valid {
		n.Email.SentAt = row.EmailSentAt.Time
	}
	if row.AcknowledgedAt.Valid {
		n.Response.AcknowledgedAt = row.AcknowledgedAt.Time
	}
	return n
}

func (repo notificationRepository) unrowSlice(rows []notificationRow) []notification.ParentNotification {
	notifs := make([]notification.ParentNotification, 0, len(rows))
	for _, row := range rows {
		notifs = append(notifs, repo.unrow(row))
	}
	return notifs
}

// trapNoRowsErr maps psql "no rows" err to notification.ErrNotFound
func (repo notificationRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return notification.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo notificationRepository) CreateNotification(ctx context.Context, n notification.ParentNotification, exec ...core.DBExecutor) (notification.ParentNotification, error) {
	n.ID = uuid.New().String()
	row := repo.row(n)

	const query = `
		INSERT INTO parent_notification (id, student_id, parent_id, quiz_id, quiz_title, quiz_subject,
		    total_marks, passing_marks, score_obtained, score_percentage, grade, type, severity, priority,
		    message_subject, message_body, recommendations, email_status, email_sent_at, email_id,
		    email_failure_reason, email_retry_count, email_max_retries, acknowledged, acknowledged_at,
		    parent_response, request_meeting, meeting_scheduled, related_consultation, is_active,
		    created_at, updated_at)
		VALUES (:id, :student_id, :parent_id, :quiz_id, :quiz_title, :quiz_subject,
		    :total_marks, :passing_marks, :score_obtained, :score_percentage, :grade, :type, :severity, :priority,
		    :message_subject, :message_body, :recommendations, :email_status, :email_sent_at, :email_id,
		    :email_failure_reason, :email_retry_count, :email_max_retries, :acknowledged, :acknowledged_at,
		    :parent_response, :request_meeting, :meeting_scheduled, :related_consultation, :is_active,
		    :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), query, row); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return notification.ParentNotification{}, notification.ErrDuplicate
		}
		return notification.ParentNotification{}, errors.Wrap(err, "inserting notification")
	}
	return n, nil
}

func (repo notificationRepository) NotificationExists(ctx context.Context, studentID, quizID string, exec ...core.DBExecutor) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM parent_notification WHERE student_id = $1 AND quiz_id = $2)`
	var exists bool
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &exists, query, studentID, quizID); err != nil {
		return false, errors.Wrap(err, "checking notification existence")
	}
	return exists, nil
}

func (repo notificationRepository) GetNotificationByID(ctx context.Context, id string, exec ...core.DBExecutor) (notification.ParentNotification, error) {
	if _, err := uuid.Parse(id); err != nil {
		return notification.ParentNotification{}, notification.ErrNotFound
	}
	var row notificationRow
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, `SELECT * FROM parent_notification WHERE id = $1`, id); err != nil {
		return notification.ParentNotification{}, repo.trapNoRowsErr(err, "finding notification")
	}
	return repo.unrow(row), nil
}

func (repo notificationRepository) UpdateNotification(ctx context.Context, n notification.ParentNotification, exec ...core.DBExecutor) (notification.ParentNotification, error) {
	row := repo.row(n)

	const query = `
		UPDATE parent_notification
		SET email_status = :email_status, email_sent_at = :email_sent_at, email_id = :email_id,
		    email_failure_reason = :email_failure_reason, email_retry_count = :email_retry_count,
		    acknowledged = :acknowledged, acknowledged_at = :acknowledged_at, parent_response = :parent_response,
		    request_meeting = :request_meeting, meeting_scheduled = :meeting_scheduled,
		    related_consultation = :related_consultation, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), query, row)
	if err != nil {
		return notification.ParentNotification{}, errors.Wrap(err, "updating notification")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return notification.ParentNotification{}, notification.ErrNotFound
	}
	return n, nil
}

func (repo notificationRepository) QueryNotificationsByParent(ctx context.Context, parentID string, acknowledged *bool, limit, offset int, exec ...core.DBExecutor) ([]notification.ParentNotification, int, error) {
	query := `SELECT * FROM parent_notification WHERE parent_id = $1 AND is_active = TRUE`
	countQuery := `SELECT COUNT(*) FROM parent_notification WHERE parent_id = $1 AND is_active = TRUE`
	args := []interface{}{parentID}
	if acknowledged != nil {
		query += ` AND acknowledged = $2`
		countQuery += ` AND acknowledged = $2`
		args = append(args, *acknowledged)
	}
	query += ` ORDER BY created_at DESC`

	exe := repo.getExec(exec)
	var total int
	if err := sqlx.GetContext(ctx, exe, &total, countQuery, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting notifications")
	}

	query, args = paginate(query, args, limit, offset)
	var rows []notificationRow
	if err := sqlx.SelectContext(ctx, exe, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying notifications")
	}
	return repo.unrowSlice(rows), total, nil
}

func (repo notificationRepository) QueryNotificationsByStudent(ctx context.Context, studentID string, limit, offset int, exec ...core.DBExecutor) ([]notification.ParentNotification, int, error) {
	exe := repo.getExec(exec)

	var total int
	if err := sqlx.GetContext(ctx, exe, &total,
		`SELECT COUNT(*) FROM parent_notification WHERE student_id = $1 AND is_active = TRUE`, studentID); err != nil {
		return nil, 0, errors.Wrap(err, "counting notifications")
	}

	query, args := paginate(
		`SELECT * FROM parent_notification WHERE student_id = $1 AND is_active = TRUE ORDER BY created_at DESC`,
		[]interface{}{studentID}, limit, offset)
	var rows []notificationRow
	if err := sqlx.SelectContext(ctx, exe, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying notifications")
	}
	return repo.unrowSlice(rows), total, nil
}

func (repo notificationRepository) NotificationStats(ctx context.Context, exec ...core.DBExecutor) (notification.Stats, error) {
	stats := notification.Stats{ByEmailStatus: make(map[string]int)}
	exe := repo.getExec(exec)

	rows, err := exe.QueryxContext(ctx,
		`SELECT email_status, COUNT(*) FROM parent_notification WHERE is_active = TRUE GROUP BY email_status`)
	if err != nil {
		return stats, errors.Wrap(err, "querying notification stats")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var status string
		var count int
		if err = rows.Scan(&status, &count); err != nil {
			return stats, errors.Wrap(err, "scanning notification stats")
		}
		stats.ByEmailStatus[status] = count
		stats.Total += count
	}
	if err = rows.Err(); err != nil {
		return stats, errors.Wrap(err, "querying notification stats")
	}

	if err = sqlx.GetContext(ctx, exe, &stats.Acknowledged,
		`SELECT COUNT(*) FROM parent_notification WHERE is_active = TRUE AND acknowledged = TRUE`); err != nil {
		return stats, errors.Wrap(err, "counting acknowledged notifications")
	}
	return stats, nil
}

// paginate appends LIMIT/OFFSET clauses when set.
func paginate(query string, args []interface{}, limit, offset int) (string, []interface{}) {
	if limit > 0 {
		args = append(args, limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}
	return query, args
}
