package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/Sadman-Shakib-Aungon/quizzyverse/core"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/user"
)

// uniqueViolation is the postgres error code for unique constraint violations.
const uniqueViolation = "23505"

type userRow struct {
	ID              string         `db:"id"`
	Name            string         `db:"name"`
	Email           string         `db:"email"`
	PasswordHash    []byte         `db:"password_hash"`
	Role            string         `db:"role"`
	IsActive        bool           `db:"is_active"`
	StudentInfo     types.JSONText `db:"student_info"`
	ParentInfo      types.JSONText `db:"parent_info"`
	ConsultantInfo  types.JSONText `db:"consultant_info"`
	ActivityHistory types.JSONText `db:"activity_history"`
	Preferences     types.JSONText `db:"preferences"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
	LastLogin       sql.NullTime   `db:"last_login"`
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo userRepository) getExec(svcExec []core.DBExecutor) sqlx.ExtContext {
	if len(svcExec) > 0 {
		if ext, ok := svcExec[0].(sqlx.ExtContext); ok {
			return ext
		}
	}
	return repo.db
}

func (repo userRepository) row(usr user.User) (userRow, error) {
	row := userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		PasswordHash: usr.PasswordHash,
		Role:         usr.Role,
		IsActive:     usr.Active(),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    sql.NullTime{Time: usr.LastLogin.UTC(), Valid: !usr.LastLogin.IsZero()},
	}

	var err error
	if usr.Student != nil {
		if row.StudentInfo, err = json.Marshal(usr.Student); err != nil {
			return row, errors.Wrap(err, "marshaling student info")
		}
	}
	if usr.Parent != nil {
		if row.ParentInfo, err = json.Marshal(usr.Parent); err != nil {
			return row, errors.Wrap(err, "marshaling parent info")
		}
	}
	if usr.Consultant != nil {
		if row.ConsultantInfo, err = json.Marshal(usr.Consultant); err != nil {
			return row, errors.Wrap(err, "marshaling consultant info")
		}
	}
	if row.ActivityHistory, err = json.Marshal(usr.ActivityHistory); err != nil {
		return row, errors.Wrap(err, "marshaling activity history")
	}
	if usr.Preferences == nil {
		usr.Preferences = map[string]interface{}{}
	}
	if row.Preferences, err = json.Marshal(usr.Preferences); err != nil {
		return row, errors.Wrap(err, "marshaling preferences")
	}
	return row, nil
}

func (repo userRepository) unrow(row userRow) (user.User, error) {
	usr := user.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Role:         row.Role,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	usr.SetActive(row.IsActive)
	if row.LastLogin.Valid {
		usr.LastLogin = row.LastLogin.Time
	}

	if len(row.StudentInfo) > 0 {
		usr.Student = &user.StudentInfo{}
		if err := json.Unmarshal(row.StudentInfo, usr.Student); err != nil {
			return usr, errors.Wrap(err, "unmarshaling student info")
		}
	}
	if len(row.ParentInfo) > 0 {
		usr.Parent = &user.ParentInfo{}
		if err := json.Unmarshal(row.ParentInfo, usr.Parent); err != nil {
			return usr, errors.Wrap(err, "unmarshaling parent info")
		}
	}
	if len(row.ConsultantInfo) > 0 {
		usr.Consultant = &user.ConsultantInfo{}
		if err := json.Unmarshal(row.ConsultantInfo, usr.Consultant); err != nil {
			return usr, errors.Wrap(err, "unmarshaling consultant info")
		}
	}
	if len(row.ActivityHistory) > 0 {
		if err := json.Unmarshal(row.ActivityHistory, &usr.ActivityHistory); err != nil {
			return usr, errors.Wrap(err, "unmarshaling activity history")
		}
	}
	if len(row.Preferences) > 0 {
		if err := json.Unmarshal(row.Preferences, &usr.Preferences); err != nil {
			return usr, errors.Wrap(err, "unmarshaling preferences")
		}
	}
	return usr, nil
}

func (repo userRepository) unrowSlice(rows []userRow) ([]user.User, error) {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		usr, err := repo.unrow(row)
		if err != nil {
			return nil, err
		}
		users = append(users, usr)
	}
	return users, nil
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	query := `SELECT EXISTS (SELECT 1 FROM "user" WHERE email = $1`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += ` AND id <> ALL($2)`
		args = append(args, pq.Array(ids))
	}
	query += `)`

	var exists bool
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &exists, query, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	row, err := repo.row(usr)
	if err != nil {
		return user.User{}, err
	}

	const query = `
		INSERT INTO "user" (id, name, email, password_hash, role, is_active, student_info, parent_info,
		                    consultant_info, activity_history, preferences, created_at, updated_at, last_login)
		VALUES (:id, :name, :email, :password_hash, :role, :is_active, :student_info, :parent_info,
		        :consultant_info, :activity_history, :preferences, :created_at, :updated_at, :last_login)`
	if _, err = sqlx.NamedExecContext(ctx, repo.getExec(exec), query, row); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var (
		query string
		arg   string
	)
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		query, arg = `SELECT * FROM "user" WHERE id = $1`, filter.ID
	case filter.Email != "":
		query, arg = `SELECT * FROM "user" WHERE email = $1`, filter.Email
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query, arg); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return repo.unrow(row)
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	query := `SELECT * FROM "user"`
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			conds = append(conds, "(name ILIKE "+p+" OR email ILIKE "+p+")")
		}
		if filter.Role != "" {
			conds = append(conds, "role = "+arg(filter.Role))
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = "+arg(*filter.IsActive))
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, "created_at >= "+arg(filter.CreatedFrom.UTC()))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, "created_at <= "+arg(filter.CreatedTo.UTC()))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += " ORDER BY " + strings.Join(orderList, ", ")
	} else {
		query += " ORDER BY created_at DESC"
	}

	var rows []userRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.unrowSlice(rows)
}

func (repo userRepository) QueryConsultantsBySubject(ctx context.Context, subject string, exec ...core.DBExecutor) ([]user.User, error) {
	// rating desc, then least loaded first
	const query = `
		SELECT * FROM "user"
		WHERE role = 'consultant'
		  AND is_active = TRUE
		  AND consultant_info -> 'subjects' @> to_jsonb($1::text)
		ORDER BY (consultant_info ->> 'rating')::float DESC NULLS LAST,
		         (consultant_info ->> 'total_consultations')::int ASC NULLS FIRST`

	var rows []userRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, query, subject); err != nil {
		return nil, errors.Wrap(err, "querying consultants")
	}
	return repo.unrowSlice(rows)
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	row, err := repo.row(usr)
	if err != nil {
		return user.User{}, err
	}

	const query = `
		UPDATE "user"
		SET name = :name, email = :email, password_hash = :password_hash, is_active = :is_active,
		    student_info = :student_info, parent_info = :parent_info, consultant_info = :consultant_info,
		    activity_history = :activity_history, preferences = :preferences,
		    updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), query, row)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.UpdateUser(ctx, usr, exec...)
}
