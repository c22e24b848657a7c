package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/domain/registration"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const registrationColumns = `
	id, dept_code, dept_name, emp_code, prefix, first_name, last_name, mobile, line_id,
	line_user_id, line_display_name, photo_url, status, created_at, updated_at,
	checkin_date, checkin_time_record_id, checkin_start_time, checkin_shift`

type registrationRepositoryImpl struct {
	db *database.DB
}

func NewRegistrationRepository(db *database.DB) registration.Repository {
	return &registrationRepositoryImpl{db: db}
}

func scanRegistration(row pgx.Row) (registration.Registration, error) {
	var (
		reg                              registration.Registration
		status                           string
		date, recordID, startTime, shift *string
	)
	err := row.Scan(
		&reg.ID, &reg.DeptCode, &reg.DeptName, &reg.EmpCode, &reg.Prefix, &reg.FirstName,
		&reg.LastName, &reg.Mobile, &reg.LineID, &reg.LineUserID, &reg.LineDisplayName,
		&reg.PhotoURL, &status, &reg.CreatedAt, &reg.UpdatedAt,
		&date, &recordID, &startTime, &shift,
	)
	if err != nil {
		return registration.Registration{}, err
	}
	reg.Status = registration.Status(status)
	if date != nil && recordID != nil {
		reg.TodayCheckin = &registration.TodayCheckin{
			Date:         *date,
			TimeRecordID: *recordID,
			StartTime:    deref(startTime),
			Shift:        deref(shift),
		}
	}
	return reg, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// translateError maps unique violations onto domain errors.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "registrations_emp_code_key":
			return registration.ErrEmpCodeExists
		case "registrations_line_user_id_key":
			return registration.ErrLineUserExists
		}
	}
	return err
}

// Create implements registration.Repository.
func (r *registrationRepositoryImpl) Create(ctx context.Context, newRegistration registration.Registration) (registration.Registration, error) {
	q := GetQuerier(ctx, r.db)

	if newRegistration.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return registration.Registration{}, fmt.Errorf("failed to generate id: %w", err)
		}
		newRegistration.ID = id.String()
	}
	if newRegistration.CreatedAt.IsZero() {
		newRegistration.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO registrations (
			id, dept_code, dept_name, emp_code, prefix, first_name, last_name, mobile, line_id,
			line_user_id, line_display_name, photo_url, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + registrationColumns

	created, err := scanRegistration(q.QueryRow(ctx, query,
		newRegistration.ID, newRegistration.DeptCode, newRegistration.DeptName, newRegistration.EmpCode,
		newRegistration.Prefix, newRegistration.FirstName, newRegistration.LastName, newRegistration.Mobile,
		newRegistration.LineID, newRegistration.LineUserID, newRegistration.LineDisplayName,
		newRegistration.PhotoURL, string(newRegistration.Status), newRegistration.CreatedAt,
	))
	if err != nil {
		return registration.Registration{}, translateError(err)
	}
	return created, nil
}

// GetByEmpCode implements registration.Repository.
func (r *registrationRepositoryImpl) GetByEmpCode(ctx context.Context, empCode string) (registration.Registration, error) {
	q := GetQuerier(ctx, r.db)

	reg, err := scanRegistration(q.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE emp_code = $1`, empCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return registration.Registration{}, registration.ErrRegistrationNotFound
		}
		return registration.Registration{}, fmt.Errorf("failed to get registration %s: %w", empCode, err)
	}
	return reg, nil
}

// GetByLineUserID implements registration.Repository.
func (r *registrationRepositoryImpl) GetByLineUserID(ctx context.Context, lineUserID string) (registration.Registration, error) {
	q := GetQuerier(ctx, r.db)

	if lineUserID == "" {
		return registration.Registration{}, registration.ErrRegistrationNotFound
	}

	reg, err := scanRegistration(q.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE line_user_id = $1`, lineUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return registration.Registration{}, registration.ErrRegistrationNotFound
		}
		return registration.Registration{}, fmt.Errorf("failed to get registration by LINE user: %w", err)
	}
	return reg, nil
}

// ListByLineUserID implements registration.Repository.
func (r *registrationRepositoryImpl) ListByLineUserID(ctx context.Context, lineUserID string) ([]registration.Registration, error) {
	if lineUserID == "" {
		return []registration.Registration{}, nil
	}
	return r.list(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE line_user_id = $1 ORDER BY created_at`, lineUserID)
}

// List implements registration.Repository.
func (r *registrationRepositoryImpl) List(ctx context.Context) ([]registration.Registration, error) {
	return r.list(ctx, `SELECT `+registrationColumns+` FROM registrations ORDER BY created_at`)
}

func (r *registrationRepositoryImpl) list(ctx context.Context, query string, args ...interface{}) ([]registration.Registration, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	registrations := []registration.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		registrations = append(registrations, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return registrations, nil
}

// Update implements registration.Repository.
func (r *registrationRepositoryImpl) Update(ctx context.Context, empCode string, req registration.UpdateRegistrationRequest) (registration.Registration, error) {
	var updated registration.Registration

	err := WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		current, err := scanRegistration(q.QueryRow(ctx,
			`SELECT `+registrationColumns+` FROM registrations WHERE emp_code = $1 FOR UPDATE`, empCode))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return registration.ErrRegistrationNotFound
			}
			return fmt.Errorf("failed to lock registration %s: %w", empCode, err)
		}

		if req.UpdatedAt.IsZero() {
			req.UpdatedAt = time.Now()
		}
		req.Apply(&current)

		query := `
			UPDATE registrations
			SET dept_code = $2, dept_name = $3, prefix = $4, first_name = $5, last_name = $6,
				mobile = $7, line_id = $8, line_user_id = $9, line_display_name = $10,
				photo_url = $11, status = $12, updated_at = $13
			WHERE emp_code = $1
			RETURNING ` + registrationColumns

		updated, err = scanRegistration(q.QueryRow(ctx, query,
			empCode, current.DeptCode, current.DeptName, current.Prefix, current.FirstName,
			current.LastName, current.Mobile, current.LineID, current.LineUserID,
			current.LineDisplayName, current.PhotoURL, string(current.Status), current.UpdatedAt,
		))
		if err != nil {
			return translateError(err)
		}
		return nil
	})
	if err != nil {
		return registration.Registration{}, err
	}
	return updated, nil
}

// Delete implements registration.Repository.
func (r *registrationRepositoryImpl) Delete(ctx context.Context, empCode string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM registrations WHERE emp_code = $1`, empCode)
	if err != nil {
		return fmt.Errorf("failed to delete registration %s: %w", empCode, err)
	}
	if tag.RowsAffected() == 0 {
		return registration.ErrRegistrationNotFound
	}
	return nil
}

// Ping implements registration.Repository.
func (r *registrationRepositoryImpl) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// OpenCheckin implements registration.Repository.
func (r *registrationRepositoryImpl) OpenCheckin(ctx context.Context, lineUserID string, checkin registration.TodayCheckin) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE registrations
		SET checkin_date = $2, checkin_time_record_id = $3, checkin_start_time = $4, checkin_shift = $5
		WHERE line_user_id = $1 AND line_user_id <> ''
	`
	tag, err := q.Exec(ctx, query, lineUserID, checkin.Date, checkin.TimeRecordID, checkin.StartTime, checkin.Shift)
	if err != nil {
		return fmt.Errorf("failed to open check-in: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return registration.ErrRegistrationNotFound
	}
	return nil
}

// CloseCheckin implements registration.Repository.
func (r *registrationRepositoryImpl) CloseCheckin(ctx context.Context, lineUserID string, timeRecordID string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE registrations
		SET checkin_date = NULL, checkin_time_record_id = NULL, checkin_start_time = NULL, checkin_shift = NULL
		WHERE line_user_id = $1 AND checkin_time_record_id = $2
	`
	tag, err := q.Exec(ctx, query, lineUserID, timeRecordID)
	if err != nil {
		return false, fmt.Errorf("failed to close check-in: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ExpireCheckins implements registration.Repository.
func (r *registrationRepositoryImpl) ExpireCheckins(ctx context.Context, beforeDate string) (int64, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE registrations
		SET checkin_date = NULL, checkin_time_record_id = NULL, checkin_start_time = NULL, checkin_shift = NULL
		WHERE checkin_date IS NOT NULL AND checkin_date < $1
	`
	tag, err := q.Exec(ctx, query, beforeDate)
	if err != nil {
		return 0, fmt.Errorf("failed to expire check-ins: %w", err)
	}
	return tag.RowsAffected(), nil
}
