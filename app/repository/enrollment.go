package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/vibast-solutions/ms-go-lms-payments/app/entity"
)

var (
	ErrEnrollmentNotFound      = errors.New("enrollment not found")
	ErrEnrollmentAlreadyExists = errors.New("enrollment already exists")
)

const enrollmentColumns = `
	id, user_id, course_id, status, enrolled_at, access_expires_at, created_at, updated_at
`

type EnrollmentFilter struct {
	UserID   uint64
	CourseID uint64
	Limit    int32
	Offset   int32
}

type EnrollmentRepository struct {
	db DBTX
}

func NewEnrollmentRepository(db DBTX) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *entity.Enrollment) error {
	query := `
		INSERT INTO enrollments (
			user_id, course_id, status, enrolled_at, access_expires_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		enrollment.UserID,
		enrollment.CourseID,
		enrollment.Status,
		enrollment.EnrolledAt,
		nullableTimeValue(enrollment.AccessExpiresAt),
		enrollment.CreatedAt,
		enrollment.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrEnrollmentAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	enrollment.ID = uint64(id)
	return nil
}

// UpdateAccess persists the activation fields only; progress fields belong elsewhere.
func (r *EnrollmentRepository) UpdateAccess(ctx context.Context, enrollment *entity.Enrollment) error {
	query := `
		UPDATE enrollments SET
			status = ?,
			enrolled_at = ?,
			access_expires_at = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		enrollment.Status,
		enrollment.EnrolledAt,
		nullableTimeValue(enrollment.AccessExpiresAt),
		enrollment.UpdatedAt,
		enrollment.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrEnrollmentNotFound
	}
	return nil
}

func (r *EnrollmentRepository) FindByUserCourse(ctx context.Context, userID, courseID uint64) (*entity.Enrollment, error) {
	return r.findOne(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE user_id = ? AND course_id = ? LIMIT 1`, userID, courseID)
}

func (r *EnrollmentRepository) FindByUserCourseForUpdate(ctx context.Context, userID, courseID uint64) (*entity.Enrollment, error) {
	return r.findOne(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE user_id = ? AND course_id = ? LIMIT 1 FOR UPDATE`, userID, courseID)
}

func (r *EnrollmentRepository) List(ctx context.Context, filter EnrollmentFilter) ([]*entity.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments`

	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)
	if filter.UserID > 0 {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.CourseID > 0 {
		conditions = append(conditions, "course_id = ?")
		args = append(args, filter.CourseID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.Enrollment, 0)
	for rows.Next() {
		item := &entity.Enrollment{}
		if err := scanEnrollment(rows, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *EnrollmentRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Enrollment, error) {
	enrollment := &entity.Enrollment{}
	if err := scanEnrollment(r.db.QueryRowContext(ctx, query, args...), enrollment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return enrollment, nil
}

func scanEnrollment(scan rowScanner, enrollment *entity.Enrollment) error {
	var accessExpiresAt sql.NullTime

	err := scan.Scan(
		&enrollment.ID,
		&enrollment.UserID,
		&enrollment.CourseID,
		&enrollment.Status,
		&enrollment.EnrolledAt,
		&accessExpiresAt,
		&enrollment.CreatedAt,
		&enrollment.UpdatedAt,
	)
	if err != nil {
		return err
	}

	enrollment.AccessExpiresAt = timePtrFromNull(accessExpiresAt)
	return nil
}
