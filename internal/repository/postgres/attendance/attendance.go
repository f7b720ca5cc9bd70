package attendance

import (
	"context"
	"database/sql"
	"time"

	"attendance/dashboard/internal/entity"
	"attendance/dashboard/internal/pkg/repository/postgresql"
	"attendance/dashboard/internal/repository/postgres"

	"github.com/pkg/errors"
)

type Repository struct {
	*postgresql.Database
}

func NewRepository(database *postgresql.Database) *Repository {
	return &Repository{Database: database}
}

// GetListByDate returns the rows of one work day in insertion order.
func (r Repository) GetListByDate(ctx context.Context, workDay time.Time) ([]entity.Attendance, error) {
	var list []entity.Attendance

	err := r.NewSelect().
		Model(&list).
		Where("date = ?", workDay.Format("2006-01-02")).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "selecting attendance by date")
	}

	return list, nil
}

// GetHistory returns every row of one employee, newest day first.
func (r Repository) GetHistory(ctx context.Context, employeeID string) ([]entity.Attendance, error) {
	var list []entity.Attendance

	err := r.NewSelect().
		Model(&list).
		Where("employee_id = ?", employeeID).
		OrderExpr("date DESC, created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "selecting attendance history")
	}

	return list, nil
}

func (r Repository) Create(ctx context.Context, request CreateRequest) (entity.Attendance, error) {
	response := CreateResponse{
		EmployeeID:  request.EmployeeID,
		WorkDay:     request.WorkDay,
		CheckInTime: request.CheckInTime,
		Status:      request.Status,
	}

	_, err := r.NewInsert().Model(&response).Returning("id, created_at").Exec(ctx, &response.ID, &response.CreatedAt)
	if err != nil {
		return entity.Attendance{}, errors.Wrap(err, "creating attendance")
	}

	checkIn := response.CheckInTime
	return entity.Attendance{
		ID:          response.ID,
		EmployeeID:  response.EmployeeID,
		Date:        response.WorkDay,
		CheckInTime: &checkIn,
		Status:      response.Status,
		CreatedAt:   response.CreatedAt,
	}, nil
}

// UpdateColumns writes the set columns and returns the updated row.
func (r Repository) UpdateColumns(ctx context.Context, request UpdateRequest) (entity.Attendance, error) {
	if request.CheckOutTime == nil && request.Note == nil {
		return entity.Attendance{}, errors.New("nothing to update")
	}

	var detail entity.Attendance

	q := r.NewUpdate().Model(&detail).Where("id = ?", request.ID)
	if request.CheckOutTime != nil {
		q.Set("check_out_time = ?", *request.CheckOutTime)
	}
	if request.Note != nil {
		q.Set("note = ?", *request.Note)
	}

	res, err := q.Returning("*").Exec(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Attendance{}, errors.Wrap(postgres.ErrNotFound, "attendance "+request.ID)
	}
	if err != nil {
		return entity.Attendance{}, errors.Wrap(err, "updating attendance")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return entity.Attendance{}, errors.Wrap(postgres.ErrNotFound, "attendance "+request.ID)
	}

	return detail, nil
}
