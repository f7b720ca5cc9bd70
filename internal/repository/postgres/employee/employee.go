package employee

import (
	"context"
	"strings"

	"attendance/dashboard/internal/entity"
	"attendance/dashboard/internal/pkg/repository/postgresql"

	"github.com/pkg/errors"
)

type Repository struct {
	*postgresql.Database
}

func NewRepository(database *postgresql.Database) *Repository {
	return &Repository{Database: database}
}

// GetList returns every employee ordered by name.
func (r Repository) GetList(ctx context.Context) ([]entity.Employee, error) {
	var list []entity.Employee

	if err := r.NewSelect().Model(&list).OrderExpr("name ASC").Scan(ctx); err != nil {
		return nil, errors.Wrap(err, "selecting employees")
	}

	return list, nil
}

func (r Repository) Create(ctx context.Context, request CreateRequest) (entity.Employee, error) {
	name := strings.TrimSpace(request.Name)
	if name == "" {
		return entity.Employee{}, errors.New("employee name is required")
	}

	response := CreateResponse{
		Name:  name,
		Email: emptyToNil(request.Email),
		Phone: emptyToNil(request.Phone),
	}

	if _, err := r.NewInsert().Model(&response).Returning("id, created_at").Exec(ctx, &response.ID, &response.CreatedAt); err != nil {
		return entity.Employee{}, errors.Wrap(err, "creating employee")
	}

	return entity.Employee{
		ID:        response.ID,
		Name:      response.Name,
		Email:     response.Email,
		Phone:     response.Phone,
		CreatedAt: response.CreatedAt,
	}, nil
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
