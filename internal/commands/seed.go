package commands

import (
	"context"

	"attendance/dashboard/internal/entity"
	"attendance/dashboard/internal/pkg/repository/postgresql"

	"github.com/pkg/errors"
)

// Seed inserts the given employee names when the employees table is empty.
// It returns how many rows were written.
func Seed(ctx context.Context, db *postgresql.Database, names []string) (int, error) {
	count, err := db.NewSelect().Model((*entity.Employee)(nil)).Count(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "counting employees")
	}
	if count > 0 || len(names) == 0 {
		return 0, nil
	}

	rows := make([]entity.Employee, 0, len(names))
	for _, name := range names {
		rows = append(rows, entity.Employee{Name: name})
	}

	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return 0, errors.Wrap(err, "seeding employees")
	}

	return len(rows), nil
}
