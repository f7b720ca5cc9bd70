package commands

import (
	"context"
	"database/sql"
	"log"

	"attendance/dashboard/internal/pkg/repository/postgresql"

	"github.com/pkg/errors"
)

// ErrHelp provides context that help was given.
var ErrHelp = errors.New("provided help")

// NotifyChannel is the LISTEN/NOTIFY channel the attendance trigger publishes on.
const NotifyChannel = "attendance_changes"

type Scheme struct {
	Index       int
	Description string
	Query       string
}

var scheme = []Scheme{
	{
		Index:       1,
		Description: "Enable extension: pgcrypto",
		Query:       `CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
	},
	{
		Index:       2,
		Description: "CREATE TYPE \"attendance_status\" AS ENUM",
		Query: `
        DO $$ BEGIN
            CREATE TYPE "attendance_status" AS ENUM ('present', 'late', 'absent');
        EXCEPTION
            WHEN duplicate_object THEN NULL;
        END $$;`,
	},
	{
		Index:       3,
		Description: "Create table: employees.",
		Query: `
        CREATE TABLE IF NOT EXISTS employees (
            id uuid primary key default gen_random_uuid(),
            name text not null check (btrim(name) <> ''),
            email text,
            phone text,
            created_at timestamptz not null default now()
        );`,
	},
	{
		Index:       4,
		Description: "Create table: attendance.",
		Query: `
        CREATE TABLE IF NOT EXISTS attendance (
            id uuid primary key default gen_random_uuid(),
            employee_id uuid not null references employees(id),
            date date not null,
            check_in_time timestamptz,
            check_out_time timestamptz,
            note text,
            status attendance_status not null default 'present',
            created_at timestamptz not null default now()
        );`,
	},
	{
		Index:       5,
		Description: "Create index: attendance date.",
		Query:       `CREATE INDEX IF NOT EXISTS attendance_date_idx ON attendance (date);`,
	},
	{
		Index:       6,
		Description: "Add constraint: one attendance row per employee and day.",
		Query: `
        ALTER TABLE attendance
        ADD CONSTRAINT attendance_employee_date_key UNIQUE (employee_id, date);`,
	},
	{
		Index:       7,
		Description: "Creating Trigger and Function for attendance change notifications",
		Query: `CREATE OR REPLACE FUNCTION notify_attendance_change()
                   RETURNS TRIGGER AS $$
                   BEGIN
                     PERFORM pg_notify('` + NotifyChannel + `', json_build_object(
                             'operation', TG_OP,
                             'data', row_to_json(NEW)
                         )::text);
                         RETURN NEW;
                     END;
                     $$ LANGUAGE plpgsql;

                DROP TRIGGER IF EXISTS attendance_changes_trigger ON attendance;
                CREATE TRIGGER attendance_changes_trigger
                AFTER INSERT OR UPDATE ON attendance
                FOR EACH ROW EXECUTE FUNCTION notify_attendance_change();`,
	},
}

// MigrateUP applies the statements newer than the version recorded in
// schema_migrations. A dirty version is retried first.
func MigrateUP(ctx context.Context, db *postgresql.Database, log *log.Logger) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (version int not null, dirty bool not null, error text);
		INSERT INTO schema_migrations (version, dirty)
		SELECT 0, false
		WHERE NOT EXISTS (SELECT 1 FROM schema_migrations);
	`); err != nil {
		return errors.Wrap(err, "migrate schema_migrations create")
	}

	var (
		version int
		dirty   bool
		er      sql.NullString
	)
	err := db.QueryRowContext(ctx, `SELECT version, dirty, error FROM schema_migrations`).Scan(&version, &dirty, &er)
	if err != nil {
		return errors.Wrap(err, "migrate schema_migrations scan")
	}

	if dirty {
		log.Printf("migrate : retrying dirty version %d (last error: %s)", version, er.String)
		version--
	}

	for _, s := range scheme {
		if s.Index <= version {
			continue
		}

		log.Printf("migrate : %d : %s", s.Index, s.Description)
		if _, err = db.ExecContext(ctx, s.Query); err != nil {
			if _, uerr := db.ExecContext(ctx, `UPDATE schema_migrations SET error = ?, version = ?, dirty = true`, err.Error(), s.Index); uerr != nil {
				return errors.Wrap(uerr, "migrate error")
			}
			return errors.Wrapf(err, "migrate error version: %d", s.Index)
		}
		if _, err = db.ExecContext(ctx, `UPDATE schema_migrations SET version = ?, dirty = false, error = null`, s.Index); err != nil {
			return errors.Wrap(err, "migrate error")
		}
	}

	return nil
}
