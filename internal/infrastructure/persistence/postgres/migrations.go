package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: ACADEMIC RECORD TABLES
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create academic record tables
-- Version: 001

CREATE TABLE IF NOT EXISTS students (
    id UUID PRIMARY KEY,
    regno VARCHAR(20) NOT NULL UNIQUE,
    name VARCHAR(100) NOT NULL,
    dob VARCHAR(10) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_students_regno ON students(regno);

CREATE TABLE IF NOT EXISTS subjects (
    id UUID PRIMARY KEY,
    code VARCHAR(20) NOT NULL UNIQUE,
    name VARCHAR(200) NOT NULL,
    credits INTEGER NOT NULL,
    home_semester INTEGER NOT NULL,

    CONSTRAINT valid_credits CHECK (credits > 0),
    CONSTRAINT valid_home_semester CHECK (home_semester BETWEEN 1 AND 12)
);

CREATE INDEX IF NOT EXISTS idx_subjects_code ON subjects(code);

CREATE TABLE IF NOT EXISTS semesters (
    id UUID PRIMARY KEY,
    student_id UUID NOT NULL REFERENCES students(id),
    semester INTEGER NOT NULL,
    gpa DECIMAL(4,2),

    -- Converts a concurrent-document race on the same (student, semester)
    -- pair into a detectable conflict instead of a duplicate row.
    UNIQUE (student_id, semester),
    CONSTRAINT valid_semester CHECK (semester BETWEEN 1 AND 12)
);

CREATE INDEX IF NOT EXISTS idx_semesters_student ON semesters(student_id);

CREATE TABLE IF NOT EXISTS grades (
    id UUID PRIMARY KEY,
    semester_id UUID NOT NULL REFERENCES semesters(id),
    subject_id UUID NOT NULL REFERENCES subjects(id),
    grade VARCHAR(5) NOT NULL,
    grade_points_earned INTEGER NOT NULL,

    UNIQUE (semester_id, subject_id)
);

CREATE INDEX IF NOT EXISTS idx_grades_semester ON grades(semester_id);
`

const migration001Down = `
DROP TABLE IF EXISTS grades;
DROP TABLE IF EXISTS semesters;
DROP TABLE IF EXISTS subjects;
DROP TABLE IF EXISTS students;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: GRADE CHANGES AUDIT TABLE
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create grade_changes audit table
-- Version: 002

CREATE TABLE IF NOT EXISTS grade_changes (
    id UUID PRIMARY KEY,
    regno VARCHAR(20) NOT NULL,
    subject_code VARCHAR(20) NOT NULL,
    semester INTEGER NOT NULL,
    original_grade VARCHAR(5) NOT NULL,
    new_grade VARCHAR(5) NOT NULL,
    credits INTEGER NOT NULL,
    changed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_grade_changes_regno ON grade_changes(regno);
CREATE INDEX IF NOT EXISTS idx_grade_changes_changed_at ON grade_changes(changed_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS grade_changes;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_record_tables",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_grade_changes",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}

// Migrator handles database migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a new migrator with embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

// EnsureMigrationTable creates the migration tracking table if it doesn't exist.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`, m.tableName)

	_, err := m.conn.Pool().Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("%w: create migration table: %v", ErrMigrationFailed, err)
	}
	return nil
}

// GetAppliedMigrations returns the applied migration versions.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	query := fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName)

	rows, err := m.conn.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query applied migrations: %v", ErrMigrationFailed, err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("%w: scan migration row: %v", ErrMigrationFailed, err)
		}
		applied[version] = appliedAt
	}
	return applied, rows.Err()
}

// Up applies all pending migrations in version order.
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if _, ok := applied[migration.Version]; ok {
			continue
		}

		err := m.conn.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, migration.UpSQL); err != nil {
				return err
			}
			insertQuery := fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName)
			_, err := tx.Exec(ctx, insertQuery, migration.Version, migration.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: migration %d (%s): %v", ErrMigrationFailed, migration.Version, migration.Name, err)
		}
	}
	return nil
}
