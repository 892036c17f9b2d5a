package directory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
)

var directoryTracer = otel.Tracer("portal.internal.directory")

// PgxPool is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type PgxPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository reads the provider directory from the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("directory: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// ListProviders returns all bookable providers ordered by name.
func (r *PostgresRepository) ListProviders(ctx context.Context) ([]Provider, error) {
	ctx, span := directoryTracer.Start(ctx, "directory.list_providers")
	defer span.End()

	query := `
		SELECT id, name, specialty, department, availability, rating, years_experience
		FROM providers
		ORDER BY name
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	defer rows.Close()

	var providers []Provider
	for rows.Next() {
		var p Provider
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Specialty,
			&p.Department,
			&p.Availability,
			&p.Rating,
			&p.YearsExperience,
		); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("directory: scan provider: %w", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	return providers, nil
}

// ListDepartments returns all departments ordered by name.
func (r *PostgresRepository) ListDepartments(ctx context.Context) ([]Department, error) {
	ctx, span := directoryTracer.Start(ctx, "directory.list_departments")
	defer span.End()

	query := `
		SELECT id, name, description
		FROM departments
		ORDER BY name
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	defer rows.Close()

	var departments []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Description); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("directory: scan department: %w", err)
		}
		departments = append(departments, d)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	return departments, nil
}
