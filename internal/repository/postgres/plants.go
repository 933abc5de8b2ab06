package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/port"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/repository"
)

const plantsTable = "plants"

var plantColumns = []string{
	"id",
	"name",
	"latin_name",
	"description",
	"images",
	"family",
	"edible_parts",
	"toxic",
	"habitats",
	"seasons",
	"created_at",
	"updated_at",
}

// PlantRepository implements port.PlantRepository using PostgreSQL.
type PlantRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPlantRepository wires a PostgreSQL-backed plant repository.
func NewPlantRepository(exec pgExecutor) *PlantRepository {
	return &PlantRepository{
		exec:    exec,
		builder: newBuilder(),
	}
}

// Create inserts all plants with a single multi-row statement, so either
// every row is stored or none is.
func (r *PlantRepository) Create(ctx context.Context, plants ...domain.Plant) ([]domain.Plant, error) {
	if len(plants) == 0 {
		return []domain.Plant{}, nil
	}

	query := r.builder.Insert(plantsTable).Columns(plantColumns...)
	for _, plant := range plants {
		query = query.Values(
			plant.ID,
			plant.Name,
			plant.LatinName,
			plant.Description,
			nonNil(plant.Images),
			plant.Family,
			nonNil(plant.EdibleParts),
			plant.Toxic,
			nonNil(plant.Habitats),
			nonNil(plant.Seasons),
			plant.CreatedAt,
			plant.UpdatedAt,
		)
	}

	stmt, args, err := query.Suffix(returningPlant()).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert plants sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("insert plants: %w", translate(err))
	}
	defer rows.Close()

	created, err := collectPlants(rows, len(plants))
	if err != nil {
		return nil, fmt.Errorf("insert plants: %w", translate(err))
	}
	return created, nil
}

// GetByID retrieves a plant.
func (r *PlantRepository) GetByID(ctx context.Context, id string) (*domain.Plant, error) {
	stmt, args, err := r.builder.
		Select(plantColumns...).
		From(plantsTable).
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select plant sql: %w", err)
	}

	var plant domain.Plant
	if err := scanPlant(r.exec.QueryRow(ctx, stmt, args...), &plant); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan plant: %w", err)
	}
	return &plant, nil
}

// List returns one page of plants sorted by name and the total match count.
func (r *PlantRepository) List(ctx context.Context, filter domain.PlantFilter) ([]domain.Plant, int, error) {
	where := squirrel.And{}
	if filter.Query != "" {
		where = append(where, squirrel.Expr(`name ILIKE ? ESCAPE '\'`, containsPattern(filter.Query)))
	}
	if filter.Family != "" {
		where = append(where, squirrel.Eq{"family": filter.Family})
	}

	countStmt, countArgs, err := r.builder.Select("COUNT(*)").From(plantsTable).Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count plants sql: %w", err)
	}

	var total int
	if err := r.exec.QueryRow(ctx, countStmt, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count plants: %w", err)
	}

	query := r.builder.
		Select(plantColumns...).
		From(plantsTable).
		Where(where).
		OrderBy("name ASC", "id")
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list plants sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query plants: %w", err)
	}
	defer rows.Close()

	plants, err := collectPlants(rows, filter.Limit)
	if err != nil {
		return nil, 0, err
	}
	return plants, total, nil
}

// AppendImage adds url to the plant's image list and returns the updated plant.
func (r *PlantRepository) AppendImage(ctx context.Context, id, url string, at time.Time) (*domain.Plant, error) {
	stmt, args, err := r.builder.Update(plantsTable).
		Set("images", squirrel.Expr("array_append(images, ?)", url)).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		Suffix(returningPlant()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build append image sql: %w", err)
	}

	var plant domain.Plant
	if err := scanPlant(r.exec.QueryRow(ctx, stmt, args...), &plant); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("append image: %w", err)
	}
	return &plant, nil
}

func returningPlant() string {
	suffix := "RETURNING "
	for i, col := range plantColumns {
		if i > 0 {
			suffix += ", "
		}
		suffix += col
	}
	return suffix
}

func collectPlants(rows pgx.Rows, capacity int) ([]domain.Plant, error) {
	if capacity < 0 {
		capacity = 0
	}
	plants := make([]domain.Plant, 0, capacity)
	for rows.Next() {
		var plant domain.Plant
		if err := scanPlant(rows, &plant); err != nil {
			return nil, fmt.Errorf("scan plant: %w", err)
		}
		plants = append(plants, plant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plants: %w", err)
	}
	return plants, nil
}

func scanPlant(row pgx.Row, plant *domain.Plant) error {
	return row.Scan(
		&plant.ID,
		&plant.Name,
		&plant.LatinName,
		&plant.Description,
		&plant.Images,
		&plant.Family,
		&plant.EdibleParts,
		&plant.Toxic,
		&plant.Habitats,
		&plant.Seasons,
		&plant.CreatedAt,
		&plant.UpdatedAt,
	)
}

var _ port.PlantRepository = (*PlantRepository)(nil)
