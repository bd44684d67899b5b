package catalog

import (
	"database/sql"
	"fmt"

	"github.com/JJublanc/virtual-ai-coach/internal/models"
)

// Repository reads the exercise catalog from Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const exerciseColumns = `id, name, description, icon, video_url, thumbnail_url,
	default_duration, difficulty, has_jump, access_tier, created_at, updated_at`

func scanExercise(row interface{ Scan(...interface{}) error }, e *models.Exercise) error {
	return row.Scan(&e.ID, &e.Name, &e.Description, &e.Icon, &e.VideoURL,
		&e.ThumbnailURL, &e.DefaultDuration, &e.Difficulty, &e.HasJump,
		&e.AccessTier, &e.CreatedAt, &e.UpdatedAt)
}

func (r *Repository) ListExercises() ([]models.Exercise, error) {
	query := `SELECT ` + exerciseColumns + ` FROM exercises ORDER BY name`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	defer rows.Close()

	var exercises []models.Exercise
	for rows.Next() {
		var e models.Exercise
		if err := scanExercise(rows, &e); err != nil {
			return nil, err
		}
		exercises = append(exercises, e)
	}
	return exercises, rows.Err()
}

func (r *Repository) GetExerciseByName(name string) (*models.Exercise, error) {
	e := &models.Exercise{}
	query := `SELECT ` + exerciseColumns + ` FROM exercises WHERE LOWER(name) = LOWER($1)`
	err := scanExercise(r.db.QueryRow(query, name), e)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get exercise %q: %w", name, err)
	}
	return e, nil
}
