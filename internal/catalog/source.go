// Package catalog is the exercise library: the set of known exercises, where
// their source clips live, and a local cache of downloaded clip files. It
// resolves exercise names to ready-to-encode local video files.
package catalog

import (
	"errors"

	"github.com/JJublanc/virtual-ai-coach/internal/models"
)

// ErrNotFound is returned when no exercise matches the requested name.
var ErrNotFound = errors.New("catalog: exercise not found")

// Source is the backing store for exercise definitions. The Postgres
// repository is the primary implementation; a JSON file source covers
// development setups without a database.
type Source interface {
	ListExercises() ([]models.Exercise, error)
	GetExerciseByName(name string) (*models.Exercise, error)
}
