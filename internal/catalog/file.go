package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/JJublanc/virtual-ai-coach/internal/models"
)

// FileSource serves the exercise catalog from a JSON file. The file is read
// once and held in memory; edits require a restart.
type FileSource struct {
	once      sync.Once
	path      string
	exercises []models.Exercise
	loadErr   error
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) load() {
	data, err := os.ReadFile(f.path)
	if err != nil {
		f.loadErr = fmt.Errorf("read catalog file: %w", err)
		return
	}
	if err := json.Unmarshal(data, &f.exercises); err != nil {
		f.loadErr = fmt.Errorf("parse catalog file %s: %w", f.path, err)
	}
}

func (f *FileSource) ListExercises() ([]models.Exercise, error) {
	f.once.Do(f.load)
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	out := make([]models.Exercise, len(f.exercises))
	copy(out, f.exercises)
	return out, nil
}

func (f *FileSource) GetExerciseByName(name string) (*models.Exercise, error) {
	f.once.Do(f.load)
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	for i := range f.exercises {
		if strings.EqualFold(f.exercises[i].Name, name) {
			e := f.exercises[i]
			return &e, nil
		}
	}
	return nil, ErrNotFound
}
