package file

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fluxion-io/fluxion/pkg/persistence"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// collection stores one JSON file per entity under <root>/<dir>/<id>.json.
type collection[T any] struct {
	root     string
	dir      string
	entity   string
	notFound error
}

func (c *collection[T]) path(id string) string {
	return filepath.Join(c.root, c.dir, id+".json")
}

func (c *collection[T]) read(op, id string) (*T, error) {
	data, err := os.ReadFile(c.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewStoreError(op, c.entity, id, c.notFound)
		}

		return nil, persistence.NewStoreError(op, c.entity, id, err)
	}

	value := new(T)
	if err := json.Unmarshal(data, value); err != nil {
		return nil, persistence.NewStoreError(op, c.entity, id, err)
	}

	return value, nil
}

func (c *collection[T]) write(op, id string, value *T) error {
	if err := os.MkdirAll(filepath.Join(c.root, c.dir), dirPerm); err != nil {
		return persistence.NewStoreError(op, c.entity, id, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return persistence.NewStoreError(op, c.entity, id, err)
	}

	if err := os.WriteFile(c.path(id), data, filePerm); err != nil {
		return persistence.NewStoreError(op, c.entity, id, err)
	}

	return nil
}

// create writes the entity only if no file for the id exists yet.
func (c *collection[T]) create(op, id string, value *T) error {
	if _, err := os.Stat(c.path(id)); err == nil {
		return persistence.NewStoreError(op, c.entity, id, persistence.ErrAlreadyExists)
	}

	return c.write(op, id, value)
}

func (c *collection[T]) exists(id string) bool {
	_, err := os.Stat(c.path(id))

	return err == nil
}

func (c *collection[T]) remove(op, id string) error {
	if err := os.Remove(c.path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return persistence.NewStoreError(op, c.entity, id, c.notFound)
		}

		return persistence.NewStoreError(op, c.entity, id, err)
	}

	return nil
}

// list loads every entity in the collection, sorted by file name.
func (c *collection[T]) list(op string) ([]*T, error) {
	root := os.DirFS(filepath.Join(c.root, c.dir))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, persistence.NewStoreError(op, c.entity, "", err)
	}

	values := make([]*T, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := strings.TrimSuffix(file, ".json")

		value, err := c.read(op, id)
		if err != nil {
			return nil, err
		}

		values = append(values, value)
	}

	return values, nil
}
