// Package mapping stores per-owner column mapping presets for statement
// formats that have no built-in bank profile.
package mapping

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/importer"
)

var (
	ErrNotFound     = errors.New("mapping not found")
	ErrInvalidName  = errors.New("mapping name is required")
	ErrInvalidField = errors.New("unknown mapping field")
)

type Mapping struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Name       string
	DateFormat string
	Columns    importer.ColumnMap
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Config returns the import config the mapping describes.
func (m *Mapping) Config() importer.Config {
	return importer.Config{
		Source:     "mapping:" + m.ID.String(),
		Columns:    m.Columns,
		DateFormat: m.DateFormat,
	}
}

// validate checks a name and column map before they are stored.
func validate(name string, cols importer.ColumnMap) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}

	for f := range cols {
		if !f.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidField, f)
		}
	}

	return importer.Config{Columns: cols}.Validate()
}
