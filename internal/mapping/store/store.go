package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/mapping"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectMappingColumns = `id, owner_id, name, date_format, column_mappings, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanMapping(s scanner) (*mapping.Mapping, error) {
	var (
		m    mapping.Mapping
		cols []byte
	)

	if err := s.Scan(&m.ID, &m.OwnerID, &m.Name, &m.DateFormat, &cols, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(cols, &m.Columns); err != nil {
		return nil, fmt.Errorf("decoding column mappings: %w", err)
	}

	return &m, nil
}

func (s *Store) CreateMapping(ctx context.Context, owner uuid.UUID, params mapping.SaveParams) (*mapping.Mapping, error) {
	cols, err := encodeColumns(params.Columns)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO import_mappings (id, owner_id, name, date_format, column_mappings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, NOW(), NOW())
		RETURNING ` + selectMappingColumns

	m, err := scanMapping(s.db.QueryRowContext(ctx, query, uuid.New(), owner, params.Name, params.DateFormat, cols))
	if err != nil {
		return nil, fmt.Errorf("inserting mapping: %w", err)
	}

	return m, nil
}

func (s *Store) ListMappings(ctx context.Context, owner uuid.UUID) ([]*mapping.Mapping, error) {
	query := `SELECT ` + selectMappingColumns + `
		FROM import_mappings
		WHERE owner_id = $1
		ORDER BY name ASC, created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("listing mappings: %w", err)
	}
	defer rows.Close()

	var out []*mapping.Mapping

	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning mapping: %w", err)
		}

		out = append(out, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mappings: %w", err)
	}

	return out, nil
}

func (s *Store) GetMapping(ctx context.Context, owner, id uuid.UUID) (*mapping.Mapping, error) {
	query := `SELECT ` + selectMappingColumns + `
		FROM import_mappings
		WHERE id = $1 AND owner_id = $2`

	m, err := scanMapping(s.db.QueryRowContext(ctx, query, id, owner))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, mapping.ErrNotFound
		}

		return nil, fmt.Errorf("getting mapping: %w", err)
	}

	return m, nil
}

// UpdateMapping changes only the fields set in params.
func (s *Store) UpdateMapping(ctx context.Context, owner, id uuid.UUID, params mapping.UpdateParams) (*mapping.Mapping, error) {
	var cols *string

	if params.Columns != nil {
		encoded, err := encodeColumns(params.Columns)
		if err != nil {
			return nil, err
		}

		cols = &encoded
	}

	query := `
		UPDATE import_mappings
		SET name = COALESCE($3, name),
			date_format = COALESCE($4, date_format),
			column_mappings = COALESCE($5::jsonb, column_mappings),
			updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + selectMappingColumns

	m, err := scanMapping(s.db.QueryRowContext(ctx, query, id, owner, params.Name, params.DateFormat, cols))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, mapping.ErrNotFound
		}

		return nil, fmt.Errorf("updating mapping: %w", err)
	}

	return m, nil
}

func (s *Store) DeleteMapping(ctx context.Context, owner, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM import_mappings WHERE id = $1 AND owner_id = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("deleting mapping: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return mapping.ErrNotFound
	}

	return nil
}

func encodeColumns(cols importer.ColumnMap) (string, error) {
	b, err := json.Marshal(cols)
	if err != nil {
		return "", fmt.Errorf("encoding column mappings: %w", err)
	}

	return string(b), nil
}
