package entities

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

// PostgresStore reads master tables and writes crm.entity_stages.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*PostgresStore, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: database, logger: logger.With("module", "entities")}, nil
}

func (s *PostgresStore) Fetch(ctx context.Context, entityType, entityID string) (map[string]any, error) {
	table, err := Table(entityType)
	if err != nil {
		return nil, err
	}

	// table comes from the fixed mapping above, never from input.
	query := fmt.Sprintf(`SELECT row_to_json(t) FROM %s t WHERE t.st_id::text = $1 LIMIT 1`, table)

	var raw []byte

	err = s.db.QueryRowContext(ctx, query, entityID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s %s", ErrEntityNotFound, entityType, entityID)
		}

		return nil, fmt.Errorf("failed to fetch %s %s: %w", entityType, entityID, err)
	}

	row := map[string]any{}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	err = decoder.Decode(&row)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s %s: %w", entityType, entityID, err)
	}

	return row, nil
}

func (s *PostgresStore) UpdateStage(ctx context.Context, update StageUpdate) error {
	if _, err := Table(update.EntityType); err != nil {
		return err
	}

	query := `
		INSERT INTO crm.entity_stages (entity_type, entity_id, stage, stage_id, instance_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (entity_type, entity_id) DO UPDATE SET
			stage = EXCLUDED.stage,
			stage_id = EXCLUDED.stage_id,
			instance_id = EXCLUDED.instance_id,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		update.EntityType,
		update.EntityID,
		nullString(update.Stage),
		nullString(update.StageID),
		nullString(update.InstanceID),
		update.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update stage of %s %s: %w", update.EntityType, update.EntityID, err)
	}

	return nil
}

func (s *PostgresStore) Close(_ context.Context) error {
	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
