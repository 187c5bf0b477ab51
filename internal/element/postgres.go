package element

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	apperrors "github.com/docugrid/searchcore/pkg/errors"
	"github.com/docugrid/searchcore/pkg/postgres"
)

// PostgresSource loads element snapshots from an `elements` table. It is a
// snapshot-only source: incremental changes arrive over the Kafka feed, so
// Subscribe is a no-op here.
type PostgresSource struct {
	client *postgres.Client
	logger *slog.Logger
}

// NewPostgresSource wraps an existing Postgres client.
func NewPostgresSource(client *postgres.Client) *PostgresSource {
	return &PostgresSource{
		client: client,
		logger: slog.Default().With("component", "postgres-source"),
	}
}

// Snapshot implements Source by scanning the elements table. Rows that fail
// to decode are skipped and logged; a bad row never aborts the load.
func (p *PostgresSource) Snapshot(ctx context.Context) (map[string]Element, error) {
	rows, err := p.client.DB.QueryContext(ctx, `
		SELECT id, type, text, confidence, COALESCE(page, 0), languages, metadata, modified
		FROM elements`)
	if err != nil {
		return nil, fmt.Errorf("querying elements: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Element)
	skipped := 0
	for rows.Next() {
		var (
			el       Element
			typ      string
			langs    pq.StringArray
			metaRaw  []byte
			modified sql.NullTime
		)
		if err := rows.Scan(&el.ID, &typ, &el.Text, &el.Confidence, &el.Page, &langs, &metaRaw, &modified); err != nil {
			p.logger.Error("skipping unreadable element row", "error", err)
			skipped++
			continue
		}
		el.Type = Type(typ)
		el.Languages = []string(langs)
		if modified.Valid {
			el.Modified = modified.Time
		}
		if len(metaRaw) > 0 {
			if err := json.Unmarshal(metaRaw, &el.Metadata); err != nil {
				p.logger.Error("skipping element with bad metadata", "id", el.ID, "error", err)
				skipped++
				continue
			}
		}
		out[el.ID] = el
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanning elements: %w", err)
	}
	p.logger.Info("element snapshot loaded", "elements", len(out), "skipped", skipped)
	return out, nil
}

// Subscribe implements Source. Postgres carries no change feed; the Kafka
// source provides one.
func (p *PostgresSource) Subscribe(ctx context.Context, fn func(ChangeSet)) error {
	return nil
}

// Get implements Fetcher for single-element materialization.
func (p *PostgresSource) Get(ctx context.Context, id string) (Element, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var (
		el       Element
		typ      string
		langs    pq.StringArray
		metaRaw  []byte
		modified sql.NullTime
	)
	err := p.client.DB.QueryRowContext(ctx, `
		SELECT id, type, text, confidence, COALESCE(page, 0), languages, metadata, modified
		FROM elements WHERE id = $1`, id).
		Scan(&el.ID, &typ, &el.Text, &el.Confidence, &el.Page, &langs, &metaRaw, &modified)
	if err == sql.ErrNoRows {
		return Element{}, apperrors.Newf(apperrors.ErrElementNotFound, 404, "element %s", id)
	}
	if err != nil {
		return Element{}, fmt.Errorf("fetching element %s: %w", id, err)
	}
	el.Type = Type(typ)
	el.Languages = []string(langs)
	if modified.Valid {
		el.Modified = modified.Time
	}
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &el.Metadata); err != nil {
			return Element{}, fmt.Errorf("decoding metadata for %s: %w", id, err)
		}
	}
	return el, nil
}
