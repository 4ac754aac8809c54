package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/config"
	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"
)

// Two opportunities for the same match whose profits differ by less than this
// many percentage points are the same opportunity, refreshed.
const profitDedupTolerance = 0.5

var (
	_ EventStore       = (*PostgresStorage)(nil)
	_ OpportunityStore = (*PostgresStorage)(nil)
)

// PostgresStorage persists bookmaker events and opportunities in PostgreSQL.
type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(cfg *config.PostgresConfig) (*PostgresStorage, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &PostgresStorage{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStorage) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS bookmakers (
		id SERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS matches (
		id SERIAL PRIMARY KEY,
		bookmaker_id INTEGER NOT NULL REFERENCES bookmakers(id),
		external_id VARCHAR(100) NOT NULL,
		sport VARCHAR(100) NOT NULL DEFAULT '',
		league VARCHAR(200) NOT NULL DEFAULT '',
		match_title VARCHAR(500) NOT NULL,
		canonical_key VARCHAR(500) NOT NULL,
		start_time TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE(bookmaker_id, external_id)
	);

	CREATE TABLE IF NOT EXISTS odds (
		id SERIAL PRIMARY KEY,
		match_id INTEGER NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
		slot VARCHAR(20) NOT NULL,
		outcome_name VARCHAR(255) NOT NULL,
		odds_value DECIMAL(10, 4) NOT NULL,
		UNIQUE(match_id, slot)
	);

	CREATE TABLE IF NOT EXISTS opportunities (
		id SERIAL PRIMARY KEY,
		canonical_key VARCHAR(500) NOT NULL,
		match_title VARCHAR(500) NOT NULL,
		sport VARCHAR(100) NOT NULL DEFAULT '',
		league VARCHAR(200) NOT NULL DEFAULT '',
		start_time TIMESTAMP,
		profit_percent DECIMAL(10, 4) NOT NULL,
		investment DECIMAL(12, 4) NOT NULL,
		expected_return DECIMAL(12, 4) NOT NULL,
		legs JSONB NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		discovered_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_matches_canonical_key ON matches(canonical_key);
	CREATE INDEX IF NOT EXISTS idx_opportunities_canonical_key ON opportunities(canonical_key);
	CREATE INDEX IF NOT EXISTS idx_opportunities_active ON opportunities(is_active, profit_percent DESC);
	CREATE INDEX IF NOT EXISTS idx_opportunities_discovered_at ON opportunities(discovered_at DESC);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *PostgresStorage) bookmakerID(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO bookmakers (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to get bookmaker id for %s: %w", name, err)
	}
	return id, nil
}

// UpsertSourceEvent inserts or updates one event keyed by (source, external id)
// and rewrites its odds rows.
func (s *PostgresStorage) UpsertSourceEvent(ctx context.Context, ev *models.SourceEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.upsertEventTx(ctx, tx, ev); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStorage) upsertEventTx(ctx context.Context, tx *sql.Tx, ev *models.SourceEvent) error {
	bkID, err := s.bookmakerID(ctx, tx, ev.SourceID)
	if err != nil {
		return err
	}

	var matchID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO matches (bookmaker_id, external_id, sport, league, match_title, canonical_key, start_time, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (bookmaker_id, external_id) DO UPDATE SET
			sport = EXCLUDED.sport,
			league = EXCLUDED.league,
			match_title = EXCLUDED.match_title,
			canonical_key = EXCLUDED.canonical_key,
			start_time = EXCLUDED.start_time,
			updated_at = NOW()
		RETURNING id
	`, bkID, ev.ExternalID, ev.Sport, ev.League, ev.DisplayTitle, models.KeyForEvent(ev), ev.StartTime).Scan(&matchID)
	if err != nil {
		return fmt.Errorf("failed to upsert match %s/%s: %w", ev.SourceID, ev.ExternalID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM odds WHERE match_id = $1`, matchID); err != nil {
		return fmt.Errorf("failed to clear odds for match %d: %w", matchID, err)
	}
	for slot, quote := range ev.Outcomes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO odds (match_id, slot, outcome_name, odds_value)
			VALUES ($1, $2, $3, $4)
		`, matchID, string(slot), quote.DisplayName, quote.Odds)
		if err != nil {
			return fmt.Errorf("failed to insert odds for match %d slot %s: %w", matchID, slot, err)
		}
	}
	return nil
}

// ReplaceSourceEvents drops everything stored for the bookmaker and inserts
// the new cycle's list in one transaction.
func (s *PostgresStorage) ReplaceSourceEvents(ctx context.Context, sourceID string, events []models.SourceEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	bkID, err := s.bookmakerID(ctx, tx, sourceID)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE bookmaker_id = $1`, bkID); err != nil {
		return fmt.Errorf("failed to clear matches for %s: %w", sourceID, err)
	}
	for i := range events {
		if err := s.upsertEventTx(ctx, tx, &events[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStorage) GetSourceEvents(ctx context.Context, sourceID string) ([]models.SourceEvent, error) {
	all, err := s.queryEvents(ctx, `WHERE b.name = $1`, sourceID)
	if err != nil {
		return nil, err
	}
	return all[sourceID], nil
}

func (s *PostgresStorage) GetAllSourceEvents(ctx context.Context) (map[string][]models.SourceEvent, error) {
	return s.queryEvents(ctx, ``)
}

func (s *PostgresStorage) queryEvents(ctx context.Context, where string, args ...any) (map[string][]models.SourceEvent, error) {
	query := `
		SELECT b.name, m.id, m.external_id, m.sport, m.league, m.match_title, m.start_time
		FROM matches m JOIN bookmakers b ON b.id = m.bookmaker_id ` + where + `
		ORDER BY b.name, m.id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	type rowRef struct {
		source string
		index  int
	}
	result := map[string][]models.SourceEvent{}
	byMatchID := map[int64]rowRef{}
	for rows.Next() {
		var (
			source  string
			matchID int64
			ev      models.SourceEvent
			start   sql.NullTime
		)
		if err := rows.Scan(&source, &matchID, &ev.ExternalID, &ev.Sport, &ev.League, &ev.DisplayTitle, &start); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		ev.SourceID = source
		if start.Valid {
			ev.StartTime = start.Time
		}
		ev.Outcomes = map[models.OutcomeSlot]models.OutcomeQuote{}
		result[source] = append(result[source], ev)
		byMatchID[matchID] = rowRef{source: source, index: len(result[source]) - 1}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading match rows: %w", err)
	}

	oddsQuery := `
		SELECT o.match_id, o.slot, o.outcome_name, o.odds_value
		FROM odds o JOIN matches m ON m.id = o.match_id JOIN bookmakers b ON b.id = m.bookmaker_id ` + where
	oddsRows, err := s.db.QueryContext(ctx, oddsQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query odds: %w", err)
	}
	defer oddsRows.Close()

	for oddsRows.Next() {
		var (
			matchID int64
			slot    string
			name    string
			value   float64
		)
		if err := oddsRows.Scan(&matchID, &slot, &name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan odds row: %w", err)
		}
		ref, ok := byMatchID[matchID]
		if !ok {
			continue
		}
		result[ref.source][ref.index].Outcomes[models.OutcomeSlot(slot)] = models.OutcomeQuote{
			Slot:        models.OutcomeSlot(slot),
			DisplayName: name,
			Odds:        value,
		}
	}
	return result, oddsRows.Err()
}

// StoreOpportunity saves an opportunity. An active row for the same match at
// near-equal profit is refreshed in place and does not count as new.
func (s *PostgresStorage) StoreOpportunity(ctx context.Context, opp *models.Opportunity) (bool, error) {
	legs, err := json.Marshal(opp.Legs)
	if err != nil {
		return false, fmt.Errorf("failed to marshal legs: %w", err)
	}

	var (
		existingID     int64
		existingProfit float64
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT id, profit_percent FROM opportunities
		WHERE canonical_key = $1 AND is_active = TRUE
		ORDER BY discovered_at DESC LIMIT 1
	`, opp.CanonicalKey).Scan(&existingID, &existingProfit)

	switch {
	case err == sql.ErrNoRows:
		// fall through to insert
	case err != nil:
		return false, fmt.Errorf("failed to check existing opportunity: %w", err)
	default:
		diff := opp.ProfitPercent - existingProfit
		if diff < profitDedupTolerance && diff > -profitDedupTolerance {
			_, err := s.db.ExecContext(ctx, `
				UPDATE opportunities SET
					profit_percent = $1, investment = $2, expected_return = $3,
					legs = $4, updated_at = NOW()
				WHERE id = $5
			`, opp.ProfitPercent, opp.Investment, opp.ExpectedRet, legs, existingID)
			if err != nil {
				return false, fmt.Errorf("failed to refresh opportunity: %w", err)
			}
			return false, nil
		}
		// Profit moved beyond tolerance: supersede the old row.
		if _, err := s.db.ExecContext(ctx, `UPDATE opportunities SET is_active = FALSE WHERE id = $1`, existingID); err != nil {
			return false, fmt.Errorf("failed to supersede opportunity: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO opportunities (
			canonical_key, match_title, sport, league, start_time,
			profit_percent, investment, expected_return, legs, is_active, discovered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, opp.CanonicalKey, opp.MatchTitle, opp.Sport, opp.League, opp.StartTime,
		opp.ProfitPercent, opp.Investment, opp.ExpectedRet, legs, opp.IsActive, opp.DiscoveredAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert opportunity: %w", err)
	}
	return true, nil
}

func (s *PostgresStorage) GetActiveOpportunities(ctx context.Context, limit int) ([]models.Opportunity, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT canonical_key, match_title, sport, league, start_time,
			profit_percent, investment, expected_return, legs, is_active, discovered_at
		FROM opportunities WHERE is_active = TRUE
		ORDER BY profit_percent DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query opportunities: %w", err)
	}
	defer rows.Close()

	var opportunities []models.Opportunity
	for rows.Next() {
		var (
			opp   models.Opportunity
			legs  []byte
			start sql.NullTime
		)
		if err := rows.Scan(&opp.CanonicalKey, &opp.MatchTitle, &opp.Sport, &opp.League, &start,
			&opp.ProfitPercent, &opp.Investment, &opp.ExpectedRet, &legs, &opp.IsActive, &opp.DiscoveredAt); err != nil {
			return nil, fmt.Errorf("failed to scan opportunity row: %w", err)
		}
		if start.Valid {
			opp.StartTime = start.Time
		}
		if err := json.Unmarshal(legs, &opp.Legs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal legs: %w", err)
		}
		opportunities = append(opportunities, opp)
	}
	return opportunities, rows.Err()
}

// GetLastOpportunity reads the latest stored sighting of a match key.
// updated_at is bumped by every refresh, so the returned time is the last
// cycle that saw the opportunity, not its first discovery.
func (s *PostgresStorage) GetLastOpportunity(ctx context.Context, canonicalKey string) (float64, time.Time, error) {
	var (
		profit   float64
		lastSeen time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT profit_percent, updated_at FROM opportunities
		WHERE canonical_key = $1
		ORDER BY updated_at DESC LIMIT 1
	`, canonicalKey).Scan(&profit, &lastSeen)
	if err == sql.ErrNoRows {
		return 0, time.Time{}, nil
	}
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to query last opportunity: %w", err)
	}
	return profit, lastSeen, nil
}

func (s *PostgresStorage) MarkInactiveByKey(ctx context.Context, canonicalKey string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE opportunities SET is_active = FALSE WHERE canonical_key = $1
	`, canonicalKey)
	if err != nil {
		return fmt.Errorf("failed to mark opportunities inactive: %w", err)
	}
	return nil
}

func (s *PostgresStorage) MarkInactiveOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE opportunities SET is_active = FALSE
		WHERE is_active = TRUE AND discovered_at < NOW() - $1::interval
	`, fmt.Sprintf("%d seconds", int(age.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("failed to expire opportunities: %w", err)
	}
	return res.RowsAffected()
}

// CleanTables removes all rows; used by the clean-db maintenance tool.
func (s *PostgresStorage) CleanTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `TRUNCATE opportunities, odds, matches, bookmakers RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
