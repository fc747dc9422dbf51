// Package store implements the Postgres persistence layer: a durable mirror
// of the opportunity log, provider health history, and pool-reserve
// snapshots. Optional throughout: every caller treats a nil *Store or a
// write error as "continue without persisting, warn" rather than a fatal
// condition — an unreachable database should not take the engine down.
package store

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rawblock/arb-engine/pkg/models"
)

type Store struct {
	pool *pgxpool.Pool
}

// Connect opens the connection pool and pings it once.
func Connect(connStr string) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("store: unable to connect to postgres: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping failed: %w", err)
	}
	log.Println("[Store] connected to Postgres")
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema reads the SQL file at schemaPath (a relative path resolves
// against the process working directory) and executes it.
func (s *Store) InitSchema(schemaPath string) error {
	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("store: read schema file: %w", err)
	}
	if _, err := s.pool.Exec(context.Background(), string(schemaBytes)); err != nil {
		return fmt.Errorf("store: execute schema: %w", err)
	}
	log.Println("[Store] schema initialized")
	return nil
}

// SaveOnChainOpportunity mirrors one on-chain cycle opportunity into the
// opportunities table. cmd/engine does not call it: on-chain cycle
// opportunities go to the JSONL oplog sink and the dashboard feed only.
func (s *Store) SaveOnChainOpportunity(ctx context.Context, o models.OnChainOpportunity) error {
	const insertSQL = `
		INSERT INTO opportunities
			(kind, token_symbol, start_mint, path_mints, path_pools, start_amount,
			 end_amount, spread_optimistic, spread_realistic, dry_run, tx_signature)
		VALUES ('onchain_cycle', '', $1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.pool.Exec(ctx, insertSQL,
		o.StartMint, o.PathMints, o.PathPools, o.StartAmount, o.EndAmount,
		o.SpreadOptimistic, o.SpreadRealistic, o.DryRun, o.TxSignature)
	if err != nil {
		return fmt.Errorf("store: save onchain opportunity: %w", err)
	}
	return nil
}

// SaveRestOpportunity mirrors one cross-DEX REST spread opportunity.
func (s *Store) SaveRestOpportunity(ctx context.Context, o models.RestOpportunity) error {
	const insertSQL = `
		INSERT INTO opportunities
			(kind, token_symbol, max_price, max_dex, min_price, min_dex, spread_percent)
		VALUES ('rest_spread', $1, $2, $3, $4, $5, $6)
	`
	_, err := s.pool.Exec(ctx, insertSQL, o.TokenSymbol, o.MaxPrice, o.MaxDex, o.MinPrice, o.MinDex, o.SpreadPercent)
	if err != nil {
		return fmt.Errorf("store: save rest opportunity: %w", err)
	}
	return nil
}

// SaveProviderHealth records one health-score observation for a subscription
// provider in the provider_health table.
func (s *Store) SaveProviderHealth(ctx context.Context, providerName string, successCount, failureCount uint32, score float64) error {
	const insertSQL = `
		INSERT INTO provider_health (provider_name, success_count, failure_count, health_score)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.pool.Exec(ctx, insertSQL, providerName, successCount, failureCount, score)
	if err != nil {
		return fmt.Errorf("store: save provider health: %w", err)
	}
	return nil
}

// SavePoolSnapshot records one pool's current reserves in the
// pool_snapshots table for offline reserve-history inspection. The
// dashboard's /api/v1/pools view reads the in-memory registry, not this
// table.
func (s *Store) SavePoolSnapshot(ctx context.Context, poolName, poolAddress string, reserveA, reserveB uint64) error {
	const insertSQL = `
		INSERT INTO pool_snapshots (pool_name, pool_address, reserve_a, reserve_b)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.pool.Exec(ctx, insertSQL, poolName, poolAddress, reserveA, reserveB)
	if err != nil {
		return fmt.Errorf("store: save pool snapshot: %w", err)
	}
	return nil
}

// OpportunityPage is one page of historical opportunities returned to the
// dashboard's GET /api/v1/opportunities endpoint.
type OpportunityPage struct {
	Kind             string  `json:"kind"`
	DetectedAt       string  `json:"detectedAt"`
	TokenSymbol      string  `json:"tokenSymbol,omitempty"`
	StartMint        string  `json:"startMint,omitempty"`
	SpreadOptimistic float64 `json:"spreadOptimisticPct,omitempty"`
	SpreadRealistic  float64 `json:"spreadRealisticPct,omitempty"`
	SpreadPercent    float64 `json:"spreadPercent,omitempty"`
	TxSignature      string  `json:"txSignature,omitempty"`
}

// GetOpportunities returns a page of historical opportunities, most recent
// first.
func (s *Store) GetOpportunities(ctx context.Context, page, limit int) ([]OpportunityPage, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM opportunities`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count opportunities: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT kind, detected_at::text, COALESCE(token_symbol,''), COALESCE(start_mint,''),
		       COALESCE(spread_optimistic,0), COALESCE(spread_realistic,0),
		       COALESCE(spread_percent,0), COALESCE(tx_signature,'')
		FROM opportunities
		ORDER BY detected_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: query opportunities: %w", err)
	}
	defer rows.Close()

	var out []OpportunityPage
	for rows.Next() {
		var o OpportunityPage
		if err := rows.Scan(&o.Kind, &o.DetectedAt, &o.TokenSymbol, &o.StartMint,
			&o.SpreadOptimistic, &o.SpreadRealistic, &o.SpreadPercent, &o.TxSignature); err != nil {
			return nil, 0, fmt.Errorf("store: scan opportunity row: %w", err)
		}
		out = append(out, o)
	}
	if out == nil {
		out = []OpportunityPage{}
	}
	return out, total, nil
}
