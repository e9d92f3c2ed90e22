package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"listing_engine/models"
	"listing_engine/storage/query"
)

const listingColumns = `id, listing_id, status, list_date, close_date, list_price, sold_price,
	address, street_number, street_name, city, state, zip_code, subdivision_name, mls_area_minor,
	latitude, longitude, bedrooms_total, bathrooms_total, bathrooms_full, bathrooms_half,
	bathrooms_three_quarter, living_area, lot_size_acres, year_built, property_type,
	property_sub_type, public_remarks, preferred_photo, media, virtual_tour_url,
	list_agent_mls_id, co_list_agent_mls_id, buyer_agent_mls_id, co_buyer_agent_mls_id,
	list_agent_full_name, created_at, updated_at`

// PrimaryStore reads the synced MLS listing table and the open-house
// schedule. It never writes.
type PrimaryStore struct {
	pool *pgxpool.Pool
}

func NewPrimaryStore(ctx context.Context, connString string) (*PrimaryStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PrimaryStore{pool: pool}, nil
}

func (s *PrimaryStore) Close() {
	s.pool.Close()
}

func (s *PrimaryStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// =============================================================================
// Listings
// =============================================================================

// Search returns one window of rows matching filters plus the exact count
// of the same predicate set.
func (s *PrimaryStore) Search(ctx context.Context, filters models.SearchFilters, sort models.SortKey, limit, offset int) ([]models.RawRow, int, error) {
	b := query.NewBuilder()
	where := b.Where(SearchPredicates(filters)...)
	countArgs := append([]any(nil), b.Args()...)

	var total int
	countSQL := "SELECT COUNT(*) FROM listings " + where
	if err := s.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	limitPh := b.Bind(limit)
	offsetPh := b.Bind(offset)
	sql := fmt.Sprintf("SELECT %s FROM listings %s %s LIMIT %s OFFSET %s",
		listingColumns, where, OrderBy(sort), limitPh, offsetPh)

	rows, err := s.queryRows(ctx, sql, b.Args()...)
	if err != nil {
		return nil, 0, fmt.Errorf("search listings: %w", err)
	}
	return rows, total, nil
}

func (s *PrimaryStore) GetByID(ctx context.Context, id string) (models.RawRow, error) {
	return s.queryOne(ctx, "SELECT "+listingColumns+" FROM listings WHERE id::text = $1", id)
}

func (s *PrimaryStore) GetByMLSNumber(ctx context.Context, number string) (models.RawRow, error) {
	return s.queryOne(ctx, "SELECT "+listingColumns+" FROM listings WHERE listing_id = $1", number)
}

func (s *PrimaryStore) GetByIDs(ctx context.Context, ids []string) ([]models.RawRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sql := "SELECT " + listingColumns + " FROM listings WHERE id::text = ANY($1)"
	return s.queryRows(ctx, sql, ids)
}

func (s *PrimaryStore) GetByMLSNumbers(ctx context.Context, numbers []string) ([]models.RawRow, error) {
	if len(numbers) == 0 {
		return nil, nil
	}
	sql := "SELECT " + listingColumns + " FROM listings WHERE listing_id = ANY($1)"
	return s.queryRows(ctx, sql, numbers)
}

// GetAgentListings returns rows where any agent-role column matches one of
// agentIDs and the status is in statuses, newest first.
func (s *PrimaryStore) GetAgentListings(ctx context.Context, agentIDs, statuses []string) ([]models.RawRow, error) {
	if len(agentIDs) == 0 {
		return nil, nil
	}
	roles := make([]query.Predicate, 0, len(AgentRoleColumns))
	for _, col := range AgentRoleColumns {
		roles = append(roles, query.In(col, agentIDs))
	}

	b := query.NewBuilder()
	where := b.Where(query.Or(roles...), query.In(colStatus, statuses))
	sql := fmt.Sprintf("SELECT %s FROM listings %s %s", listingColumns, where, OrderBy(models.SortNewest))
	return s.queryRows(ctx, sql, b.Args()...)
}

// GetListingAgents returns the listing and co-listing agent IDs of one
// listing, or nil when the listing is unknown.
func (s *PrimaryStore) GetListingAgents(ctx context.Context, number string) (*models.ListingAgents, error) {
	sql := `SELECT COALESCE(list_agent_mls_id, ''), COALESCE(co_list_agent_mls_id, '')
		FROM listings WHERE listing_id = $1 LIMIT 1`

	var a models.ListingAgents
	err := s.pool.QueryRow(ctx, sql, number).Scan(&a.ListAgentID, &a.CoListAgentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get listing agents: %w", err)
	}
	return &a, nil
}

// =============================================================================
// Facets
// =============================================================================

// DistinctCities lists non-empty cities, limited to allowed when set.
func (s *PrimaryStore) DistinctCities(ctx context.Context, allowed []string) ([]string, error) {
	where := "WHERE city IS NOT NULL AND city <> ''"
	var args []any
	if len(allowed) > 0 {
		where += " AND city = ANY($1)"
		args = append(args, allowed)
	}
	return s.distinct(ctx, colCity, where, args)
}

func (s *PrimaryStore) DistinctStatuses(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, colStatus, "WHERE status IS NOT NULL AND status <> ''", nil)
}

// DistinctNeighborhoods lists subdivision names, optionally limited to one city.
func (s *PrimaryStore) DistinctNeighborhoods(ctx context.Context, city string) ([]string, error) {
	where := "WHERE subdivision_name IS NOT NULL AND subdivision_name <> ''"
	var args []any
	if city != "" {
		where += " AND city ILIKE $1"
		args = append(args, city)
	}
	return s.distinct(ctx, colSubdivision, where, args)
}

func (s *PrimaryStore) distinct(ctx context.Context, col, where string, args []any) ([]string, error) {
	sql := fmt.Sprintf("SELECT DISTINCT %s FROM listings %s ORDER BY %s", col, where, col)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", col, err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", col, err)
	}
	return values, nil
}

// =============================================================================
// Open houses
// =============================================================================

// UpcomingOpenHouses returns open houses on or after from, soonest first.
func (s *PrimaryStore) UpcomingOpenHouses(ctx context.Context, from time.Time) ([]models.OpenHouse, error) {
	sql := `SELECT listing_id, open_house_date, start_time, end_time, remarks
		FROM open_houses
		WHERE open_house_date >= $1
		ORDER BY open_house_date, start_time`

	rows, err := s.pool.Query(ctx, sql, from.Truncate(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("query open houses: %w", err)
	}
	defer rows.Close()

	var out []models.OpenHouse
	for rows.Next() {
		var oh models.OpenHouse
		var start, end, remarks *string
		if err := rows.Scan(&oh.MLSNumber, &oh.Date, &start, &end, &remarks); err != nil {
			return nil, fmt.Errorf("scan open house: %w", err)
		}
		oh.StartTime = deref(start)
		oh.EndTime = deref(end)
		oh.Remarks = deref(remarks)
		out = append(out, oh)
	}
	return out, rows.Err()
}

// =============================================================================
// helpers
// =============================================================================

func (s *PrimaryStore) queryRows(ctx context.Context, sql string, args ...any) ([]models.RawRow, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	out := make([]models.RawRow, len(maps))
	for i, m := range maps {
		out[i] = plainRow(m)
	}
	return out, nil
}

func (s *PrimaryStore) queryOne(ctx context.Context, sql string, args ...any) (models.RawRow, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	m, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return plainRow(m), nil
}

// plainRow converts driver-specific values (numeric, uuid) into plain Go
// values so normalization does not depend on pgx types.
func plainRow(m map[string]any) models.RawRow {
	for k, v := range m {
		switch t := v.(type) {
		case pgtype.Numeric:
			f, err := t.Float64Value()
			if err != nil || !f.Valid {
				m[k] = nil
				continue
			}
			m[k] = f.Float64
		case [16]byte:
			m[k] = uuid.UUID(t).String()
		}
	}
	return m
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
