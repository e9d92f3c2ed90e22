package services

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"listing_engine/models"
)

var errUpstream = errors.New("upstream unavailable")

// fakePrimary serves rows from memory. Search pages through rows in order.
type fakePrimary struct {
	rows       []models.RawRow
	openHouses []models.OpenHouse
	agents     map[string]*models.ListingAgents
	err        error

	lastFilters models.SearchFilters
	lastLimit   int
	lastOffset  int
	agentCalls  int
}

func (f *fakePrimary) Search(_ context.Context, filters models.SearchFilters, _ models.SortKey, limit, offset int) ([]models.RawRow, int, error) {
	f.lastFilters, f.lastLimit, f.lastOffset = filters, limit, offset
	if f.err != nil {
		return nil, 0, f.err
	}
	if offset >= len(f.rows) {
		return nil, len(f.rows), nil
	}
	end := min(offset+limit, len(f.rows))
	return f.rows[offset:end], len(f.rows), nil
}

func (f *fakePrimary) find(key, value string) models.RawRow {
	for _, r := range f.rows {
		if r[key] == value {
			return r
		}
	}
	return nil
}

func (f *fakePrimary) GetByID(_ context.Context, id string) (models.RawRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.find("id", id), nil
}

func (f *fakePrimary) GetByIDs(_ context.Context, ids []string) ([]models.RawRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.RawRow
	for _, r := range f.rows {
		if id, _ := r["id"].(string); slices.Contains(ids, id) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakePrimary) GetByMLSNumber(_ context.Context, number string) (models.RawRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.find("listing_id", number), nil
}

func (f *fakePrimary) GetByMLSNumbers(_ context.Context, numbers []string) ([]models.RawRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.RawRow
	for _, r := range f.rows {
		if n, _ := r["listing_id"].(string); slices.Contains(numbers, n) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakePrimary) GetAgentListings(_ context.Context, agentIDs, statuses []string) ([]models.RawRow, error) {
	f.agentCalls++
	if f.err != nil {
		return nil, f.err
	}
	var out []models.RawRow
	for _, r := range f.rows {
		status, _ := r["status"].(string)
		if !slices.Contains(statuses, status) {
			continue
		}
		for _, col := range []string{"list_agent_mls_id", "co_list_agent_mls_id", "buyer_agent_mls_id", "co_buyer_agent_mls_id"} {
			if id, _ := r[col].(string); id != "" && slices.Contains(agentIDs, id) {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

func (f *fakePrimary) GetListingAgents(_ context.Context, number string) (*models.ListingAgents, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.agents[number], nil
}

func (f *fakePrimary) DistinctCities(_ context.Context, allowed []string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(allowed) > 0 {
		return allowed, nil
	}
	return []string{"Aspen", "Basalt"}, nil
}

func (f *fakePrimary) DistinctStatuses(context.Context) ([]string, error) {
	return []string{"Active", "Closed"}, f.err
}

func (f *fakePrimary) DistinctNeighborhoods(_ context.Context, city string) ([]string, error) {
	if city == "Aspen" {
		return []string{"Red Mountain", "West End"}, f.err
	}
	return nil, f.err
}

func (f *fakePrimary) UpcomingOpenHouses(_ context.Context, _ time.Time) ([]models.OpenHouse, error) {
	return f.openHouses, f.err
}

// fakeSecondary answers containment lookups by MLS number and agent name.
type fakeSecondary struct {
	mu       sync.Mutex
	byMLS    map[string]models.RawRow
	byAgent  map[string][]models.RawRow
	err      error
	lookups  int
	inFlight int
	maxSeen  int
	delay    time.Duration
}

func (f *fakeSecondary) FindByMLSNumber(_ context.Context, number string) (models.RawRow, error) {
	f.mu.Lock()
	f.lookups++
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if f.err != nil {
		return nil, f.err
	}
	return f.byMLS[number], nil
}

func (f *fakeSecondary) FindByAgentName(_ context.Context, name string) ([]models.RawRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byAgent[name], nil
}

type fakeDirectory struct {
	members []models.TeamMember
	err     error
}

func (f *fakeDirectory) FindByAgentIDs(_ context.Context, ids []string) ([]models.TeamMember, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.TeamMember
	for _, m := range f.members {
		if (m.MLSID != "" && slices.Contains(ids, m.MLSID)) || (m.SoldMLSID != "" && slices.Contains(ids, m.SoldMLSID)) {
			out = append(out, m)
		}
	}
	return out, nil
}

func ptr[T any](v T) *T { return &v }
