package services

import (
	"context"
	"time"

	"listing_engine/models"
)

// PrimarySource is the authoritative listing store.
type PrimarySource interface {
	Search(ctx context.Context, filters models.SearchFilters, sort models.SortKey, limit, offset int) ([]models.RawRow, int, error)
	GetByID(ctx context.Context, id string) (models.RawRow, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.RawRow, error)
	GetByMLSNumber(ctx context.Context, number string) (models.RawRow, error)
	GetByMLSNumbers(ctx context.Context, numbers []string) ([]models.RawRow, error)
	GetAgentListings(ctx context.Context, agentIDs, statuses []string) ([]models.RawRow, error)

	DistinctCities(ctx context.Context, allowed []string) ([]string, error)
	DistinctStatuses(ctx context.Context) ([]string, error)
	DistinctNeighborhoods(ctx context.Context, city string) ([]string, error)
}

// ListingAgentSource resolves the agent-role IDs of one listing.
type ListingAgentSource interface {
	GetListingAgents(ctx context.Context, number string) (*models.ListingAgents, error)
}

// OpenHouseSource is the open-house schedule.
type OpenHouseSource interface {
	UpcomingOpenHouses(ctx context.Context, from time.Time) ([]models.OpenHouse, error)
}

// SecondarySource is the franchise-wide media/portfolio feed.
type SecondarySource interface {
	FindByMLSNumber(ctx context.Context, number string) (models.RawRow, error)
	FindByAgentName(ctx context.Context, name string) ([]models.RawRow, error)
}

// Directory resolves agent IDs to team members.
type Directory interface {
	FindByAgentIDs(ctx context.Context, ids []string) ([]models.TeamMember, error)
}

// Pinger is anything the healthcheck can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}
