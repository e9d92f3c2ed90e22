package services

import (
	"context"
	"log/slog"
	"strings"

	"listing_engine/logging"
	"listing_engine/models"
)

// RoutingService decides which team member receives a lead.
type RoutingService struct {
	listings      ListingAgentSource
	directory     Directory
	fallbackEmail string
	log           *slog.Logger
}

func NewRoutingService(listings ListingAgentSource, directory Directory, fallbackEmail string) *RoutingService {
	return &RoutingService{
		listings:      listings,
		directory:     directory,
		fallbackEmail: fallbackEmail,
		log:           logging.New("routing"),
	}
}

// Resolve maps an optional MLS number to a lead recipient. It never fails:
// every lookup problem routes to the fallback address.
func (s *RoutingService) Resolve(ctx context.Context, mlsNumber string) models.AgentRouting {
	fallback := models.AgentRouting{AgentEmail: s.fallbackEmail}

	mlsNumber = strings.TrimSpace(mlsNumber)
	if mlsNumber == "" || s.listings == nil || s.directory == nil {
		return fallback
	}

	agents, err := s.listings.GetListingAgents(ctx, mlsNumber)
	if err != nil {
		s.log.Warn("listing agent lookup failed", "mls", mlsNumber, "error", err)
		return fallback
	}
	if agents == nil {
		return fallback
	}

	var candidates []string
	for _, id := range []string{agents.ListAgentID, agents.CoListAgentID} {
		if id != "" {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return fallback
	}

	members, err := s.directory.FindByAgentIDs(ctx, candidates)
	if err != nil {
		s.log.Warn("directory lookup failed", "mls", mlsNumber, "error", err)
		return fallback
	}

	member := pickMember(members, agents)
	if member == nil {
		return fallback
	}

	routing := models.AgentRouting{
		AgentEmail:   member.Email,
		AgentName:    member.Name,
		IsOwnListing: true,
	}
	if routing.AgentEmail == "" {
		routing.AgentEmail = s.fallbackEmail
	}
	return routing
}

// pickMember prefers the member matching the listing agent over one
// matching only the co-listing agent.
func pickMember(members []models.TeamMember, agents *models.ListingAgents) *models.TeamMember {
	var co *models.TeamMember
	for i := range members {
		m := &members[i]
		if matchesAgent(m, agents.ListAgentID) {
			return m
		}
		if co == nil && matchesAgent(m, agents.CoListAgentID) {
			co = m
		}
	}
	return co
}

func matchesAgent(m *models.TeamMember, id string) bool {
	return id != "" && (m.MLSID == id || m.SoldMLSID == id)
}
