package models

import "time"

// TeamMember is one record of the content-managed agent directory.
type TeamMember struct {
	ID        int64     `json:"id" db:"id" yaml:"-"`
	Name      string    `json:"name" db:"name" yaml:"name"`
	Email     string    `json:"email" db:"email" yaml:"email"`
	MLSID     string    `json:"mls_id" db:"mls_id" yaml:"mls_id"`
	SoldMLSID string    `json:"sold_mls_id" db:"sold_mls_id" yaml:"sold_mls_id"` // alias used on closed listings
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" yaml:"-"`
}

// AgentRouting says who receives a lead. It is derived per lead and not
// stored by the engine.
type AgentRouting struct {
	AgentEmail   string `json:"agent_email"`
	AgentName    string `json:"agent_name"`
	IsOwnListing bool   `json:"is_own_listing"`
}

// ListingAgents holds the agent-role identifiers of one listing.
type ListingAgents struct {
	ListAgentID   string
	CoListAgentID string
}
