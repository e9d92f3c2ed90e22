package storage

import (
	"context"
	"sync"
	"time"

	"listing_engine/models"
)

// MemberLister returns the full team directory.
type MemberLister interface {
	TeamMembers(ctx context.Context) ([]models.TeamMember, error)
}

// CachedDirectory holds the directory in memory for a short TTL so that a
// burst of leads does not hit the store once per lead.
type CachedDirectory struct {
	source MemberLister
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	members   []models.TeamMember
	fetchedAt time.Time
}

func NewCachedDirectory(source MemberLister, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{source: source, ttl: ttl, now: time.Now}
}

func (c *CachedDirectory) TeamMembers(ctx context.Context) ([]models.TeamMember, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.members != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.members, nil
	}
	members, err := c.source.TeamMembers(ctx)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []models.TeamMember{}
	}
	c.members = members
	c.fetchedAt = c.now()
	return members, nil
}

// FindByAgentIDs matches ids against either ID field of each member.
func (c *CachedDirectory) FindByAgentIDs(ctx context.Context, ids []string) ([]models.TeamMember, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	members, err := c.TeamMembers(ctx)
	if err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	var out []models.TeamMember
	for _, m := range members {
		_, byID := want[m.MLSID]
		_, bySold := want[m.SoldMLSID]
		if (m.MLSID != "" && byID) || (m.SoldMLSID != "" && bySold) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Invalidate drops the cached copy, e.g. after an import.
func (c *CachedDirectory) Invalidate() {
	c.mu.Lock()
	c.members = nil
	c.mu.Unlock()
}
