package matcher

import (
	"claims-reconciliation-service/internal/keys"
	"claims-reconciliation-service/internal/models"
)

// ClaimIndex maps composite keys to ordered queues of not-yet-consumed
// claims. Several claims may legitimately share a fallback key (same-amount
// same-date services for one member); the queue preserves upload order so
// duplicates are consumed first-in first-out. The index is owned entirely
// by a single Match call and discarded after the run.
type ClaimIndex struct {
	queues map[string][]*models.Claim
	order  []string
	total  int
}

// DuplicateGroup reports a set of claims sharing one composite key. These
// are legitimate duplicates, surfaced for visibility only.
type DuplicateGroup struct {
	Key      string   `json:"key"`
	ClaimIDs []string `json:"claim_ids"`
}

// NewClaimIndex indexes claims by their composite key, preserving input
// order within each key's queue.
func NewClaimIndex(builder *keys.Builder, claims []*models.Claim) *ClaimIndex {
	index := &ClaimIndex{
		queues: make(map[string][]*models.Claim, len(claims)),
	}
	for _, claim := range claims {
		key := builder.ClaimKey(claim)
		if _, exists := index.queues[key]; !exists {
			index.order = append(index.order, key)
		}
		index.queues[key] = append(index.queues[key], claim)
		index.total++
	}
	return index
}

// Pop removes and returns the oldest unconsumed claim for the key, or nil
// if the key has no remaining claims.
func (ci *ClaimIndex) Pop(key string) *models.Claim {
	queue := ci.queues[key]
	if len(queue) == 0 {
		return nil
	}
	claim := queue[0]
	ci.queues[key] = queue[1:]
	ci.total--
	return claim
}

// Len returns the number of unconsumed claims remaining in the index.
func (ci *ClaimIndex) Len() int {
	return ci.total
}

// Remaining returns all claims not consumed by any remittance line, in the
// original key insertion order.
func (ci *ClaimIndex) Remaining() []*models.Claim {
	var remaining []*models.Claim
	for _, key := range ci.order {
		remaining = append(remaining, ci.queues[key]...)
	}
	return remaining
}

// DuplicateGroups returns the keys that started the run shared by more than
// one claim. Must be called before any Pop to reflect the full upload.
func (ci *ClaimIndex) DuplicateGroups() []DuplicateGroup {
	var groups []DuplicateGroup
	for _, key := range ci.order {
		queue := ci.queues[key]
		if len(queue) < 2 {
			continue
		}
		ids := make([]string, 0, len(queue))
		for _, claim := range queue {
			ids = append(ids, claim.ID)
		}
		groups = append(groups, DuplicateGroup{Key: key, ClaimIDs: ids})
	}
	return groups
}
