// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package progress

import (
	"encoding/json"
	"sort"
	"time"
)

// SchemaVersion is written into every persisted progress record.
const SchemaVersion = "1.0"

// LevelSet is a set of levels, persisted as a sorted JSON array.
type LevelSet map[int]struct{}

// Has reports whether level is in the set.
func (s LevelSet) Has(level int) bool {
	_, ok := s[level]
	return ok
}

// Add inserts level into the set.
func (s LevelSet) Add(level int) {
	s[level] = struct{}{}
}

// Sorted returns the levels in ascending order.
func (s LevelSet) Sorted() []int {
	levels := make([]int, 0, len(s))
	for level := range s {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	return levels
}

func (s LevelSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *LevelSet) UnmarshalJSON(data []byte) error {
	var levels []int
	if err := json.Unmarshal(data, &levels); err != nil {
		return err
	}
	set := make(LevelSet, len(levels))
	for _, level := range levels {
		set.Add(level)
	}
	*s = set
	return nil
}

// PlayerProgress is the season pass progress of one player.
type PlayerProgress struct {
	Version           string     `json:"version"`
	Level             int        `json:"level"`
	Points            int        `json:"xp"`
	Entitled          bool       `json:"isPremium"`
	EntitlementExpiry *time.Time `json:"premiumExpiry,omitempty"`
	ClaimedFree       LevelSet   `json:"claimedFreeRewards"`
	ClaimedPremium    LevelSet   `json:"claimedPremiumRewards"`
	UpdatedAt         time.Time  `json:"updatedAt,omitempty"`
}

// New returns the default record handed out for a player never seen before.
func New() *PlayerProgress {
	return &PlayerProgress{
		Version:        SchemaVersion,
		Level:          1,
		Points:         0,
		ClaimedFree:    make(LevelSet),
		ClaimedPremium: make(LevelSet),
	}
}

// Clone returns a deep copy.
func (p *PlayerProgress) Clone() *PlayerProgress {
	c := *p
	c.ClaimedFree = make(LevelSet, len(p.ClaimedFree))
	for level := range p.ClaimedFree {
		c.ClaimedFree.Add(level)
	}
	c.ClaimedPremium = make(LevelSet, len(p.ClaimedPremium))
	for level := range p.ClaimedPremium {
		c.ClaimedPremium.Add(level)
	}
	if p.EntitlementExpiry != nil {
		expiry := *p.EntitlementExpiry
		c.EntitlementExpiry = &expiry
	}
	return &c
}

// normalize fills zero values left by older or hand-edited records.
func (p *PlayerProgress) normalize() {
	if p.Version == "" {
		p.Version = SchemaVersion
	}
	if p.Level < 1 {
		p.Level = 1
	}
	if p.Points < 0 {
		p.Points = 0
	}
	if p.ClaimedFree == nil {
		p.ClaimedFree = make(LevelSet)
	}
	if p.ClaimedPremium == nil {
		p.ClaimedPremium = make(LevelSet)
	}
}

// IsDefault reports whether the record carries nothing a reset would remove.
func (p *PlayerProgress) IsDefault() bool {
	return p.Level == 1 && p.Points == 0 && !p.Entitled &&
		len(p.ClaimedFree) == 0 && len(p.ClaimedPremium) == 0
}

// ResetScope selects which parts of a record a season reset wipes.
type ResetScope struct {
	Levels         bool
	Points         bool
	ClaimedRewards bool
}

// Full reports whether the scope wipes the whole record.
func (s ResetScope) Full() bool {
	return s.Levels && s.Points && s.ClaimedRewards
}

// Reset wipes the selected fields. The entitlement flag is always cleared;
// carrying it into the next season is the preservation service's job.
func (p *PlayerProgress) Reset(scope ResetScope) {
	if scope.Levels {
		p.Level = 1
	}
	if scope.Points {
		p.Points = 0
	}
	if scope.ClaimedRewards {
		p.ClaimedFree = make(LevelSet)
		p.ClaimedPremium = make(LevelSet)
	}
	p.Entitled = false
	p.EntitlementExpiry = nil
}

// Record pairs a progress record with its player id.
type Record struct {
	PlayerID string
	Progress *PlayerProgress
}
