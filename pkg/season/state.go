// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package season runs the season lifecycle: ending a season with a
// backed-up progress reset, starting the next one and carrying premium
// status across the boundary.
package season

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AccelByte/extend-season-pass/pkg/state"
	"github.com/sirupsen/logrus"
)

// State is the persisted season bookkeeping.
type State struct {
	SeasonNumber int        `json:"seasonNumber"`
	SeasonID     string     `json:"seasonId,omitempty"`
	SeasonName   string     `json:"seasonName,omitempty"`
	MaxLevel     int        `json:"maxLevel,omitempty"`
	StartTime    *time.Time `json:"startTime,omitempty"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	LastResetAt  *time.Time `json:"lastResetAt,omitempty"`
}

// Started reports whether the season has been started and not reset since.
func (s State) Started() bool {
	return s.StartTime != nil
}

// Active reports whether gameplay progress is accepted at now.
func (s State) Active(now time.Time) bool {
	return s.StartTime != nil && (s.EndTime == nil || now.Before(*s.EndTime))
}

// Remaining is the time left at now, zero once ended.
func (s State) Remaining(now time.Time) time.Duration {
	if !s.Active(now) || s.EndTime == nil {
		return 0
	}
	return s.EndTime.Sub(now)
}

// Label names the season in reports.
func (s State) Label() string {
	if s.SeasonID != "" {
		return fmt.Sprintf("%s (#%d)", s.SeasonID, s.SeasonNumber)
	}
	return fmt.Sprintf("#%d", s.SeasonNumber)
}

// StateStore keeps State in a document. It also implements the season
// gate used by premium providers and the season source used by backups.
type StateStore struct {
	doc state.Document
	now func() time.Time
}

func NewStateStore(doc state.Document) *StateStore {
	return &StateStore{doc: doc, now: time.Now}
}

// Load returns the stored state, or the zero state before the first season.
func (s *StateStore) Load(ctx context.Context) (State, error) {
	var st State
	if _, err := s.doc.Load(ctx, &st); err != nil {
		return State{}, fmt.Errorf("failed to load season state: %w", err)
	}
	return st, nil
}

func (s *StateStore) Save(ctx context.Context, st State) error {
	if err := s.doc.Save(ctx, &st); err != nil {
		return fmt.Errorf("failed to save season state: %w", err)
	}
	return nil
}

// IsActive answers false when the state cannot be read.
func (s *StateStore) IsActive(ctx context.Context) bool {
	st, err := s.Load(ctx)
	if err != nil {
		logrus.Errorf("failed to check season state: %v", err)
		return false
	}
	return st.Active(s.now())
}

// MaxLevel returns the stored season's max level, zero when unknown.
func (s *StateStore) MaxLevel(ctx context.Context) int {
	st, err := s.Load(ctx)
	if err != nil {
		logrus.Errorf("failed to read season max level: %v", err)
		return 0
	}
	return st.MaxLevel
}

func (s *StateStore) ExportSeason(ctx context.Context) ([]byte, error) {
	st, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(st, "", "  ")
}

func (s *StateStore) ImportSeason(ctx context.Context, data []byte) error {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("failed to decode season state: %w", err)
	}
	return s.Save(ctx, st)
}
