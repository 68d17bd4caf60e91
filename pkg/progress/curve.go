// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package progress

import (
	"fmt"
	"math"
	"strings"
)

// CurveMode selects how the points needed per level are computed.
type CurveMode string

const (
	CurveFormula CurveMode = "FORMULA"
	CurveManual  CurveMode = "MANUAL"
)

// ParseCurveMode is case-insensitive and defaults to FORMULA.
func ParseCurveMode(s string) CurveMode {
	if strings.EqualFold(strings.TrimSpace(s), string(CurveManual)) {
		return CurveManual
	}
	return CurveFormula
}

// Unreachable is the requirement reported for a level that cannot be reached.
const Unreachable = math.MaxInt

// Curve maps levels to point requirements.
type Curve struct {
	Mode       CurveMode
	XPPerLevel int
	Multiplier float64
	Manual     map[int]int
	MaxLevel   int
}

// DefaultCurve is the formula curve with 1000 points for level 2 growing 10% per level.
func DefaultCurve(maxLevel int) Curve {
	return Curve{
		Mode:       CurveFormula,
		XPPerLevel: 1000,
		Multiplier: 1.1,
		MaxLevel:   maxLevel,
	}
}

// Validate checks the curve parameters.
func (c Curve) Validate() error {
	if c.MaxLevel < 1 {
		return fmt.Errorf("max level must be at least 1, got %d", c.MaxLevel)
	}
	if c.Mode == CurveFormula {
		if c.XPPerLevel <= 0 {
			return fmt.Errorf("xp per level must be positive, got %d", c.XPPerLevel)
		}
		if c.Multiplier < 1 {
			return fmt.Errorf("xp multiplier must be at least 1, got %v", c.Multiplier)
		}
	}
	return nil
}

// PointsRequiredForLevel returns the points needed to advance from
// level-1 to level. A MANUAL entry that is missing or not positive makes
// the level unreachable.
func (c Curve) PointsRequiredForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	if c.Mode == CurveManual {
		xp, ok := c.Manual[level]
		if !ok || xp <= 0 {
			return Unreachable
		}
		return xp
	}
	required := float64(c.XPPerLevel) * math.Pow(c.Multiplier, float64(level-2))
	if required >= float64(Unreachable) {
		return Unreachable
	}
	return int(required)
}

// AddPoints adds points to p and converts overflow into level-ups.
// Reaching MaxLevel caps the level and drops the remaining points.
// It returns the number of levels gained.
func (c Curve) AddPoints(p *PlayerProgress, points int) int {
	if points <= 0 {
		return 0
	}
	if p.Level >= c.MaxLevel {
		p.Level = c.MaxLevel
		p.Points = 0
		return 0
	}

	start := p.Level
	if p.Points > Unreachable-points {
		p.Points = Unreachable
	} else {
		p.Points += points
	}

	for {
		next := c.PointsRequiredForLevel(p.Level + 1)
		if next == Unreachable || p.Points < next {
			break
		}
		p.Points -= next
		p.Level++
		if p.Level >= c.MaxLevel {
			p.Level = c.MaxLevel
			p.Points = 0
			break
		}
	}
	return p.Level - start
}

// AddLevels raises the level directly, keeping the points below the next
// requirement.
func (c Curve) AddLevels(p *PlayerProgress, levels int) int {
	if levels <= 0 {
		return 0
	}
	start := p.Level
	p.Level += levels
	if p.Level >= c.MaxLevel {
		p.Level = c.MaxLevel
		p.Points = 0
		return p.Level - start
	}
	if next := c.PointsRequiredForLevel(p.Level + 1); p.Points >= next {
		p.Points = 0
	}
	return p.Level - start
}
