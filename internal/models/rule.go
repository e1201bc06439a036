// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Rule is a tracked behavioral statement attached to exactly one category.
// FollowCount and ViolateCount only ever grow, through follow/violate actions.
type Rule struct {
	ID           uuid.UUID `json:"id"`
	CategoryID   uuid.UUID `json:"category_id"`
	Content      string    `json:"content"`
	FollowCount  int       `json:"follow_count"`
	ViolateCount int       `json:"violate_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RuleSortField selects the tally used to order a rule listing.
type RuleSortField string

const (
	SortByFollowCount  RuleSortField = "follow_count"
	SortByViolateCount RuleSortField = "violate_count"
)

// SortDirection is the direction of a rule listing.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseRuleSortField validates a sortBy value. An empty string yields the
// default, follow_count.
func ParseRuleSortField(s string) (RuleSortField, bool) {
	switch RuleSortField(s) {
	case "":
		return SortByFollowCount, true
	case SortByFollowCount, SortByViolateCount:
		return RuleSortField(s), true
	}
	return "", false
}

// ParseSortDirection validates a sortOrder value. An empty string yields
// the default, desc.
func ParseSortDirection(s string) (SortDirection, bool) {
	switch SortDirection(s) {
	case "":
		return SortDesc, true
	case SortAsc, SortDesc:
		return SortDirection(s), true
	}
	return "", false
}

// RecordType distinguishes follow and violate events in a rule's history.
type RecordType string

const (
	RecordFollow  RecordType = "follow"
	RecordViolate RecordType = "violate"
)

// CountRecord is one follow or violate event for a rule.
type CountRecord struct {
	ID         uuid.UUID  `json:"id"`
	RuleID     uuid.UUID  `json:"rule_id"`
	RecordType RecordType `json:"record_type"`
	Note       string     `json:"note"`
	Timestamp  time.Time  `json:"timestamp"`
}
