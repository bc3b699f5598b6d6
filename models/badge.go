package models

import (
	"time"
)

// BadgeType: static config (seeded at boot)
type BadgeType struct {
	ID          string           `gorm:"primaryKey;type:uuid" json:"id"`
	Code        string           `gorm:"uniqueIndex;not null" json:"code"` // e.g., "FIRST_QUEST", "ECO_HERO"
	Name        string           `gorm:"not null" json:"name"`             // "First Steps", "Eco Hero"
	Description string           `json:"description"`
	IconURL     string           `gorm:"type:text" json:"icon_url"`
	Rarity      string           `gorm:"type:varchar(16);default:'common'" json:"rarity"` // common, rare, epic, legendary
	Threshold   map[string]int64 `gorm:"type:jsonb;serializer:json" json:"threshold"`     // e.g., {"quests_completed": 10}, {"points": 500}
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

// UserBadge: awarded instance (many-to-many)
type UserBadge struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"index;not null;uniqueIndex:idx_user_badge" json:"external_user_id"`
	BadgeTypeID    string    `gorm:"index;not null;uniqueIndex:idx_user_badge" json:"badge_type_id"`
	AwardedAt      time.Time `gorm:"autoCreateTime" json:"awarded_at"`
	Metadata       string    `gorm:"type:jsonb" json:"metadata,omitempty"` // e.g., {"quest_id": "...", "points": 100}
}

// Predefined badge triggers
var BadgeTriggers = []BadgeType{
	{
		Code:        "WELCOME",
		Name:        "Welcome Aboard!",
		Description: "Joined HAU Eco-Quest",
		Rarity:      "common",
		Threshold:   map[string]int64{"event": 1}, // awarded on first sighting
	},
	{
		Code:        "FIRST_QUEST",
		Name:        "First Steps",
		Description: "Completed your first eco-quest",
		Rarity:      "common",
		Threshold:   map[string]int64{"quests_completed": 1},
	},
	{
		Code:        "QUEST_10",
		Name:        "Trailblazer",
		Description: "Completed 10 eco-quests",
		Rarity:      "rare",
		Threshold:   map[string]int64{"quests_completed": 10},
	},
	{
		Code:        "POINTS_500",
		Name:        "Green Machine",
		Description: "Earned 500 eco-points",
		Rarity:      "rare",
		Threshold:   map[string]int64{"points": 500},
	},
	{
		Code:        "POINTS_2000",
		Name:        "Eco Hero",
		Description: "Earned 2000 eco-points",
		Rarity:      "epic",
		Threshold:   map[string]int64{"points": 2000},
	},
	{
		Code:        "CHALLENGER",
		Name:        "Community Spirit",
		Description: "Joined a community challenge",
		Rarity:      "common",
		Threshold:   map[string]int64{"challenges_joined": 1},
	},
}
