package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog captures auditable grading events.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    string            `gorm:"size:64;not null;index" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null" json:"action"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   string            `gorm:"size:128" json:"entity_id"`
	AreaID     string            `gorm:"size:128;index:idx_activity_scope" json:"area_id"`
	ItemID     string            `gorm:"size:128;index:idx_activity_scope" json:"item_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}
