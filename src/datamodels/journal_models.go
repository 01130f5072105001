package datamodels

import (
	"time"
)

type BaseModel struct {
	Id        int64     `gorm:"primarykey" json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// FeedStatusChange is a journal row written each time a feed's status moves.
// FromStatus is empty when the feed first appears.
type FeedStatusChange struct {
	BaseModel
	FeedCode   string     `gorm:"not null;index" json:"feed_code"`
	FeedClass  FeedClass  `gorm:"not null;index" json:"feed_class"`
	FromStatus FeedStatus `json:"from_status"`
	ToStatus   FeedStatus `gorm:"not null" json:"to_status"`
	ChangedAt  time.Time  `gorm:"not null;index" json:"changed_at"`
}

type ConnectionStateChange struct {
	BaseModel
	State     PublisherState `gorm:"not null;index" json:"state"`
	Online    bool           `gorm:"not null" json:"online"`
	Detail    string         `json:"detail,omitempty"`
	ChangedAt time.Time      `gorm:"not null;index" json:"changed_at"`
}
