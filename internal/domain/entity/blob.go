package entity

import "time"

// Blob is one key-value row of the postgres blob store
type Blob struct {
	Key       string    `gorm:"type:varchar(255);primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Blob) TableName() string {
	return "blobs"
}
