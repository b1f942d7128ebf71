package orm

import (
	"time"
)

type Plugin struct {
	Filename    string `gorm:"primaryKey;size:255;not null" json:"filename"`
	Description string `gorm:"type:text"                    json:"description,omitempty"`
	Status      string `gorm:"size:32;not null"             json:"status"`
	Action      string `gorm:"size:32;not null"             json:"action"`

	VersionChecksum  *string `gorm:"size:64" json:"checksum,omitempty"`
	VersionTimestamp int64   `               json:"timestamp"`
	PendingChecksum  string  `gorm:"size:64" json:"pendingChecksum,omitempty"`
	PendingTimestamp int64   `               json:"pendingTimestamp,omitempty"`
	FileSize         int64   `               json:"filesize"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `                                          json:"updatedAt"`

	// Child rows are deleted together with the plugin
	Versions     []PreviousVersion `gorm:"foreignKey:Filename;references:Filename;constraint:OnDelete:CASCADE" json:"previousVersions,omitempty"`
	Dependencies []Dependency      `gorm:"foreignKey:Filename;references:Filename;constraint:OnDelete:CASCADE" json:"dependencies,omitempty"`
	Metadata     []Metadata        `gorm:"foreignKey:Filename;references:Filename;constraint:OnDelete:CASCADE" json:"metadata,omitempty"`
}

type PreviousVersion struct {
	Filename  string `gorm:"primaryKey;size:255;not null" json:"filename"`
	Checksum  string `gorm:"primaryKey;size:64;not null"  json:"checksum"`
	Timestamp int64  `gorm:"primaryKey;not null"          json:"timestamp"`
	Position  int    `gorm:"not null"                     json:"-"`
}

type Dependency struct {
	Filename     string `gorm:"primaryKey;size:255;not null" json:"filename"`
	Target       string `gorm:"primaryKey;size:255;not null" json:"target"`
	Relation     string `gorm:"primaryKey;size:64"           json:"relation,omitempty"`
	MinTimestamp int64  `gorm:"not null"                     json:"timestamp"`
	Position     int    `gorm:"not null"                     json:"-"`
}

// Metadata kinds
const (
	KindAuthor   = "author"
	KindLink     = "link"
	KindPlatform = "platform"
	KindCategory = "category"
)

type Metadata struct {
	Filename string `gorm:"primaryKey;size:255;not null" json:"filename"`
	Kind     string `gorm:"primaryKey;size:16;not null"  json:"kind"`
	Value    string `gorm:"primaryKey;size:255;not null" json:"value"`
	Position int    `gorm:"not null"                     json:"-"`
}
