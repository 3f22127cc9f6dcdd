package database

import "time"

// Origin records how an asset came to exist.
type Origin string

const (
	OriginUpload Origin = "upload"
	OriginTrim   Origin = "trim"
	OriginMerge  Origin = "merge"
)

// Asset is a stored video and its metadata record.
type Asset struct {
	ID              string     `json:"id"`
	Filename        string     `json:"filename"`
	StoragePath     string     `json:"storagePath"`
	SizeBytes       int64      `json:"sizeBytes"`
	DurationSeconds float64    `json:"durationSeconds"`
	Origin          Origin     `json:"origin"`
	SourceIDs       []string   `json:"sourceIds,omitempty"`
	ShareToken      string     `json:"-"`
	ShareExpiry     *time.Time `json:"shareExpiry,omitempty"`
	ShareableLink   string     `json:"shareableLink,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// HasShare reports whether a share token is currently stored.
func (a *Asset) HasShare() bool {
	return a.ShareToken != "" && a.ShareExpiry != nil
}

// LibraryStats summarizes the asset table.
type LibraryStats struct {
	AssetsByOrigin map[string]int `json:"assetsByOrigin"`
	ActiveShares   int            `json:"activeShares"`
}
