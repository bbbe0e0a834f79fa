package repo

import "time"

// AssetRepo is the filesystem-backed media asset store
type AssetRepo interface {
	// Exists reports whether the asset file is still present
	Exists(path string) bool

	// Remove deletes one asset file
	Remove(path string) error

	// SweepOlderThan deletes asset files last modified before the given
	// time, regardless of queue membership. Returns files removed and
	// bytes reclaimed.
	SweepOlderThan(before time.Time) (files int, bytes int64, err error)
}
