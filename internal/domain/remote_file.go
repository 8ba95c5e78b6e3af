package domain

import "time"

// RemoteFile is a file reported by the remote file store during a listing walk.
// ID is rename-stable; Name and Path are not identity.
type RemoteFile struct {
	ID           string
	Name         string
	Path         string
	Checksum     string
	ModifiedTime *time.Time
	MimeType     string
	SizeBytes    int64
}
