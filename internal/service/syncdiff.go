package service

import "github.com/cloo-solutions/examvault/internal/domain"

// UpdatePair joins a remote file to the document it was ingested as.
type UpdatePair struct {
	Remote   domain.RemoteFile
	Document *domain.Document
}

// SyncPlan is the difference between a remote listing and the known documents.
type SyncPlan struct {
	ToIngest  []domain.RemoteFile
	ToUpdate  []UpdatePair
	ToDelete  []*domain.Document
	Unchanged []UpdatePair
}

// Total is the number of items a sync has to act on.
func (p SyncPlan) Total() int {
	return len(p.ToIngest) + len(p.ToUpdate) + len(p.ToDelete)
}

// Classify joins remote files to known documents by remote file id.
//
// A file whose checksum differs from the stored one is modified; a rename
// alone is not. Documents already deleted never join, so a file that comes
// back after deletion is ingested as new. When the listing repeats an id,
// the first occurrence wins. Output preserves input order.
func Classify(remote []domain.RemoteFile, known []*domain.Document) SyncPlan {
	var plan SyncPlan

	byRemoteID := make(map[string]*domain.Document, len(known))
	var extras []*domain.Document
	for _, d := range known {
		if d == nil || d.RemoteFileID == "" || d.IsDeleted() {
			continue
		}
		if _, ok := byRemoteID[d.RemoteFileID]; ok {
			extras = append(extras, d)
			continue
		}
		byRemoteID[d.RemoteFileID] = d
	}

	seen := make(map[string]struct{}, len(remote))
	for _, f := range remote {
		if _, dup := seen[f.ID]; dup {
			continue
		}
		seen[f.ID] = struct{}{}

		doc, ok := byRemoteID[f.ID]
		switch {
		case !ok:
			plan.ToIngest = append(plan.ToIngest, f)
		case f.Checksum != doc.RemoteChecksum:
			plan.ToUpdate = append(plan.ToUpdate, UpdatePair{Remote: f, Document: doc})
		default:
			plan.Unchanged = append(plan.Unchanged, UpdatePair{Remote: f, Document: doc})
		}
	}

	for _, d := range known {
		if d == nil || d.RemoteFileID == "" || d.IsDeleted() {
			continue
		}
		if byRemoteID[d.RemoteFileID] != d {
			continue
		}
		if _, ok := seen[d.RemoteFileID]; !ok {
			plan.ToDelete = append(plan.ToDelete, d)
		}
	}
	// A second active document claiming the same remote file is stale.
	plan.ToDelete = append(plan.ToDelete, extras...)

	return plan
}
