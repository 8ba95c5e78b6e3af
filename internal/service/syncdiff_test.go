package service

import (
	"testing"
	"time"

	"github.com/cloo-solutions/examvault/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func knownDoc(id, remoteID, checksum string, status domain.DocumentStatus) *domain.Document {
	d := domain.NewDocument(id, id+".pdf", "hash-"+id, fixedNow)
	d.RemoteFileID = remoteID
	d.RemoteChecksum = checksum
	d.Status = status
	if status == domain.DocumentStatusDeleted {
		at := fixedNow.Add(-time.Hour)
		d.DeletedAt = &at
	}
	return d
}

func remote(id, name, checksum string) domain.RemoteFile {
	return domain.RemoteFile{ID: id, Name: name, Path: "root/" + name, Checksum: checksum}
}

func TestClassify_AllCategories(t *testing.T) {
	known := []*domain.Document{
		knownDoc("d1", "r1", "c1", domain.DocumentStatusCompleted),
		knownDoc("d2", "r2", "c2", domain.DocumentStatusCompleted),
		knownDoc("d3", "r3", "c3", domain.DocumentStatusFailed),
	}
	listing := []domain.RemoteFile{
		remote("r1", "one.pdf", "c1"),
		remote("r2", "two.pdf", "c2-new"),
		remote("r4", "four.pdf", "c4"),
	}

	plan := Classify(listing, known)

	require.Len(t, plan.ToIngest, 1)
	assert.Equal(t, "r4", plan.ToIngest[0].ID)
	require.Len(t, plan.ToUpdate, 1)
	assert.Equal(t, "d2", plan.ToUpdate[0].Document.ID)
	assert.Equal(t, "c2-new", plan.ToUpdate[0].Remote.Checksum)
	require.Len(t, plan.ToDelete, 1)
	assert.Equal(t, "d3", plan.ToDelete[0].ID)
	require.Len(t, plan.Unchanged, 1)
	assert.Equal(t, "d1", plan.Unchanged[0].Document.ID)
	assert.Equal(t, 3, plan.Total())
}

func TestClassify_RenameIsUnchanged(t *testing.T) {
	known := []*domain.Document{knownDoc("d1", "r1", "c1", domain.DocumentStatusCompleted)}

	plan := Classify([]domain.RemoteFile{remote("r1", "renamed.pdf", "c1")}, known)

	assert.Empty(t, plan.ToIngest)
	assert.Empty(t, plan.ToUpdate)
	assert.Empty(t, plan.ToDelete)
	assert.Len(t, plan.Unchanged, 1)
}

func TestClassify_EmptyInputs(t *testing.T) {
	plan := Classify(nil, nil)
	assert.Equal(t, 0, plan.Total())
	assert.Empty(t, plan.Unchanged)

	plan = Classify(nil, []*domain.Document{knownDoc("d1", "r1", "c1", domain.DocumentStatusCompleted)})
	require.Len(t, plan.ToDelete, 1)

	plan = Classify([]domain.RemoteFile{remote("r1", "a.pdf", "c1")}, nil)
	require.Len(t, plan.ToIngest, 1)
}

func TestClassify_DeletedDocumentsDoNotJoin(t *testing.T) {
	known := []*domain.Document{knownDoc("d1", "r1", "c1", domain.DocumentStatusDeleted)}

	plan := Classify([]domain.RemoteFile{remote("r1", "back.pdf", "c1")}, known)

	require.Len(t, plan.ToIngest, 1, "a file that reappears is ingested again")
	assert.Empty(t, plan.ToDelete)
	assert.Empty(t, plan.Unchanged)
}

func TestClassify_DuplicateRemoteIDsKeepFirst(t *testing.T) {
	known := []*domain.Document{knownDoc("d1", "r1", "c1", domain.DocumentStatusCompleted)}
	listing := []domain.RemoteFile{
		remote("r1", "a.pdf", "c1"),
		remote("r1", "a-shortcut.pdf", "other"),
		remote("r2", "b.pdf", "c2"),
		remote("r2", "b-again.pdf", "c2"),
	}

	plan := Classify(listing, known)

	assert.Len(t, plan.Unchanged, 1)
	assert.Empty(t, plan.ToUpdate)
	require.Len(t, plan.ToIngest, 1)
	assert.Equal(t, "b.pdf", plan.ToIngest[0].Name)
}

func TestClassify_MissingChecksums(t *testing.T) {
	known := []*domain.Document{
		knownDoc("d1", "r1", "", domain.DocumentStatusCompleted),
		knownDoc("d2", "r2", "", domain.DocumentStatusCompleted),
		knownDoc("d3", "r3", "c3", domain.DocumentStatusCompleted),
	}
	listing := []domain.RemoteFile{
		remote("r1", "a.gdoc", ""),
		remote("r2", "b.pdf", "c2"),
		remote("r3", "c.pdf", ""),
	}

	plan := Classify(listing, known)

	require.Len(t, plan.Unchanged, 1)
	assert.Equal(t, "d1", plan.Unchanged[0].Document.ID)
	assert.Len(t, plan.ToUpdate, 2)
}

func TestClassify_SecondActiveClaimIsDeleted(t *testing.T) {
	known := []*domain.Document{
		knownDoc("d1", "r1", "c1", domain.DocumentStatusCompleted),
		knownDoc("d2", "r1", "c0", domain.DocumentStatusCompleted),
	}

	plan := Classify([]domain.RemoteFile{remote("r1", "a.pdf", "c1")}, known)

	assert.Len(t, plan.Unchanged, 1)
	require.Len(t, plan.ToDelete, 1)
	assert.Equal(t, "d2", plan.ToDelete[0].ID)
}

func TestClassify_IgnoresLocalDocuments(t *testing.T) {
	known := []*domain.Document{knownDoc("local", "", "", domain.DocumentStatusCompleted)}

	plan := Classify(nil, known)

	assert.Empty(t, plan.ToDelete)
}
