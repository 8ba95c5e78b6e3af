package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloo-solutions/examvault/internal/domain"
	"github.com/cloo-solutions/examvault/internal/pagination"
	"github.com/cloo-solutions/examvault/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentColumns = `id, filename, title, content_hash, remote_file_id, remote_checksum, remote_modified_at,
	file_key, status, chunk_count, error_message, metadata, created_at, updated_at, deleted_at`

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	meta, err := domain.MarshalMetadata(d.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO documents (id, filename, title, content_hash, remote_file_id, remote_checksum, remote_modified_at,
			file_key, status, chunk_count, error_message, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		d.ID, d.Filename, d.Title, d.ContentHash, nullableString(d.RemoteFileID), nullableString(d.RemoteChecksum),
		d.RemoteModifiedAt, nullableString(d.FileKey), d.Status, d.ChunkCount, nullableString(d.ErrorMessage),
		meta, d.CreatedAt, d.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateContent.Wrap(err)
	}
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	if !validID(id) {
		return nil, domain.ErrDocumentNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	d, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
		return nil, domain.ErrDocumentNotFound
	}
	return d, err
}

func (r *DocumentRepository) FindActiveByContentHash(ctx context.Context, hash string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE content_hash = $1 AND status <> 'deleted'`,
		hash,
	)
	d, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	return d, err
}

// ListWithRemoteID returns every document that came from the remote store,
// deleted ones included.
func (r *DocumentRepository) ListWithRemoteID(ctx context.Context) ([]*domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE remote_file_id IS NOT NULL
		 ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocumentRows(rows)
}

func (r *DocumentRepository) List(ctx context.Context, filter service.DocumentFilter) (*service.DocumentPage, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + documentColumns + ` FROM documents WHERE ($1::text = '' OR status = $1::text)`
	args := []any{string(filter.Status)}
	if filter.Cursor != nil {
		if !validID(filter.Cursor.LastID) {
			return nil, domain.ErrInvalidCursor
		}
		query += ` AND (created_at, id) < ($2, $3)`
		args = append(args, filter.Cursor.Timestamp, filter.Cursor.LastID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit+1)

	rows, err := r.db.Query(ctx, query, args...)
	if isInvalidText(err) {
		return nil, domain.ErrInvalidCursor.Wrap(err)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanDocumentRows(rows)
	if isInvalidText(err) {
		return nil, domain.ErrInvalidCursor.Wrap(err)
	}
	if err != nil {
		return nil, err
	}

	items, nextCursor, hasMore := pagination.Trim(items, limit, func(d *domain.Document) (string, time.Time) {
		return d.ID, d.CreatedAt
	})

	return &service.DocumentPage{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *DocumentRepository) Complete(ctx context.Context, d *domain.Document) error {
	meta, err := domain.MarshalMetadata(d.Metadata)
	if err != nil {
		return err
	}
	return r.execOne(ctx,
		`UPDATE documents
		 SET status = 'completed', chunk_count = $2, metadata = $3, error_message = NULL, updated_at = $4
		 WHERE id = $1`,
		d.ID, d.ChunkCount, meta, d.UpdatedAt,
	)
}

func (r *DocumentRepository) Fail(ctx context.Context, id, message string, now time.Time) error {
	return r.execOne(ctx,
		`UPDATE documents SET status = 'failed', error_message = $2, updated_at = $3 WHERE id = $1`,
		id, message, now,
	)
}

func (r *DocumentRepository) UpdateSource(ctx context.Context, d *domain.Document) error {
	meta, err := domain.MarshalMetadata(d.Metadata)
	if err != nil {
		return err
	}
	err = r.execOne(ctx,
		`UPDATE documents
		 SET filename = $2, title = $3, content_hash = $4, remote_file_id = $5, remote_checksum = $6,
		     remote_modified_at = $7, file_key = $8, metadata = $9, status = 'processing',
		     error_message = NULL, updated_at = $10
		 WHERE id = $1`,
		d.ID, d.Filename, d.Title, d.ContentHash, nullableString(d.RemoteFileID), nullableString(d.RemoteChecksum),
		d.RemoteModifiedAt, nullableString(d.FileKey), meta, d.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateContent.Wrap(err)
	}
	return err
}

func (r *DocumentRepository) RefreshRemote(ctx context.Context, id, checksum string, modifiedAt *time.Time, now time.Time) error {
	return r.execOne(ctx,
		`UPDATE documents SET remote_checksum = $2, remote_modified_at = $3, updated_at = $4 WHERE id = $1`,
		id, nullableString(checksum), modifiedAt, now,
	)
}

func (r *DocumentRepository) SoftDelete(ctx context.Context, id string, now time.Time) error {
	if !validID(id) {
		return domain.ErrDocumentNotFound
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = 'deleted', deleted_at = $2, updated_at = $2
		 WHERE id = $1 AND status <> 'deleted'`,
		id, now,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either missing or already deleted; only the former is an error.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// PurgeDeleted hard-deletes documents soft-deleted before cutoff. Chunks go
// with them through the foreign key cascade.
func (r *DocumentRepository) PurgeDeleted(ctx context.Context, cutoff time.Time) ([]*domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`DELETE FROM documents
		 WHERE status = 'deleted' AND deleted_at < $1
		 RETURNING `+documentColumns,
		cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocumentRows(rows)
}

func (r *DocumentRepository) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := r.db.Exec(ctx, sql, args...)
	if isInvalidText(err) {
		return domain.ErrDocumentNotFound
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var remoteID, checksum, fileKey, errMsg *string
	var meta []byte
	err := row.Scan(&d.ID, &d.Filename, &d.Title, &d.ContentHash, &remoteID, &checksum, &d.RemoteModifiedAt,
		&fileKey, &d.Status, &d.ChunkCount, &errMsg, &meta, &d.CreatedAt, &d.UpdatedAt, &d.DeletedAt)
	if err != nil {
		return nil, err
	}
	d.RemoteFileID = stringValue(remoteID)
	d.RemoteChecksum = stringValue(checksum)
	d.FileKey = stringValue(fileKey)
	d.ErrorMessage = stringValue(errMsg)
	d.Metadata, err = domain.UnmarshalDocumentMetadata(meta)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDocumentRows(rows pgx.Rows) ([]*domain.Document, error) {
	var items []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}
