package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cloo-solutions/examvault/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// insertBatchSize bounds how many chunk rows go to the server per round trip.
const insertBatchSize = 50

// ChunkRepository handles persistence of document chunks and their embeddings.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// Replace deletes a document's chunks and inserts the given ones. Run it
// inside a transaction to make the swap atomic.
func (r *ChunkRepository) Replace(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	if err := r.DeleteByDocument(ctx, documentID); err != nil {
		return err
	}

	for start := 0; start < len(chunks); start += insertBatchSize {
		end := min(start+insertBatchSize, len(chunks))
		if err := r.insertBatch(ctx, chunks[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	return err
}

func (r *ChunkRepository) insertBatch(ctx context.Context, chunks []domain.Chunk) error {
	batch := &pgx.Batch{}
	for _, c := range chunks {
		meta, err := domain.MarshalMetadata(c.Metadata)
		if err != nil {
			return err
		}
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		var embedding *pgvector.Vector
		if len(c.Embedding) > 0 {
			v := pgvector.NewVector(c.Embedding)
			embedding = &v
		}
		batch.Queue(
			`INSERT INTO chunks (id, document_id, chunk_index, content, content_hash, token_count, embedding, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			c.ID, c.DocumentID, c.Index, c.Content, c.ContentHash, c.TokenCount, embedding, meta, createdAt,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	for i := range chunks {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("insert chunk %d: %w", chunks[i].Index, err)
		}
	}
	return results.Close()
}

// ListByDocument returns a document's chunks in index order.
func (r *ChunkRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, chunk_index, content, content_hash, token_count, embedding, metadata, created_at
		 FROM chunks WHERE document_id = $1 ORDER BY chunk_index`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var embedding *pgvector.Vector
		var meta []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Content, &c.ContentHash, &c.TokenCount, &embedding, &meta, &c.CreatedAt); err != nil {
			return nil, err
		}
		if embedding != nil {
			c.Embedding = embedding.Slice()
		}
		if c.Metadata, err = domain.UnmarshalChunkMetadata(meta); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
