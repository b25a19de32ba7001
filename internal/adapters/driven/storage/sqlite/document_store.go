package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore and driven.ChunkMatcher.
type documentStore struct {
	store *Store
}

var (
	_ driven.DocumentStore = (*documentStore)(nil)
	_ driven.ChunkMatcher  = (*documentStore)(nil)
)

// documentColumns lists the document columns in scan order. chunk_count is
// derived so it always agrees with the chunks table.
const documentColumns = `
	d.id, d.owner_id, d.title, d.filename, d.storage_path, d.file_type, d.file_size,
	d.status, d.error, d.content, d.created_at, d.updated_at,
	(SELECT COUNT(*) FROM chunks c WHERE c.document_id = d.id)`

// CreateDocument stores a new document.
func (s *documentStore) CreateDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	createdAt := utc(doc.CreatedAt)
	updatedAt := doc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, owner_id, title, filename, storage_path, file_type, file_size,
			status, error, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.OwnerID, doc.Title, doc.Filename, doc.StoragePath, string(doc.FileType), doc.FileSize,
		string(doc.Status), doc.Error, doc.Content, createdAt, utc(updatedAt))
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("%w: document %s: %w", domain.ErrInvalidInput, doc.ID, err)
		}
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID scoped to the owner.
func (s *documentStore) GetDocument(ctx context.Context, ownerID, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents d WHERE d.id = ? AND d.owner_id = ?`, id, ownerID)
	return scanDocument(row)
}

// LoadDocument retrieves a document by ID regardless of owner.
func (s *documentStore) LoadDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents d WHERE d.id = ?`, id)
	return scanDocument(row)
}

// ListDocuments returns an owner's documents, newest first.
func (s *documentStore) ListDocuments(
	ctx context.Context, ownerID string, offset, limit int,
) ([]domain.Document, error) {
	page, pageArgs := pageClause(offset, limit)
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents d
		WHERE d.owner_id = ?
		ORDER BY d.created_at DESC, d.id`+page, append([]any{ownerID}, pageArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// ListByStatus returns an owner's documents in the given status, newest first.
func (s *documentStore) ListByStatus(
	ctx context.Context, ownerID string, status domain.DocumentStatus,
) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents d
		WHERE d.owner_id = ? AND d.status = ?
		ORDER BY d.created_at DESC, d.id`, ownerID, string(status))
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// SetProcessing moves a document back to processing.
func (s *documentStore) SetProcessing(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents SET status = ?, error = '', updated_at = ? WHERE id = ?
	`, string(domain.StatusProcessing), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	return requireRow(res)
}

// CompleteIngestion replaces chunks and embeddings and marks the document
// completed in one transaction. Replacing chunks cascades to citations of
// the previous run.
func (s *documentStore) CompleteIngestion(
	ctx context.Context, id, content string, chunks []domain.Chunk, embeddings []domain.Embedding,
) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("%w: %d chunks but %d embeddings", domain.ErrInvalidInput, len(chunks), len(embeddings))
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		UPDATE documents SET status = ?, error = '', content = ?, updated_at = ? WHERE id = ?
	`, string(domain.StatusCompleted), content, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", id); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, chunk_index, content, metadata)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer chunkStmt.Close()

	embedStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunk_embeddings (chunk_id, vector, dimensions, model)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer embedStmt.Close()

	for i, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}
		if _, err := chunkStmt.ExecContext(ctx, chunk.ID, id, chunk.Index, chunk.Content,
			string(metadataJSON)); err != nil {
			return fmt.Errorf("saving chunk %d: %w", chunk.Index, err)
		}

		e := embeddings[i]
		if e.ChunkID != chunk.ID {
			return fmt.Errorf("%w: embedding %d is for chunk %s, not %s",
				domain.ErrInvalidInput, i, e.ChunkID, chunk.ID)
		}
		if _, err := embedStmt.ExecContext(ctx, chunk.ID, float32SliceToBytes(e.Vector),
			len(e.Vector), e.Model); err != nil {
			return fmt.Errorf("saving embedding %d: %w", chunk.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// FailIngestion removes chunks and embeddings and marks the document failed.
func (s *documentStore) FailIngestion(ctx context.Context, id, reason string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		UPDATE documents SET status = ?, error = ?, content = '', updated_at = ? WHERE id = ?
	`, string(domain.StatusFailed), reason, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", id); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetChunks retrieves all chunks for a document ordered by index.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, chunk_index, content, metadata
		FROM chunks WHERE document_id = ?
		ORDER BY chunk_index
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var metadataJSON string
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Index, &chunk.Content, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if err := unmarshalMetadata(metadataJSON, &chunk.Metadata); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// GetEmbeddings retrieves the embeddings of a document's chunks in chunk order.
func (s *documentStore) GetEmbeddings(ctx context.Context, documentID string) ([]domain.Embedding, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT e.chunk_id, e.vector, e.model
		FROM chunk_embeddings e JOIN chunks c ON c.id = e.chunk_id
		WHERE c.document_id = ?
		ORDER BY c.chunk_index
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var embeddings []domain.Embedding //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e domain.Embedding
		var blob []byte
		if err := rows.Scan(&e.ChunkID, &blob, &e.Model); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		e.Vector = bytesToFloat32Slice(blob)
		embeddings = append(embeddings, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}
	return embeddings, nil
}

// DeleteDocument removes a document. Chunks, embeddings and citations
// referencing its chunks go with it through ON DELETE CASCADE.
func (s *documentStore) DeleteDocument(ctx context.Context, ownerID, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return requireRow(res)
}

// MatchChunks returns the owner's completed chunks whose content, or
// document title when requested, contains any of the terms. Matching is
// case-insensitive with Unicode folding; terms are expected in lower case.
func (s *documentStore) MatchChunks(ctx context.Context, q driven.MatchQuery) ([]domain.SearchResult, error) {
	var conds []string
	args := []any{q.OwnerID, string(domain.StatusCompleted)}
	for _, term := range q.Terms {
		if term == "" {
			continue
		}
		conds = append(conds, "instr("+foldFunc+"(c.content), ?) > 0")
		args = append(args, term)
		if q.IncludeTitles {
			conds = append(conds, "instr("+foldFunc+"(d.title), ?) > 0")
			args = append(args, term)
		}
	}
	if len(conds) == 0 {
		return nil, nil
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.chunk_index, c.content, c.metadata,
			d.id, d.owner_id, d.title, d.filename, d.storage_path, d.file_type, d.file_size,
			d.status, d.error, d.created_at, d.updated_at
		FROM chunks c JOIN documents d ON d.id = c.document_id
		WHERE d.owner_id = ? AND d.status = ? AND (`+strings.Join(conds, " OR ")+`)
		ORDER BY c.id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("matching chunks: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var r domain.SearchResult
		var metadataJSON string
		var fileType, status string
		if err := rows.Scan(&r.Chunk.ID, &r.Chunk.DocumentID, &r.Chunk.Index, &r.Chunk.Content, &metadataJSON,
			&r.Document.ID, &r.Document.OwnerID, &r.Document.Title, &r.Document.Filename,
			&r.Document.StoragePath, &fileType, &r.Document.FileSize, &status, &r.Document.Error,
			&r.Document.CreatedAt, &r.Document.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		if err := unmarshalMetadata(metadataJSON, &r.Chunk.Metadata); err != nil {
			return nil, err
		}
		r.Document.FileType = domain.FileType(fileType)
		r.Document.Status = domain.DocumentStatus(status)
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}
	return results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocumentInto scans the documentColumns projection.
func scanDocumentInto(row rowScanner, doc *domain.Document) error {
	var fileType, status string
	if err := row.Scan(&doc.ID, &doc.OwnerID, &doc.Title, &doc.Filename, &doc.StoragePath, &fileType,
		&doc.FileSize, &status, &doc.Error, &doc.Content, &doc.CreatedAt, &doc.UpdatedAt,
		&doc.ChunkCount); err != nil {
		return err
	}
	doc.FileType = domain.FileType(fileType)
	doc.Status = domain.DocumentStatus(status)
	return nil
}

// scanDocument scans a single document row.
func scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	if err := scanDocumentInto(row, &doc); err != nil {
		return nil, notFound(err, "document")
	}
	return &doc, nil
}

// scanDocuments scans every row of a documentColumns query.
func scanDocuments(rows *sql.Rows) ([]domain.Document, error) {
	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.Document
		if err := scanDocumentInto(rows, &doc); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

func unmarshalMetadata(data string, meta *domain.ChunkMetadata) error {
	if data == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), meta); err != nil {
		return fmt.Errorf("unmarshaling chunk metadata: %w", err)
	}
	return nil
}

// requireRow turns an update that touched nothing into domain.ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
