package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DocumentChunk is a row of a workspace's pgvector table.
type DocumentChunk struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	WorkspaceID string          `gorm:"type:text;not null;index:idx_chunk_document"`
	DocumentID  string          `gorm:"type:text;not null;index:idx_chunk_document"`
	ChunkIndex  int             `gorm:"default:0"`
	Content     string          `gorm:"type:text"`
	Embedding   pgvector.Vector `gorm:"type:vector(768)"`
}

// undefinedTable is the Postgres SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// DefaultVectorTable is the chunk table used when a workspace does not name one.
func DefaultVectorTable(workspaceID string) string {
	return "chunks_" + sanitizeIdentifier(workspaceID)
}

// VectorStoreBackend removes a document's chunks from the workspace's vector table.
type VectorStoreBackend struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewVectorStoreBackend(db *gorm.DB, logger *zap.Logger) *VectorStoreBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VectorStoreBackend{db: db, logger: logger}
}

func (b *VectorStoreBackend) Delete(ctx context.Context, target Target) error {
	table := target.Capabilities.VectorTable
	if table == "" {
		return fmt.Errorf("%w: vector table", errMissingBackendLocator)
	}
	// Table names come from workspace configuration; never interpolate anything else.
	if sanitizeIdentifier(table) != table {
		return fmt.Errorf("invalid vector table name %q", table)
	}

	res := b.db.WithContext(ctx).
		Table(table).
		Where("workspace_id = ? AND document_id = ?", target.Key.WorkspaceID, target.Key.DocumentID).
		Delete(&DocumentChunk{})
	var pgErr *pgconn.PgError
	if errors.As(res.Error, &pgErr) && pgErr.Code == undefinedTable {
		b.logger.Debug("Vector table not found, nothing to delete.", zap.String("table", table))
		return nil
	}
	if res.Error != nil {
		return fmt.Errorf("delete chunks from %s: %w", table, res.Error)
	}
	b.logger.Debug("Deleted document chunks.", zap.String("table", table), zap.Int64("rows", res.RowsAffected))
	return nil
}
