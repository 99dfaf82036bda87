package repository

import (
	"context"
	"errors"

	"github.com/fyerfyer/doc-ingest/internal/database"
	"github.com/fyerfyer/doc-ingest/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 批量写入的批次大小
const chunkBatchSize = 100

// ErrChunkNotFound 分块不存在
var ErrChunkNotFound = errors.New("chunk not found")

// chunkRepository 分块仓储实现
type chunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository 创建分块仓储
func NewChunkRepository(db *gorm.DB) ChunkRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &chunkRepository{db: db}
}

// SaveAll 批量插入或覆盖分块，并以本批次替换所涉及文档的分块列表
// 同一文档内ID重复的分块只保留第一个位置
func (r *chunkRepository) SaveAll(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(chunks))
	unique := make([]*models.Chunk, 0, len(chunks))
	members := make([]*models.DocumentChunk, 0, len(chunks))
	memberSeen := make(map[models.DocumentChunk]bool, len(chunks))
	docSeen := make(map[string]bool)
	var documentIDs []string
	for _, c := range chunks {
		if c.ID == "" {
			return errors.New("chunk ID cannot be empty")
		}

		key := models.DocumentChunk{DocumentID: c.DocumentID, ChunkID: c.ID}
		if !memberSeen[key] {
			memberSeen[key] = true
			members = append(members, &models.DocumentChunk{DocumentID: c.DocumentID, ChunkID: c.ID, Position: c.Position})
		}
		if !docSeen[c.DocumentID] {
			docSeen[c.DocumentID] = true
			documentIDs = append(documentIDs, c.DocumentID)
		}

		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		unique = append(unique, c)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).
			CreateInBatches(unique, chunkBatchSize).Error; err != nil {
			return err
		}
		// 重新分块后旧的归属关系不再有效
		if err := tx.Where("document_id IN ?", documentIDs).Delete(&models.DocumentChunk{}).Error; err != nil {
			return err
		}
		return tx.CreateInBatches(members, chunkBatchSize).Error
	})
}

// ListByDocument 按位置顺序列出文档的分块
// 分块行被其他文档覆盖时，返回值中的DocumentID和Position仍是本文档的
func (r *chunkRepository) ListByDocument(ctx context.Context, documentID string) ([]*models.Chunk, error) {
	var members []*models.DocumentChunk
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("position ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []*models.Chunk{}, nil
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ChunkID)
	}
	var rows []*models.Chunk
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Chunk, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}

	chunks := make([]*models.Chunk, 0, len(members))
	for _, m := range members {
		c, ok := byID[m.ChunkID]
		if !ok {
			continue
		}
		chunk := *c
		chunk.DocumentID = documentID
		chunk.Position = m.Position
		chunks = append(chunks, &chunk)
	}
	return chunks, nil
}

// GetByID 根据ID获取分块
func (r *chunkRepository) GetByID(ctx context.Context, id string) (*models.Chunk, error) {
	var chunk models.Chunk
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&chunk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChunkNotFound
		}
		return nil, err
	}
	return &chunk, nil
}
