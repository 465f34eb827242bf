// Package memory 提供基于 SQLite 的记忆持久化
package memory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store 记忆存储接口
type Store interface {
	// 记忆 CRUD
	InsertItem(item *Item) error
	GetItem(userID string, category Category, subject string) (*Item, error)
	UpdateItem(item *Item) error
	DeactivateItem(id string) error
	ListActive(userID string) ([]*Item, error)

	// 低置信度矛盾
	RecordConflict(conflict *PendingConflict) error
	ListConflicts(userID string) ([]*PendingConflict, error)
	ClearConflict(id string) error

	// 统计
	GetStats(userID string) (*Stats, error)

	// 关闭
	Close() error
}

// SQLiteStore 基于 SQLite 的记忆存储实现
// 向量以 BLOB 形式与记忆同行存储，检索时在进程内计算余弦相似度。
// 适用于单机个人数据规模（每用户 < 10000 条）
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore 创建 SQLite 记忆存储
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("打开记忆数据库失败: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.initTables(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initTables 初始化数据库表
func (s *SQLiteStore) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS memory_items (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			category TEXT NOT NULL,
			subject TEXT NOT NULL,
			value TEXT NOT NULL,
			confidence REAL NOT NULL,
			mention_count INTEGER NOT NULL DEFAULT 1,
			version INTEGER NOT NULL DEFAULT 1,
			embedding BLOB,
			norm REAL NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1,
			sensitive INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			last_updated DATETIME NOT NULL
		)`,

		// 每个 (user, category, subject) 至多一条活跃记忆
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_items_active_key
			ON memory_items(user_id, category, subject) WHERE active = 1`,
		`CREATE INDEX IF NOT EXISTS idx_items_user ON memory_items(user_id, active)`,

		`CREATE TABLE IF NOT EXISTS pending_conflicts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			category TEXT NOT NULL,
			subject TEXT NOT NULL,
			existing_value TEXT NOT NULL,
			proposed_value TEXT NOT NULL,
			confidence REAL NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conflicts_user ON pending_conflicts(user_id)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("初始化记忆表失败: %w", err)
		}
	}

	return nil
}

// InsertItem 插入新记忆
func (s *SQLiteStore) InsertItem(item *Item) error {
	if !item.Category.Valid() {
		return ErrInvalidCategory
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.LastUpdated.IsZero() {
		item.LastUpdated = now
	}
	if item.MentionCount == 0 {
		item.MentionCount = 1
	}
	if item.Version == 0 {
		item.Version = 1
	}
	item.Active = true

	blob := vectorToBlob(item.Embedding)
	norm := vectorNorm(item.Embedding)

	_, err := s.db.Exec(
		`INSERT INTO memory_items
			(id, user_id, category, subject, value, confidence, mention_count, version,
			 embedding, norm, active, sensitive, created_at, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
		item.ID, item.UserID, string(item.Category), item.Subject, item.Value,
		item.Confidence, item.MentionCount, item.Version,
		blob, norm, boolToInt(item.Sensitive), item.CreatedAt, item.LastUpdated,
	)
	if err != nil {
		return NewStoreError("InsertItem", err)
	}

	return nil
}

// GetItem 按唯一键获取活跃记忆
func (s *SQLiteStore) GetItem(userID string, category Category, subject string) (*Item, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, category, subject, value, confidence, mention_count, version,
			embedding, active, sensitive, created_at, last_updated
		 FROM memory_items
		 WHERE user_id = ? AND category = ? AND subject = ? AND active = 1`,
		userID, string(category), subject,
	)
	return scanItem(row)
}

// UpdateItem 更新记忆（值、置信度、计数、版本、向量）
func (s *SQLiteStore) UpdateItem(item *Item) error {
	blob := vectorToBlob(item.Embedding)
	norm := vectorNorm(item.Embedding)

	result, err := s.db.Exec(
		`UPDATE memory_items
		 SET value = ?, confidence = ?, mention_count = ?, version = ?,
			 embedding = ?, norm = ?, sensitive = ?, last_updated = ?
		 WHERE id = ?`,
		item.Value, item.Confidence, item.MentionCount, item.Version,
		blob, norm, boolToInt(item.Sensitive), item.LastUpdated, item.ID,
	)
	if err != nil {
		return NewStoreError("UpdateItem", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return NewStoreError("UpdateItem", err)
	}
	if rows == 0 {
		return ErrItemNotFound
	}

	return nil
}

// DeactivateItem 停用记忆（软删除，显式用户删除由外部协作方处理）
func (s *SQLiteStore) DeactivateItem(id string) error {
	result, err := s.db.Exec(`UPDATE memory_items SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return NewStoreError("DeactivateItem", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return NewStoreError("DeactivateItem", err)
	}
	if rows == 0 {
		return ErrItemNotFound
	}

	return nil
}

// ListActive 列出用户的全部活跃记忆
func (s *SQLiteStore) ListActive(userID string) ([]*Item, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, category, subject, value, confidence, mention_count, version,
			embedding, active, sensitive, created_at, last_updated
		 FROM memory_items
		 WHERE user_id = ? AND active = 1
		 ORDER BY last_updated DESC`,
		userID,
	)
	if err != nil {
		return nil, NewStoreError("ListActive", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItemRows(rows)
		if err != nil {
			continue
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// RecordConflict 记录低置信度矛盾
func (s *SQLiteStore) RecordConflict(conflict *PendingConflict) error {
	if conflict.ID == "" {
		conflict.ID = uuid.New().String()
	}
	if conflict.CreatedAt.IsZero() {
		conflict.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(
		`INSERT INTO pending_conflicts
			(id, user_id, category, subject, existing_value, proposed_value, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		conflict.ID, conflict.UserID, string(conflict.Category), conflict.Subject,
		conflict.ExistingValue, conflict.ProposedValue, conflict.Confidence, conflict.CreatedAt,
	)
	if err != nil {
		return NewStoreError("RecordConflict", err)
	}

	return nil
}

// ListConflicts 列出用户的未决矛盾
func (s *SQLiteStore) ListConflicts(userID string) ([]*PendingConflict, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, category, subject, existing_value, proposed_value, confidence, created_at
		 FROM pending_conflicts
		 WHERE user_id = ?
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, NewStoreError("ListConflicts", err)
	}
	defer rows.Close()

	var conflicts []*PendingConflict
	for rows.Next() {
		var pc PendingConflict
		var category string
		if err := rows.Scan(&pc.ID, &pc.UserID, &category, &pc.Subject,
			&pc.ExistingValue, &pc.ProposedValue, &pc.Confidence, &pc.CreatedAt); err != nil {
			continue
		}
		pc.Category = Category(category)
		conflicts = append(conflicts, &pc)
	}

	return conflicts, rows.Err()
}

// ClearConflict 清除已处理的矛盾
func (s *SQLiteStore) ClearConflict(id string) error {
	_, err := s.db.Exec(`DELETE FROM pending_conflicts WHERE id = ?`, id)
	if err != nil {
		return NewStoreError("ClearConflict", err)
	}
	return nil
}

// GetStats 获取用户记忆统计
func (s *SQLiteStore) GetStats(userID string) (*Stats, error) {
	stats := &Stats{
		ByCategory: make(map[Category]int),
	}

	rows, err := s.db.Query(
		`SELECT category, confidence, last_updated
		 FROM memory_items
		 WHERE user_id = ? AND active = 1`,
		userID,
	)
	if err != nil {
		return nil, NewStoreError("GetStats", err)
	}
	defer rows.Close()

	weekAgo := time.Now().AddDate(0, 0, -7)

	for rows.Next() {
		var category string
		var confidence float64
		var lastUpdated time.Time
		if err := rows.Scan(&category, &confidence, &lastUpdated); err != nil {
			continue
		}

		stats.Total++
		stats.ByCategory[Category(category)]++
		if confidence >= 0.8 {
			stats.HighConfidence++
		}
		if lastUpdated.After(weekAgo) {
			stats.RecentCount++
		}
	}

	return stats, rows.Err()
}

// Close 关闭数据库连接
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner 抽象 sql.Row 和 sql.Rows 的 Scan 方法
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanItem 从单行查询结果扫描记忆
func scanItem(row *sql.Row) (*Item, error) {
	item, err := scanFrom(row)
	if err == sql.ErrNoRows {
		return nil, ErrItemNotFound
	}
	return item, err
}

// scanItemRows 从多行查询结果扫描记忆
func scanItemRows(rows *sql.Rows) (*Item, error) {
	return scanFrom(rows)
}

func scanFrom(sc scanner) (*Item, error) {
	var item Item
	var category string
	var blob []byte
	var active, sensitive int

	err := sc.Scan(&item.ID, &item.UserID, &category, &item.Subject, &item.Value,
		&item.Confidence, &item.MentionCount, &item.Version,
		&blob, &active, &sensitive, &item.CreatedAt, &item.LastUpdated)
	if err != nil {
		return nil, err
	}

	item.Category = Category(category)
	item.Embedding = blobToVector(blob)
	item.Active = active == 1
	item.Sensitive = sensitive == 1

	return &item, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
