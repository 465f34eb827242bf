package guide

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store 会话持久化接口
type Store interface {
	CreateSession(session *Session) error
	GetSession(id string) (*Session, error)
	GetActiveSession(userID, date string) (*Session, error)
	UpdateSession(session *Session) error
	DiscardIncomplete(userID string) (int, error)
	DiscardStale(userID, before string) (int, error)

	AppendTurn(turn *Turn) error
	ListTurns(sessionID string, limit int) ([]*Turn, error)

	SaveDiary(entry *DiaryEntry) error
	GetLatestDiary(sessionID string) (*DiaryEntry, error)

	SaveSnapshot(snapshot *Snapshot) error

	Close() error
}

// SQLiteStore 基于 SQLite 的会话存储实现
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore 创建会话存储
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("打开会话数据库失败: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initTables(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			date TEXT NOT NULL,
			language TEXT NOT NULL,
			phase TEXT NOT NULL,
			intent TEXT NOT NULL,
			answers TEXT NOT NULL,
			is_complete INTEGER NOT NULL DEFAULT 0,
			is_crisis INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		// 每用户每日至多一个活跃未完成会话
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_active_day
			ON sessions(user_id, date) WHERE active = 1 AND is_complete = 0`,

		`CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS diary_entries (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_diary_session ON diary_entries(session_id, version)`,

		`CREATE TABLE IF NOT EXISTS memory_snapshots (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			extracted INTEGER NOT NULL DEFAULT 0,
			context_used TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("初始化会话表失败: %w", err)
		}
	}

	return nil
}

// CreateSession 创建新会话
func (s *SQLiteStore) CreateSession(session *Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	answers, err := json.Marshal(session.Answers)
	if err != nil {
		return fmt.Errorf("序列化回答失败: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO sessions
			(id, user_id, date, language, phase, intent, answers, is_complete, is_crisis, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		session.ID, session.UserID, session.Date, session.Language,
		string(session.Phase), string(session.Intent), string(answers),
		boolToInt(session.IsComplete), boolToInt(session.IsCrisis),
		session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建会话失败: %w", err)
	}

	return nil
}

// GetSession 按 ID 获取会话
func (s *SQLiteStore) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, date, language, phase, intent, answers, is_complete, is_crisis, created_at, updated_at
		 FROM sessions WHERE id = ? AND active = 1`, id)
	return scanSession(row)
}

// GetActiveSession 获取用户某日的活跃未完成会话
func (s *SQLiteStore) GetActiveSession(userID, date string) (*Session, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, date, language, phase, intent, answers, is_complete, is_crisis, created_at, updated_at
		 FROM sessions
		 WHERE user_id = ? AND date = ? AND active = 1 AND is_complete = 0`,
		userID, date)
	return scanSession(row)
}

// UpdateSession 更新会话状态
func (s *SQLiteStore) UpdateSession(session *Session) error {
	session.UpdatedAt = time.Now()

	answers, err := json.Marshal(session.Answers)
	if err != nil {
		return fmt.Errorf("序列化回答失败: %w", err)
	}

	result, err := s.db.Exec(
		`UPDATE sessions
		 SET phase = ?, intent = ?, answers = ?, is_complete = ?, is_crisis = ?, updated_at = ?
		 WHERE id = ?`,
		string(session.Phase), string(session.Intent), string(answers),
		boolToInt(session.IsComplete), boolToInt(session.IsCrisis),
		session.UpdatedAt, session.ID,
	)
	if err != nil {
		return fmt.Errorf("更新会话失败: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新会话失败: %w", err)
	}
	if rows == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// DiscardIncomplete 废弃用户所有未完成会话，返回废弃条数
// 只标记会话行，不触碰记忆存储
func (s *SQLiteStore) DiscardIncomplete(userID string) (int, error) {
	result, err := s.db.Exec(
		`UPDATE sessions SET active = 0 WHERE user_id = ? AND is_complete = 0 AND active = 1`,
		userID)
	if err != nil {
		return 0, fmt.Errorf("废弃会话失败: %w", err)
	}
	rows, err := result.RowsAffected()
	return int(rows), err
}

// DiscardStale 废弃用户指定日期之前的未完成会话
func (s *SQLiteStore) DiscardStale(userID, before string) (int, error) {
	result, err := s.db.Exec(
		`UPDATE sessions SET active = 0 WHERE user_id = ? AND date < ? AND is_complete = 0 AND active = 1`,
		userID, before)
	if err != nil {
		return 0, fmt.Errorf("清理过期会话失败: %w", err)
	}
	rows, err := result.RowsAffected()
	return int(rows), err
}

// AppendTurn 追加一条消息
func (s *SQLiteStore) AppendTurn(turn *Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(
		`INSERT INTO turns (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		turn.ID, turn.SessionID, turn.Role, turn.Content, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("追加消息失败: %w", err)
	}

	return nil
}

// ListTurns 按时间顺序列出会话消息，limit > 0 时只取最近的 limit 条
func (s *SQLiteStore) ListTurns(sessionID string, limit int) ([]*Turn, error) {
	query := `SELECT id, session_id, role, content, created_at FROM turns
		 WHERE session_id = ? ORDER BY created_at ASC`
	args := []interface{}{sessionID}

	if limit > 0 {
		query = `SELECT id, session_id, role, content, created_at FROM (
			SELECT id, session_id, role, content, created_at FROM turns
			WHERE session_id = ? ORDER BY created_at DESC LIMIT ?
		) ORDER BY created_at ASC`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询消息失败: %w", err)
	}
	defer rows.Close()

	var turns []*Turn
	for rows.Next() {
		var turn Turn
		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.Role, &turn.Content, &turn.CreatedAt); err != nil {
			continue
		}
		turns = append(turns, &turn)
	}

	return turns, rows.Err()
}

// SaveDiary 保存一个日记版本
func (s *SQLiteStore) SaveDiary(entry *DiaryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Version == 0 {
		entry.Version = 1
	}

	_, err := s.db.Exec(
		`INSERT INTO diary_entries (id, session_id, user_id, content, version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SessionID, entry.UserID, entry.Content, entry.Version, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("保存日记失败: %w", err)
	}

	return nil
}

// GetLatestDiary 获取会话的最新日记版本
func (s *SQLiteStore) GetLatestDiary(sessionID string) (*DiaryEntry, error) {
	row := s.db.QueryRow(
		`SELECT id, session_id, user_id, content, version, created_at
		 FROM diary_entries WHERE session_id = ?
		 ORDER BY version DESC LIMIT 1`, sessionID)

	var entry DiaryEntry
	err := row.Scan(&entry.ID, &entry.SessionID, &entry.UserID, &entry.Content, &entry.Version, &entry.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrDiaryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询日记失败: %w", err)
	}

	return &entry, nil
}

// SaveSnapshot 保存会话完成时的记忆快照
func (s *SQLiteStore) SaveSnapshot(snapshot *Snapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.New().String()
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(
		`INSERT INTO memory_snapshots (id, session_id, user_id, extracted, context_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		snapshot.ID, snapshot.SessionID, snapshot.UserID,
		snapshot.Extracted, snapshot.ContextUsed, snapshot.CreatedAt)
	if err != nil {
		return fmt.Errorf("保存快照失败: %w", err)
	}

	return nil
}

// Close 关闭数据库连接
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSession(row *sql.Row) (*Session, error) {
	var session Session
	var phase, intent, answers string
	var isComplete, isCrisis int

	err := row.Scan(&session.ID, &session.UserID, &session.Date, &session.Language,
		&phase, &intent, &answers, &isComplete, &isCrisis,
		&session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询会话失败: %w", err)
	}

	session.Phase = Phase(phase)
	session.Intent = Intent(intent)
	session.IsComplete = isComplete == 1
	session.IsCrisis = isCrisis == 1
	if err := json.Unmarshal([]byte(answers), &session.Answers); err != nil {
		return nil, fmt.Errorf("解析回答失败: %w", err)
	}

	return &session, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
