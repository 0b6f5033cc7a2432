// Package store 使用 SQLite 保存音色目录缓存和合成历史，不保存任何音频。
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iabetor/speakit/internal/logger"
)

// DB 是 speakit 的 SQLite 连接。
type DB struct {
	*sql.DB
	path string
	now  func() time.Time
}

// Open 打开或创建数据库。dbPath 为空时使用 ~/.speakit/speakit.db。
func Open(dbPath string) (*DB, error) {
	if dbPath == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			dbPath = filepath.Join(home, ".speakit", "speakit.db")
		} else {
			dbPath = "./speakit.db"
		}
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	// SQLite 单写者，避免 database is locked
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("设置 WAL 模式失败: %w", err)
	}

	logger.Debugf("[store] 数据库已打开: %s", dbPath)
	return &DB{DB: db, path: dbPath, now: time.Now}, nil
}

// Path 返回数据库文件路径。
func (db *DB) Path() string {
	return db.path
}

// Migrate 创建表和索引。
func (db *DB) Migrate() error {
	migrations := []string{
		// 音色目录缓存，按语言保存一份 JSON
		`CREATE TABLE IF NOT EXISTS voice_catalogue (
			language_code TEXT PRIMARY KEY,
			voices TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		)`,
		// 合成历史，只记录元数据
		`CREATE TABLE IF NOT EXISTS synthesis_history (
			id TEXT PRIMARY KEY,
			text_hash TEXT NOT NULL,
			preview TEXT DEFAULT '',
			engine TEXT NOT NULL,
			voice TEXT DEFAULT '',
			rate REAL DEFAULT 1.0,
			chunks INTEGER DEFAULT 0,
			samples INTEGER DEFAULT 0,
			from_cache BOOLEAN DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
	}
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_history_created_at ON synthesis_history(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_history_text_hash ON synthesis_history(text_hash)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			logger.Warnf("[store] 创建索引失败: %v", err)
		}
	}

	logger.Debugf("[store] 数据库迁移完成")
	return nil
}

// Close 关闭数据库连接。
func (db *DB) Close() error {
	if db.DB != nil {
		return db.DB.Close()
	}
	return nil
}
