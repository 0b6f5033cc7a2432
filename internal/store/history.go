package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const previewRunes = 40

// HistoryEntry 是一次成功合成的记录。
type HistoryEntry struct {
	ID        string
	TextHash  string
	Preview   string
	Engine    string
	Voice     string
	Rate      float64
	Chunks    int
	Samples   int
	FromCache bool
	CreatedAt time.Time
}

// HashText 返回文本的 SHA-256 十六进制摘要。
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// RecordSynthesis 写入一条历史记录，ID 为空时自动生成，返回记录 ID。
func (db *DB) RecordSynthesis(ctx context.Context, e HistoryEntry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = db.now()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO synthesis_history (id, text_hash, preview, engine, voice, rate, chunks, samples, from_cache, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TextHash, e.Preview, e.Engine, e.Voice, e.Rate, e.Chunks, e.Samples, e.FromCache, e.CreatedAt.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("写入合成历史失败: %w", err)
	}
	return e.ID, nil
}

// RecentHistory 按时间倒序返回最近 limit 条记录。
func (db *DB) RecentHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, text_hash, preview, engine, voice, rate, chunks, samples, from_cache, created_at
		 FROM synthesis_history ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询合成历史失败: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.TextHash, &e.Preview, &e.Engine, &e.Voice, &e.Rate,
			&e.Chunks, &e.Samples, &e.FromCache, &createdAt); err != nil {
			return nil, fmt.Errorf("读取合成历史失败: %w", err)
		}
		e.CreatedAt = time.UnixMilli(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Preview 截取文本开头作为历史预览。
func Preview(text string) string {
	r := []rune(text)
	if len(r) <= previewRunes {
		return text
	}
	return string(r[:previewRunes]) + "…"
}
