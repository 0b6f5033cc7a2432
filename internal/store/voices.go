package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/iabetor/speakit/internal/tts"
)

// SaveVoices 覆盖保存某语言的音色目录。
func (db *DB) SaveVoices(ctx context.Context, languageCode string, voices []tts.Voice) error {
	data, err := sonic.Marshal(voices)
	if err != nil {
		return fmt.Errorf("序列化音色列表失败: %w", err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO voice_catalogue (language_code, voices, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(language_code) DO UPDATE SET voices = excluded.voices, fetched_at = excluded.fetched_at`,
		languageCode, string(data), db.now().Unix())
	if err != nil {
		return fmt.Errorf("保存音色列表失败: %w", err)
	}
	return nil
}

// LoadVoices 读取缓存的音色目录。超过 ttl 或不存在时 ok 为 false；ttl <= 0 表示不过期。
func (db *DB) LoadVoices(ctx context.Context, languageCode string, ttl time.Duration) (voices []tts.Voice, ok bool, err error) {
	var data string
	var fetchedAt int64
	err = db.QueryRowContext(ctx,
		`SELECT voices, fetched_at FROM voice_catalogue WHERE language_code = ?`, languageCode,
	).Scan(&data, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("查询音色列表失败: %w", err)
	}

	if ttl > 0 && db.now().Sub(time.Unix(fetchedAt, 0)) > ttl {
		return nil, false, nil
	}
	if err := sonic.Unmarshal([]byte(data), &voices); err != nil {
		return nil, false, fmt.Errorf("解析音色列表失败: %w", err)
	}
	return voices, true, nil
}

// CachedVoices 优先使用未过期的缓存，否则通过 fetch 获取并写回缓存。
// refresh 为 true 时跳过缓存。缓存读写失败不影响结果。
func (db *DB) CachedVoices(ctx context.Context, languageCode string, ttl time.Duration, refresh bool,
	fetch func(context.Context) ([]tts.Voice, error)) ([]tts.Voice, error) {
	if !refresh {
		voices, ok, err := db.LoadVoices(ctx, languageCode, ttl)
		if err == nil && ok {
			return voices, nil
		}
	}

	voices, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	_ = db.SaveVoices(ctx, languageCode, voices)
	return voices, nil
}
