package audio

import (
	"sync"

	"github.com/iabetor/speakit/internal/logger"
)

// CacheKey 标识一次合成请求：规范化后的文本、音色和语速。
type CacheKey struct {
	Text  string
	Voice string
	Rate  float64
}

// BufferCache 保存最近一次完整合成的结果。只有 key 完全一致时才命中，
// 切换引擎、音色、文本或语速时由调用方 Invalidate。
type BufferCache struct {
	mu   sync.RWMutex
	key  CacheKey
	buf  *SampleBuffer
	hits int
}

// NewBufferCache 创建空缓存。
func NewBufferCache() *BufferCache {
	return &BufferCache{}
}

// Get 在 key 匹配时返回缓存的音频。
func (c *BufferCache) Get(key CacheKey) (*SampleBuffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.buf == nil || c.key != key {
		return nil, false
	}
	c.hits++
	return c.buf, true
}

// Put 用新结果替换缓存，空结果不缓存。
func (c *BufferCache) Put(key CacheKey, buf *SampleBuffer) {
	if buf.Len() == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.key = key
	c.buf = buf
	logger.Debugf("[cache] 已缓存 %d 个样本 (voice=%s, rate=%.2f)", buf.Len(), key.Voice, key.Rate)
}

// Invalidate 清空缓存。
func (c *BufferCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.buf != nil {
		logger.Debugf("[cache] 缓存已失效")
	}
	c.buf = nil
	c.key = CacheKey{}
}

// Hits 返回命中次数。
func (c *BufferCache) Hits() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits
}
