package text

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxBytes 是单次合成请求允许的 UTF-8 字节上限（接口限制 5000，留出余量）。
const DefaultMaxBytes = 4500

// Chunk 是一段待合成的文本，Index 为在原文中的顺序（从 0 开始、连续）。
type Chunk struct {
	Index int
	Text  string
}

var paragraphRe = regexp.MustCompile(`\n\n+`)

// Chunker 按字节上限把文本切分为多段。
// 优先在段落边界切分，其次句末标点，再次读点/逗号，最后按字符强制切分。
type Chunker struct {
	maxBytes int
}

// NewChunker 创建分段器，maxBytes <= 0 时使用 DefaultMaxBytes。
func NewChunker(maxBytes int) *Chunker {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Chunker{maxBytes: maxBytes}
}

// MaxBytes 返回字节上限。
func (c *Chunker) MaxBytes() int { return c.maxBytes }

// Split 切分文本。每段去除首尾空白且非空，字节数不超过上限（单个字符超限的极端情况除外）。
// 空白文本返回 nil。
func (c *Chunker) Split(s string) []Chunk {
	var parts []string
	if len(s) <= c.maxBytes {
		parts = []string{s}
	} else {
		parts = c.splitParagraphs(s)
	}

	var chunks []Chunk
	for _, p := range parts {
		p = strings.TrimFunc(p, isSpace)
		if p == "" {
			continue
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Text: p})
	}
	return chunks
}

func (c *Chunker) splitParagraphs(s string) []string {
	var out []string
	current := ""
	for _, para := range paragraphRe.Split(s, -1) {
		candidate := para
		if current != "" {
			candidate = current + "\n\n" + para
		}
		if len(candidate) <= c.maxBytes {
			current = candidate
			continue
		}
		if current != "" {
			out = append(out, current)
		}
		if len(para) <= c.maxBytes {
			current = para
			continue
		}
		// 长段落切完后的余下部分继续参与后续段落的合并
		var parts []string
		parts, current = c.splitSentences(para)
		out = append(out, parts...)
	}
	if current != "" {
		out = append(out, current)
	}
	return out
}

func (c *Chunker) splitSentences(s string) ([]string, string) {
	return c.pack(splitAfter(s, isSentenceEnder), c.splitClauses)
}

func (c *Chunker) splitClauses(s string) ([]string, string) {
	return c.pack(splitAfter(s, isClauseMark), c.forceSplit)
}

// pack 把片段贪心地拼接到上限以内，单个片段超限时交给 fallback 继续切分。
// 返回已满的段和尚未满的余下部分，余下部分由调用方继续拼接。
func (c *Chunker) pack(pieces []string, fallback func(string) ([]string, string)) ([]string, string) {
	var out []string
	current := ""
	for _, p := range pieces {
		if len(current)+len(p) <= c.maxBytes {
			current += p
			continue
		}
		if current != "" {
			out = append(out, current)
		}
		if len(p) <= c.maxBytes {
			current = p
			continue
		}
		var parts []string
		parts, current = fallback(p)
		out = append(out, parts...)
	}
	return out, current
}

// forceSplit 按字符切分。先取 maxBytes/3 个字符（日文多为 3 字节），超限则逐个减少。
// 强制切出的段全部输出，不留余下部分。
func (c *Chunker) forceSplit(s string) ([]string, string) {
	var out []string
	runes := []rune(s)
	for len(runes) > 0 {
		n := c.maxBytes / 3
		if n < 1 {
			n = 1
		}
		if n > len(runes) {
			n = len(runes)
		}
		for n > 1 && len(string(runes[:n])) > c.maxBytes {
			n--
		}
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out, ""
}

// splitAfter 在满足 isMark 的字符之后切开，标点保留在前一段末尾。
func splitAfter(s string, isMark func(rune) bool) []string {
	var out []string
	start := 0
	for i, r := range s {
		if isMark(r) {
			end := i + utf8.RuneLen(r)
			out = append(out, s[start:end])
			start = end
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func isSentenceEnder(r rune) bool {
	switch r {
	case '。', '！', '？', '.', '!', '?', '\n':
		return true
	}
	return false
}

func isClauseMark(r rune) bool {
	switch r {
	case '、', '，', ',':
		return true
	}
	return false
}
