// Package text 负责朗读前的文本预处理：去除 Markdown 标记、符号转读法，以及按字节上限分段。
package text

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// PauseMark 是插入到文本中的停顿标点（读点，一拍）。
const PauseMark = "、"

// ws 与浏览器正则中的 \s 等价，包含全角空格等 Unicode 空白。
const ws = `[\t\n\v\f\r \x{00a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}]`

var (
	fencedCodeRe   = regexp.MustCompile("(?s)```(.*?)```")
	langTagRe      = regexp.MustCompile(`^\w+\n`)
	inlineCodeRe   = regexp.MustCompile("`([^`]+)`")
	imageRe        = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	linkRe         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	timestampRe    = regexp.MustCompile(`\[\d{1,2}:\d{2}(:\d{2})?\]`)
	separatorRe    = regexp.MustCompile(`[:;：；]`)
	boldStarRe     = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	boldUnderRe    = regexp.MustCompile(`__([^_]+)__`)
	headingRe      = regexp.MustCompile(`(?m)^` + ws + `*#{1,6}` + ws + `*`)
	listMarkerRe   = regexp.MustCompile(`(?m)^` + ws + `*[-*+]` + ws + `+`)
	blockquoteRe   = regexp.MustCompile(`(?m)^>` + ws + `*`)
	hrRe           = regexp.MustCompile(`(?m)^[-*_]{3,}` + ws + `*$`)
	strikeRe       = regexp.MustCompile(`~~([^~]+)~~`)
	blankLinesRe   = regexp.MustCompile(`\n{3,}`)
	mathReplacer   = strings.NewReplacer(
		"＝", "イコール", "=", "イコール",
		"＋", "プラス", "+", "プラス",
		"−", "マイナス", "–", "マイナス", "—", "マイナス",
		"×", "かける", "✕", "かける",
		"÷", "わる",
	)
)

// Normalize 将 Markdown 风格的文本转换为适合朗读的纯文本。
// 规则按固定顺序执行，后面的规则不会再触发前面的规则；不匹配的规则不做任何处理。
func Normalize(s string) string {
	// 1. 代码块只保留内容，并去掉首行的语言标记
	s = fencedCodeRe.ReplaceAllStringFunc(s, func(m string) string {
		inner := m[3 : len(m)-3]
		return langTagRe.ReplaceAllString(inner, "")
	})

	// 2-4. 行内代码、图片、链接
	s = inlineCodeRe.ReplaceAllString(s, "$1")
	s = imageRe.ReplaceAllString(s, "")
	s = linkRe.ReplaceAllString(s, "$1")

	// 5. [12:34] / [1:02:03] 形式的时间戳
	s = timestampRe.ReplaceAllString(s, "")

	// 6. 冒号、分号（半角/全角）转为读点
	s = separatorRe.ReplaceAllString(s, PauseMark)

	// 7-8. 粗体、斜体
	s = boldStarRe.ReplaceAllString(s, "$1")
	s = boldUnderRe.ReplaceAllString(s, "$1")
	s = stripEmphasis(s, '*')
	s = stripEmphasis(s, '_')

	// 9-12. 行首标记。有序列表与章节编号无法区分，故保留。
	s = headingRe.ReplaceAllString(s, "")
	s = listMarkerRe.ReplaceAllString(s, "")
	s = blockquoteRe.ReplaceAllString(s, "")
	s = hrRe.ReplaceAllString(s, "")

	// 13. 删除线
	s = strikeRe.ReplaceAllString(s, "$1")

	// 14. 数学符号转读法
	s = mathReplacer.Replace(s)

	// 15-16. 换行停顿、压缩空行
	s = insertLineBreakPauses(s)
	s = blankLinesRe.ReplaceAllString(s, "\n\n")

	return strings.TrimFunc(s, isSpace)
}

// stripEmphasis 去掉单字符强调标记 m（* 或 _）包裹的内容的标记。
// 起始标记前一个字符、结束标记后一个字符都不能是 m，以免吃掉粗体标记。
func stripEmphasis(s string, m byte) string {
	if strings.IndexByte(s, m) < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		if s[i] == m && (i == 0 || s[i-1] != m) {
			if j := strings.IndexByte(s[i+1:], m); j > 0 {
				end := i + 1 + j
				if end+1 >= len(s) || s[end+1] != m {
					b.WriteString(s[i+1 : end])
					i = end + 1
					continue
				}
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// insertLineBreakPauses 在不以句末标点结尾的单个换行前插入读点。
// 空行（连续换行）保持不变。
func insertLineBreakPauses(s string) string {
	if !strings.Contains(s, "\n") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' && i > 0 && (i+1 >= len(s) || s[i+1] != '\n') {
			prev, _ := utf8.DecodeLastRuneInString(s[:i])
			if !isLineEnder(prev) {
				b.WriteString(PauseMark)
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isLineEnder(r rune) bool {
	switch r {
	case '。', '！', '？', '\n':
		return true
	}
	return false
}

// isSpace 与 ws 字符类一致。
func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', 0x00a0, 0x1680, 0x2028, 0x2029, 0x202f, 0x205f, 0x3000, 0xfeff:
		return true
	}
	return r >= 0x2000 && r <= 0x200a
}
