// Package chunker 将抽取出的文档文本切分为带重叠的段落。
//
// 切分按分隔符层级递归进行：段落、换行、句子、单词，最后退化到单个字符。
// 长度单位为 Unicode 字符（rune）。
package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize 默认块大小（字符数）。
	DefaultChunkSize = 1000
	// DefaultChunkOverlap 默认重叠大小（字符数）。
	DefaultChunkOverlap = 200
)

// DefaultSeparators 默认分隔符层级。乌尔都语句号 "۔" 与问号 "؟" 位于句子层。
var DefaultSeparators = []string{"\n\n", "\n", "۔", "؟", ". ", "? ", "! ", " ", ""}

// Splitter 递归字符分割器。
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// Option 配置 Splitter。
type Option func(*Splitter)

// WithSeparators 替换分隔符层级，最后一个分隔符应为 "" 以保证可以切到字符级。
func WithSeparators(seps []string) Option {
	return func(s *Splitter) {
		if len(seps) > 0 {
			s.separators = seps
		}
	}
}

// New 创建分割器。非法参数会被修正：size<=0 使用默认值，
// overlap<0 视为 0，overlap>=size 时取 size/5。
func New(chunkSize, chunkOverlap int, opts ...Option) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}

	s := &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   DefaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Split 使用给定参数切分文本，等价于 New(size, overlap).Split(text)。
func Split(text string, chunkSize, chunkOverlap int) []string {
	return New(chunkSize, chunkOverlap).Split(text)
}

// ChunkSize 返回生效的块大小。
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// ChunkOverlap 返回生效的重叠大小。
func (s *Splitter) ChunkOverlap() int { return s.chunkOverlap }

// Split 切分文本。空文本（或仅含空白）返回空切片，结果中不会出现空块。
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	return s.splitRecursive(text, s.separators)
}

func (s *Splitter) splitRecursive(text string, separators []string) []string {
	chunks := make([]string, 0)

	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	pending := make([]string, 0)
	for _, piece := range splitKeep(text, separator) {
		if runeLen(piece) < s.chunkSize {
			pending = append(pending, piece)
			continue
		}

		if len(pending) > 0 {
			chunks = append(chunks, s.merge(pending)...)
			pending = pending[:0]
		}
		if len(rest) == 0 {
			if c := strings.TrimSpace(piece); c != "" {
				chunks = append(chunks, c)
			}
			continue
		}
		chunks = append(chunks, s.splitRecursive(piece, rest)...)
	}

	if len(pending) > 0 {
		chunks = append(chunks, s.merge(pending)...)
	}
	return chunks
}

// merge 将小片段合并为不超过 chunkSize 的块，并在相邻块之间保留
// 至多 chunkOverlap 字符的完整尾部片段。
func (s *Splitter) merge(pieces []string) []string {
	docs := make([]string, 0)
	window := make([]string, 0)
	total := 0

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > s.chunkSize && len(window) > 0 {
			if doc := strings.TrimSpace(strings.Join(window, "")); doc != "" {
				docs = append(docs, doc)
			}
			for len(window) > 0 && (total > s.chunkOverlap || total+n > s.chunkSize) {
				total -= runeLen(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += n
	}

	if len(window) > 0 {
		if doc := strings.TrimSpace(strings.Join(window, "")); doc != "" {
			docs = append(docs, doc)
		}
	}
	return docs
}

// splitKeep 按分隔符切分并把分隔符保留在前一片段末尾，空分隔符切到字符。
func splitKeep(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
