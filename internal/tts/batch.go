package tts

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/iabetor/speakit/internal/audio"
	"github.com/iabetor/speakit/internal/logger"
	"github.com/iabetor/speakit/internal/text"
)

// ProgressFunc 在每段合成完成后调用。completed 单调递增，不会重复计数。
type ProgressFunc func(completed, total int)

// SynthesizeAll 并发合成所有分段，全部完成后按 Index 排序返回。
// 任意一段失败即放弃整批（已完成的结果一并丢弃），其余在途请求随 ctx 取消。
func SynthesizeAll(ctx context.Context, client Client, chunks []text.Chunk, voice string, rate float64, progress ProgressFunc) ([]audio.EncodedAudio, error) {
	total := len(chunks)
	if total == 0 {
		return nil, nil
	}
	recordBatch(ctx, total)

	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	results := make([]audio.EncodedAudio, 0, total)

	for _, c := range chunks {
		c := c
		g.Go(func() error {
			content, err := client.Synthesize(gctx, Request{Text: c.Text, Voice: voice, Rate: rate})
			if err != nil {
				logger.Warnf("[tts] 第 %d/%d 段合成失败: %v", c.Index+1, total, err)
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			results = append(results, audio.EncodedAudio{Index: c.Index, Content: content})
			if progress != nil {
				progress(len(results), total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	logger.Debugf("[tts] %d 段合成完成", total)
	return results, nil
}
