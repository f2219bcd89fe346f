package translate

import (
	"context"
	"strings"
	"sync"
	"time"

	"pdf-trans/internal/logger"
	"pdf-trans/internal/pdf"
)

// DefaultConcurrency bounds in-flight block requests
const DefaultConcurrency = 8

// BlockSeparator joins the lines of a block into one request
const BlockSeparator = "\n"

// ProgressCallback reports completed blocks out of total
type ProgressCallback func(completed, total int)

// BlockTranslation is the result for one block
type BlockTranslation struct {
	BlockID    string `json:"block_id"`
	Original   string `json:"original"`
	Translated string `json:"translated"` // empty when the request failed
}

// Service translates page segments block by block
type Service struct {
	gateway     Gateway
	concurrency int
}

// NewService creates a Service; concurrency <= 0 selects the default
func NewService(gateway Gateway, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Service{gateway: gateway, concurrency: concurrency}
}

// Gateway returns the backend in use
func (s *Service) Gateway() Gateway { return s.gateway }

// GetConcurrency returns the configured concurrency level
func (s *Service) GetConcurrency() int { return s.concurrency }

// blockKey groups a segment; segments without a block stand alone
func blockKey(seg pdf.Segment) string {
	if seg.BlockID != "" {
		return seg.BlockID
	}
	return seg.ID
}

type blockText struct {
	id    string
	lines []string
}

// groupBlocks collects segment texts per block in first-appearance order
func groupBlocks(segments []pdf.Segment) []blockText {
	var blocks []blockText
	index := make(map[string]int)
	for _, seg := range segments {
		key := blockKey(seg)
		i, ok := index[key]
		if !ok {
			i = len(blocks)
			index[key] = i
			blocks = append(blocks, blockText{id: key})
		}
		blocks[i].lines = append(blocks[i].lines, seg.Text)
	}
	return blocks
}

// TranslateSegments sends one request per block concurrently and returns
// the results in block order. A failed block gets an empty translation
// and is logged; only a cancelled ctx fails the call.
func (s *Service) TranslateSegments(ctx context.Context, segments []pdf.Segment, source, target string) ([]BlockTranslation, error) {
	return s.TranslateSegmentsWithProgress(ctx, segments, source, target, nil)
}

// TranslateSegmentsWithProgress is TranslateSegments with a progress
// callback invoked after each block completes.
func (s *Service) TranslateSegmentsWithProgress(ctx context.Context, segments []pdf.Segment, source, target string, progress ProgressCallback) ([]BlockTranslation, error) {
	blocks := groupBlocks(segments)
	results := make([]BlockTranslation, len(blocks))
	if len(blocks) == 0 {
		return results, nil
	}

	start := time.Now()
	sem := make(chan struct{}, s.concurrency)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
		failed    int
	)

	for i, b := range blocks {
		text := strings.Join(b.lines, BlockSeparator)
		results[i] = BlockTranslation{BlockID: b.id, Original: text}

		wg.Add(1)
		go func(idx int, blockID, text string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			translated, err := s.gateway.Translate(ctx, text, source, target)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				if ctx.Err() == nil {
					logger.Warn("block translation failed",
						logger.String("block", blockID),
						logger.String("backend", s.gateway.Name()),
						logger.Err(err))
				}
			} else {
				results[idx].Translated = translated
			}
			completed++
			if progress != nil {
				progress(completed, len(results))
			}
		}(i, b.id, text)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("page translated",
		logger.Int("blocks", len(results)),
		logger.Int("failed", failed),
		logger.Duration("elapsed", time.Since(start)))
	return results, nil
}

// TranslationMap returns the translations keyed by block id
func TranslationMap(results []BlockTranslation) map[string]string {
	m := make(map[string]string, len(results))
	for _, r := range results {
		m[r.BlockID] = r.Translated
	}
	return m
}

// BuildTranslatedSegments emits one segment per block with a non-empty
// translation, covering the union of the block's line rectangles and
// styled like its first line.
func BuildTranslatedSegments(original []pdf.Segment, translations []BlockTranslation) []pdf.Segment {
	type blockGeom struct {
		first pdf.Segment
		rect  pdf.Rect
	}
	geoms := make(map[string]*blockGeom)
	for _, seg := range original {
		key := blockKey(seg)
		g, ok := geoms[key]
		if !ok {
			geoms[key] = &blockGeom{first: seg, rect: seg.Rect}
			continue
		}
		g.rect = g.rect.Union(seg.Rect)
	}

	out := make([]pdf.Segment, 0, len(translations))
	for _, t := range translations {
		if t.Translated == "" {
			continue
		}
		g, ok := geoms[t.BlockID]
		if !ok {
			continue
		}
		out = append(out, pdf.Segment{
			ID:         pdf.TranslatedPrefix + t.BlockID,
			Text:       t.Translated,
			Rect:       g.rect,
			FontFamily: g.first.FontFamily,
			FontSize:   g.first.FontSize,
			FontColor:  g.first.FontColor,
			IsBold:     g.first.IsBold,
			IsItalic:   g.first.IsItalic,
			BlockID:    t.BlockID,
		})
	}
	return out
}
