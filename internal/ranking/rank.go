// Package ranking maps a query embedding against the stored corpus and
// produces the sorted, filterable result list shown to users.
package ranking

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"sync"

	"github.com/norduniv/swaakon/internal/course"
	"github.com/norduniv/swaakon/internal/similarity"
	"go.uber.org/zap"
)

// ErrEmptyCorpus means no course had a comparable embedding at all. This
// points at an ingestion problem and is distinct from an empty result
// after filtering, which is an expected state.
var ErrEmptyCorpus = errors.New("ranking: no courses with embeddings available")

// Result is one ranked corpus course. The embedding itself is never
// serialized back out.
type Result struct {
	course.Course
	SimilarityPercent float64 `json:"similarity_percent"`
	Explanation       string  `json:"explanation,omitempty"`
}

// Rank scores the query embedding against every corpus course that has an
// embedding and returns the full list sorted by descending overlap
// percent. Corpus entries without an embedding are skipped and logged,
// never an error; the same applies to dimension mismatches, so one bad
// row cannot abort the whole ranking. The sort is stable: ties keep the
// original corpus order.
func Rank(ctx context.Context, query []float32, corpus []course.Course, logger *zap.Logger) ([]Result, error) {
	type scored struct {
		idx     int
		percent float64
		ok      bool
	}

	scores := make([]scored, len(corpus))

	// Each comparison is independent and read-only, so the corpus scan
	// parallelizes across a bounded worker pool.
	workers := runtime.GOMAXPROCS(0)
	if workers > len(corpus) {
		workers = len(corpus)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				c := corpus[i]
				if c.Embedding == nil {
					logger.Debug("skipping course without embedding",
						zap.String("code", c.Code))
					continue
				}
				percent, err := similarity.OverlapPercent(query, c.Embedding)
				if err != nil {
					logger.Warn("skipping course with incomparable embedding",
						zap.String("code", c.Code),
						zap.Error(err))
					continue
				}
				scores[i] = scored{idx: i, percent: percent, ok: true}
			}
		}()
	}
feed:
	for i := range corpus {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	comparable := 0
	for _, c := range corpus {
		if c.Embedding != nil {
			comparable++
		}
	}
	if comparable == 0 {
		return nil, ErrEmptyCorpus
	}

	results := make([]Result, 0, comparable)
	for i, s := range scores {
		if !s.ok {
			continue
		}
		r := Result{Course: corpus[i], SimilarityPercent: s.percent}
		r.Course.Embedding = nil
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SimilarityPercent > results[j].SimilarityPercent
	})
	return results, nil
}
