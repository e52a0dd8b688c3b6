package idmap

import (
	"runtime"
	"sync"
)

// DefaultChunkSize is the number of ids per work item in ParallelQuery.
const DefaultChunkSize = 5000

// WorkItem holds one chunk of ids to map.
type WorkItem struct {
	Seq int
	IDs []string
}

// WorkResult holds the mapping of a single chunk.
type WorkResult struct {
	Seq    int
	Result Result
	Err    error
}

// ParallelMap maps work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func (m *Mapper) ParallelMap(items <-chan WorkItem, source, target string, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				res, err := m.Query(item.IDs, source, target)
				results <- WorkResult{
					Seq:    item.Seq,
					Result: res,
					Err:    err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// Out-of-order results are buffered until the next expected sequence number
// arrives. Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// ParallelQuery is Query split into chunks of chunkSize ids mapped on a
// worker pool. Every id maps independently of the others, so the merged
// result equals the result of a single Query call.
func (m *Mapper) ParallelQuery(ids []string, source, target string, workers, chunkSize int) (Result, error) {
	if err := m.check(source, target); err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if len(ids) <= chunkSize {
		return m.Query(ids, source, target)
	}

	items := make(chan WorkItem)
	go func() {
		defer close(items)
		seq := 0
		for start := 0; start < len(ids); start += chunkSize {
			end := min(start+chunkSize, len(ids))
			items <- WorkItem{Seq: seq, IDs: ids[start:end]}
			seq++
		}
	}()

	var merged Result
	err := OrderedCollect(m.ParallelMap(items, source, target, workers), func(r WorkResult) error {
		if r.Err != nil {
			return r.Err
		}
		merged = append(merged, r.Result...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return postProcess(merged), nil
}
