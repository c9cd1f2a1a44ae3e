package micron

import "sync"

// BatchResult pairs one raw buffer's outcome with its position in the
// batch: either an assembled Ensemble or the localised failure reason.
type BatchResult struct {
	Index    int
	Ensemble *Ensemble
	Err      error
}

// DecodeBatch decodes an ordered sequence of raw buffers. One malformed
// record never aborts the batch; its slot carries the error instead.
// Results are returned in input order.
func (d *Decoder) DecodeBatch(buffers [][]byte, ctx Context) []BatchResult {
	results := make([]BatchResult, len(buffers))
	for i, raw := range buffers {
		e, err := d.Decode(raw, ctx)
		results[i] = BatchResult{Index: i, Ensemble: e, Err: err}
	}
	return results
}

// DecodeBatchParallel decodes a batch across the given number of worker
// goroutines. Ensembles are independent and Decode has no shared mutable
// state, so the split is by index only; results stay in input order.
func (d *Decoder) DecodeBatchParallel(buffers [][]byte, ctx Context, workers int) []BatchResult {
	if workers <= 1 || len(buffers) < 2 {
		return d.DecodeBatch(buffers, ctx)
	}
	if workers > len(buffers) {
		workers = len(buffers)
	}

	results := make([]BatchResult, len(buffers))
	next := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				e, err := d.Decode(buffers[i], ctx)
				results[i] = BatchResult{Index: i, Ensemble: e, Err: err}
			}
		}()
	}
	for i := range buffers {
		next <- i
	}
	close(next)
	wg.Wait()

	return results
}
