package core

// BatchOutcome records the failure of one processing batch during indexing.
// Start and End are offsets into the chunk sequence; End is exclusive.
type BatchOutcome struct {
	BatchNumber int // 1-based
	Start       int
	End         int
	Err         error
}

// IndexingResult aggregates the outcome of indexing one document or text
// submission. Failed batches are recorded, never raised: callers inspect
// SuccessRate and FailedBatches to decide whether to retry or alert.
type IndexingResult struct {
	TotalChunks   int
	ChunksIndexed int
	FailedBatches []BatchOutcome
}

// SuccessRate returns the fraction of chunks that were successfully indexed.
// An empty submission counts as fully successful.
func (r *IndexingResult) SuccessRate() float64 {
	if r.TotalChunks == 0 {
		return 1.0
	}
	return float64(r.ChunksIndexed) / float64(r.TotalChunks)
}
