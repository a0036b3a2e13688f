package job

// ChunkParams describes how a task's frame range splits into chunks.
type ChunkParams struct {
	Start      int
	End        int
	PacketSize int
}

// Chunk is one contiguous slice of a task's frame range.
type Chunk struct {
	Iteration int
	Start     int
	End       int
}

// SplitChunks partitions [params.Start, params.End] into chunks of at most
// PacketSize frames. A nil params or an empty range yields no chunks.
func SplitChunks(params *ChunkParams) []Chunk {
	if params == nil || params.End < params.Start {
		return nil
	}
	size := params.PacketSize
	if size < 1 {
		size = 1
	}

	var chunks []Chunk
	for start := params.Start; start <= params.End; start += size {
		end := start + size - 1
		if end > params.End {
			end = params.End
		}
		chunks = append(chunks, Chunk{Iteration: len(chunks), Start: start, End: end})
	}
	return chunks
}
