// Package chunk provides slice partitioning helpers for batched database work.
package chunk

// Slices partitions items into consecutive chunks of at most size elements.
// The returned chunks share backing storage with items. A non-positive size
// yields a single chunk containing everything.
func Slices[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]T{items}
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
