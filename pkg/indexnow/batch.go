package indexnow

import "fmt"

// BatchURLs partitions urls into consecutive batches of at most maxSize,
// preserving order. Only the last batch may be smaller than maxSize and an
// empty list yields no batches. The batches share urls' backing array.
func BatchURLs(urls []string, maxSize int) ([][]string, error) {
	if urls == nil {
		return nil, fmt.Errorf("urls must be a list")
	}
	if maxSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", maxSize)
	}

	totalBatches := (len(urls) + maxSize - 1) / maxSize
	batches := make([][]string, 0, totalBatches)

	for i := 0; i < len(urls); i += maxSize {
		end := i + maxSize
		if end > len(urls) {
			end = len(urls)
		}
		batches = append(batches, urls[i:end:end])
	}

	return batches, nil
}
