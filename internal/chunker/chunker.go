package chunker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/repoinsight/internal/model"
	"github.com/xxxsen/repoinsight/internal/pkg/errs"
)

// Split cuts a serialized repository payload into non-overlapping chunks of
// at most size characters. Concatenating the chunks in order reproduces the
// payload exactly. The payload must be valid JSON (the acquisition layer
// serializes commits and issues as JSON text); anything else is rejected
// with ErrMalformedInput instead of being silently dropped.
func Split(ctx context.Context, payload string, size int) ([]model.DocumentChunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", errs.ErrMalformedInput, size)
	}
	if payload == "" {
		return nil, nil
	}
	if !json.Valid([]byte(payload)) {
		return nil, fmt.Errorf("%w: payload is not valid json", errs.ErrMalformedInput)
	}

	runes := []rune(payload)
	chunks := make([]model.DocumentChunk, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, model.DocumentChunk{
			Text:     string(runes[start:end]),
			Sequence: len(chunks),
		})
	}
	logutil.GetLogger(ctx).Debug("payload chunked",
		zap.Int("payload_chars", len(runes)),
		zap.Int("chunk_size", size),
		zap.Int("chunks", len(chunks)),
	)
	return chunks, nil
}
