package model

// DocumentChunk is a bounded-size fragment of a serialized repository
// payload. Chunks are immutable once produced; Sequence is insertion order.
type DocumentChunk struct {
	Text     string `json:"text"`
	Sequence int    `json:"sequence"`
}

// StoredDocument is one (text, embedding) pair persisted in a collection.
type StoredDocument struct {
	ID         string    `json:"id"`
	Collection string    `json:"collection"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding"`
}
