package models

// Document is a unit of ingested content, typically one uploaded PDF or one scraped page.
type Document struct {
	ID       string
	Filename string
	Text     string
	Metadata map[string]interface{}
}

// Chunk is a window of a document's text.
type Chunk struct {
	Index int
	Text  string
}

// RecordMetadata is the metadata stored next to every embedding.
type RecordMetadata struct {
	Text       string `json:"text"`
	Filename   string `json:"filename"`
	DocumentID string `json:"docId"`
	ChunkIndex int    `json:"chunkIndex"`
}

// VectorRecord is one embedded chunk as written to the vector index.
type VectorRecord struct {
	ID       string
	Values   []float32
	Metadata RecordMetadata
}

// Match is a vector index hit. Higher scores are more similar.
type Match struct {
	ID       string
	Score    float32
	Metadata RecordMetadata
}

// Answer is the result of a question against the indexed documents.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
}

// IngestResult summarizes one document ingestion.
type IngestResult struct {
	DocumentID string
	Filename   string
	Chunks     int
	Embedded   int
	Batches    int
}
