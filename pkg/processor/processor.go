package processor

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xhad/docqa/internal/models"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// ErrInvalidChunkConfig is returned when the window cannot advance.
var ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

// ProcessorConfig sizes are counted in characters (runes).
type ProcessorConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

type Processor struct {
	config ProcessorConfig
}

func DefaultConfig() ProcessorConfig {
	return ProcessorConfig{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
	}
}

// NewWithConfig rejects configurations where the window would not move
// forward (overlap >= size), since chunking would never terminate.
func NewWithConfig(config ProcessorConfig) (*Processor, error) {
	if config.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunkConfig, config.ChunkSize)
	}
	if config.ChunkOverlap < 0 || config.ChunkOverlap >= config.ChunkSize {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d",
			ErrInvalidChunkConfig, config.ChunkSize, config.ChunkOverlap)
	}

	return &Processor{
		config: config,
	}, nil
}

func (p *Processor) Config() ProcessorConfig {
	return p.config
}

// Chunk splits text into fixed windows of ChunkSize runes, each starting
// ChunkSize-ChunkOverlap runes after the previous one. Boundaries are purely
// positional. The final windows may be shorter than ChunkSize.
func (p *Processor) Chunk(text string) []models.Chunk {
	runes := []rune(text)
	step := p.config.ChunkSize - p.config.ChunkOverlap

	var chunks []models.Chunk
	for start := 0; start < len(runes); start += step {
		end := start + p.config.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, models.Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
		})
	}

	return chunks
}

// Process cleans a document and splits it into chunks.
func (p *Processor) Process(doc models.Document) []models.Chunk {
	return p.Chunk(CleanText(doc.Text))
}

// CleanText drops invalid UTF-8 and NUL bytes. PDF extraction produces both
// and PostgreSQL text columns reject them.
func CleanText(text string) string {
	text = sanitizeUTF8(text)
	return strings.ReplaceAll(text, "\x00", "")
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
