package chunker

import (
	"regexp"
	"strconv"
	"strings"

	"ragagent/internal/domain"
)

// SentenceChunker splits text into sentence-based chunks with overlap.
// Each chunk is emitted as a derived record whose metadata carries the
// parent document id and chunk index.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
	splitter          *regexp.Regexp
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		splitter:          regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}
}

func (c *SentenceChunker) Chunk(document domain.Document) ([]domain.Document, error) {
	sentences := c.splitter.FindAllString(document.Text, -1)
	if len(sentences) == 0 {
		trimmed := strings.TrimSpace(document.Text)
		if trimmed == "" {
			return nil, nil
		}
		sentences = []string{trimmed}
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}
	var chunks []domain.Document
	i := 0
	idx := 0
	for i < len(sentences) {
		end := i + c.sentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		text := strings.Join(sentences[i:end], " ")
		meta := map[string]string{
			"document_id": document.ID,
			"chunk_index": strconv.Itoa(idx),
		}
		for k, v := range document.Metadata {
			if _, taken := meta[k]; !taken {
				meta[k] = v
			}
		}
		chunks = append(chunks, domain.Document{
			ID:       document.ID + ":" + strconv.Itoa(idx),
			Text:     text,
			Metadata: meta,
		})
		if end == len(sentences) {
			break
		}
		i = end - c.overlapSentences
		if i < 0 {
			i = 0
		}
		idx++
	}
	return chunks, nil
}
