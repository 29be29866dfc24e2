package ingest

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"

	"github.com/abhisek/benchgen/internal/config"
)

// LoadChunks reads every configured input file and returns its chunks in
// document order. Chunking slides a word window of MaxChunkWords with
// OverlapWords of overlap between consecutive windows.
func LoadChunks(cfg config.IngestionConfig) ([]Chunk, error) {
	var chunks []Chunk
	for _, path := range cfg.InputPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read document %s: %w", path, err)
		}

		meta := map[string]string{
			"title": filepath.Base(path),
			"path":  path,
		}
		chunks = append(chunks, chunkText(documentID(path), string(data), meta, cfg.MaxChunkWords, cfg.OverlapWords)...)
	}
	return chunks, nil
}

// documentID derives a stable ID from the file path. The basename keeps
// IDs readable; the path hash keeps inputs with the same basename in
// different directories from colliding.
func documentID(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	h := fnv.New32a()
	h.Write([]byte(path))
	return fmt.Sprintf("%s-%08x", base, h.Sum32())
}

// chunkText splits text into overlapping word windows.
func chunkText(docID, text string, meta map[string]string, maxWords, overlap int) []Chunk {
	if maxWords <= 0 {
		maxWords = 512
	}
	step := maxWords - overlap
	if step <= 0 {
		step = maxWords
	}

	words := strings.Fields(text)
	var chunks []Chunk
	n := 0
	for start := 0; start < len(words); start += step {
		end := min(start+maxWords, len(words))
		chunkText := strings.Join(words[start:end], " ")
		if strings.TrimSpace(chunkText) == "" {
			continue
		}
		n++
		chunks = append(chunks, Chunk{
			ID:         fmt.Sprintf("%s-%d", docID, n),
			DocumentID: docID,
			Text:       chunkText,
			Metadata:   meta,
		})
		if end == len(words) {
			break
		}
	}
	return chunks
}
