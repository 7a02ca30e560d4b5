package docstore

import (
	"bufio"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ragagent/internal/domain"
	xerrors "ragagent/internal/pkg/errors"
)

// Load reads the corpus from the given sources and returns immutable records.
// Each source may be a glob pattern. Plain .txt files become one record each;
// .jsonl files contain one JSON record per line with fields id, text and an
// optional metadata object.
//
// Returns ErrLoad when a source is unreadable, a record is missing its id or
// text, or two records share an id.
func Load(sources []string) ([]domain.Document, error) {
	var docs []domain.Document
	seen := make(map[string]struct{})
	for _, src := range sources {
		matches, _ := filepath.Glob(src)
		if matches == nil {
			matches = []string{src}
		}
		for _, path := range matches {
			loaded, err := loadFile(path)
			if err != nil {
				return nil, err
			}
			for _, d := range loaded {
				if _, dup := seen[d.ID]; dup {
					return nil, fmt.Errorf("%w: duplicate document id %q in %s", xerrors.ErrLoad, d.ID, path)
				}
				seen[d.ID] = struct{}{}
				docs = append(docs, d)
			}
		}
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents found", xerrors.ErrLoad)
	}
	return docs, nil
}

func loadFile(path string) ([]domain.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		return loadJSONL(path)
	case ".txt":
		return loadText(path)
	default:
		return nil, nil
	}
}

func loadText(path string) ([]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrLoad, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, nil
	}
	doc := domain.Document{
		ID:   hashString(path),
		Text: text,
		Metadata: map[string]string{
			"source": path,
			"title":  strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		},
	}
	return []domain.Document{doc}, nil
}

type jsonlRecord struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

func loadJSONL(path string) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrLoad, err)
	}
	defer f.Close()

	var docs []domain.Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var rec jsonlRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", xerrors.ErrLoad, path, line, err)
		}
		if rec.ID == "" {
			return nil, fmt.Errorf("%w: %s line %d: missing id", xerrors.ErrLoad, path, line)
		}
		if rec.Text == "" {
			return nil, fmt.Errorf("%w: %s line %d: missing text", xerrors.ErrLoad, path, line)
		}
		meta := rec.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		if meta["source"] == "" {
			meta["source"] = path
		}
		docs = append(docs, domain.Document{ID: rec.ID, Text: rec.Text, Metadata: meta})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", xerrors.ErrLoad, path, err)
	}
	return docs, nil
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
