package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrLegalDocNotFound = errors.New("legal document not found")

// legalDocs whitelists the servable documents; anything else 404s so the
// content directory can never be traversed.
var legalDocs = map[string]string{
	"terms":   "terms.md",
	"privacy": "privacy.md",
	"imprint": "imprint.md",
}

type LegalService interface {
	GetDocument(slug string) ([]byte, error)
}

type legalService struct {
	contentDir string
}

func NewLegalService(contentDir string) LegalService {
	return &legalService{contentDir: contentDir}
}

func (s *legalService) GetDocument(slug string) ([]byte, error) {
	filename, ok := legalDocs[slug]
	if !ok {
		return nil, ErrLegalDocNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.contentDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrLegalDocNotFound
		}
		return nil, fmt.Errorf("read legal document %s: %w", slug, err)
	}
	return data, nil
}
