package indexer

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/ragfuse/internal/digest"
	"github.com/hyperjump/ragfuse/internal/extract"
	"github.com/hyperjump/ragfuse/internal/models"
)

// Loader turns uploaded blobs into documents: it extracts pages by file type and normalizes them.
type Loader struct {
	extractor *extract.Extractor
}

// NewLoader creates a loader. A nil extractor uses extract.NewExtractor().
func NewLoader(extractor *extract.Extractor) *Loader {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	return &Loader{extractor: extractor}
}

// Load extracts and preprocesses input. The returned document may have no pages when the file
// holds no text; callers decide whether that is an error.
func (l *Loader) Load(input *models.DocumentInput) (*models.Document, error) {
	name := filepath.Base(strings.TrimSpace(input.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, models.NewDomainError(models.CodeInvalidInput, "document has no filename")
	}
	pages, err := l.extractor.ExtractFilename(name, input.Content)
	if err != nil {
		return nil, models.NewDomainErrorWithCause(models.CodeInvalidInput, fmt.Sprintf("cannot read %s", name), err)
	}
	return &models.Document{
		ID:          digest.DocumentID(name),
		Filename:    name,
		Pages:       PreprocessPages(pages),
		ContentHash: digest.ContentHash(input.Content),
		CreatedAt:   time.Now(),
	}, nil
}
