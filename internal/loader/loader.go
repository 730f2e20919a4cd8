// Package loader loads documents from local sources for indexing.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/extract"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/progress"
)

// DefaultLanguage is the language tag recorded on every loaded document.
const DefaultLanguage = "indonesian"

// Loader loads documents from a source identifier (for FileLoader, a
// directory path).
type Loader interface {
	Load(source string) ([]models.Document, error)
}

// FileLoader walks a directory recursively and loads every file with an
// allowed extension. Unreadable files are skipped with a logged error, not
// fatal to the batch.
type FileLoader struct {
	extensions []string
	extractor  *extract.Extractor
	language   string
	logger     *zap.Logger
	sink       progress.Sink
}

// FileLoaderOption configures a FileLoader.
type FileLoaderOption func(*FileLoader)

// WithExtensions overrides the allowed file extensions (default ".txt").
func WithExtensions(exts []string) FileLoaderOption {
	return func(l *FileLoader) { l.extensions = exts }
}

// WithProgress sets the progress sink used while loading.
func WithProgress(sink progress.Sink) FileLoaderOption {
	return func(l *FileLoader) { l.sink = sink }
}

// NewFileLoader creates a loader for local files. logger may be nil.
func NewFileLoader(logger *zap.Logger, opts ...FileLoaderOption) *FileLoader {
	l := &FileLoader{
		extensions: []string{".txt"},
		extractor:  extract.NewExtractor(),
		language:   DefaultLanguage,
		logger:     logger,
		sink:       progress.NopSink{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load walks source recursively and returns one Document per readable file
// with an allowed extension. Returns an error only if source is not a
// directory.
func (l *FileLoader) Load(source string) ([]models.Document, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", source)
	}

	var paths []string
	err = filepath.WalkDir(source, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			if l.logger != nil {
				l.logger.Error("walk failed", zap.String("path", path), zap.Error(walkErr))
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !l.extensionAllowed(filepath.Ext(path)) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	l.sink.Start("Memuat dokumen", len(paths))
	defer l.sink.Done()

	docs := make([]models.Document, 0, len(paths))
	for _, path := range paths {
		content, err := l.extractor.Extract(path)
		if err != nil {
			if l.logger != nil {
				l.logger.Error("load file failed", zap.String("path", path), zap.Error(err))
			}
			l.sink.Increment(1)
			continue
		}
		docs = append(docs, models.Document{
			Content:  content,
			Source:   path,
			Language: l.language,
			Size:     len(content),
		})
		l.sink.Increment(1)
	}

	if l.logger != nil {
		l.logger.Info("documents loaded",
			zap.String("directory", source),
			zap.Int("files", len(paths)),
			zap.Int("loaded", len(docs)),
		)
	}
	return docs, nil
}

// LoadFile loads a single file as one document.
func (l *FileLoader) LoadFile(path string) (models.Document, error) {
	content, err := l.extractor.Extract(path)
	if err != nil {
		return models.Document{}, fmt.Errorf("load file: %w", err)
	}
	return models.Document{
		Content:  content,
		Source:   path,
		Language: l.language,
		Size:     len(content),
	}, nil
}

func (l *FileLoader) extensionAllowed(ext string) bool {
	ext = strings.ToLower(ext)
	for _, a := range l.extensions {
		if strings.ToLower(a) == ext {
			return true
		}
	}
	return false
}
