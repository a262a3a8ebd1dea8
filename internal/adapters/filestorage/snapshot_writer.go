package filestorage

import (
	"context"
	"encoding/json"
	"fmt"
	"oikotie-parser-service/internal/contextkeys"
	"oikotie-parser-service/internal/core/domain"
	"oikotie-parser-service/internal/core/port"
	"os"
	"path/filepath"
	"time"
)

// SnapshotWriterAdapter пишет накопленные карточки одним JSON-массивом в каталог DataDir
type SnapshotWriterAdapter struct {
	dataDir string
	prefix  string
	fileExt string
	now     func() time.Time
}

// NewSnapshotWriterAdapter - конструктор. Каталог не создается: он должен существовать заранее
func NewSnapshotWriterAdapter(dataDir, prefix, fileExt string) (*SnapshotWriterAdapter, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("snapshot writer: data dir cannot be empty")
	}
	if prefix == "" {
		return nil, fmt.Errorf("snapshot writer: file prefix cannot be empty")
	}
	return &SnapshotWriterAdapter{
		dataDir: dataDir,
		prefix:  prefix,
		fileExt: fileExt,
		now:     time.Now,
	}, nil
}

// Save формирует имя файла по текущему времени и записывает снимок
func (w *SnapshotWriterAdapter) Save(ctx context.Context, listings []domain.Listing) (string, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	writerLogger := logger.WithFields(port.Fields{"component": "SnapshotWriterAdapter"})

	filename := FormatFilenameWithTimestamp(w.prefix, w.fileExt, w.now())
	path := filepath.Join(w.dataDir, filename)

	if err := WriteListings(path, listings); err != nil {
		writerLogger.Error("Failed to write snapshot", err, port.Fields{"path": path})
		return "", err
	}

	writerLogger.Info("Snapshot written", port.Fields{"path": path, "listings": len(listings)})
	return path, nil
}

// WriteListings сериализует карточки в path: отступ 4 пробела,
// не-ASCII символы и HTML-символы пишутся как есть, даже если API прислал их в виде \uXXXX
func WriteListings(path string, listings []domain.Listing) error {
	cards := make([]json.RawMessage, 0, len(listings))
	for i, listing := range listings {
		card, err := literalJSON(listing)
		if err != nil {
			return fmt.Errorf("snapshot writer: card %d is not valid JSON: %w", i, err)
		}
		cards = append(cards, card)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("snapshot writer: failed to create %s: %w", path, err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(cards); err != nil {
		_ = f.Close()
		return fmt.Errorf("snapshot writer: failed to encode listings to %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("snapshot writer: failed to close %s: %w", path, err)
	}
	return nil
}
