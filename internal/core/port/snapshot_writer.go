package port

import (
	"context"
	"oikotie-parser-service/internal/core/domain"
)

// SnapshotWriterPort сохраняет накопленные карточки и возвращает путь к снимку
type SnapshotWriterPort interface {
	Save(ctx context.Context, listings []domain.Listing) (string, error)
}
