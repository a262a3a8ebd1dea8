package port

import (
	"context"
	"oikotie-parser-service/internal/core/domain"
)

type SnapshotNotifierPort interface {
	NotifySnapshotSaved(ctx context.Context, run domain.RunRecord) error
}
