package port

import (
	"context"
	"oikotie-parser-service/internal/core/domain"
)

// RunJournalPort хранит историю запусков сборщика
type RunJournalPort interface {
	// LastRun возвращает предыдущий запуск парсера или nil, если запусков не было
	LastRun(ctx context.Context, parserName string) (*domain.RunRecord, error)
	RecordRun(ctx context.Context, run domain.RunRecord) error
}
