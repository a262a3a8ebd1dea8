package usecases_port

import (
	"context"
	"oikotie-parser-service/internal/core/domain"
)

type CollectListingsPort interface {
	Execute(ctx context.Context, request domain.CollectRequest) (*domain.RunRecord, error)
}
