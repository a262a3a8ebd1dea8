package port

import (
	"context"
	"oikotie-parser-service/internal/core/domain"
)

// OikotieFetcherPort объединяет все операции, которые можно выполнить
// с API Oikotie.
type OikotieFetcherPort interface {
	// Authenticate получает токен. Если сервер ответил не 200, возвращает (nil, nil):
	// дальнейшие запросы уйдут без Ota-* заголовков.
	Authenticate(ctx context.Context) (*domain.Session, error)

	// FetchCards выполняет один запрос к api/search и возвращает карточки из поля "cards".
	FetchCards(ctx context.Context, session *domain.Session, criteria domain.SearchCriteria) ([]domain.Listing, error)
}
