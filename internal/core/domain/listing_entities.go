package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Listing - одна карточка объявления (card) в том виде, в котором её вернул API.
// Поля карточки не интерпретируются, порядок ключей сохраняется до записи снимка
type Listing json.RawMessage

func (l Listing) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("null"), nil
	}
	return l, nil
}

func (l *Listing) UnmarshalJSON(data []byte) error {
	*l = append((*l)[0:0], data...)
	return nil
}

// Location - элемент фильтра locations: [id, type, name]
type Location struct {
	ID   int
	Type int
	Name string
}

func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{l.ID, l.Type, l.Name})
}

// SearchCriteria определяет параметры одного запроса к api/search
type SearchCriteria struct {
	CardType  int
	Limit     int
	Offset    int
	Locations []Location
	SortBy    string
}

// CollectRequest - входные данные одного запуска сборщика
type CollectRequest struct {
	AdsAmount int
}

// RunRecord описывает завершённый запуск: куда записан снимок и сколько в нём карточек
type RunRecord struct {
	RunID          uuid.UUID
	ParserName     string
	FilePath       string
	RequestedCount int
	CollectedCount int
	Batches        int
	StartedAt      time.Time
	FinishedAt     time.Time
}
