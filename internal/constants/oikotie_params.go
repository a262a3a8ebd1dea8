package constants

import (
	"oikotie-parser-service/internal/core/domain"
	"time"
)

const DefaultBaseURL = "https://asunnot.oikotie.fi/"

// Пути относительно базового URL
const (
	TokenPath  = "user/get"
	SearchPath = "api/search"
)

// MaxAdsRequest - размер батча: на столько сдвигается offset между запросами
const MaxAdsRequest = 48

// DefaultRequestDelay - пауза между последовательными запросами к api/search
const DefaultRequestDelay = 2 * time.Second

// Card Types
const (
	CardTypeHomesForSale = 100
)

// Sort Options
const (
	SortByPublishedDesc = "published_sort_desc"
)

// Locations
var (
	Uusimaa = domain.Location{ID: 2, Type: 7, Name: "Uusimaa"}
)

// DefaultLocations - регион по умолчанию для поиска
var DefaultLocations = []domain.Location{Uusimaa}

// Снимок
const (
	DefaultDataDir  = "./data"
	SnapshotPrefix  = "data"
	SnapshotFileExt = ".json"
)

const ParserName = "oikotie_homes_for_sale"
