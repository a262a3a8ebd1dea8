package usecase

import (
	"context"
	"fmt"
	"time"

	"oikotie-parser-service/internal/constants"
	"oikotie-parser-service/internal/contextkeys"
	"oikotie-parser-service/internal/core/domain"
	"oikotie-parser-service/internal/core/port"

	"github.com/google/uuid"
)

// CollectorSettings - параметры пагинации
type CollectorSettings struct {
	BatchSize    int           // шаг offset между запросами
	RequestDelay time.Duration // пауза между последовательными запросами
	Locations    []domain.Location
}

// CollectListingsUseCase авторизуется, постранично выкачивает карточки и сохраняет снимок
type CollectListingsUseCase struct {
	fetcher  port.OikotieFetcherPort
	writer   port.SnapshotWriterPort
	journal  port.RunJournalPort       // может быть nil
	notifier port.SnapshotNotifierPort // может быть nil
	settings CollectorSettings

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewCollectListingsUseCase создает новый экземпляр CollectListingsUseCase
func NewCollectListingsUseCase(
	fetcher port.OikotieFetcherPort,
	writer port.SnapshotWriterPort,
	journal port.RunJournalPort,
	notifier port.SnapshotNotifierPort,
	settings CollectorSettings,
) *CollectListingsUseCase {
	if settings.BatchSize <= 0 {
		settings.BatchSize = constants.MaxAdsRequest
	}
	if settings.Locations == nil {
		settings.Locations = constants.DefaultLocations
	}
	return &CollectListingsUseCase{
		fetcher:  fetcher,
		writer:   writer,
		journal:  journal,
		notifier: notifier,
		settings: settings,
		sleep:    sleepContext,
		now:      time.Now,
	}
}

// PlanBatches возвращает критерии для каждого запроса к api/search.
// limit всегда равен исходному n, батчи задаются только сдвигом offset.
func PlanBatches(n, batchSize int, locations []domain.Location) []domain.SearchCriteria {
	batches := 1
	if n > batchSize {
		batches = (n + batchSize - 1) / batchSize
	}

	plan := make([]domain.SearchCriteria, 0, batches)
	for i := 0; i < batches; i++ {
		plan = append(plan, domain.SearchCriteria{
			CardType:  constants.CardTypeHomesForSale,
			Limit:     n,
			Offset:    i * batchSize,
			Locations: locations,
			SortBy:    constants.SortByPublishedDesc,
		})
	}
	return plan
}

// Execute запускает один полный цикл: auth -> fetch -> save.
// При ошибке любого запроса снимок не пишется
func (uc *CollectListingsUseCase) Execute(ctx context.Context, request domain.CollectRequest) (*domain.RunRecord, error) {
	runID := uuid.New()

	baseLogger := contextkeys.LoggerFromContext(ctx)
	ucLogger := baseLogger.WithFields(port.Fields{
		"use_case": "CollectListings",
		"run_id":   runID.String(),
	})
	ctx = contextkeys.ContextWithLogger(ctx, ucLogger)

	startedAt := uc.now()
	ucLogger.Info("Starting to collect listings", port.Fields{"n_adverts": request.AdsAmount})

	if uc.journal != nil {
		lastRun, err := uc.journal.LastRun(ctx, constants.ParserName)
		if err != nil {
			ucLogger.Warn("Could not get previous run from journal", port.Fields{"error": err.Error()})
		} else if lastRun != nil {
			ucLogger.Info("Previous run found", port.Fields{
				"previous_run_id":    lastRun.RunID.String(),
				"previous_file_path": lastRun.FilePath,
				"previous_finished":  lastRun.FinishedAt,
			})
		}
	}

	session, err := uc.fetcher.Authenticate(ctx)
	if err != nil {
		ucLogger.Error("Authentication request failed", err, nil)
		return nil, fmt.Errorf("use case: authentication failed: %w", err)
	}
	if session == nil {
		ucLogger.Warn("No credentials obtained, search requests will be sent without Ota headers", nil)
	}

	listings, batches, err := uc.FetchAll(ctx, session, request.AdsAmount)
	if err != nil {
		return nil, err
	}

	path, err := uc.writer.Save(ctx, listings)
	if err != nil {
		ucLogger.Error("Failed to save snapshot", err, nil)
		return nil, fmt.Errorf("use case: failed to save snapshot: %w", err)
	}

	run := domain.RunRecord{
		RunID:          runID,
		ParserName:     constants.ParserName,
		FilePath:       path,
		RequestedCount: request.AdsAmount,
		CollectedCount: len(listings),
		Batches:        batches,
		StartedAt:      startedAt,
		FinishedAt:     uc.now(),
	}

	// снимок уже на диске, поэтому сбои журнала и уведомлений только логируются
	if uc.journal != nil {
		if err := uc.journal.RecordRun(ctx, run); err != nil {
			ucLogger.Error("Error recording run in journal", err, nil)
		}
	}
	if uc.notifier != nil {
		if err := uc.notifier.NotifySnapshotSaved(ctx, run); err != nil {
			ucLogger.Error("Error publishing snapshot notification", err, nil)
		}
	}

	ucLogger.Info("Finished collecting listings", port.Fields{
		"requested": run.RequestedCount,
		"collected": run.CollectedCount,
		"batches":   run.Batches,
		"path":      run.FilePath,
	})
	return &run, nil
}

// FetchAll выполняет все запросы по плану и склеивает карточки в порядке запросов, без дедупликации
func (uc *CollectListingsUseCase) FetchAll(ctx context.Context, session *domain.Session, n int) ([]domain.Listing, int, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	plan := PlanBatches(n, uc.settings.BatchSize, uc.settings.Locations)

	listings := make([]domain.Listing, 0)
	for i, criteria := range plan {
		if i > 0 {
			if err := uc.sleep(ctx, uc.settings.RequestDelay); err != nil {
				return nil, i, err
			}
		}

		batchLogger := logger.WithFields(port.Fields{
			"batch":  i + 1,
			"of":     len(plan),
			"offset": criteria.Offset,
			"limit":  criteria.Limit,
		})
		batchLogger.Debug("Fetching batch", nil)

		cards, err := uc.fetcher.FetchCards(ctx, session, criteria)
		if err != nil {
			batchLogger.Error("Error fetching batch", err, nil)
			return nil, i + 1, fmt.Errorf("use case: error fetching batch %d (offset %d): %w", i+1, criteria.Offset, err)
		}

		listings = append(listings, cards...)
		batchLogger.Debug("Batch fetched", port.Fields{"cards": len(cards), "total": len(listings)})
	}

	return listings, len(plan), nil
}

// sleepContext ждет d или отмены контекста
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
