package oikotiefetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"oikotie-parser-service/internal/constants"
	"oikotie-parser-service/internal/contextkeys"
	"oikotie-parser-service/internal/core/domain"
	"oikotie-parser-service/internal/core/port"
	"strconv"

	"github.com/gocolly/colly/v2"
)

func (a *OikotieFetcherAdapter) buildSearchURL(criteria domain.SearchCriteria) (string, error) {
	locations, err := json.Marshal(criteria.Locations)
	if err != nil {
		return "", fmt.Errorf("failed to encode locations: %w", err)
	}

	q := url.Values{}
	q.Set("cardType", strconv.Itoa(criteria.CardType))
	q.Set("limit", strconv.Itoa(criteria.Limit))
	q.Set("locations", string(locations))
	q.Set("offset", strconv.Itoa(criteria.Offset))
	if criteria.SortBy != "" {
		q.Set("sortBy", criteria.SortBy)
	}

	return a.endpoint(constants.SearchPath, q), nil
}

// FetchCards выполняет один запрос к api/search.
// Любая ошибка (сеть, статус не 2xx, битый JSON, нет ключа "cards") возвращается вызывающему
func (a *OikotieFetcherAdapter) FetchCards(ctx context.Context, session *domain.Session, criteria domain.SearchCriteria) ([]domain.Listing, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	fetchLogger := logger.WithFields(port.Fields{"component": "OikotieFetcherAdapter(FetchCards)"})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	targetURL, err := a.buildSearchURL(criteria)
	if err != nil {
		return nil, fmt.Errorf("OikotieFetcherAdapter: failed to build URL from criteria: %w", err)
	}

	collector := a.newCollector(ctx)

	var cards []domain.Listing
	var responseErr error

	collector.OnRequest(func(r *colly.Request) {
		fetchLogger.Debug("Making request to fetch cards", port.Fields{
			"url":           r.URL.String(),
			"authenticated": session != nil,
		})
	})

	collector.OnResponse(func(r *colly.Response) {
		if r.StatusCode/100 != 2 {
			fetchLogger.Warn("Search request rejected", port.Fields{
				"url":    r.Request.URL.String(),
				"status": r.StatusCode,
			})
			responseErr = fmt.Errorf("OikotieFetcherAdapter: request to %s failed with status %d", r.Request.URL, r.StatusCode)
			return
		}

		var data map[string]json.RawMessage
		if err := json.Unmarshal(r.Body, &data); err != nil {
			responseErr = fmt.Errorf("OikotieFetcherAdapter: failed to decode search response from %s: %w", r.Request.URL, err)
			return
		}

		rawCards, ok := data["cards"]
		if !ok {
			responseErr = fmt.Errorf("OikotieFetcherAdapter: search response from %s has no \"cards\" key", r.Request.URL)
			return
		}
		if err := json.Unmarshal(rawCards, &cards); err != nil {
			responseErr = fmt.Errorf("OikotieFetcherAdapter: failed to decode \"cards\" from %s: %w", r.Request.URL, err)
			return
		}
		if cards == nil {
			responseErr = fmt.Errorf("OikotieFetcherAdapter: \"cards\" is null in response from %s", r.Request.URL)
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		fetchLogger.Error("Failed to fetch cards page", err, port.Fields{
			"url":    r.Request.URL.String(),
			"status": r.StatusCode,
		})
		responseErr = fmt.Errorf("OikotieFetcherAdapter: request to %s failed: %w", r.Request.URL, err)
	})

	headers := http.Header{}
	for key, value := range session.Headers() {
		headers.Set(key, value)
	}

	visitErr := collector.Request(http.MethodGet, targetURL, nil, nil, headers)
	collector.Wait()

	if responseErr != nil {
		return nil, responseErr
	}
	if visitErr != nil {
		fetchLogger.Error("Failed to initiate visit for fetching cards", visitErr, port.Fields{"url": targetURL})
		return nil, fmt.Errorf("OikotieFetcherAdapter: failed to visit URL %s: %w", targetURL, visitErr)
	}

	fetchLogger.Debug("Fetched cards", port.Fields{
		"limit":  criteria.Limit,
		"offset": criteria.Offset,
		"cards":  len(cards),
	})
	return cards, nil
}
