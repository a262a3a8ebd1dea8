package oikotiefetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"oikotie-parser-service/internal/constants"
	"oikotie-parser-service/internal/contextkeys"
	"oikotie-parser-service/internal/core/domain"
	"oikotie-parser-service/internal/core/port"

	"github.com/gocolly/colly/v2"
)

type tokenResponse struct {
	User *tokenUser `json:"user"`
}

type tokenUser struct {
	Cuid  string          `json:"cuid"`
	Time  json.RawMessage `json:"time"`
	Token string          `json:"token"`
}

// Authenticate запрашивает токен у user/get.
// Ответ не 200 не считается ошибкой: сессия остается пустой (nil), запуск продолжается
func (a *OikotieFetcherAdapter) Authenticate(ctx context.Context) (*domain.Session, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	authLogger := logger.WithFields(port.Fields{"component": "OikotieFetcherAdapter(Authenticate)"})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collector := a.newCollector(ctx)
	targetURL := a.endpoint(constants.TokenPath, url.Values{"format": {"json"}})

	var session *domain.Session
	var responseErr error
	rejectedStatus := 0

	collector.OnRequest(func(r *colly.Request) {
		authLogger.Debug("Requesting API token", port.Fields{"url": r.URL.String()})
	})

	collector.OnResponse(func(r *colly.Response) {
		if r.StatusCode != http.StatusOK {
			rejectedStatus = r.StatusCode
			return
		}

		var data tokenResponse
		if err := json.Unmarshal(r.Body, &data); err != nil {
			responseErr = fmt.Errorf("OikotieFetcherAdapter: failed to decode token response: %w", err)
			return
		}
		if data.User == nil {
			responseErr = fmt.Errorf("OikotieFetcherAdapter: token response has no \"user\" object")
			return
		}

		session = &domain.Session{
			ClientID: data.User.Cuid,
			LoadedAt: stringifyRaw(data.User.Time),
			Token:    data.User.Token,
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		// статус 0 - до ответа сервера дело не дошло
		if r.StatusCode != 0 {
			rejectedStatus = r.StatusCode
			return
		}
		authLogger.Error("Token request failed", err, port.Fields{"url": targetURL})
		responseErr = fmt.Errorf("OikotieFetcherAdapter: token request to %s failed: %w", targetURL, err)
	})

	visitErr := collector.Visit(targetURL)
	collector.Wait()

	if responseErr != nil {
		return nil, responseErr
	}
	if rejectedStatus != 0 {
		authLogger.Warn("Token endpoint did not return 200, continuing without credentials", port.Fields{
			"url":    targetURL,
			"status": rejectedStatus,
		})
		return nil, nil
	}
	if visitErr != nil {
		authLogger.Error("Failed to initiate visit for token", visitErr, port.Fields{"url": targetURL})
		return nil, fmt.Errorf("OikotieFetcherAdapter: failed to visit URL %s: %w", targetURL, visitErr)
	}
	if session == nil {
		return nil, fmt.Errorf("OikotieFetcherAdapter: no response received from %s", targetURL)
	}

	authLogger.Info("API token obtained", port.Fields{"cuid": session.ClientID, "loaded": session.LoadedAt})
	return session, nil
}

// stringifyRaw превращает произвольное JSON-значение в строку для заголовка:
// строки без кавычек, числа и прочее - как записаны в ответе
func stringifyRaw(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}
