package oikotiefetcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
)

// Config - настройки адаптера
type Config struct {
	BaseURL        string        // например, "https://asunnot.oikotie.fi/"
	RequestTimeout time.Duration // 0 - таймаут colly по умолчанию
}

// OikotieFetcherAdapter отвечает за все взаимодействия с API Oikotie
type OikotieFetcherAdapter struct {
	// родительский коллектор: общие http-клиент, cookie jar и лимиты
	collector *colly.Collector
	baseURL   *url.URL
}

// NewOikotieFetcherAdapter - конструктор
func NewOikotieFetcherAdapter(cfg Config) (*OikotieFetcherAdapter, error) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("OikotieFetcherAdapter: invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("OikotieFetcherAdapter: base URL %q must be absolute", cfg.BaseURL)
	}
	// пути эндпоинтов разрешаются относительно базового, поэтому он должен заканчиваться на "/"
	if !strings.HasSuffix(baseURL.Path, "/") {
		baseURL.Path += "/"
	}

	c := colly.NewCollector(
		colly.AllowedDomains(baseURL.Hostname()),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(0), // при больших n ответ api/search может превышать лимит по умолчанию
	)

	// Запросы строго последовательные, паузы между батчами выдерживает use case
	err = c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("OikotieFetcherAdapter: failed to set limit rule: %w", err)
	}

	if cfg.RequestTimeout > 0 {
		c.SetRequestTimeout(cfg.RequestTimeout)
	}

	return &OikotieFetcherAdapter{
		collector: c,
		baseURL:   baseURL,
	}, nil
}

// newCollector создает "одноразовый" клон для одного запроса.
// Клон не наследует колбэки, поэтому расширения подключаются к нему заново.
// Отмена ctx прерывает запрос, который уже ушел на сервер.
// Ответ с любым статусом попадает в OnResponse, OnError остается только для сетевых ошибок
func (a *OikotieFetcherAdapter) newCollector(ctx context.Context) *colly.Collector {
	c := a.collector.Clone()
	c.Context = ctx
	c.ParseHTTPErrorResponse = true
	extensions.RandomUserAgent(c)
	extensions.Referer(c)
	return c
}

// endpoint строит абсолютный URL для пути относительно базового
func (a *OikotieFetcherAdapter) endpoint(path string, query url.Values) string {
	ref := &url.URL{Path: path, RawQuery: query.Encode()}
	return a.baseURL.ResolveReference(ref).String()
}
