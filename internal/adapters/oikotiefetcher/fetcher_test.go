package oikotiefetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"oikotie-parser-service/internal/constants"
	"oikotie-parser-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Path    string
	Query   map[string][]string
	Headers http.Header
}

type fakeOikotie struct {
	mu          sync.Mutex
	requests    []recordedRequest
	tokenStatus int
	tokenBody   string
	searchCode  int
	searchBody  string
	searchHold  time.Duration // задержка ответа api/search
}

func (f *fakeOikotie) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Path: r.URL.Path, Query: r.URL.Query(), Headers: r.Header.Clone()})
	f.mu.Unlock()

	switch r.URL.Path {
	case "/user/get":
		w.WriteHeader(f.tokenStatus)
		_, _ = w.Write([]byte(f.tokenBody))
	case "/api/search":
		if f.searchHold > 0 {
			select {
			case <-time.After(f.searchHold):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(f.searchCode)
		_, _ = w.Write([]byte(f.searchBody))
	default:
		http.NotFound(w, r)
	}
}

func newTestAdapter(t *testing.T, fake *fakeOikotie) *OikotieFetcherAdapter {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	adapter, err := NewOikotieFetcherAdapter(Config{BaseURL: srv.URL, RequestTimeout: 5 * time.Second})
	require.NoError(t, err)
	return adapter
}

func TestAuthenticate_ParsesUserCredentials(t *testing.T) {
	fake := &fakeOikotie{
		tokenStatus: http.StatusOK,
		tokenBody:   `{"user":{"cuid":"abc123","time":1700000000,"token":"tok-1"}}`,
	}
	adapter := newTestAdapter(t, fake)

	session, err := adapter.Authenticate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.Equal(t, "abc123", session.ClientID)
	assert.Equal(t, "1700000000", session.LoadedAt)
	assert.Equal(t, "tok-1", session.Token)

	require.Len(t, fake.requests, 1)
	assert.Equal(t, "/user/get", fake.requests[0].Path)
	assert.Equal(t, []string{"json"}, fake.requests[0].Query["format"])
}

func TestAuthenticate_StringTimeIsKeptVerbatim(t *testing.T) {
	fake := &fakeOikotie{
		tokenStatus: http.StatusOK,
		tokenBody:   `{"user":{"cuid":"c","time":"2024-01-02 10:00:00","token":"t"}}`,
	}
	adapter := newTestAdapter(t, fake)

	session, err := adapter.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02 10:00:00", session.LoadedAt)
}

func TestAuthenticate_ServerErrorLeavesSessionUnset(t *testing.T) {
	fake := &fakeOikotie{tokenStatus: http.StatusInternalServerError, tokenBody: "boom"}
	adapter := newTestAdapter(t, fake)

	session, err := adapter.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestAuthenticate_MissingUserObjectFails(t *testing.T) {
	fake := &fakeOikotie{tokenStatus: http.StatusOK, tokenBody: `{"something":"else"}`}
	adapter := newTestAdapter(t, fake)

	_, err := adapter.Authenticate(context.Background())
	require.Error(t, err)
}

func TestFetchCards_SendsQueryAndSessionHeaders(t *testing.T) {
	fake := &fakeOikotie{
		searchCode: http.StatusOK,
		searchBody: `{"cards":[{"id":1,"city":"Järvenpää"},{"id":2}],"found":2}`,
	}
	adapter := newTestAdapter(t, fake)

	session := &domain.Session{ClientID: "abc123", LoadedAt: "1700000000", Token: "tok-1"}
	criteria := domain.SearchCriteria{
		CardType:  constants.CardTypeHomesForSale,
		Limit:     100,
		Offset:    48,
		Locations: constants.DefaultLocations,
		SortBy:    constants.SortByPublishedDesc,
	}

	cards, err := adapter.FetchCards(context.Background(), session, criteria)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.JSONEq(t, `{"id":1,"city":"Järvenpää"}`, string(cards[0]))
	assert.JSONEq(t, `{"id":2}`, string(cards[1]))

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, "/api/search", req.Path)
	assert.Equal(t, []string{"100"}, req.Query["cardType"])
	assert.Equal(t, []string{"100"}, req.Query["limit"])
	assert.Equal(t, []string{"48"}, req.Query["offset"])
	assert.Equal(t, []string{`[[2,7,"Uusimaa"]]`}, req.Query["locations"])
	assert.Equal(t, []string{"published_sort_desc"}, req.Query["sortBy"])

	assert.Equal(t, "abc123", req.Headers.Get("Ota-Cuid"))
	assert.Equal(t, "1700000000", req.Headers.Get("Ota-Loaded"))
	assert.Equal(t, "tok-1", req.Headers.Get("Ota-Token"))
	assert.Equal(t, "application/json", req.Headers.Get("Content-Type"))
}

func TestFetchCards_WithoutSessionSendsNoOtaHeaders(t *testing.T) {
	fake := &fakeOikotie{searchCode: http.StatusOK, searchBody: `{"cards":[]}`}
	adapter := newTestAdapter(t, fake)

	cards, err := adapter.FetchCards(context.Background(), nil, domain.SearchCriteria{CardType: 100, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, cards)

	require.Len(t, fake.requests, 1)
	headers := fake.requests[0].Headers
	assert.Empty(t, headers.Get("Ota-Cuid"))
	assert.Empty(t, headers.Get("Ota-Loaded"))
	assert.Empty(t, headers.Get("Ota-Token"))
}

func TestFetchCards_Failures(t *testing.T) {
	cases := []struct {
		name string
		code int
		body string
	}{
		{name: "server error", code: http.StatusBadGateway, body: `{"cards":[]}`},
		{name: "not found", code: http.StatusNotFound, body: `{"cards":[{"id":1}]}`},
		{name: "malformed json", code: http.StatusOK, body: `{"cards":[`},
		{name: "missing cards key", code: http.StatusOK, body: `{"found":0}`},
		{name: "null cards", code: http.StatusOK, body: `{"cards":null}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeOikotie{searchCode: tc.code, searchBody: tc.body}
			adapter := newTestAdapter(t, fake)

			cards, err := adapter.FetchCards(context.Background(), nil, domain.SearchCriteria{CardType: 100, Limit: 10})
			require.Error(t, err)
			assert.Nil(t, cards)
		})
	}
}

func TestFetchCards_CancelledContext(t *testing.T) {
	fake := &fakeOikotie{searchCode: http.StatusOK, searchBody: `{"cards":[]}`}
	adapter := newTestAdapter(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := adapter.FetchCards(ctx, nil, domain.SearchCriteria{CardType: 100, Limit: 10})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.requests)
}

func TestFetchCards_AcceptsAnySuccessStatus(t *testing.T) {
	for _, code := range []int{http.StatusOK, http.StatusNonAuthoritativeInfo, http.StatusPartialContent} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			fake := &fakeOikotie{searchCode: code, searchBody: `{"cards":[{"id":1},{"id":2}]}`}
			adapter := newTestAdapter(t, fake)

			cards, err := adapter.FetchCards(context.Background(), nil, domain.SearchCriteria{CardType: 100, Limit: 10})
			require.NoError(t, err)
			assert.Len(t, cards, 2)
		})
	}
}

func TestFetchCards_CancelAbortsRequestInFlight(t *testing.T) {
	fake := &fakeOikotie{searchCode: http.StatusOK, searchBody: `{"cards":[]}`, searchHold: 10 * time.Second}
	adapter := newTestAdapter(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	started := time.Now()
	cards, err := adapter.FetchCards(ctx, nil, domain.SearchCriteria{CardType: 100, Limit: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, cards)
	assert.Less(t, time.Since(started), 3*time.Second)
}

func TestBuildSearchURL_ResolvesAgainstBase(t *testing.T) {
	adapter, err := NewOikotieFetcherAdapter(Config{BaseURL: constants.DefaultBaseURL})
	require.NoError(t, err)

	target, err := adapter.buildSearchURL(domain.SearchCriteria{
		CardType:  100,
		Limit:     10,
		Offset:    0,
		Locations: constants.DefaultLocations,
		SortBy:    constants.SortByPublishedDesc,
	})
	require.NoError(t, err)

	locations, _ := json.Marshal(constants.DefaultLocations)
	assert.Equal(t, `[[2,7,"Uusimaa"]]`, string(locations))
	assert.Equal(t,
		"https://asunnot.oikotie.fi/api/search?cardType=100&limit=10&locations=%5B%5B2%2C7%2C%22Uusimaa%22%5D%5D&offset=0&sortBy=published_sort_desc",
		target,
	)
}

func TestNewOikotieFetcherAdapter_RejectsRelativeURL(t *testing.T) {
	_, err := NewOikotieFetcherAdapter(Config{BaseURL: "asunnot.oikotie.fi"})
	require.Error(t, err)
}
