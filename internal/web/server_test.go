package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/combokiosk/internal/catalog"
	"github.com/JonMunkholm/combokiosk/internal/combo"
	"github.com/JonMunkholm/combokiosk/internal/config"
	"github.com/JonMunkholm/combokiosk/internal/core"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// menuCombo is a burger menu: one required drink, up to two sides.
func menuCombo() *combo.Combo {
	return &combo.Combo{
		ProductKey: "MENU1",
		Name:       "Burger Menu",
		BasePrice:  d("100"),
		Groups: []combo.CatalogGroup{
			{
				Key: "drinks", GroupName: "Drinks", IsForcedGroup: true, ForcedQuantity: 1, MaxQuantity: 1,
				Items: []combo.CatalogItem{
					{ProductKey: "COLA", DisplayName: "Cola"},
					{ProductKey: "AYRAN", DisplayName: "Ayran", Prices: combo.PriceSet{TakeOutTL: d("5"), DeliveryTL: d("7")}},
				},
			},
			{
				Key: "sides", GroupName: "Sides", MaxQuantity: 2,
				Items: []combo.CatalogItem{
					{ProductKey: "FRIES", DisplayName: "Fries", IsDefault: true, DefaultQuantity: 1, Prices: combo.PriceSet{TakeOutTL: d("10")}},
					{ProductKey: "RINGS", DisplayName: "Onion rings", Prices: combo.PriceSet{TakeOutTL: d("12")}},
				},
			},
		},
	}
}

// coldDrinksCombo splits drinks into sub-groups, so group keys carry a "/".
func coldDrinksCombo() *combo.Combo {
	return &combo.Combo{
		ProductKey: "MENU2",
		Name:       "Summer Menu",
		BasePrice:  d("90"),
		Groups: []combo.CatalogGroup{
			{
				Key: combo.GroupKey("Drinks", "Cold"), GroupName: "Drinks", SubGroupName: "Cold",
				IsForcedGroup: true, ForcedQuantity: 1, MaxQuantity: 1,
				Items: []combo.CatalogItem{
					{ProductKey: "COLA", DisplayName: "Cola"},
					{ProductKey: "ICED-TEA", DisplayName: "Iced tea", Prices: combo.PriceSet{TakeOutTL: d("4")}},
				},
			},
			{
				Key: combo.GroupKey("Drinks", "Hot"), GroupName: "Drinks", SubGroupName: "Hot", MaxQuantity: 1,
				Items: []combo.CatalogItem{
					{ProductKey: "TEA", DisplayName: "Tea"},
				},
			},
		},
	}
}

type stubCatalog struct {
	lastOpt catalog.Options
}

func (c *stubCatalog) Combo(ctx context.Context, productKey string, opt catalog.Options) (*combo.Combo, error) {
	c.lastOpt = opt
	switch productKey {
	case "MENU1":
		return menuCombo(), nil
	case "MENU2":
		return coldDrinksCombo(), nil
	}
	return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, productKey)
}

func (c *stubCatalog) ComboOrEmpty(ctx context.Context, productKey string, opt catalog.Options) *combo.Combo {
	got, err := c.Combo(ctx, productKey, opt)
	if err != nil {
		return &combo.Combo{ProductKey: productKey, Groups: []combo.CatalogGroup{}}
	}
	return got
}

func (c *stubCatalog) List(ctx context.Context, branchID int) ([]catalog.Summary, error) {
	return []catalog.Summary{{ProductKey: "MENU1", Name: "Burger Menu"}}, nil
}

type stubSyncer struct {
	err     error
	trigger string
	source  string
	records int
	runs    []core.SyncResult
}

func (s *stubSyncer) Run(ctx context.Context, req core.SyncRequest) (core.SyncResult, error) {
	s.trigger = core.TriggerFromContext(ctx)
	res := core.SyncResult{RunID: "run-1", Trigger: s.trigger}
	if req.Combos != nil {
		s.source = req.Combos.Name()
		res.Source = s.source
		records, err := req.Combos.Records(ctx)
		if err != nil {
			return res, err
		}
		s.records = len(records)
	}
	if s.err != nil {
		res.Error = s.err.Error()
		res.Code = core.MapError(s.err).Code
		return res, s.err
	}
	res.Tables = []core.TableResult{{Table: "combo_groups", Rows: s.records - 1}}
	return res, nil
}

func (s *stubSyncer) RecentRuns(ctx context.Context, f core.RunFilter) ([]core.SyncResult, error) {
	return s.runs, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{RequestTimeout: 5 * time.Second},
		Sync:     config.SyncConfig{MaxUploadSize: 1 << 20},
		Session:  config.SessionConfig{IdleTimeout: time.Minute, MaxSessions: 10},
		Ordering: config.OrderingConfig{Channel: "takeout", Currency: "TL", Language: "tr"},
		Security: config.SecurityConfig{EnableCSP: true},
	}
}

func newTestServer(t *testing.T) (*Server, *stubCatalog, *stubSyncer) {
	t.Helper()
	cat := &stubCatalog{}
	syn := &stubSyncer{}
	return NewServer(testConfig(), Deps{Catalog: cat, Syncer: syn}), cat, syn
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func openSession(t *testing.T, s *Server, body string) sessionView {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/sessions", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[sessionView](t, rec)
}

// ----------------------------------------------------------------------------
// Catalog
// ----------------------------------------------------------------------------

func TestServer_ListCombos(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/combos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]catalog.Summary](t, rec)
	assert.Equal(t, []catalog.Summary{{ProductKey: "MENU1", Name: "Burger Menu"}}, list)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestServer_GetCombo(t *testing.T) {
	s, cat, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/combos/MENU1?branch=7&channel=delivery&currency=usd&lang=en", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		ProductKey string `json:"productKey"`
		Groups     []struct {
			GroupName      string `json:"groupName"`
			IsForcedGroup  bool   `json:"isForcedGroup"`
			ForcedQuantity int    `json:"forcedQuantity"`
			MaxQuantity    int    `json:"maxQuantity"`
			Items          []struct {
				ProductKey  string `json:"productKey"`
				DisplayName string `json:"displayName"`
			} `json:"items"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "MENU1", body.ProductKey)
	require.Len(t, body.Groups, 2)
	assert.True(t, body.Groups[0].IsForcedGroup)
	assert.Equal(t, "Cola", body.Groups[0].Items[0].DisplayName)

	assert.Equal(t, catalog.Options{BranchID: 7, Channel: combo.ChannelDelivery, Currency: combo.CurrencyUSD, Language: "en"}, cat.lastOpt)
}

func TestServer_GetComboDefaultsAndFallbacks(t *testing.T) {
	s, cat, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/combos/GONE", nil)
	req.Header.Set("Accept-Language", "en-GB,en;q=0.8")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"productKey":"GONE","name":"","basePrice":"0","groups":[]}`, rec.Body.String())
	assert.Equal(t, combo.ChannelTakeOut, cat.lastOpt.Channel)
	assert.Equal(t, combo.CurrencyTL, cat.lastOpt.Currency)
	assert.Equal(t, "en-GB,en;q=0.8", cat.lastOpt.Language)
}

func TestServer_GetComboRejectsBadSettings(t *testing.T) {
	s, _, _ := newTestServer(t)

	for _, q := range []string{"branch=x", "branch=-1", "channel=dine-in", "currency=JPY"} {
		rec := do(t, s, http.MethodGet, "/api/combos/MENU1?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

// ----------------------------------------------------------------------------
// Sessions
// ----------------------------------------------------------------------------

func TestServer_SelectionFlow(t *testing.T) {
	s, _, _ := newTestServer(t)

	v := openSession(t, s, `{"productKey":"MENU1"}`)
	assert.Equal(t, 0, v.ActiveIndex)
	assert.Equal(t, 2, v.ReviewIndex)
	assert.True(t, v.Total.Equal(d("100")))
	require.Len(t, v.Groups, 2)
	assert.True(t, v.Groups[0].Required)
	assert.Equal(t, 1, v.Groups[0].RequiredQuantity)
	base := "/api/sessions/" + v.ID

	// A forced pick completes the group and moves on.
	rec := do(t, s, http.MethodPut, base+"/groups/drinks/items/AYRAN", `{"quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v = decode[sessionView](t, rec)
	require.NotNil(t, v.Transition)
	assert.True(t, v.Transition.Advanced)
	assert.Equal(t, 1, v.ActiveIndex)
	assert.True(t, v.Groups[0].Complete)
	assert.True(t, v.Total.Equal(d("105")))

	// Above max is refused with the structured failure and nothing changes.
	rec = do(t, s, http.MethodPut, base+"/groups/sides/items/FRIES", `{"quantity":3}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{
		"groupKey":"sides","groupName":"Sides","reason":"exceeds_max","maxQuantity":2,
		"message":"You can choose at most 2 items from Sides."
	}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, base, "")
	v = decode[sessionView](t, rec)
	assert.Equal(t, 0, v.Groups[1].Total)

	// A pick in the last group goes to review.
	rec = do(t, s, http.MethodPut, base+"/groups/sides/items/FRIES", `{"quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	v = decode[sessionView](t, rec)
	assert.True(t, v.InReview)
	assert.True(t, v.Transition.ToReview)

	rec = do(t, s, http.MethodGet, base+"/validate", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, base+"/commit", `{"quantity":2,"notes":"no ice"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	line := decode[combo.CartLineItem](t, rec)
	assert.Equal(t, "MENU1", line.ProductKey)
	assert.Equal(t, 2, line.Quantity)
	assert.True(t, line.IsMainCombo)
	assert.Equal(t, "no ice", line.Notes)
	assert.True(t, line.UnitPrice.Equal(d("125")), line.UnitPrice.String())
	require.Len(t, line.Items, 2)
	assert.Equal(t, "AYRAN", line.Items[0].ProductKey)
	assert.Equal(t, "drinks", line.Items[0].GroupKey)
	assert.Equal(t, 2, line.Items[1].Quantity)

	// Commit closes the session.
	rec = do(t, s, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_SubGroupKeys(t *testing.T) {
	s, _, _ := newTestServer(t)

	v := openSession(t, s, `{"productKey":"MENU2"}`)
	require.Len(t, v.Groups, 2)
	cold := v.Groups[0].Key
	require.Contains(t, cold, "/")
	base := "/api/sessions/" + v.ID

	rec := do(t, s, http.MethodPut, base+"/groups/"+url.PathEscape(cold)+"/items/ICED-TEA", `{"quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v = decode[sessionView](t, rec)
	assert.Equal(t, 1, v.Groups[0].Total)
	assert.True(t, v.Groups[0].Complete)
	assert.True(t, v.Total.Equal(d("94")))

	rec = do(t, s, http.MethodPost, base+"/commit", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	line := decode[combo.CartLineItem](t, rec)
	require.Len(t, line.Items, 1)
	assert.Equal(t, cold, line.Items[0].GroupKey)
}

func TestServer_CommitOnce(t *testing.T) {
	s, _, _ := newTestServer(t)
	v := openSession(t, s, `{"productKey":"MENU1"}`)
	base := "/api/sessions/" + v.ID

	rec := do(t, s, http.MethodPut, base+"/groups/drinks/items/COLA", `{"quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	const n = 8
	codes := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- do(t, s, http.MethodPost, base+"/commit", "").Code
		}()
	}
	wg.Wait()
	close(codes)

	ok := 0
	for code := range codes {
		if code == http.StatusOK {
			ok++
			continue
		}
		assert.Equal(t, http.StatusNotFound, code)
	}
	assert.Equal(t, 1, ok, "one cart line per session")
}

func TestServer_ValidateAndCommitRequireForcedGroups(t *testing.T) {
	s, _, _ := newTestServer(t)
	v := openSession(t, s, `{"productKey":"MENU1"}`)
	base := "/api/sessions/" + v.ID

	rec := do(t, s, http.MethodGet, base+"/validate", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	failure := decode[map[string]any](t, rec)
	assert.Equal(t, "no_selection", failure["reason"])
	assert.Equal(t, "Drinks", failure["groupName"])
	assert.Equal(t, "Please choose 1 item from Drinks.", failure["message"])

	rec = do(t, s, http.MethodPost, base+"/commit", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Still open after a refused commit.
	rec = do(t, s, http.MethodGet, base, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_SessionNavigationAndDefaults(t *testing.T) {
	s, _, _ := newTestServer(t)
	v := openSession(t, s, `{"productKey":"MENU1","channel":"delivery","applyDefaults":true}`)
	base := "/api/sessions/" + v.ID

	assert.Equal(t, combo.ChannelDelivery, v.Channel)
	assert.Equal(t, 1, v.Groups[1].Total, "default fries applied")

	rec := do(t, s, http.MethodPost, base+"/goto", `{"index":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[sessionView](t, rec).ActiveIndex)

	rec = do(t, s, http.MethodPost, base+"/goto", `{"index":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, base+"/review", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[sessionView](t, rec).InReview)

	rec = do(t, s, http.MethodPost, base+"/defaults", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[sessionView](t, rec).Groups[1].Total, "defaults do not stack")

	rec = do(t, s, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_SessionErrors(t *testing.T) {
	s, _, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"missing product", http.MethodPost, "/api/sessions", `{}`, http.StatusBadRequest},
		{"unknown combo", http.MethodPost, "/api/sessions", `{"productKey":"NOPE"}`, http.StatusNotFound},
		{"unknown field", http.MethodPost, "/api/sessions", `{"productKey":"MENU1","colour":"red"}`, http.StatusBadRequest},
		{"unknown session", http.MethodGet, "/api/sessions/missing", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	v := openSession(t, s, `{"productKey":"MENU1"}`)
	base := "/api/sessions/" + v.ID
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPut, base+"/groups/mains/items/COLA", `{"quantity":1}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPut, base+"/groups/drinks/items/TEA", `{"quantity":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPut, base+"/groups/drinks/items/COLA", `{"quantity":-1}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPut, base+"/groups/drinks/items/COLA", `{}`).Code)
}

func TestServer_TooManySessions(t *testing.T) {
	cfg := testConfig()
	cfg.Session.MaxSessions = 1
	s := NewServer(cfg, Deps{Catalog: &stubCatalog{}})

	openSession(t, s, `{"productKey":"MENU1"}`)
	rec := do(t, s, http.MethodPost, "/api/sessions", `{"productKey":"MENU1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestServer_ResumeSession(t *testing.T) {
	s, _, _ := newTestServer(t)

	line := combo.CartLineItem{
		ProductKey:  "MENU1",
		Quantity:    1,
		IsMainCombo: true,
		Items: []combo.CartSubItem{
			{ProductKey: "COLA", GroupKey: "drinks", Quantity: 1},
			{ProductKey: "RINGS", Quantity: 0},
			{ProductKey: "MILKSHAKE", Quantity: 1},
		},
	}
	body, err := json.Marshal(map[string]any{"line": line})
	require.NoError(t, err)

	rec := do(t, s, http.MethodPost, "/api/sessions/resume", string(body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	v := decode[sessionView](t, rec)
	assert.True(t, v.InReview)
	assert.Equal(t, []string{"MILKSHAKE"}, v.Unmatched)
	assert.Equal(t, []combo.SelectedItem{{ProductKey: "RINGS", Quantity: 1}}, v.Groups[1].Selected)
	assert.True(t, v.Total.Equal(d("112")))

	line.IsMainCombo = false
	body, _ = json.Marshal(map[string]any{"line": line})
	rec = do(t, s, http.MethodPost, "/api/sessions/resume", string(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ----------------------------------------------------------------------------
// Sync
// ----------------------------------------------------------------------------

func uploadRequest(t *testing.T, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, name := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("ComboKey,GroupName,ProductKey\nMENU1,Drinks,COLA\nMENU1,Drinks,AYRAN\n"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sync", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestServer_SyncUpload(t *testing.T) {
	s, _, syn := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, uploadRequest(t, map[string]string{"combos": "combos.csv"}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, core.TriggerHTTP, syn.trigger)
	assert.Equal(t, "combos.csv", syn.source)
	assert.Equal(t, 3, syn.records)

	res := decode[syncResponse](t, rec)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, 2, res.Total())
}

func TestServer_SyncErrors(t *testing.T) {
	t.Run("missing combos file", func(t *testing.T) {
		s, _, _ := newTestServer(t)
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, uploadRequest(t, map[string]string{"products": "products.csv"}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no configured source", func(t *testing.T) {
		s, _, _ := newTestServer(t)
		rec := do(t, s, http.MethodPost, "/api/sync", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("in progress", func(t *testing.T) {
		s, _, syn := newTestServer(t)
		syn.err = core.ErrSyncInProgress
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, uploadRequest(t, map[string]string{"combos": "combos.csv"}))

		require.Equal(t, http.StatusConflict, rec.Code)
		res := decode[syncResponse](t, rec)
		assert.Equal(t, "SYNC001", res.Code)
		assert.NotEmpty(t, res.Message)
	})

	t.Run("no syncer", func(t *testing.T) {
		s := NewServer(testConfig(), Deps{Catalog: &stubCatalog{}})
		rec := do(t, s, http.MethodPost, "/api/sync", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestServer_SyncConfiguredSource(t *testing.T) {
	syn := &stubSyncer{}
	s := NewServer(testConfig(), Deps{
		Catalog: &stubCatalog{},
		Syncer:  syn,
		ConfiguredSync: func() core.SyncRequest {
			return core.SyncRequest{Combos: core.ReaderSource("nightly.csv", strings.NewReader("ComboKey,GroupName,ProductKey\nM,G,P\n"))}
		},
	})

	rec := do(t, s, http.MethodPost, "/api/sync", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "nightly.csv", syn.source)
}

func TestServer_SyncRunsAndReport(t *testing.T) {
	s, _, syn := newTestServer(t)
	syn.runs = []core.SyncResult{
		{RunID: "r2", Trigger: "scheduler", Source: "<b>combos.csv</b>", Error: "boom", Code: "DB002"},
		{RunID: "r1", Trigger: "cli", Tables: []core.TableResult{{Table: "combo_groups", Rows: 4}}},
	}

	rec := do(t, s, http.MethodGet, "/api/sync/runs?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[[]core.SyncResult](t, rec)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].RunID)

	rec = do(t, s, http.MethodGet, "/api/sync/runs?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()
	assert.Contains(t, page, "Catalog sync")
	assert.Contains(t, page, "DB002")
	assert.Contains(t, page, "combo_groups: 4")
	assert.NotContains(t, page, "<b>combos.csv</b>")
	assert.Contains(t, page, "&lt;b&gt;combos.csv&lt;/b&gt;")
}

func TestRunFilter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/sync/runs?trigger=cli&failed=true&since=2024-05-01T00:00:00Z&limit=0", nil)
	f, err := runFilter(req)
	require.NoError(t, err)
	assert.Equal(t, "cli", f.Trigger)
	assert.True(t, f.FailedOnly)
	assert.Equal(t, core.DefaultHistoryLimit, f.Limit)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), f.Since)
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":0}`, rec.Body.String())
}
