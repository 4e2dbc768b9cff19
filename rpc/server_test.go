package rpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"securewrap/core"
	"securewrap/core/genesis"
	"securewrap/crypto"
	"securewrap/journal"
	"securewrap/native/securewrap"
	"securewrap/observability/logging"
	"securewrap/observability/metrics"
	"securewrap/storage"
)

const testNow = int64(1_700_000_000)

type fixture struct {
	t         *testing.T
	srv       *Server
	http      *httptest.Server
	node      *core.Node
	aliceKey  *crypto.PrivateKey
	alice     crypto.Address
	authority *crypto.PrivateKey
	original  [20]byte
	wrapped   [20]byte
	logs      *syncBuffer
}

// syncBuffer collects log lines written from handler goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func mustKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key
}

func newFixture(t *testing.T, limit RateLimit) *fixture {
	t.Helper()
	f := &fixture{t: t, aliceKey: mustKey(t), authority: mustKey(t)}
	f.alice = f.aliceKey.PubKey().Address()
	issuer := mustKey(t).PubKey().Address()
	freezer := mustKey(t).PubKey().Address()
	f.original = mustKey(t).PubKey().Address().Raw()
	f.wrapped = securewrap.DeriveWrappedMint(f.original)

	doc := fmt.Sprintf(`genesisTime: "2023-11-14T22:13:20Z"
authority: %s
unwrapDelaySeconds: 600
mints:
  - symbol: USDX
    id: %s
    decimals: 6
    mintAuthority: %s
    freezeAuthority: %s
alloc:
  %s:
    USDX: 1000
pairs: [USDX]
`, f.authority.PubKey().Address().String(), crypto.Format(f.original), issuer.String(), freezer.String(), f.alice.String())
	spec, err := genesis.ParseGenesisSpec([]byte(doc))
	require.NoError(t, err)

	store, err := journal.Open(journal.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	node, err := core.NewNode(storage.NewMemDB(),
		core.WithJournal(store),
		core.WithClock(func() time.Time { return time.Unix(testNow, 0) }))
	require.NoError(t, err)
	_, err = node.ApplyGenesis(context.Background(), spec)
	require.NoError(t, err)
	f.node = node

	f.logs = &syncBuffer{}
	f.srv = NewServer(node, store, Config{
		Auth: AuthConfig{
			HMACSecret: strings.Repeat("s", 32),
			Issuer:     "swtd",
			Audience:   "securewrap",
			TokenTTL:   time.Hour,
			LoginSkew:  2 * time.Minute,
		},
		RateLimit:      limit,
		MetricsEnabled: true,
	}, slog.New(slog.NewJSONHandler(f.logs, nil)))
	f.srv.auth.now = func() time.Time { return time.Unix(testNow, 0) }
	f.http = httptest.NewServer(f.srv.Handler())
	t.Cleanup(f.http.Close)
	return f
}

func (f *fixture) login(key *crypto.PrivateKey) string {
	f.t.Helper()
	sig, err := crypto.SignLogin(key, testNow)
	require.NoError(f.t, err)
	body, _ := json.Marshal(LoginRequest{
		Address:   key.PubKey().Address().String(),
		Timestamp: testNow,
		Signature: hex.EncodeToString(sig),
	})
	resp, err := http.Post(f.http.URL+"/v1/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(f.t, err)
	defer resp.Body.Close()
	require.Equal(f.t, http.StatusOK, resp.StatusCode)
	var out LoginResponse
	require.NoError(f.t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(f.t, key.PubKey().Address().String(), out.Caller)
	return out.Token
}

func (f *fixture) do(method, path, token string, payload interface{}) (*http.Response, []byte) {
	f.t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(f.t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.http.URL+path, body)
	require.NoError(f.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(f.t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(f.t, err)
	return resp, buf.Bytes()
}

func decodeError(t *testing.T, raw []byte) ErrorDetail {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(raw, &body))
	return body.Error
}

func TestLoginRejectsBadSignatureAndSkew(t *testing.T) {
	f := newFixture(t, RateLimit{})
	other := mustKey(t)

	sig, err := crypto.SignLogin(other, testNow)
	require.NoError(t, err)
	resp, raw := f.do(http.MethodPost, "/v1/auth/login", "", LoginRequest{
		Address:   f.alice.String(),
		Timestamp: testNow,
		Signature: hex.EncodeToString(sig),
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, codeUnauthenticated, decodeError(t, raw).Code)

	stale := testNow - 600
	sig, err = crypto.SignLogin(f.aliceKey, stale)
	require.NoError(t, err)
	resp, _ = f.do(http.MethodPost, "/v1/auth/login", "", LoginRequest{
		Address:   f.alice.String(),
		Timestamp: stale,
		Signature: hex.EncodeToString(sig),
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOperationsRequireBearerToken(t *testing.T) {
	f := newFixture(t, RateLimit{})
	resp, raw := f.do(http.MethodPost, "/v1/ops/wrap", "", core.Request{Mint: crypto.Format(f.wrapped), Amount: 1})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, codeUnauthenticated, decodeError(t, raw).Code)

	resp, _ = f.do(http.MethodPost, "/v1/ops/wrap", "not-a-token", core.Request{Mint: crypto.Format(f.wrapped), Amount: 1})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// A token for another audience is rejected.
	foreign := NewAuthenticator(AuthConfig{HMACSecret: strings.Repeat("s", 32), Issuer: "swtd", Audience: "elsewhere"})
	foreign.now = f.srv.auth.now
	token, _, err := foreign.Issue(f.alice.Raw())
	require.NoError(t, err)
	resp, _ = f.do(http.MethodPost, "/v1/ops/wrap", token, core.Request{Mint: crypto.Format(f.wrapped), Amount: 1})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRejectedSecretsAreMaskedInLogs(t *testing.T) {
	f := newFixture(t, RateLimit{})
	const bogus = "eyJhbGciOiJIUzI1NiJ9.forged.secret-part"
	resp, _ := f.do(http.MethodPost, "/v1/ops/wrap", bogus, core.Request{Mint: crypto.Format(f.wrapped), Amount: 1})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	sig, err := crypto.SignLogin(mustKey(t), testNow)
	require.NoError(t, err)
	signature := hex.EncodeToString(sig)
	resp, _ = f.do(http.MethodPost, "/v1/auth/login", "", LoginRequest{
		Address:   f.alice.String(),
		Timestamp: testNow,
		Signature: signature,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	logs := f.logs.String()
	require.NotContains(t, logs, bogus)
	require.NotContains(t, logs, signature)

	var rejected []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(logs), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		switch entry["msg"] {
		case "bearer token rejected":
			require.Equal(t, logging.RedactedValue, entry["token"])
			require.Equal(t, "/v1/ops/wrap", entry["path"])
			rejected = append(rejected, entry)
		case "login rejected":
			require.Equal(t, logging.RedactedValue, entry["signature"])
			require.Equal(t, f.alice.String(), entry["caller"])
			rejected = append(rejected, entry)
		}
	}
	require.Len(t, rejected, 2)
}

func TestWrapAndQueryThroughHTTP(t *testing.T) {
	f := newFixture(t, RateLimit{})
	token := f.login(f.aliceKey)
	mint := crypto.Format(f.wrapped)

	resp, raw := f.do(http.MethodPost, "/v1/ops/wrap", token, core.Request{Mint: mint, Amount: 400})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var receipt core.Receipt
	require.NoError(t, json.Unmarshal(raw, &receipt))
	require.Equal(t, core.OpWrap, receipt.Operation)
	require.Equal(t, f.alice.String(), receipt.Caller)
	require.NotEmpty(t, receipt.Events)

	resp, raw = f.do(http.MethodGet, "/v1/accounts/"+mint+"/"+f.alice.String(), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var acc core.AccountView
	require.NoError(t, json.Unmarshal(raw, &acc))
	require.EqualValues(t, 400, acc.Balance)

	resp, raw = f.do(http.MethodGet, "/v1/pairs/"+mint+"/invariants", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var supply core.SupplyView
	require.NoError(t, json.Unmarshal(raw, &supply))
	require.True(t, supply.Healthy)
	require.EqualValues(t, 400, supply.WrappedSupply)
	require.EqualValues(t, 400, supply.CustodyOriginal)
	require.True(t, supply.FrozenInclusiveBalanced)

	resp, raw = f.do(http.MethodGet, "/v1/pairs", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pairs []core.PairView
	require.NoError(t, json.Unmarshal(raw, &pairs))
	require.Len(t, pairs, 1)
	require.Equal(t, mint, pairs[0].WrappedMint)

	resp, raw = f.do(http.MethodGet, "/v1/global", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var global core.GlobalView
	require.NoError(t, json.Unmarshal(raw, &global))
	require.EqualValues(t, 600, global.UnwrapDelaySeconds)
}

func TestEngineErrorsMapToStatus(t *testing.T) {
	f := newFixture(t, RateLimit{})
	token := f.login(f.aliceKey)
	mint := crypto.Format(f.wrapped)

	resp, _ := f.do(http.MethodPost, "/v1/ops/wrap", token, core.Request{Mint: mint, Amount: 500})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.do(http.MethodPost, "/v1/ops/unwrap_request", token, core.Request{Mint: mint, Amount: 100})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := f.do(http.MethodPost, "/v1/ops/unwrap_release", token, core.Request{Mint: mint})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "PrematurePendingUnwrap", decodeError(t, raw).Code)

	resp, raw = f.do(http.MethodPost, "/v1/ops/halt_orders", token, core.Request{})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "Unauthorized", decodeError(t, raw).Code)

	resp, raw = f.do(http.MethodPost, "/v1/ops/teleport", token, core.Request{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "UnknownOperation", decodeError(t, raw).Code)

	resp, raw = f.do(http.MethodPost, "/v1/ops/wrap", token, map[string]interface{}{"mint": mint, "bogus": 1})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "InvalidRequest", decodeError(t, raw).Code)

	resp, raw = f.do(http.MethodGet, "/v1/pairs/"+mint+"/unwraps/"+f.alice.String(), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pending core.PendingUnwrapView
	require.NoError(t, json.Unmarshal(raw, &pending))
	require.EqualValues(t, 100, pending.Amount)
	require.Equal(t, testNow+600, pending.ReleaseTimestamp)

	resp, raw = f.do(http.MethodGet, "/v1/pairs/"+mint+"/orders/"+f.alice.String()+"/unwrap", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "OrderNotFound", decodeError(t, raw).Code)

	resp, raw = f.do(http.MethodGet, "/v1/pairs/"+mint+"/orders/"+f.alice.String()+"/sideways", "", nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "OrderSideInvalid", decodeError(t, raw).Code)

	resp, raw = f.do(http.MethodGet, "/v1/pairs/not-an-address", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "InvalidRequest", decodeError(t, raw).Code)

	resp, raw = f.do(http.MethodGet, "/v1/journal?caller="+f.alice.String(), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []JournalEntry
	require.NoError(t, json.Unmarshal(raw, &entries))
	require.Len(t, entries, 4)
	require.Equal(t, "PrematurePendingUnwrap", entries[2].Code)
	require.Equal(t, "Unauthorized", entries[3].Code)

	resp, _ = f.do(http.MethodGet, "/v1/journal?limit=-3", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthorityAdministersThroughHTTP(t *testing.T) {
	f := newFixture(t, RateLimit{})
	token := f.login(f.authority)

	resp, raw := f.do(http.MethodPost, "/v1/ops/set_unwrap_delay", token, core.Request{Seconds: 30})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	resp, _ = f.do(http.MethodPost, "/v1/ops/halt_unwrap", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, raw = f.do(http.MethodGet, "/v1/global", "", nil)
	var global core.GlobalView
	require.NoError(t, json.Unmarshal(raw, &global))
	require.EqualValues(t, 30, global.UnwrapDelaySeconds)
	require.False(t, global.UnwrapAllowed)
}

func TestRateLimiterThrottlesPerClient(t *testing.T) {
	f := newFixture(t, RateLimit{RequestsPerMinute: 1, Burst: 2})
	before := testutil.ToFloat64(metrics.HTTP().Throttles().WithLabelValues("client"))

	for i := 0; i < 2; i++ {
		resp, _ := f.do(http.MethodGet, "/v1/global", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, raw := f.do(http.MethodGet, "/v1/global", "", nil)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, codeRateLimited, decodeError(t, raw).Code)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.HTTP().Throttles().WithLabelValues("client")))

	resp, _ = f.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimiterForgetsIdleClients(t *testing.T) {
	now := time.Unix(testNow, 0)
	limiter := NewRateLimiter(RateLimit{RequestsPerMinute: 1, Burst: 1}, nil)
	limiter.clockNow = func() time.Time { return now }
	require.True(t, limiter.allow("a"))
	require.False(t, limiter.allow("a"))
	now = now.Add(10 * time.Minute)
	require.True(t, limiter.allow("b"))
	require.Len(t, limiter.visitors, 1)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, RateLimit{})
	f.do(http.MethodGet, "/v1/global", "", nil)
	resp, raw := f.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(raw), "swt_rpc_requests_total")
}

func TestEventStreamReplaysAndFollows(t *testing.T) {
	f := newFixture(t, RateLimit{})
	token := f.login(f.aliceKey)
	mint := crypto.Format(f.wrapped)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/v1/events/ws?cursor=0"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Genesis events are replayed first.
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var first core.StreamEvent
	require.NoError(t, json.Unmarshal(data, &first))
	require.EqualValues(t, 1, first.Sequence)

	resp, _ := f.do(http.MethodPost, "/v1/ops/wrap", token, core.Request{Mint: mint, Amount: 10})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var evt core.StreamEvent
		require.NoError(t, json.Unmarshal(data, &evt))
		if evt.Event.Type == securewrap.EventTypeWrapped {
			require.Equal(t, core.OpWrap, evt.Operation)
			return
		}
	}
}

func TestEventStreamRejectsBadCursor(t *testing.T) {
	f := newFixture(t, RateLimit{})
	resp, raw := f.do(http.MethodGet, "/v1/events/ws?cursor=abc", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "InvalidRequest", decodeError(t, raw).Code)
}
