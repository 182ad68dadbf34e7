package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tipcast/tipcast-api/internal/chain"
	"github.com/tipcast/tipcast-api/internal/client/custody"
	"github.com/tipcast/tipcast-api/internal/client/faucet"
	client "github.com/tipcast/tipcast-api/internal/client/http"
	"github.com/tipcast/tipcast-api/internal/client/neynar"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router := gin.New()
	router.GET("/health", NewHealthHandler().Health)

	w := performJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, chain.Name, resp.Network)
}

type fakeCustody struct {
	wallet  *custody.Wallet
	result  *custody.SignResult
	err     error
	signed  []string
	created int
}

func (f *fakeCustody) CreateWallet(context.Context) (*custody.Wallet, error) {
	f.created++
	return f.wallet, f.err
}

func (f *fakeCustody) SignMessage(_ context.Context, _, _, message string) (*custody.SignResult, error) {
	f.signed = append(f.signed, message)
	return f.result, f.err
}

func TestCreateWallet(t *testing.T) {
	privy := &fakeCustody{wallet: &custody.Wallet{ID: "wallet-1", Address: "0xabc"}}
	turnkey := &fakeCustody{wallet: &custody.Wallet{ID: "wallet-2", Address: "0xdef"}}
	handler := NewWalletsHandler(privy, turnkey)

	router := gin.New()
	router.POST("/api/wallets", handler.CreateWallet)

	w := performJSON(t, router, http.MethodPost, "/api/wallets", gin.H{"signerType": "privy"})
	require.Equal(t, http.StatusOK, w.Code)

	var wallet custody.Wallet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &wallet))
	assert.Equal(t, "wallet-1", wallet.ID)
	assert.Equal(t, 1, privy.created)
	assert.Zero(t, turnkey.created)
}

func TestCreateWalletInvalidSignerType(t *testing.T) {
	handler := NewWalletsHandler(&fakeCustody{}, &fakeCustody{})
	router := gin.New()
	router.POST("/api/wallets", handler.CreateWallet)

	for _, signerType := range []string{"browser", "local", ""} {
		w := performJSON(t, router, http.MethodPost, "/api/wallets", gin.H{"signerType": signerType})
		assert.Equal(t, http.StatusBadRequest, w.Code, "signerType %q", signerType)
	}
}

func TestSignDispatchesByKind(t *testing.T) {
	turnkey := &fakeCustody{result: &custody.SignResult{R: "0x01", S: "0x02", V: "00"}}
	handler := NewWalletsHandler(&fakeCustody{}, turnkey)

	router := gin.New()
	router.POST("/api/wallets/sign", handler.Sign)

	w := performJSON(t, router, http.MethodPost, "/api/wallets/sign", gin.H{
		"address":    "0xdef",
		"message":    "0x1234",
		"signerType": "turnkey",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result custody.SignResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "0x01", result.R)
	assert.Equal(t, "00", result.V)
	assert.Equal(t, []string{"0x1234"}, turnkey.signed)
}

func TestSignRequiresMessage(t *testing.T) {
	handler := NewWalletsHandler(&fakeCustody{}, &fakeCustody{})
	router := gin.New()
	router.POST("/api/wallets/sign", handler.Sign)

	w := performJSON(t, router, http.MethodPost, "/api/wallets/sign", gin.H{"signerType": "privy"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignCustodyFailure(t *testing.T) {
	privy := &fakeCustody{err: errors.New("upstream down")}
	handler := NewWalletsHandler(privy, &fakeCustody{})
	router := gin.New()
	router.POST("/api/wallets/sign", handler.Sign)

	w := performJSON(t, router, http.MethodPost, "/api/wallets/sign", gin.H{
		"id":         "wallet-1",
		"message":    "0x1234",
		"signerType": "privy",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestFaucetRejectsInvalidAddress(t *testing.T) {
	handler := NewFaucetHandler(faucet.NewClient("http://faucet.invalid"))
	router := gin.New()
	router.POST("/api/faucet", handler.Dispense)

	for _, to := range []string{"", "not-an-address", "0x123"} {
		w := performJSON(t, router, http.MethodPost, "/api/faucet", gin.H{"to": to})
		assert.Equal(t, http.StatusBadRequest, w.Code, "to %q", to)
		assert.Equal(t, "Invalid `to` address provided", w.Body.String())
	}
}

func TestFaucetDispense(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`"0xfaucethash"`))
	}))
	defer upstream.Close()

	handler := NewFaucetHandler(faucet.NewClient(upstream.URL))
	router := gin.New()
	router.POST("/api/faucet", handler.Dispense)

	w := performJSON(t, router, http.MethodPost, "/api/faucet",
		gin.H{"to": "0x1111111111111111111111111111111111111111"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp FaucetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, `"0xfaucethash"`, string(resp.Hash))
}

func TestGetPosts(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/farcaster/feed", r.URL.Path)
		assert.Equal(t, "global_trending", r.URL.Query().Get("filter_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"casts": [{
				"hash": "0xcast1",
				"text": "gm",
				"timestamp": "2026-08-28T12:00:00Z",
				"author": {"username": "alice"},
				"reactions": {"likes_count": 3, "recasts_count": 1},
				"replies": {"count": 2}
			}],
			"next": {"cursor": "page2"}
		}`))
	}))
	defer upstream.Close()

	feed := neynar.NewClient("test-key", client.WithBaseURL(upstream.URL))
	handler := NewPostsHandler(feed)
	router := gin.New()
	router.GET("/api/posts", handler.GetPosts)

	w := performJSON(t, router, http.MethodGet, "/api/posts", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp PostsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Posts, 1)
	assert.Equal(t, "0xcast1", resp.Posts[0].ID)
	assert.Equal(t, "gm", resp.Posts[0].Text)
	assert.Equal(t, "alice", resp.Posts[0].Author.Username)
	assert.Equal(t, "page2", resp.Next)
}
