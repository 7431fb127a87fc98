package core

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	dexterm "github.com/featherdex/dexterm/pkg"
)

// rpcHandler answers JSON-RPC requests from a per-method table and
// records the calls and request ids it receives.
type rpcHandler struct {
	results map[string]any // method -> result, or an rpcFail for a daemon error

	mu    sync.Mutex
	calls map[string]int
	ids   []uint64
}

type rpcFail struct {
	Code    int
	Message string
}

func newRPCHandler() *rpcHandler {
	return &rpcHandler{results: map[string]any{}, calls: map[string]int{}}
}

func (h *rpcHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string `json:"method"`
		Id     uint64 `json:"id"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	h.mu.Lock()
	h.calls[req.Method]++
	h.ids = append(h.ids, req.Id)
	h.mu.Unlock()

	res, ok := h.results[req.Method]
	if !ok {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	if fail, isFail := res.(rpcFail); isFail {
		json.NewEncoder(w).Encode(map[string]any{
			"id":    req.Id,
			"error": map[string]any{"code": fail.Code, "message": fail.Message},
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"id": req.Id, "result": res})
}

func testClient(t *testing.T, h *rpcHandler, attempts int) *NodeCoreRPC {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}
	coin := dexterm.CoinConfig{RPCHost: u.Hostname(), RPCPort: port, RPCUser: "u", RPCPass: "p"}
	return NewNodeCoreRPC(coin, attempts)
}

func TestRequestResultDecoding(t *testing.T) {
	h := newRPCHandler()
	h.results["getblockcount"] = 123456
	rpc := testClient(t, h, 1)

	count, err := rpc.GetBlockCount(context.Background())
	if err != nil {
		t.Fatal("GetBlockCount:", err)
	}
	if count != 123456 {
		t.Errorf("count = %d", count)
	}
}

func TestRequestRetriesTransientFailures(t *testing.T) {
	h := newRPCHandler() // no results: every call is a 500
	rpc := testClient(t, h, 2)

	_, err := rpc.GetBlockCount(context.Background())
	if !dexterm.IsError(err, dexterm.RPCError) {
		t.Fatalf("expected rpc-error after exhausted retries, got %v", err)
	}
	if h.calls["getblockcount"] != 2 {
		t.Errorf("made %d attempts, want 2", h.calls["getblockcount"])
	}
}

func TestRequestConcurrentCallers(t *testing.T) {
	h := newRPCHandler()
	h.results["getblockcount"] = 123456
	rpc := testClient(t, h, 1)

	// confirmation polling runs one goroutine per pending txid over a
	// single shared client
	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 8; i++ {
				if _, err := rpc.GetBlockCount(context.Background()); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error("concurrent call:", err)
	}

	if h.calls["getblockcount"] != 64 {
		t.Fatalf("server saw %d calls, want 64", h.calls["getblockcount"])
	}
	seen := make(map[uint64]bool, len(h.ids))
	for _, id := range h.ids {
		if seen[id] {
			t.Fatalf("request id %d issued twice", id)
		}
		seen[id] = true
	}
}

func TestRequestMapsDeserializationError(t *testing.T) {
	h := newRPCHandler()
	h.results["decoderawtransaction"] = rpcFail{Code: -22, Message: "TX decode failed"}
	rpc := testClient(t, h, 1)

	_, err := rpc.DecodeRawTransaction(context.Background(), "zz")
	if !dexterm.IsError(err, dexterm.DecodeError) {
		t.Errorf("expected decode-error for daemon code -22, got %v", err)
	}
}

func TestRequestDaemonError(t *testing.T) {
	h := newRPCHandler()
	h.results["sendrawtransaction"] = rpcFail{Code: -26, Message: "dust"}
	rpc := testClient(t, h, 1)

	_, err := rpc.SendRawTransaction(context.Background(), "00")
	if !dexterm.IsError(err, dexterm.RPCError) {
		t.Errorf("expected rpc-error, got %v", err)
	}
	if got := err.Error(); !strings.Contains(got, "dust") {
		t.Errorf("daemon message lost: %q", got)
	}
}

func TestSignRawTransactionIncomplete(t *testing.T) {
	h := newRPCHandler()
	h.results["signrawtransactionwithwallet"] = map[string]any{"hex": "00", "complete": false}
	rpc := testClient(t, h, 1)

	_, err := rpc.SignRawTransaction(context.Background(), "00")
	if !dexterm.IsError(err, dexterm.RPCError) {
		t.Errorf("incomplete signature must be an error, got %v", err)
	}
}

func TestCreateRawTransactionAmountFormat(t *testing.T) {
	h := newRPCHandler()
	h.results["createrawtransaction"] = "rawhex"
	rpc := testClient(t, h, 1)

	raw, err := rpc.CreateRawTransaction(context.Background(),
		[]dexterm.PrevOut{{TxID: "aa", VOut: 0}},
		[]dexterm.TxOut{{Address: "LVg2kJoFNg45Nbpy53h7Fe1wKyeXVRhMH9", Value: 150000000}})
	if err != nil {
		t.Fatal("CreateRawTransaction:", err)
	}
	if raw != "rawhex" {
		t.Errorf("raw = %q", raw)
	}
}
