package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	dexterm "github.com/featherdex/dexterm/pkg"
)

// interface guard ensures NodeCoreRPC implements dexterm.NodeRPC
var _ dexterm.NodeRPC = &NodeCoreRPC{}

const retryDelay = 1 * time.Second

// NewNodeCoreRPC returns a dexterm.NodeRPC implementor that talks to
// the coin daemon's JSON-RPC port. Every call is retried up to
// `attempts` times with a fixed delay; the last error is surfaced on
// exhaustion. Signing is delegated to the daemon's wallet, which is
// the engine's external signer.
func NewNodeCoreRPC(coin dexterm.CoinConfig, attempts int) *NodeCoreRPC {
	addr := fmt.Sprintf("http://%s:%d", coin.RPCHost, coin.RPCPort)
	if attempts < 1 {
		attempts = 1
	}
	return &NodeCoreRPC{url: addr, user: coin.RPCUser, pass: coin.RPCPass, attempts: attempts, id: new(uint64)}
}

type NodeCoreRPC struct {
	url      string
	user     string
	pass     string
	attempts int
	id       *uint64
}

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
	Id     uint64 `json:"id"`
}
type rpcResponse struct {
	Id     uint64           `json:"id"`
	Result *json.RawMessage `json:"result"`
	Error  *rpcError        `json:"error"`
}
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// daemon error code for "TX decode failed"
const rpcDeserializationError = -22

// request performs one JSON-RPC call under the bounded-retry policy.
func (l *NodeCoreRPC) request(ctx context.Context, method string, params []any, result any) error {
	var lastErr error
	for attempt := 0; attempt < l.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return dexterm.NewErr(dexterm.RPCError, "json-rpc %s: %v", method, ctx.Err())
			case <-time.After(retryDelay):
			}
		}
		lastErr = l.requestOnce(ctx, method, params, result)
		if lastErr == nil || !dexterm.Retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (l *NodeCoreRPC) requestOnce(ctx context.Context, method string, params []any, result any) error {
	body := rpcRequest{
		Method: method,
		Params: params,
		// unique per request; callers poll concurrently over one client
		Id: atomic.AddUint64(l.id, 1),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return dexterm.NewErr(dexterm.RPCError, "json-rpc marshal request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", l.url, bytes.NewBuffer(payload))
	if err != nil {
		return dexterm.NewErr(dexterm.RPCError, "json-rpc request: %v", err)
	}
	req.SetBasicAuth(l.user, l.pass)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return dexterm.NewErr(dexterm.RPCError, "json-rpc transport: %v", err)
	}
	// we MUST read all of res.Body and call res.Close,
	// otherwise the underlying connection cannot be re-used.
	defer res.Body.Close()
	resBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return dexterm.NewErr(dexterm.RPCError, "json-rpc read response: %v", err)
	}
	if res.StatusCode != 200 {
		return dexterm.NewErr(dexterm.RPCError, "json-rpc status code: %s", res.Status)
	}
	var rpcres rpcResponse
	err = json.Unmarshal(resBytes, &rpcres)
	if err != nil {
		return dexterm.NewErr(dexterm.RPCError, "json-rpc unmarshal response: %v", err)
	}
	if rpcres.Id != body.Id {
		return dexterm.NewErr(dexterm.RPCError, "json-rpc wrong ID returned: %v vs %v", rpcres.Id, body.Id)
	}
	if rpcres.Error != nil {
		if rpcres.Error.Code == rpcDeserializationError {
			return dexterm.NewErr(dexterm.DecodeError, "json-rpc %s: %s", method, rpcres.Error.Message)
		}
		return dexterm.NewErr(dexterm.RPCError, "json-rpc %s error %d: %s", method, rpcres.Error.Code, rpcres.Error.Message)
	}
	if rpcres.Result == nil {
		return dexterm.NewErr(dexterm.RPCError, "json-rpc missing result")
	}
	err = json.Unmarshal(*rpcres.Result, result)
	if err != nil {
		return dexterm.NewErr(dexterm.DecodeError, "json-rpc unmarshal result: %v | %v", err, string(*rpcres.Result))
	}
	return nil
}

func (l *NodeCoreRPC) DecodeRawTransaction(ctx context.Context, txHex string) (txn dexterm.RawTxn, err error) {
	err = l.request(ctx, "decoderawtransaction", []any{txHex}, &txn)
	return
}

func (l *NodeCoreRPC) GetTransaction(ctx context.Context, txid string) (txn dexterm.TxInfo, err error) {
	err = l.request(ctx, "gettransaction", []any{txid}, &txn)
	return
}

func (l *NodeCoreRPC) EstimateSmartFee(ctx context.Context, confTarget int) (res dexterm.FeeRateResult, err error) {
	err = l.request(ctx, "estimatesmartfee", []any{confTarget}, &res)
	return
}

func (l *NodeCoreRPC) ListUnspent(ctx context.Context, minConf int, addresses []dexterm.Address) (res []dexterm.Unspent, err error) {
	err = l.request(ctx, "listunspent", []any{minConf, 9999999, addresses}, &res)
	return
}

func (l *NodeCoreRPC) CreateRawTransaction(ctx context.Context, inputs []dexterm.PrevOut, outputs []dexterm.TxOut) (raw string, err error) {
	outs := make(map[string]string, len(outputs))
	for _, out := range outputs {
		outs[string(out.Address)] = out.Value.String()
	}
	err = l.request(ctx, "createrawtransaction", []any{inputs, outs}, &raw)
	return
}

func (l *NodeCoreRPC) SignRawTransaction(ctx context.Context, txHex string) (signed dexterm.SignedTxn, err error) {
	err = l.request(ctx, "signrawtransactionwithwallet", []any{txHex}, &signed)
	if err != nil {
		return
	}
	if !signed.Complete {
		err = dexterm.NewErr(dexterm.RPCError, "signer returned incomplete transaction")
	}
	return
}

func (l *NodeCoreRPC) SendRawTransaction(ctx context.Context, txHex string) (txid string, err error) {
	err = l.request(ctx, "sendrawtransaction", []any{txHex}, &txid)
	return
}

func (l *NodeCoreRPC) GetNewAddress(ctx context.Context, addrType string) (addr dexterm.Address, err error) {
	err = l.request(ctx, "getnewaddress", []any{"", addrType}, &addr)
	return
}

func (l *NodeCoreRPC) GetBlockCount(ctx context.Context) (blockCount int64, err error) {
	err = l.request(ctx, "getblockcount", []any{}, &blockCount)
	return
}

func (l *NodeCoreRPC) GetBlockchainInfo(ctx context.Context) (info dexterm.BlockchainInfo, err error) {
	err = l.request(ctx, "getblockchaininfo", []any{}, &info)
	return
}

func (l *NodeCoreRPC) CreatePayloadSimpleSend(ctx context.Context, propertyID int64, amount dexterm.Amount) (payload string, err error) {
	err = l.request(ctx, "omni_createpayload_simplesend", []any{propertyID, amount.String()}, &payload)
	return
}

func (l *NodeCoreRPC) CreatePayloadDExAccept(ctx context.Context, propertyID int64, amount dexterm.Amount) (payload string, err error) {
	err = l.request(ctx, "omni_createpayload_dexaccept", []any{propertyID, amount.String()}, &payload)
	return
}

func (l *NodeCoreRPC) CreatePayloadDExSell(ctx context.Context, propertyID int64, quantity, desired dexterm.Amount, paymentWindow int, minFee dexterm.Amount, action int) (payload string, err error) {
	err = l.request(ctx, "omni_createpayload_dexsell",
		[]any{propertyID, quantity.String(), desired.String(), paymentWindow, minFee.String(), action}, &payload)
	return
}

func (l *NodeCoreRPC) CreatePayloadChangeIssuer(ctx context.Context, propertyID int64) (payload string, err error) {
	err = l.request(ctx, "omni_createpayload_changeissuer", []any{propertyID}, &payload)
	return
}

func (l *NodeCoreRPC) CreatePayloadSetNFTData(ctx context.Context, propertyID, tokenStart, tokenEnd int64, data string) (payload string, err error) {
	err = l.request(ctx, "omni_createpayload_setnonfungibledata", []any{propertyID, tokenStart, tokenEnd, data}, &payload)
	return
}

func (l *NodeCoreRPC) CreatePayloadGrant(ctx context.Context, propertyID int64, amount dexterm.Amount, memo string) (payload string, err error) {
	err = l.request(ctx, "omni_createpayload_grant", []any{propertyID, amount.String(), memo}, &payload)
	return
}

func (l *NodeCoreRPC) CreatePayloadRevoke(ctx context.Context, propertyID int64, amount dexterm.Amount, memo string) (payload string, err error) {
	err = l.request(ctx, "omni_createpayload_revoke", []any{propertyID, amount.String(), memo}, &payload)
	return
}

func (l *NodeCoreRPC) CreateRawTxOpReturn(ctx context.Context, rawTx, payloadHex string) (raw string, err error) {
	err = l.request(ctx, "omni_createrawtx_opreturn", []any{rawTx, payloadHex}, &raw)
	return
}

func (l *NodeCoreRPC) CreateRawTxMultisig(ctx context.Context, rawTx, payloadHex string, redeemKey dexterm.Address) (raw string, err error) {
	err = l.request(ctx, "omni_createrawtx_multisig", []any{rawTx, payloadHex, string(redeemKey)}, &raw)
	return
}

func (l *NodeCoreRPC) GetTokenBalance(ctx context.Context, addr dexterm.Address, propertyID int64) (bal dexterm.TokenBalance, err error) {
	err = l.request(ctx, "omni_getbalance", []any{string(addr), propertyID}, &bal)
	bal.PropertyID = propertyID
	return
}

func (l *NodeCoreRPC) ListPendingTokenTransactions(ctx context.Context) (txs []dexterm.TokenTx, err error) {
	err = l.request(ctx, "omni_listpendingtransactions", []any{}, &txs)
	return
}

func (l *NodeCoreRPC) ListBlocksTokenTransactions(ctx context.Context, firstBlock, lastBlock int64) (txids []string, err error) {
	err = l.request(ctx, "omni_listblockstransactions", []any{firstBlock, lastBlock}, &txids)
	return
}

func (l *NodeCoreRPC) GetTokenTransaction(ctx context.Context, txid string) (tx dexterm.TokenTx, err error) {
	err = l.request(ctx, "omni_gettransaction", []any{txid}, &tx)
	return
}
