package nodemock

import (
	"context"
	"fmt"

	dexterm "github.com/featherdex/dexterm/pkg"
)

// interface guard ensures NodeMock implements dexterm.NodeRPC
var _ dexterm.NodeRPC = &NodeMock{}

// NodeMock is a dexterm.NodeRPC implementor for tests: each method
// delegates to the matching function field when set and reports "not
// implemented" otherwise, so a test only wires what it exercises.
type NodeMock struct {
	DecodeRawTransactionFn  func(txHex string) (dexterm.RawTxn, error)
	GetTransactionFn        func(txid string) (dexterm.TxInfo, error)
	EstimateSmartFeeFn      func(confTarget int) (dexterm.FeeRateResult, error)
	ListUnspentFn           func(minConf int, addresses []dexterm.Address) ([]dexterm.Unspent, error)
	CreateRawTransactionFn  func(inputs []dexterm.PrevOut, outputs []dexterm.TxOut) (string, error)
	SignRawTransactionFn    func(txHex string) (dexterm.SignedTxn, error)
	SendRawTransactionFn    func(txHex string) (string, error)
	GetNewAddressFn         func(addrType string) (dexterm.Address, error)
	GetBlockCountFn         func() (int64, error)
	GetBlockchainInfoFn     func() (dexterm.BlockchainInfo, error)
	CreatePayloadFn         func(method string) (string, error)
	CreateRawTxOpReturnFn   func(rawTx, payloadHex string) (string, error)
	CreateRawTxMultisigFn   func(rawTx, payloadHex string, redeemKey dexterm.Address) (string, error)
	GetTokenBalanceFn       func(addr dexterm.Address, propertyID int64) (dexterm.TokenBalance, error)
	ListPendingFn           func() ([]dexterm.TokenTx, error)
	ListBlocksTokenTxFn     func(firstBlock, lastBlock int64) ([]string, error)
	GetTokenTransactionFn   func(txid string) (dexterm.TokenTx, error)
}

func notImplemented(method string) error {
	return fmt.Errorf("nodemock: %s not implemented", method)
}

func (m *NodeMock) DecodeRawTransaction(ctx context.Context, txHex string) (dexterm.RawTxn, error) {
	if m.DecodeRawTransactionFn != nil {
		return m.DecodeRawTransactionFn(txHex)
	}
	return dexterm.RawTxn{}, notImplemented("DecodeRawTransaction")
}

func (m *NodeMock) GetTransaction(ctx context.Context, txid string) (dexterm.TxInfo, error) {
	if m.GetTransactionFn != nil {
		return m.GetTransactionFn(txid)
	}
	return dexterm.TxInfo{}, notImplemented("GetTransaction")
}

func (m *NodeMock) EstimateSmartFee(ctx context.Context, confTarget int) (dexterm.FeeRateResult, error) {
	if m.EstimateSmartFeeFn != nil {
		return m.EstimateSmartFeeFn(confTarget)
	}
	return dexterm.FeeRateResult{}, notImplemented("EstimateSmartFee")
}

func (m *NodeMock) ListUnspent(ctx context.Context, minConf int, addresses []dexterm.Address) ([]dexterm.Unspent, error) {
	if m.ListUnspentFn != nil {
		return m.ListUnspentFn(minConf, addresses)
	}
	return nil, notImplemented("ListUnspent")
}

func (m *NodeMock) CreateRawTransaction(ctx context.Context, inputs []dexterm.PrevOut, outputs []dexterm.TxOut) (string, error) {
	if m.CreateRawTransactionFn != nil {
		return m.CreateRawTransactionFn(inputs, outputs)
	}
	return "", notImplemented("CreateRawTransaction")
}

func (m *NodeMock) SignRawTransaction(ctx context.Context, txHex string) (dexterm.SignedTxn, error) {
	if m.SignRawTransactionFn != nil {
		return m.SignRawTransactionFn(txHex)
	}
	return dexterm.SignedTxn{}, notImplemented("SignRawTransaction")
}

func (m *NodeMock) SendRawTransaction(ctx context.Context, txHex string) (string, error) {
	if m.SendRawTransactionFn != nil {
		return m.SendRawTransactionFn(txHex)
	}
	return "", notImplemented("SendRawTransaction")
}

func (m *NodeMock) GetNewAddress(ctx context.Context, addrType string) (dexterm.Address, error) {
	if m.GetNewAddressFn != nil {
		return m.GetNewAddressFn(addrType)
	}
	return "", notImplemented("GetNewAddress")
}

func (m *NodeMock) GetBlockCount(ctx context.Context) (int64, error) {
	if m.GetBlockCountFn != nil {
		return m.GetBlockCountFn()
	}
	return 0, notImplemented("GetBlockCount")
}

func (m *NodeMock) GetBlockchainInfo(ctx context.Context) (dexterm.BlockchainInfo, error) {
	if m.GetBlockchainInfoFn != nil {
		return m.GetBlockchainInfoFn()
	}
	return dexterm.BlockchainInfo{}, notImplemented("GetBlockchainInfo")
}

func (m *NodeMock) createPayload(method string) (string, error) {
	if m.CreatePayloadFn != nil {
		return m.CreatePayloadFn(method)
	}
	return "", notImplemented(method)
}

func (m *NodeMock) CreatePayloadSimpleSend(ctx context.Context, propertyID int64, amount dexterm.Amount) (string, error) {
	return m.createPayload("CreatePayloadSimpleSend")
}

func (m *NodeMock) CreatePayloadDExAccept(ctx context.Context, propertyID int64, amount dexterm.Amount) (string, error) {
	return m.createPayload("CreatePayloadDExAccept")
}

func (m *NodeMock) CreatePayloadDExSell(ctx context.Context, propertyID int64, quantity, desired dexterm.Amount, paymentWindow int, minFee dexterm.Amount, action int) (string, error) {
	return m.createPayload("CreatePayloadDExSell")
}

func (m *NodeMock) CreatePayloadChangeIssuer(ctx context.Context, propertyID int64) (string, error) {
	return m.createPayload("CreatePayloadChangeIssuer")
}

func (m *NodeMock) CreatePayloadSetNFTData(ctx context.Context, propertyID, tokenStart, tokenEnd int64, data string) (string, error) {
	return m.createPayload("CreatePayloadSetNFTData")
}

func (m *NodeMock) CreatePayloadGrant(ctx context.Context, propertyID int64, amount dexterm.Amount, memo string) (string, error) {
	return m.createPayload("CreatePayloadGrant")
}

func (m *NodeMock) CreatePayloadRevoke(ctx context.Context, propertyID int64, amount dexterm.Amount, memo string) (string, error) {
	return m.createPayload("CreatePayloadRevoke")
}

func (m *NodeMock) CreateRawTxOpReturn(ctx context.Context, rawTx, payloadHex string) (string, error) {
	if m.CreateRawTxOpReturnFn != nil {
		return m.CreateRawTxOpReturnFn(rawTx, payloadHex)
	}
	return "", notImplemented("CreateRawTxOpReturn")
}

func (m *NodeMock) CreateRawTxMultisig(ctx context.Context, rawTx, payloadHex string, redeemKey dexterm.Address) (string, error) {
	if m.CreateRawTxMultisigFn != nil {
		return m.CreateRawTxMultisigFn(rawTx, payloadHex, redeemKey)
	}
	return "", notImplemented("CreateRawTxMultisig")
}

func (m *NodeMock) GetTokenBalance(ctx context.Context, addr dexterm.Address, propertyID int64) (dexterm.TokenBalance, error) {
	if m.GetTokenBalanceFn != nil {
		return m.GetTokenBalanceFn(addr, propertyID)
	}
	return dexterm.TokenBalance{}, notImplemented("GetTokenBalance")
}

func (m *NodeMock) ListPendingTokenTransactions(ctx context.Context) ([]dexterm.TokenTx, error) {
	if m.ListPendingFn != nil {
		return m.ListPendingFn()
	}
	return nil, notImplemented("ListPendingTokenTransactions")
}

func (m *NodeMock) ListBlocksTokenTransactions(ctx context.Context, firstBlock, lastBlock int64) ([]string, error) {
	if m.ListBlocksTokenTxFn != nil {
		return m.ListBlocksTokenTxFn(firstBlock, lastBlock)
	}
	return nil, notImplemented("ListBlocksTokenTransactions")
}

func (m *NodeMock) GetTokenTransaction(ctx context.Context, txid string) (dexterm.TokenTx, error) {
	if m.GetTokenTransactionFn != nil {
		return m.GetTokenTransactionFn(txid)
	}
	return dexterm.TokenTx{}, notImplemented("GetTokenTransaction")
}
