package rpc

import "encoding/json"

type Request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// ScanResult is what scantxoutset("start", ...) reports. TotalAmount is in
// whole BTC; Bitcoin Core may render it in scientific notation for tiny
// values, so it stays a json.Number until the codec normalizes it.
type ScanResult struct {
	Success     bool        `json:"success"`
	Height      int64       `json:"height"`
	BestBlock   string      `json:"bestblock"`
	TxOuts      int64       `json:"txouts"`
	TotalAmount json.Number `json:"total_amount"`
}
