package cortex

import (
	"encoding/json"
	"fmt"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("cortex error %d: %s", e.Code, e.Message)
}

// inbound is either a response (ID set) or a stream event.
type inbound struct {
	ID     *int64          `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`

	SID  string  `json:"sid,omitempty"`
	Time float64 `json:"time,omitempty"`
	Met  []any   `json:"met,omitempty"`

	Warning *struct {
		Code    int `json:"code"`
		Message any `json:"message"`
	} `json:"warning,omitempty"`
}

type response struct {
	result json.RawMessage
	err    error
}

type headset struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type subscribeResult struct {
	Success []struct {
		StreamName string   `json:"streamName"`
		Cols       []string `json:"cols"`
	} `json:"success"`
	Failure []struct {
		StreamName string `json:"streamName"`
		Code       int    `json:"code"`
		Message    string `json:"message"`
	} `json:"failure"`
}
