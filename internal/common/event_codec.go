package common

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// 事件流上的消息统一使用JSON编码

func EncodeSwapEvent(e *SwapEvent) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid swap event")
	}
	return json.Marshal(e)
}

func DecodeSwapEvent(data []byte) (*SwapEvent, error) {
	var e SwapEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.Wrap(err, "decode swap event")
	}
	if err := e.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid swap event")
	}
	return &e, nil
}

func EncodeTxEvent(e *TxEvent) ([]byte, error) {
	return json.Marshal(e)
}

func DecodeTxEvent(data []byte) (*TxEvent, error) {
	var e TxEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.Wrap(err, "decode tx event")
	}
	return &e, nil
}

func EncodeSwapResult(r *SwapResult) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeSwapResult(data []byte) (*SwapResult, error) {
	var r SwapResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, "decode swap result")
	}
	return &r, nil
}
