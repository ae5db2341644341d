package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/ninja0404/sol-trader/internal/chain"
	"github.com/ninja0404/sol-trader/pkg/logger"
)

const defaultJitoEndpoint = "https://mainnet.block-engine.jito.wtf/api/v1/transactions"

// JitoSender 通过jito block engine提交, 换取抗抢跑保护。
// 小费指令由构建阶段注入, 这里只负责投递。
type JitoSender struct {
	client   *chain.Client
	endpoint string
	http     *http.Client
}

func NewJitoSender(client *chain.Client, endpoint string) *JitoSender {
	if endpoint == "" {
		endpoint = defaultJitoEndpoint
	}
	return &JitoSender{
		client:   client,
		endpoint: endpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *JitoSender) Tag() string { return TagJito }

type jitoRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type jitoResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *JitoSender) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "序列化交易失败")
	}

	payload, err := json.Marshal(&jitoRequest{
		Jsonrpc: "2.0",
		ID:      1,
		Method:  "sendTransaction",
		Params: []interface{}{
			base58.Encode(raw),
			map[string]string{"encoding": "base58"},
		},
	})
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "序列化jito请求失败")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "构造jito请求失败")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "请求jito block engine失败")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "读取jito响应失败")
	}
	if resp.StatusCode != http.StatusOK {
		return solana.Signature{}, errors.Errorf("jito返回 %d: %s", resp.StatusCode, body)
	}

	var jitoResp jitoResponse
	if err := json.Unmarshal(body, &jitoResp); err != nil {
		return solana.Signature{}, errors.Wrap(err, "解析jito响应失败")
	}
	if jitoResp.Error != nil {
		return solana.Signature{}, errors.Errorf("jito提交失败: code=%d msg=%s",
			jitoResp.Error.Code, jitoResp.Error.Message)
	}

	sig, err := solana.SignatureFromBase58(jitoResp.Result)
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "解析jito返回签名失败")
	}

	logger.Info("📤 交易已提交jito", logger.String("signature", sig.String()))
	return sig, nil
}

func (s *JitoSender) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (bool, error) {
	return s.client.SimulateTransaction(ctx, tx)
}
