package sender

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/ninja0404/sol-trader/internal/chain"
	"github.com/ninja0404/sol-trader/pkg/logger"
)

const defaultGMGNSubmitEndpoint = "https://gmgn.ai/defi/router/v1/sol/tx/submit_signed_transaction"

// GMGNSender 厂商中继提交。GMGN构建的交易只能走这里, 与调用方的jito偏好无关。
type GMGNSender struct {
	client   *chain.Client
	endpoint string
	http     *http.Client
}

func NewGMGNSender(client *chain.Client, endpoint string) *GMGNSender {
	if endpoint == "" {
		endpoint = defaultGMGNSubmitEndpoint
	}
	return &GMGNSender{
		client:   client,
		endpoint: endpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *GMGNSender) Tag() string { return TagGMGN }

type gmgnSubmitRequest struct {
	SignedTx string `json:"signed_tx"`
}

type gmgnSubmitResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Hash string `json:"hash"`
	} `json:"data"`
}

func (s *GMGNSender) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "序列化交易失败")
	}

	payload, err := json.Marshal(&gmgnSubmitRequest{
		SignedTx: base64.StdEncoding.EncodeToString(raw),
	})
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "序列化提交请求失败")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "构造提交请求失败")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "请求GMGN中继失败")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "读取GMGN响应失败")
	}
	if resp.StatusCode != http.StatusOK {
		return solana.Signature{}, errors.Errorf("GMGN中继返回 %d: %s", resp.StatusCode, body)
	}

	var submitResp gmgnSubmitResponse
	if err := json.Unmarshal(body, &submitResp); err != nil {
		return solana.Signature{}, errors.Wrap(err, "解析GMGN响应失败")
	}
	if submitResp.Code != 0 {
		return solana.Signature{}, errors.Errorf("GMGN提交失败: code=%d msg=%s",
			submitResp.Code, submitResp.Msg)
	}

	sig, err := solana.SignatureFromBase58(submitResp.Data.Hash)
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "解析GMGN返回签名失败")
	}

	logger.Info("📤 交易已提交GMGN中继", logger.String("signature", sig.String()))
	return sig, nil
}

func (s *GMGNSender) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (bool, error) {
	return s.client.SimulateTransaction(ctx, tx)
}
