package builder

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/sol-trader/internal/chain"
	"github.com/ninja0404/sol-trader/internal/common"
	"github.com/ninja0404/sol-trader/pkg/logger"
)

const defaultJupiterEndpoint = "https://quote-api.jup.ag/v6"

// JupiterBuilder 聚合器路由构建器, 外盘代币的兜底场所
type JupiterBuilder struct {
	client   *chain.Client
	endpoint string
	http     *http.Client
}

func NewJupiterBuilder(client *chain.Client, endpoint string) *JupiterBuilder {
	if endpoint == "" {
		endpoint = defaultJupiterEndpoint
	}
	return &JupiterBuilder{
		client:   client,
		endpoint: endpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *JupiterBuilder) Tag() string { return TagJupiter }

type jupiterSwapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	PrioritizationFeeLamports uint64          `json:"prioritizationFeeLamports,omitempty"`
}

type jupiterSwapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

func (b *JupiterBuilder) BuildSwapTransaction(ctx context.Context, params *SwapParams) (*solana.Transaction, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	payer := params.Payer.PublicKey()

	var inputMint, outputMint solana.PublicKey
	var amount uint64
	if params.Direction == common.DirectionBuy {
		inputMint, outputMint = common.WSOL, params.Token
		amount = params.UIAmount.Mul(decimal.NewFromInt(common.SOLDecimal)).Floor().BigInt().Uint64()
		if amount == 0 {
			return nil, ErrInvalidAmount
		}
	} else {
		inputMint, outputMint = params.Token, common.WSOL
		balance, decimals, err := b.client.TokenBalance(ctx, payer, params.Token)
		if err != nil {
			return nil, err
		}
		amount, _, err = resolveSellAmount(params, balance, decimals)
		if err != nil {
			return nil, err
		}
	}

	quote, err := b.fetchQuote(ctx, inputMint, outputMint, amount, params.SlippageBps)
	if err != nil {
		return nil, err
	}

	priorityLamports := params.PriorityFee.Mul(decimal.NewFromInt(common.SOLDecimal)).Floor().BigInt().Uint64()
	rawTx, err := b.fetchSwapTransaction(ctx, quote, payer, priorityLamports)
	if err != nil {
		return nil, err
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(rawTx))
	if err != nil {
		return nil, errors.Wrap(err, "反序列化聚合器交易失败")
	}

	// 聚合器返回的blockhash可能已陈旧, 换新后重签
	blockhash, err := b.client.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	tx.Message.RecentBlockhash = blockhash
	if err := signTransaction(tx, params.Payer); err != nil {
		return nil, err
	}

	logger.Debug("🔧 Jupiter交易构建完成",
		logger.String("input_mint", inputMint.String()),
		logger.String("output_mint", outputMint.String()),
		logger.Uint64("amount", amount),
	)
	return tx, nil
}

func (b *JupiterBuilder) fetchQuote(ctx context.Context, inputMint, outputMint solana.PublicKey, amount uint64, slippageBps int) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("inputMint", inputMint.String())
	query.Set("outputMint", outputMint.String())
	query.Set("amount", fmt.Sprintf("%d", amount))
	query.Set("slippageBps", fmt.Sprintf("%d", slippageBps))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		b.endpoint+"/quote?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "构造quote请求失败")
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "请求聚合器报价失败")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "读取报价响应失败")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("聚合器报价返回 %d: %s", resp.StatusCode, body)
	}
	return json.RawMessage(body), nil
}

func (b *JupiterBuilder) fetchSwapTransaction(ctx context.Context, quote json.RawMessage, payer solana.PublicKey, priorityLamports uint64) ([]byte, error) {
	payload, err := json.Marshal(&jupiterSwapRequest{
		QuoteResponse:             quote,
		UserPublicKey:             payer.String(),
		WrapAndUnwrapSol:          true,
		PrioritizationFeeLamports: priorityLamports,
	})
	if err != nil {
		return nil, errors.Wrap(err, "序列化swap请求失败")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.endpoint+"/swap", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "构造swap请求失败")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "请求聚合器构建交易失败")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "读取swap响应失败")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("聚合器构建返回 %d: %s", resp.StatusCode, body)
	}

	var swapResp jupiterSwapResponse
	if err := json.Unmarshal(body, &swapResp); err != nil {
		return nil, errors.Wrap(err, "解析swap响应失败")
	}
	raw, err := base64.StdEncoding.DecodeString(swapResp.SwapTransaction)
	if err != nil {
		return nil, errors.Wrap(err, "解码swap交易失败")
	}
	return raw, nil
}
