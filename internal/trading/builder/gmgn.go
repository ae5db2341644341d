package builder

import (
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

const defaultGMGNEndpoint = "https://gmgn.ai"

// GMGNBuilder 厂商路由构建器。用它构建的交易必须走GMGN中继提交。
type GMGNBuilder struct {
	client   *chain.Client
	endpoint string
	http     *http.Client
}

func NewGMGNBuilder(client *chain.Client, endpoint string) *GMGNBuilder {
	if endpoint == "" {
		endpoint = defaultGMGNEndpoint
	}
	return &GMGNBuilder{
		client:   client,
		endpoint: endpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *GMGNBuilder) Tag() string { return TagGMGN }

type gmgnRouteResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		RawTx struct {
			SwapTransaction string `json:"swapTransaction"`
		} `json:"raw_tx"`
	} `json:"data"`
}

func (b *GMGNBuilder) BuildSwapTransaction(ctx context.Context, params *SwapParams) (*solana.Transaction, error) {
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

	query := url.Values{}
	query.Set("token_in_address", inputMint.String())
	query.Set("token_out_address", outputMint.String())
	query.Set("in_amount", fmt.Sprintf("%d", amount))
	query.Set("from_address", payer.String())
	query.Set("slippage", decimal.NewFromInt(int64(params.SlippageBps)).
		Div(decimal.NewFromInt(100)).String())
	if params.PriorityFee.Sign() > 0 {
		query.Set("fee", params.PriorityFee.String())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		b.endpoint+"/defi/router/v1/sol/tx/get_swap_route?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "构造路由请求失败")
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "请求GMGN路由失败")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "读取路由响应失败")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("GMGN路由返回 %d: %s", resp.StatusCode, body)
	}

	var routeResp gmgnRouteResponse
	if err := json.Unmarshal(body, &routeResp); err != nil {
		return nil, errors.Wrap(err, "解析路由响应失败")
	}
	if routeResp.Code != 0 {
		return nil, errors.Errorf("GMGN路由失败: code=%d msg=%s", routeResp.Code, routeResp.Msg)
	}

	raw, err := base64.StdEncoding.DecodeString(routeResp.Data.RawTx.SwapTransaction)
	if err != nil {
		return nil, errors.Wrap(err, "解码路由交易失败")
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, errors.Wrap(err, "反序列化路由交易失败")
	}
	if err := signTransaction(tx, params.Payer); err != nil {
		return nil, err
	}

	logger.Debug("🔧 GMGN交易构建完成",
		logger.String("input_mint", inputMint.String()),
		logger.String("output_mint", outputMint.String()),
		logger.Uint64("amount", amount),
	)
	return tx, nil
}
