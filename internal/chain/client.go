package chain

import (
	"context"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	pkgerr "github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/sol-trader/internal/common"
)

// Client 封装 Solana RPC 节点访问,交易构建和结算模块共用一个实例
type Client struct {
	rpc *rpc.Client
}

func NewClient(endpoint string) *Client {
	return &Client{rpc: rpc.New(endpoint)}
}

// LatestBlockhash 获取最新 blockhash,交易构建前调用
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Hash{}, pkgerr.Wrap(err, "获取最新blockhash失败")
	}
	return out.Value.Blockhash, nil
}

// MinBalanceForTokenAccount 查询 SPL token 账户的租金豁免金额
func (c *Client) MinBalanceForTokenAccount(ctx context.Context) (uint64, error) {
	lamports, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, common.TokenAccountLayoutLen, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, pkgerr.Wrap(err, "获取租金豁免金额失败")
	}
	return lamports, nil
}

// SolBalance 查询钱包 SOL 余额(lamports)
func (c *Client) SolBalance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	out, err := c.rpc.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, pkgerr.Wrap(err, "获取SOL余额失败")
	}
	return out.Value, nil
}

// TokenBalance 查询 owner 持有 mint 的余额,返回原始数量和精度。
// 没有对应 token 账户时返回 (0, 0, nil)。
func (c *Client) TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, uint8, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, 0, pkgerr.Wrap(err, "推导ATA地址失败")
	}
	out, err := c.rpc.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
	if err != nil {
		// 账户不存在等同于零持仓
		return 0, 0, nil
	}
	if out == nil || out.Value == nil {
		return 0, 0, nil
	}
	amount, err := decimal.NewFromString(out.Value.Amount)
	if err != nil {
		return 0, 0, pkgerr.Wrap(err, "解析token余额失败")
	}
	return amount.BigInt().Uint64(), out.Value.Decimals, nil
}

// TokenAccountBalance 按账户地址查询 token 余额,用于读取池子金库储备
func (c *Client) TokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, uint8, error) {
	out, err := c.rpc.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, 0, pkgerr.Wrap(err, "获取token账户余额失败")
	}
	if out == nil || out.Value == nil {
		return 0, 0, ErrAccountNotFound
	}
	amount, err := decimal.NewFromString(out.Value.Amount)
	if err != nil {
		return 0, 0, pkgerr.Wrap(err, "解析token余额失败")
	}
	return amount.BigInt().Uint64(), out.Value.Decimals, nil
}

// HasTokenAccount 判断 owner 是否已有 mint 的关联账户
func (c *Client) HasTokenAccount(ctx context.Context, owner, mint solana.PublicKey) (bool, solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return false, solana.PublicKey{}, pkgerr.Wrap(err, "推导ATA地址失败")
	}
	out, err := c.rpc.GetAccountInfoWithOpts(ctx, ata, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil || out == nil || out.Value == nil {
		return false, ata, nil
	}
	return true, ata, nil
}

// AccountDataInto 拉取账户并按 borsh 布局解码到 out
func (c *Client) AccountDataInto(ctx context.Context, account solana.PublicKey, out interface{}) error {
	info, err := c.rpc.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return pkgerr.Wrap(err, "获取账户信息失败")
	}
	if info == nil || info.Value == nil {
		return ErrAccountNotFound
	}
	data := info.Value.Data.GetBinary()
	if err := bin.NewBorshDecoder(data).Decode(out); err != nil {
		return pkgerr.Wrap(err, "解码账户数据失败")
	}
	return nil
}

// SendTransaction 直接走 RPC 节点广播,跳过 preflight
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, pkgerr.Wrap(err, "广播交易失败")
	}
	return sig, nil
}

// SimulateTransaction 模拟执行, 返回链上执行是否会成功
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (bool, error) {
	out, err := c.rpc.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return false, pkgerr.Wrap(err, "模拟交易失败")
	}
	if out == nil || out.Value == nil {
		return false, nil
	}
	return out.Value.Err == nil, nil
}

// SignatureStatus 查询交易状态
//
// 返回值:finalized=是否已有定论, success=链上执行是否成功
func (c *Client) SignatureStatus(ctx context.Context, sig solana.Signature) (finalized bool, success bool, err error) {
	out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return false, false, pkgerr.Wrap(err, "查询交易状态失败")
	}
	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		return false, false, nil
	}
	st := out.Value[0]
	if st.ConfirmationStatus != rpc.ConfirmationStatusConfirmed &&
		st.ConfirmationStatus != rpc.ConfirmationStatusFinalized {
		return false, false, nil
	}
	return true, st.Err == nil, nil
}

// Transaction 拉取已上链交易的完整内容,供结算分析余额变化
func (c *Client) Transaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	maxVersion := uint64(0)
	out, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, pkgerr.Wrap(err, "获取交易详情失败")
	}
	if out == nil || out.Meta == nil {
		return nil, ErrTransactionNotFound
	}
	return out, nil
}
