package chain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	pkgerr "github.com/pkg/errors"

	"github.com/ninja0404/sol-trader/internal/common"
)

// BondingCurveAccount pump.fun bonding curve 账户的 borsh 布局
type BondingCurveAccount struct {
	Discriminator        [8]uint8
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

// DeriveBondingCurve 推导 mint 对应的 bonding curve PDA 及其关联 token 账户
func DeriveBondingCurve(mint solana.PublicKey) (curve solana.PublicKey, associated solana.PublicKey, err error) {
	curve, _, err = solana.FindProgramAddress(
		[][]byte{[]byte("bonding-curve"), mint.Bytes()},
		common.PumpFunProgram,
	)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, pkgerr.Wrap(err, "推导bonding curve地址失败")
	}
	associated, _, err = solana.FindAssociatedTokenAddress(curve, mint)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, pkgerr.Wrap(err, "推导curve关联账户失败")
	}
	return curve, associated, nil
}

// FetchBondingCurve 拉取并解码 bonding curve 账户。
// 账户不存在说明该 mint 不是 pump 内盘代币。
func (c *Client) FetchBondingCurve(ctx context.Context, mint solana.PublicKey) (*BondingCurveAccount, solana.PublicKey, solana.PublicKey, error) {
	curve, associated, err := DeriveBondingCurve(mint)
	if err != nil {
		return nil, solana.PublicKey{}, solana.PublicKey{}, err
	}

	var account BondingCurveAccount
	if err := c.AccountDataInto(ctx, curve, &account); err != nil {
		if pkgerr.Is(err, ErrAccountNotFound) {
			return nil, solana.PublicKey{}, solana.PublicKey{}, ErrCurveNotFound
		}
		return nil, solana.PublicKey{}, solana.PublicKey{}, err
	}
	return &account, curve, associated, nil
}
