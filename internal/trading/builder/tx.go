package builder

import (
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/sol-trader/internal/common"
)

// 单笔swap交易的compute unit上限
const DefaultComputeUnitLimit = 200_000

var (
	lamportsPerSOL = decimal.NewFromInt(common.SOLDecimal)
	microPerUnit   = decimal.NewFromInt(1_000_000)

	// jito模式下优先费的拆分比例: 70%做CU价格, 30%做小费
	jitoCuShare  = decimal.NewFromFloat(0.7)
	jitoTipShare = decimal.NewFromFloat(0.3)
)

// CalcTxUnits 把SOL计价的优先费换算成CU价格(micro-lamports)和CU上限
func CalcTxUnits(priorityFee decimal.Decimal) (unitPrice uint64, unitLimit uint32) {
	unitLimit = DefaultComputeUnitLimit
	if priorityFee.Sign() <= 0 {
		return 0, unitLimit
	}
	micro := priorityFee.Mul(lamportsPerSOL).Mul(microPerUnit).
		Div(decimal.NewFromInt(int64(unitLimit)))
	return micro.Floor().BigInt().Uint64(), unitLimit
}

// CalcTxUnitsAndSplitFees jito模式下再切出30%优先费做bundle小费
func CalcTxUnitsAndSplitFees(priorityFee decimal.Decimal) (unitPrice uint64, unitLimit uint32, tipLamports uint64) {
	unitPrice, unitLimit = CalcTxUnits(priorityFee.Mul(jitoCuShare))
	tipLamports = priorityFee.Mul(jitoTipShare).Mul(lamportsPerSOL).Floor().BigInt().Uint64()
	return unitPrice, unitLimit, tipLamports
}

// ComputeBudgetInstructions 生成CU限额和CU价格指令, 价格为0时只设限额
func ComputeBudgetInstructions(unitPrice uint64, unitLimit uint32) []solana.Instruction {
	ins := []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(unitLimit).Build(),
	}
	if unitPrice > 0 {
		ins = append(ins, computebudget.NewSetComputeUnitPriceInstruction(unitPrice).Build())
	}
	return ins
}

// jito小费账户, 任选其一转账即可进入bundle竞价
var jitoTipAccount = solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5")

// makeJitoTipInstruction 向jito小费账户转账, UseJito时必须包含在交易内
func makeJitoTipInstruction(payer solana.PublicKey, lamports uint64) (solana.Instruction, error) {
	ins, err := system.NewTransferInstruction(lamports, payer, jitoTipAccount).ValidateAndBuild()
	if err != nil {
		return nil, errors.Wrap(err, "构建jito小费指令失败")
	}
	return ins, nil
}

// wsolAccount 一次swap生命周期内的临时WSOL账户
type wsolAccount struct {
	Address solana.PublicKey
	Create  []solana.Instruction
	Close   solana.Instruction
}

// makeTempWSOLAccount 用create_with_seed创建临时WSOL账户并注入lamports,
// 交易末尾关闭以回收租金。seed保证地址对payer唯一且可重建。
func makeTempWSOLAccount(payer solana.PublicKey, seed string, lamports, rentExempt uint64) (*wsolAccount, error) {
	address, err := solana.CreateWithSeed(payer, seed, solana.TokenProgramID)
	if err != nil {
		return nil, errors.Wrap(err, "推导seed账户地址失败")
	}

	createIns, err := system.NewCreateAccountWithSeedInstruction(
		payer,
		seed,
		lamports+rentExempt,
		common.TokenAccountLayoutLen,
		solana.TokenProgramID,
		payer,
		address,
		payer,
	).ValidateAndBuild()
	if err != nil {
		return nil, errors.Wrap(err, "构建create_with_seed指令失败")
	}

	initIns, err := token.NewInitializeAccountInstruction(
		address,
		common.WSOL,
		payer,
		solana.SysVarRentPubkey,
	).ValidateAndBuild()
	if err != nil {
		return nil, errors.Wrap(err, "构建initialize_account指令失败")
	}

	closeIns, err := token.NewCloseAccountInstruction(
		address,
		payer,
		payer,
		nil,
	).ValidateAndBuild()
	if err != nil {
		return nil, errors.Wrap(err, "构建close_account指令失败")
	}

	return &wsolAccount{
		Address: address,
		Create:  []solana.Instruction{createIns, initIns},
		Close:   closeIns,
	}, nil
}

// makeCreateATAInstruction 为payer创建mint的关联账户
func makeCreateATAInstruction(payer, mint solana.PublicKey) (solana.Instruction, error) {
	ins, err := associatedtokenaccount.NewCreateInstruction(payer, payer, mint).ValidateAndBuild()
	if err != nil {
		return nil, errors.Wrap(err, "构建create_ata指令失败")
	}
	return ins, nil
}

// makeCloseTokenAccountInstruction 关闭token账户, 余额和租金退回owner
func makeCloseTokenAccountInstruction(account, owner solana.PublicKey) (solana.Instruction, error) {
	ins, err := token.NewCloseAccountInstruction(account, owner, owner, nil).ValidateAndBuild()
	if err != nil {
		return nil, errors.Wrap(err, "构建close_account指令失败")
	}
	return ins, nil
}

// wsolSeed 每次构建生成新seed, 避免同一payer并发swap时地址冲突
func wsolSeed() string {
	return solana.NewWallet().PublicKey().String()[:32]
}

// signTransaction 用payer私钥签名
func signTransaction(tx *solana.Transaction, payer solana.PrivateKey) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if payer.PublicKey().Equals(key) {
			return &payer
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "交易签名失败")
	}
	return nil
}
