package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBuyEvent() *SwapEvent {
	return &SwapEvent{
		UserPubkey:  "user",
		SwapMode:    SwapModeExactIn,
		InputMint:   WSOL.String(),
		OutputMint:  "mint",
		Amount:      1_000_000,
		SlippageBps: 100,
	}
}

func TestSwapEventValidate(t *testing.T) {
	require.NoError(t, validBuyEvent().Validate())

	event := validBuyEvent()
	event.UserPubkey = ""
	assert.Error(t, event.Validate())

	event = validBuyEvent()
	event.SlippageBps = 10001
	assert.Error(t, event.Validate())

	event = validBuyEvent()
	event.SwapMode = "market"
	assert.Error(t, event.Validate())

	// ExactOut必须声明数量表达方式
	event = validBuyEvent()
	event.SwapMode = SwapModeExactOut
	event.SwapInType = ""
	assert.Error(t, event.Validate())
	event.SwapInType = SwapInPct
	assert.NoError(t, event.Validate())
}

func TestSwapEventDirectionAndTokenMint(t *testing.T) {
	buy := validBuyEvent()
	assert.Equal(t, DirectionBuy, buy.Direction())
	assert.Equal(t, "mint", buy.TokenMint())

	sell := &SwapEvent{
		SwapMode:   SwapModeExactOut,
		InputMint:  "mint",
		OutputMint: WSOL.String(),
	}
	assert.Equal(t, DirectionSell, sell.Direction())
	assert.Equal(t, "mint", sell.TokenMint())
}

func TestSwapEventCodecRoundTrip(t *testing.T) {
	event := validBuyEvent()
	event.By = OriginCopyTrade
	event.TxEvent = &TxEvent{Signature: "5sig", Mint: "mint"}

	payload, err := EncodeSwapEvent(event)
	require.NoError(t, err)
	decoded, err := DecodeSwapEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, event.UserPubkey, decoded.UserPubkey)
	require.NotNil(t, decoded.TxEvent)
	assert.Equal(t, "5sig", decoded.TxEvent.Signature)

	_, err = DecodeSwapEvent([]byte("{not json"))
	assert.Error(t, err)
}
