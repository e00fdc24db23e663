package engine

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peter-kozarec/fixsim/internal/fix"
	"github.com/peter-kozarec/fixsim/internal/model"
	"github.com/peter-kozarec/fixsim/internal/persona"
)

var testHeader = fix.Header{
	BeginString:  "FIX.4.2",
	SenderCompID: "SIMULATOR",
	TargetCompID: "BRIDGE",
}

func newTestEngine(profile persona.Profile, seed int64) *Engine {
	return New(zap.NewNop(), profile, rand.New(rand.NewSource(seed)), testHeader)
}

func newOrderMessage(clOrdID string, qty int64) *fix.Message {
	msg := fix.NewMessage()
	msg.Append(fix.TagBeginString, "FIX.4.2")
	msg.Append(fix.TagMsgType, fix.MsgTypeNewOrderSingle)
	msg.Append(fix.TagClOrdID, clOrdID)
	msg.Append(fix.TagSymbol, "EUR/USD")
	msg.Append(fix.TagSide, "1")
	msg.Append(fix.TagTransactTime, "20250101-10:00:00")
	msg.AppendInt(fix.TagOrderQty, qty)
	msg.Append(fix.TagOrdType, "2")
	msg.Append(fix.TagPrice, "1.0950")
	return msg
}

func requireQtyInvariant(t *testing.T, msg *fix.Message, originalQty int64) {
	t.Helper()
	leaves, err := msg.GetInt64(fix.TagLeavesQty)
	require.NoError(t, err)
	cum, err := msg.GetInt64(fix.TagCumQty)
	require.NoError(t, err)
	require.Equal(t, originalQty, leaves+cum, "LeavesQty + CumQty must equal OrderQty")
}

func TestEngine_NewOrderAlwaysFills(t *testing.T) {
	profile := persona.Profile{FillRate: 1.0, PartialFillRate: 0.0}

	for seed := int64(0); seed < 10; seed++ {
		eng := newTestEngine(profile, seed)

		ack, outcome, err := eng.OnNewOrder(newOrderMessage("ORD_1", 10000))
		require.NoError(t, err)

		for _, msg := range []*fix.Message{ack, outcome} {
			clOrdID, _ := msg.Get(fix.TagClOrdID)
			require.Equal(t, "ORD_1", clOrdID)
			requireQtyInvariant(t, msg, 10000)
		}

		status, _ := ack.Get(fix.TagOrdStatus)
		require.Equal(t, model.StatusNew.Wire(), status)

		status, _ = outcome.Get(fix.TagOrdStatus)
		require.Equal(t, model.StatusFilled.Wire(), status)

		cum, err := outcome.GetInt64(fix.TagCumQty)
		require.NoError(t, err)
		require.Equal(t, int64(10000), cum)

		leaves, err := outcome.GetInt64(fix.TagLeavesQty)
		require.NoError(t, err)
		require.Zero(t, leaves)

		lastPx, _ := outcome.Get(fix.TagLastPx)
		require.Equal(t, "1.0950", lastPx)
	}
}

func TestEngine_NewOrderAlwaysRejects(t *testing.T) {
	profile := persona.Profile{FillRate: 0.0}

	for seed := int64(0); seed < 10; seed++ {
		eng := newTestEngine(profile, seed)

		_, outcome, err := eng.OnNewOrder(newOrderMessage("ORD_2", 5000))
		require.NoError(t, err)

		status, _ := outcome.Get(fix.TagOrdStatus)
		require.Equal(t, model.StatusRejected.Wire(), status)

		leaves, err := outcome.GetInt64(fix.TagLeavesQty)
		require.NoError(t, err)
		require.Equal(t, int64(5000), leaves)

		cum, err := outcome.GetInt64(fix.TagCumQty)
		require.NoError(t, err)
		require.Zero(t, cum)
		require.False(t, outcome.Has(fix.TagLastShares))
	}
}

func TestEngine_NewOrderAlwaysPartiallyFills(t *testing.T) {
	profile := persona.Profile{FillRate: 1.0, PartialFillRate: 1.0}

	for seed := int64(0); seed < 10; seed++ {
		eng := newTestEngine(profile, seed)

		_, outcome, err := eng.OnNewOrder(newOrderMessage("ORD_3", 10))
		require.NoError(t, err)

		status, _ := outcome.Get(fix.TagOrdStatus)
		require.Equal(t, model.StatusPartiallyFilled.Wire(), status)

		cum, err := outcome.GetInt64(fix.TagCumQty)
		require.NoError(t, err)
		require.Greater(t, cum, int64(0))
		require.Less(t, cum, int64(10))
		requireQtyInvariant(t, outcome, 10)

		lastShares, err := outcome.GetInt64(fix.TagLastShares)
		require.NoError(t, err)
		require.Equal(t, cum, lastShares)
	}
}

func TestEngine_SingleUnitOrderNeverPartiallyFills(t *testing.T) {
	profile := persona.Profile{FillRate: 1.0, PartialFillRate: 1.0}
	eng := newTestEngine(profile, 1)

	_, outcome, err := eng.OnNewOrder(newOrderMessage("ORD_4", 1))
	require.NoError(t, err)

	status, _ := outcome.Get(fix.TagOrdStatus)
	require.Equal(t, model.StatusFilled.Wire(), status)
}

func TestEngine_NewOrderWithoutPriceUsesFallback(t *testing.T) {
	profile := persona.Profile{FillRate: 1.0}
	eng := newTestEngine(profile, 1)

	msg := newOrderMessage("ORD_5", 100)
	stripped := fix.NewMessage()
	for _, field := range msg.Fields() {
		if field.Tag == fix.TagPrice {
			continue
		}
		stripped.Append(field.Tag, field.Value)
	}

	_, outcome, err := eng.OnNewOrder(stripped)
	require.NoError(t, err)

	lastPx, _ := outcome.Get(fix.TagLastPx)
	require.Equal(t, "1.2345", lastPx)
}

func TestEngine_CancelRequest(t *testing.T) {
	eng := newTestEngine(persona.Profile{}, 1)

	msg := fix.NewMessage()
	msg.Append(fix.TagMsgType, fix.MsgTypeOrderCancelRequest)
	msg.Append(fix.TagClOrdID, "CNL_1")
	msg.Append(fix.TagOrigClOrdID, "ORD_1")
	msg.Append(fix.TagSymbol, "EUR/USD")
	msg.Append(fix.TagSide, "1")

	out, err := eng.OnCancelRequest(msg)
	require.NoError(t, err)

	status, _ := out.Get(fix.TagOrdStatus)
	require.Equal(t, model.StatusCancelled.Wire(), status)

	clOrdID, _ := out.Get(fix.TagClOrdID)
	require.Equal(t, "CNL_1", clOrdID)
	origClOrdID, _ := out.Get(fix.TagOrigClOrdID)
	require.Equal(t, "ORD_1", origClOrdID)

	leaves, err := out.GetInt64(fix.TagLeavesQty)
	require.NoError(t, err)
	require.Zero(t, leaves)
	cum, err := out.GetInt64(fix.TagCumQty)
	require.NoError(t, err)
	require.Zero(t, cum)
}

func TestEngine_ReplaceRequest(t *testing.T) {
	eng := newTestEngine(persona.Profile{}, 1)

	msg := fix.NewMessage()
	msg.Append(fix.TagMsgType, fix.MsgTypeOrderCancelReplace)
	msg.Append(fix.TagClOrdID, "MOD_1")
	msg.Append(fix.TagOrigClOrdID, "ORD_1")
	msg.Append(fix.TagSymbol, "EUR/USD")
	msg.Append(fix.TagSide, "1")
	msg.AppendInt(fix.TagOrderQty, 7000)

	out, err := eng.OnReplaceRequest(msg)
	require.NoError(t, err)

	execType, _ := out.Get(fix.TagExecType)
	require.Equal(t, model.StatusReplaced.Wire(), execType)
	status, _ := out.Get(fix.TagOrdStatus)
	require.Equal(t, model.StatusNew.Wire(), status)

	leaves, err := out.GetInt64(fix.TagLeavesQty)
	require.NoError(t, err)
	require.Equal(t, int64(7000), leaves)

	origClOrdID, _ := out.Get(fix.TagOrigClOrdID)
	require.Equal(t, "ORD_1", origClOrdID)
}

func TestEngine_InvariantViolationFailsFast(t *testing.T) {
	eng := newTestEngine(persona.Profile{FillRate: 1.0}, 1)

	msg := newOrderMessage("ORD_6", 100)
	missingQty := fix.NewMessage()
	for _, field := range msg.Fields() {
		if field.Tag == fix.TagOrderQty {
			continue
		}
		missingQty.Append(field.Tag, field.Value)
	}

	_, _, err := eng.OnNewOrder(missingQty)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrProtocolInvariant))
}

func TestEngine_NonNumericQtyFailsFast(t *testing.T) {
	eng := newTestEngine(persona.Profile{FillRate: 1.0}, 1)

	msg := fix.NewMessage()
	msg.Append(fix.TagMsgType, fix.MsgTypeNewOrderSingle)
	msg.Append(fix.TagClOrdID, "ORD_7")
	msg.Append(fix.TagSymbol, "EUR/USD")
	msg.Append(fix.TagSide, "1")
	msg.Append(fix.TagOrderQty, "lots")

	_, _, err := eng.OnNewOrder(msg)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrProtocolInvariant))
}

func TestEngine_LatencyWithoutJitter(t *testing.T) {
	eng := newTestEngine(persona.Profile{AvgLatencyMs: 100}, 1)
	require.Equal(t, 100*time.Millisecond, eng.Latency())
}

func TestEngine_LatencyNeverNegative(t *testing.T) {
	eng := newTestEngine(persona.Profile{AvgLatencyMs: 1, LatencyJitterMs: 50}, 1)

	for i := 0; i < 100; i++ {
		latency := eng.Latency()
		require.GreaterOrEqual(t, latency, time.Duration(0))
		require.LessOrEqual(t, latency, 51*time.Millisecond)
	}
}
