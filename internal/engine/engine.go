package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"go.uber.org/zap"

	"github.com/peter-kozarec/fixsim/internal/fix"
	"github.com/peter-kozarec/fixsim/internal/model"
	"github.com/peter-kozarec/fixsim/internal/persona"
)

// ErrProtocolInvariant marks messages that passed validation but still lack
// or corrupt a field the engine depends on. These are integration errors,
// the engine never defaults around them.
var ErrProtocolInvariant = errors.New("protocol invariant violated")

// Source is the randomness the engine consumes. *rand.Rand satisfies it,
// tests inject deterministic sequences.
type Source interface {
	Float64() float64
	Intn(n int) int
}

var zeroPx = decimal.MustNew(0, 0)

// Orders without a price still need one for simulated fills.
var fallbackPx = decimal.MustNew(12345, 4)

// Engine owns one session's order state and converts validated order-entry
// messages into execution reports according to the persona profile.
type Engine struct {
	logger  *zap.Logger
	profile persona.Profile
	rng     Source
	header  fix.Header

	orders map[string]*model.Order
}

func New(logger *zap.Logger, profile persona.Profile, rng Source, header fix.Header) *Engine {
	return &Engine{
		logger:  logger,
		profile: profile,
		rng:     rng,
		header:  header,
		orders:  make(map[string]*model.Order),
	}
}

// Latency samples the simulated processing delay between the acknowledgment
// and the outcome report.
func (engine *Engine) Latency() time.Duration {
	jitter := (engine.rng.Float64()*2 - 1) * engine.profile.LatencyJitterMs
	ms := engine.profile.AvgLatencyMs + jitter
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// OnNewOrder produces the immediate acknowledgment and the outcome report
// for a new-order request. The caller applies Latency between the two. The
// outcome is decided by a single draw, successive partial fills are not
// simulated.
func (engine *Engine) OnNewOrder(msg *fix.Message) (ack, outcome *fix.Message, err error) {
	clOrdID, symbol, side, err := requireOrderFields(msg)
	if err != nil {
		return nil, nil, err
	}
	qty, err := msg.GetInt64(fix.TagOrderQty)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrProtocolInvariant, err)
	}

	price := fallbackPx
	if msg.Has(fix.TagPrice) {
		if price, err = msg.GetDecimal(fix.TagPrice); err != nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrProtocolInvariant, err)
		}
	}

	order := &model.Order{
		ClOrdID:      clOrdID,
		Symbol:       symbol,
		Side:         side,
		Qty:          qty,
		Price:        price,
		VenueOrderID: shortID(),
		Status:       model.StatusNew,
	}
	engine.orders[clOrdID] = order

	ack = engine.executionReport(order, report{
		status: model.StatusNew,
		leaves: qty,
		avgPx:  zeroPx,
	})

	if engine.rng.Float64() >= engine.profile.FillRate {
		order.Status = model.StatusRejected
		outcome = engine.executionReport(order, report{
			status: model.StatusRejected,
			leaves: qty,
			avgPx:  zeroPx,
		})
		return ack, outcome, nil
	}

	if engine.rng.Float64() < engine.profile.PartialFillRate && qty > 1 {
		filled := int64(1 + engine.rng.Intn(int(qty-1)))
		order.Status = model.StatusPartiallyFilled
		outcome = engine.executionReport(order, report{
			status:   model.StatusPartiallyFilled,
			leaves:   qty - filled,
			cum:      filled,
			avgPx:    price,
			lastQty:  filled,
			lastPx:   price,
			withFill: true,
		})
		return ack, outcome, nil
	}

	order.Status = model.StatusFilled
	outcome = engine.executionReport(order, report{
		status:   model.StatusFilled,
		cum:      qty,
		avgPx:    price,
		lastQty:  qty,
		lastPx:   price,
		withFill: true,
	})
	return ack, outcome, nil
}

// OnCancelRequest acknowledges a cancel unconditionally. The simulator
// keeps no resting book, so the original order is never looked up.
func (engine *Engine) OnCancelRequest(msg *fix.Message) (*fix.Message, error) {
	clOrdID, symbol, side, err := requireOrderFields(msg)
	if err != nil {
		return nil, err
	}
	origClOrdID, ok := msg.Get(fix.TagOrigClOrdID)
	if !ok {
		return nil, fmt.Errorf("%w: OrigClOrdID(41) not present", ErrProtocolInvariant)
	}

	engine.logger.Info("processing cancel request", zap.String("orig_cl_ord_id", origClOrdID))

	if order, ok := engine.orders[origClOrdID]; ok {
		order.Status = model.StatusCancelled
	}

	order := &model.Order{
		ClOrdID:      clOrdID,
		OrigClOrdID:  origClOrdID,
		Symbol:       symbol,
		Side:         side,
		VenueOrderID: shortID(),
		Status:       model.StatusCancelled,
	}
	out := engine.executionReport(order, report{
		status: model.StatusCancelled,
		avgPx:  zeroPx,
	})
	out.Append(fix.TagOrigClOrdID, origClOrdID)
	return out, nil
}

// OnReplaceRequest acknowledges a replace with a single report carrying the
// new quantity as LeavesQty. ExecType says Replaced while OrdStatus stays
// New, matching the venue this simulator mimics. No fill is simulated.
func (engine *Engine) OnReplaceRequest(msg *fix.Message) (*fix.Message, error) {
	clOrdID, symbol, side, err := requireOrderFields(msg)
	if err != nil {
		return nil, err
	}
	origClOrdID, ok := msg.Get(fix.TagOrigClOrdID)
	if !ok {
		return nil, fmt.Errorf("%w: OrigClOrdID(41) not present", ErrProtocolInvariant)
	}
	newQty, err := msg.GetInt64(fix.TagOrderQty)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProtocolInvariant, err)
	}

	engine.logger.Info("processing replace request", zap.String("orig_cl_ord_id", origClOrdID))

	if order, ok := engine.orders[origClOrdID]; ok {
		order.Status = model.StatusReplaced
		order.Qty = newQty
	}

	order := &model.Order{
		ClOrdID:      clOrdID,
		OrigClOrdID:  origClOrdID,
		Symbol:       symbol,
		Side:         side,
		Qty:          newQty,
		VenueOrderID: shortID(),
		Status:       model.StatusReplaced,
	}
	out := engine.executionReport(order, report{
		execType: model.StatusReplaced.Wire(),
		status:   model.StatusNew,
		leaves:   newQty,
		avgPx:    zeroPx,
	})
	out.Append(fix.TagOrigClOrdID, origClOrdID)
	return out, nil
}

type report struct {
	execType string // defaults to status.Wire()
	status   model.Status
	leaves   int64
	cum      int64
	avgPx    decimal.Decimal
	lastQty  int64
	lastPx   decimal.Decimal
	withFill bool
}

func (engine *Engine) executionReport(order *model.Order, r report) *fix.Message {
	execType := r.execType
	if execType == "" {
		execType = r.status.Wire()
	}

	msg := engine.header.NewMessage(fix.MsgTypeExecutionReport)
	msg.Append(fix.TagExecID, shortID())
	msg.Append(fix.TagClOrdID, order.ClOrdID)
	msg.Append(fix.TagOrderID, order.VenueOrderID)
	msg.Append(fix.TagExecType, execType)
	msg.Append(fix.TagOrdStatus, r.status.Wire())
	msg.Append(fix.TagSymbol, order.Symbol)
	msg.Append(fix.TagSide, string(order.Side))
	msg.AppendInt(fix.TagLeavesQty, r.leaves)
	msg.AppendInt(fix.TagCumQty, r.cum)
	msg.AppendDecimal(fix.TagAvgPx, r.avgPx)
	if r.withFill {
		msg.AppendInt(fix.TagLastShares, r.lastQty)
		msg.AppendDecimal(fix.TagLastPx, r.lastPx)
	}
	return msg
}

func requireOrderFields(msg *fix.Message) (clOrdID, symbol string, side model.Side, err error) {
	clOrdID, ok := msg.Get(fix.TagClOrdID)
	if !ok {
		return "", "", "", fmt.Errorf("%w: ClOrdID(11) not present", ErrProtocolInvariant)
	}
	symbol, ok = msg.Get(fix.TagSymbol)
	if !ok {
		return "", "", "", fmt.Errorf("%w: Symbol(55) not present", ErrProtocolInvariant)
	}
	rawSide, ok := msg.Get(fix.TagSide)
	if !ok {
		return "", "", "", fmt.Errorf("%w: Side(54) not present", ErrProtocolInvariant)
	}
	return clOrdID, symbol, model.Side(rawSide), nil
}

func shortID() string {
	return uuid.NewString()[:8]
}
