package client

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"go.uber.org/zap"

	"github.com/peter-kozarec/fixsim/internal/bus"
	"github.com/peter-kozarec/fixsim/internal/fix"
	"github.com/peter-kozarec/fixsim/internal/model"
)

const (
	senderCompID = "BRIDGE"
	targetCompID = "SIMULATOR"

	dialTimeout       = 5 * time.Second
	reconnectInterval = 5 * time.Second
	pollInterval      = 100 * time.Millisecond
	readBufferSize    = 4096

	minOrderQty = 1000
)

// Action weights out of 100: new 45, cancel 25, modify 25, malformed 5.
const (
	weightNew    = 45
	weightCancel = 25
	weightModify = 25
)

var symbols = []string{"EUR/USD", "GBP/USD", "USD/JPY", "AUD/USD", "USD/CAD"}

// Source is the randomness behind every trading decision the client makes.
// *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// Client drives synthetic order flow against the simulator: it logs on,
// then on a randomized cadence sends new, cancel, modify and occasionally
// malformed requests, reconciling execution reports against its local open
// order registry. It reconnects indefinitely.
type Client struct {
	logger *zap.Logger
	router *bus.Router
	addr   string
	header fix.Header
	rng    Source

	conn      net.Conn
	parser    *fix.Parser
	connected bool
	loggedOn  bool

	open map[string]*model.Order

	lastAction   time.Time
	nextActionIn time.Duration
}

func New(logger *zap.Logger, router *bus.Router, addr, beginString string, rng Source) *Client {
	client := &Client{
		logger: logger,
		router: router,
		addr:   addr,
		header: fix.Header{
			BeginString:  beginString,
			SenderCompID: senderCompID,
			TargetCompID: targetCompID,
		},
		rng:  rng,
		open: make(map[string]*model.Order),
	}
	client.nextActionIn = client.actionDelay()
	return client
}

// Loop is one cycle of the cooperative client loop, meant to run as the
// router's executor. It never returns a fatal error for transport trouble,
// a dropped connection just schedules a reconnect.
func (client *Client) Loop(ctx context.Context) error {
	if !client.connected {
		if err := client.connect(); err != nil {
			client.logger.Warn("connection failed, retrying", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(reconnectInterval):
			}
			return nil
		}
		client.lastAction = time.Now()
		return nil
	}

	client.poll()

	if client.loggedOn && time.Since(client.lastAction) > client.nextActionIn {
		client.act()
		client.lastAction = time.Now()
		client.nextActionIn = client.actionDelay()
	}
	return nil
}

func (client *Client) connect() error {
	client.logger.Info("connecting", zap.String("addr", client.addr))
	conn, err := net.DialTimeout("tcp", client.addr, dialTimeout)
	if err != nil {
		return err
	}

	client.conn = conn
	client.parser = fix.NewParser()
	client.connected = true

	client.logger.Info("connection established, sending logon")
	logon := client.header.NewMessage(fix.MsgTypeLogon)
	logon.Append(fix.TagEncryptMethod, "0")
	logon.Append(fix.TagHeartBtInt, "30")
	client.send(logon)
	return nil
}

func (client *Client) disconnect() {
	if client.conn != nil {
		_ = client.conn.Close()
	}
	client.conn = nil
	client.connected = false
	client.loggedOn = false
	client.logger.Info("client disconnected")
}

// poll attempts a bounded read and posts any decoded messages to the
// router. Read deadlines stand in for non-blocking reads and double as the
// loop's pacing.
func (client *Client) poll() {
	buf := make([]byte, readBufferSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pollInterval))

	n, err := client.conn.Read(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return
		}
		client.logger.Warn("connection lost while listening", zap.Error(err))
		client.disconnect()
		return
	}

	client.parser.AppendBuffer(buf[:n])
	for {
		msg, err := client.parser.Next()
		if err != nil {
			client.logger.Warn("decode failed", zap.Error(err))
			client.disconnect()
			return
		}
		if msg == nil {
			return
		}

		msgType, _ := msg.MsgType()
		switch msgType {
		case fix.MsgTypeLogon:
			client.postEvent(bus.SessionOpenEvent, msg)
		case fix.MsgTypeExecutionReport:
			client.postEvent(bus.ReportEvent, msg)
		default:
			client.logger.Debug("ignoring message type", zap.String("msg_type", msgType))
		}
	}
}

func (client *Client) postEvent(id bus.EventId, msg *fix.Message) {
	if err := client.router.Post(id, msg); err != nil {
		client.logger.Warn("unable to post event", zap.Error(err))
	}
}

// OnSessionOpen handles the logon acknowledgment.
func (client *Client) OnSessionOpen(*fix.Message) error {
	client.logger.Info("logon successful")
	client.loggedOn = true
	return nil
}

// OnReport reconciles an execution report against the open order registry:
// terminal statuses close the order, New stores the venue order id,
// Replaced keeps the order open with updated status.
func (client *Client) OnReport(msg *fix.Message) error {
	id, ok := msg.Get(fix.TagOrigClOrdID)
	if !ok {
		if id, ok = msg.Get(fix.TagClOrdID); !ok {
			return nil
		}
	}

	order, ok := client.open[id]
	if !ok {
		client.logger.Info("report for unknown or closed order", zap.String("cl_ord_id", id))
		return nil
	}

	raw, ok := msg.Get(fix.TagOrdStatus)
	if !ok {
		return nil
	}
	status, ok := model.StatusFromWire(raw)
	if !ok {
		return nil
	}

	switch {
	case status.Terminal():
		client.logger.Info("order closed", zap.String("cl_ord_id", id), zap.String("status", status.String()))
		delete(client.open, id)
	case status == model.StatusNew:
		if venueOrderID, ok := msg.Get(fix.TagOrderID); ok {
			order.VenueOrderID = venueOrderID
		}
	case status == model.StatusReplaced:
		client.logger.Info("order modified", zap.String("cl_ord_id", id))
		order.Status = model.StatusReplaced
	default:
	}
	return nil
}

// OpenOrders returns the number of orders the client still considers open.
func (client *Client) OpenOrders() int {
	return len(client.open)
}

func (client *Client) actionDelay() time.Duration {
	return time.Duration((1.0 + client.rng.Float64()*2.0) * float64(time.Second))
}

func (client *Client) act() {
	draw := client.rng.Intn(100)
	switch {
	case draw < weightNew:
		client.sendOrder()
	case draw < weightNew+weightCancel:
		client.cancelRandomOrder()
	case draw < weightNew+weightCancel+weightModify:
		client.modifyRandomOrder()
	default:
		client.sendMalformedOrder()
	}
}

func (client *Client) sendOrder() {
	order := &model.Order{
		ClOrdID: "ORD_" + shortID(),
		Symbol:  symbols[client.rng.Intn(len(symbols))],
		Side:    []model.Side{model.Buy, model.Sell}[client.rng.Intn(2)],
		Qty:     int64(1+client.rng.Intn(10)) * 10000,
		Price:   client.randomPrice(),
		Status:  model.StatusNew,
	}
	client.open[order.ClOrdID] = order

	client.logger.Info("sending new order",
		zap.String("cl_ord_id", order.ClOrdID),
		zap.Int64("qty", order.Qty),
		zap.String("symbol", order.Symbol))

	msg := client.header.NewMessage(fix.MsgTypeNewOrderSingle)
	msg.Append(fix.TagClOrdID, order.ClOrdID)
	msg.Append(fix.TagSymbol, order.Symbol)
	msg.Append(fix.TagSide, string(order.Side))
	msg.Append(fix.TagTransactTime, transactTime())
	msg.AppendInt(fix.TagOrderQty, order.Qty)
	msg.Append(fix.TagOrdType, "2")
	msg.AppendDecimal(fix.TagPrice, order.Price)
	client.send(msg)
}

func (client *Client) cancelRandomOrder() {
	order := client.randomOpenOrder()
	if order == nil {
		return
	}

	client.logger.Info("sending cancel request", zap.String("orig_cl_ord_id", order.ClOrdID))

	msg := client.header.NewMessage(fix.MsgTypeOrderCancelRequest)
	msg.Append(fix.TagClOrdID, "CNL_"+shortID())
	msg.Append(fix.TagOrigClOrdID, order.ClOrdID)
	msg.Append(fix.TagSymbol, order.Symbol)
	msg.Append(fix.TagSide, string(order.Side))
	msg.Append(fix.TagTransactTime, transactTime())
	client.send(msg)
}

func (client *Client) modifyRandomOrder() {
	order := client.randomOpenOrder()
	if order == nil {
		return
	}
	newQty := modifiedQty(order.Qty, client.rng.Intn(11)-5)

	client.logger.Info("sending replace request",
		zap.String("orig_cl_ord_id", order.ClOrdID),
		zap.Int64("new_qty", newQty))

	msg := client.header.NewMessage(fix.MsgTypeOrderCancelReplace)
	msg.Append(fix.TagClOrdID, "MOD_"+shortID())
	msg.Append(fix.TagOrigClOrdID, order.ClOrdID)
	msg.Append(fix.TagSymbol, order.Symbol)
	msg.Append(fix.TagSide, string(order.Side))
	msg.Append(fix.TagTransactTime, transactTime())
	msg.AppendInt(fix.TagOrderQty, newQty)
	msg.Append(fix.TagOrdType, "2")
	client.send(msg)
}

// sendMalformedOrder omits the required Side(54) to exercise the
// simulator's validation path. The order is never registered, no
// acknowledgment is expected.
func (client *Client) sendMalformedOrder() {
	client.logger.Info("sending malformed order, missing Side(54)")

	msg := client.header.NewMessage(fix.MsgTypeNewOrderSingle)
	msg.Append(fix.TagClOrdID, "BAD_"+shortID())
	msg.Append(fix.TagSymbol, "EUR/USD")
	msg.AppendInt(fix.TagOrderQty, 10000)
	msg.Append(fix.TagOrdType, "2")
	client.send(msg)
}

func (client *Client) randomOpenOrder() *model.Order {
	if len(client.open) == 0 {
		return nil
	}
	idx := client.rng.Intn(len(client.open))
	for _, order := range client.open {
		if idx == 0 {
			return order
		}
		idx--
	}
	return nil
}

func (client *Client) randomPrice() decimal.Decimal {
	// Uniform in [1.05000, 1.25000] with five decimals.
	return decimal.MustNew(int64(105000+client.rng.Intn(20001)), 5)
}

func (client *Client) send(msg *fix.Message) {
	if !client.connected || client.conn == nil {
		return
	}
	data, err := fix.Encode(msg)
	if err != nil {
		client.logger.Error("unable to encode message", zap.Error(err))
		return
	}
	if _, err := client.conn.Write(data); err != nil {
		client.logger.Warn("connection lost while sending", zap.Error(err))
		client.disconnect()
	}
}

func modifiedQty(qty int64, steps int) int64 {
	newQty := qty + int64(steps)*1000
	if newQty < minOrderQty {
		return minOrderQty
	}
	return newQty
}

func transactTime() string {
	return time.Now().UTC().Format("20060102-15:04:05")
}

func shortID() string {
	return uuid.NewString()[:12]
}
