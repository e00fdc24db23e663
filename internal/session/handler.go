package session

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/fixsim/internal/dict"
	"github.com/peter-kozarec/fixsim/internal/engine"
	"github.com/peter-kozarec/fixsim/internal/fix"
	"github.com/peter-kozarec/fixsim/internal/persona"
)

type State int

const (
	StateAwaitingOpen State = iota
	StateActive
	StateClosed
)

const (
	senderCompID = "SIMULATOR"
	targetCompID = "BRIDGE"

	defaultEncryptMethod = "0"
	defaultHeartBtInt    = "30"
)

// ErrClosed is returned once a handler refuses further processing; the
// owning connection must be released.
var ErrClosed = errors.New("session closed")

// Handler orchestrates one connection: it requires a logon first, resolves
// the dictionary for the declared protocol version, then gates every
// message through the validator before dispatching to the lifecycle engine.
// A non-nil error from Handle means the connection must be closed.
type Handler struct {
	logger   *zap.Logger
	registry *dict.Registry
	profile  persona.Profile
	rng      engine.Source
	send     func(*fix.Message) error
	sleep    func(time.Duration)

	state      State
	dictionary *dict.Dictionary
	engine     *engine.Engine
}

func NewHandler(logger *zap.Logger, registry *dict.Registry, profile persona.Profile, rng engine.Source, send func(*fix.Message) error) *Handler {
	return &Handler{
		logger:   logger,
		registry: registry,
		profile:  profile,
		rng:      rng,
		send:     send,
		sleep:    time.Sleep,
		state:    StateAwaitingOpen,
	}
}

func (handler *Handler) State() State {
	return handler.state
}

// Close marks the session terminal. Transport teardown is the caller's job.
func (handler *Handler) Close() {
	handler.state = StateClosed
}

func (handler *Handler) Handle(msg *fix.Message) error {
	switch handler.state {
	case StateAwaitingOpen:
		return handler.handleOpen(msg)
	case StateActive:
		return handler.handleActive(msg)
	default:
		return ErrClosed
	}
}

func (handler *Handler) handleOpen(msg *fix.Message) error {
	if msgType, ok := msg.MsgType(); !ok || msgType != fix.MsgTypeLogon {
		handler.state = StateClosed
		return fmt.Errorf("%w: first message was not a logon", ErrClosed)
	}

	beginString, ok := msg.Get(fix.TagBeginString)
	if !ok {
		handler.state = StateClosed
		return fmt.Errorf("%w: logon carries no BeginString(8)", ErrClosed)
	}

	dictionary, err := handler.registry.Resolve(beginString)
	if err != nil {
		handler.state = StateClosed
		return fmt.Errorf("%w: unable to establish protocol: %s", ErrClosed, err)
	}

	handler.dictionary = dictionary
	handler.engine = engine.New(handler.logger, handler.profile, handler.rng, fix.Header{
		BeginString:  beginString,
		SenderCompID: senderCompID,
		TargetCompID: targetCompID,
	})
	handler.state = StateActive

	handler.logger.Info("established protocol", zap.String("begin_string", beginString))
	return handler.send(handler.logonAck(beginString, msg))
}

// logonAck mirrors the EncryptMethod and HeartBtInt the client declared.
func (handler *Handler) logonAck(beginString string, logon *fix.Message) *fix.Message {
	header := fix.Header{
		BeginString:  beginString,
		SenderCompID: senderCompID,
		TargetCompID: targetCompID,
	}

	encryptMethod, ok := logon.Get(fix.TagEncryptMethod)
	if !ok {
		encryptMethod = defaultEncryptMethod
	}
	heartBtInt, ok := logon.Get(fix.TagHeartBtInt)
	if !ok {
		heartBtInt = defaultHeartBtInt
	}

	ack := header.NewMessage(fix.MsgTypeLogon)
	ack.Append(fix.TagEncryptMethod, encryptMethod)
	ack.Append(fix.TagHeartBtInt, heartBtInt)
	return ack
}

func (handler *Handler) handleActive(msg *fix.Message) error {
	if ok, reason := dict.Validate(msg, handler.dictionary); !ok {
		// Deliberately no reject message: log and drop, session stays open.
		handler.logger.Warn("invalid message received, ignoring", zap.String("reason", reason))
		return nil
	}

	msgType, _ := msg.MsgType()
	switch msgType {
	case fix.MsgTypeLogon:
		// Repeated logon on an active session, mirror the original ack.
		beginString, _ := msg.Get(fix.TagBeginString)
		return handler.send(handler.logonAck(beginString, msg))
	case fix.MsgTypeNewOrderSingle:
		return handler.handleNewOrder(msg)
	case fix.MsgTypeOrderCancelRequest:
		return handler.dispatch(msg, handler.engine.OnCancelRequest)
	case fix.MsgTypeOrderCancelReplace:
		return handler.dispatch(msg, handler.engine.OnReplaceRequest)
	default:
		handler.logger.Debug("ignoring message type", zap.String("msg_type", msgType))
		return nil
	}
}

// handleNewOrder blocks this session's worker for the sampled latency
// between the ack and the outcome. Other sessions run in their own workers.
func (handler *Handler) handleNewOrder(msg *fix.Message) error {
	ack, outcome, err := handler.engine.OnNewOrder(msg)
	if err != nil {
		handler.state = StateClosed
		return err
	}
	if err := handler.send(ack); err != nil {
		handler.state = StateClosed
		return err
	}

	handler.sleep(handler.engine.Latency())

	if err := handler.send(outcome); err != nil {
		handler.state = StateClosed
		return err
	}
	return nil
}

func (handler *Handler) dispatch(msg *fix.Message, op func(*fix.Message) (*fix.Message, error)) error {
	out, err := op(msg)
	if err != nil {
		handler.state = StateClosed
		return err
	}
	if err := handler.send(out); err != nil {
		handler.state = StateClosed
		return err
	}
	return nil
}
