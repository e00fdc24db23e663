package fix

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/govalues/decimal"
)

type Tag int

// Tags used by the simulator and client. The dictionary may reference
// further tags; unmodeled ones travel through Message untouched.
const (
	TagAvgPx         Tag = 6
	TagBeginString   Tag = 8
	TagBodyLength    Tag = 9
	TagCheckSum      Tag = 10
	TagClOrdID       Tag = 11
	TagCumQty        Tag = 14
	TagExecID        Tag = 17
	TagLastPx        Tag = 31
	TagLastShares    Tag = 32
	TagMsgSeqNum     Tag = 34
	TagMsgType       Tag = 35
	TagOrderID       Tag = 37
	TagOrderQty      Tag = 38
	TagOrdStatus     Tag = 39
	TagOrdType       Tag = 40
	TagOrigClOrdID   Tag = 41
	TagPrice         Tag = 44
	TagSenderCompID  Tag = 49
	TagSendingTime   Tag = 52
	TagSide          Tag = 54
	TagSymbol        Tag = 55
	TagTargetCompID  Tag = 56
	TagTransactTime  Tag = 60
	TagEncryptMethod Tag = 98
	TagHeartBtInt    Tag = 108
	TagExecType      Tag = 150
	TagLeavesQty     Tag = 151
)

const (
	MsgTypeLogon              = "A"
	MsgTypeExecutionReport    = "8"
	MsgTypeNewOrderSingle     = "D"
	MsgTypeOrderCancelRequest = "F"
	MsgTypeOrderCancelReplace = "G"
)

const TimestampFormat = "20060102-15:04:05.000"

type Field struct {
	Tag   Tag
	Value string
}

// Message is an ordered collection of tag/value pairs. Field order is
// preserved exactly as appended or decoded.
type Message struct {
	fields []Field
}

func NewMessage() *Message {
	return &Message{}
}

func (msg *Message) Append(tag Tag, value string) *Message {
	msg.fields = append(msg.fields, Field{Tag: tag, Value: value})
	return msg
}

func (msg *Message) AppendInt(tag Tag, value int64) *Message {
	return msg.Append(tag, strconv.FormatInt(value, 10))
}

func (msg *Message) AppendDecimal(tag Tag, value decimal.Decimal) *Message {
	return msg.Append(tag, value.String())
}

func (msg *Message) Has(tag Tag) bool {
	_, ok := msg.Get(tag)
	return ok
}

func (msg *Message) Get(tag Tag) (string, bool) {
	for idx := range msg.fields {
		if msg.fields[idx].Tag == tag {
			return msg.fields[idx].Value, true
		}
	}
	return "", false
}

func (msg *Message) GetInt64(tag Tag) (int64, error) {
	raw, ok := msg.Get(tag)
	if !ok {
		return 0, fmt.Errorf("field %d not present", tag)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %d is not an integer: %w", tag, err)
	}
	return value, nil
}

func (msg *Message) GetDecimal(tag Tag) (decimal.Decimal, error) {
	raw, ok := msg.Get(tag)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("field %d not present", tag)
	}
	value, err := decimal.Parse(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("field %d is not a decimal: %w", tag, err)
	}
	return value, nil
}

func (msg *Message) MsgType() (string, bool) {
	return msg.Get(TagMsgType)
}

func (msg *Message) Fields() []Field {
	return msg.fields
}

// String renders the message with pipe delimiters for logs.
func (msg *Message) String() string {
	var sb strings.Builder
	for idx := range msg.fields {
		if idx > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(strconv.Itoa(int(msg.fields[idx].Tag)))
		sb.WriteByte('=')
		sb.WriteString(msg.fields[idx].Value)
	}
	return sb.String()
}

// Header carries the identity stamped onto every outbound message of a
// session.
type Header struct {
	BeginString  string
	SenderCompID string
	TargetCompID string
}

// NewMessage builds a message with the standard header fields. The sequence
// number is fixed at 1, sequence-number recovery is not supported.
func (header Header) NewMessage(msgType string) *Message {
	msg := NewMessage()
	msg.Append(TagBeginString, header.BeginString)
	msg.Append(TagMsgType, msgType)
	msg.Append(TagSenderCompID, header.SenderCompID)
	msg.Append(TagTargetCompID, header.TargetCompID)
	msg.AppendInt(TagMsgSeqNum, 1)
	msg.Append(TagSendingTime, time.Now().UTC().Format(TimestampFormat))
	return msg
}
