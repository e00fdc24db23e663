package model

import "github.com/govalues/decimal"

// Side uses the wire values directly, 1=Buy 2=Sell.
type Side string

const (
	Buy  Side = "1"
	Sell Side = "2"
)

type Status int

const (
	StatusNew Status = iota
	StatusPartiallyFilled
	StatusFilled
	StatusCancelled
	StatusReplaced
	StatusRejected
)

var statusNames = map[Status]string{
	StatusNew:             "New",
	StatusPartiallyFilled: "PartiallyFilled",
	StatusFilled:          "Filled",
	StatusCancelled:       "Cancelled",
	StatusReplaced:        "Replaced",
	StatusRejected:        "Rejected",
}

var statusFromWire = map[string]Status{
	"0": StatusNew,
	"1": StatusPartiallyFilled,
	"2": StatusFilled,
	"4": StatusCancelled,
	"5": StatusReplaced,
	"8": StatusRejected,
}

var statusToWire = map[Status]string{
	StatusNew:             "0",
	StatusPartiallyFilled: "1",
	StatusFilled:          "2",
	StatusCancelled:       "4",
	StatusReplaced:        "5",
	StatusRejected:        "8",
}

func (status Status) String() string {
	if name, ok := statusNames[status]; ok {
		return name
	}
	return "Unknown"
}

func (status Status) Wire() string {
	return statusToWire[status]
}

func StatusFromWire(value string) (Status, bool) {
	status, ok := statusFromWire[value]
	return status, ok
}

// Terminal reports whether no further lifecycle events follow this status.
// Replaced orders stay open. A partial fill is terminal for the simulator
// because outcomes are decided by a single draw.
func (status Status) Terminal() bool {
	return status == StatusFilled || status == StatusCancelled || status == StatusRejected
}

type Order struct {
	ClOrdID      string
	OrigClOrdID  string
	Symbol       string
	Side         Side
	Qty          int64
	Price        decimal.Decimal
	VenueOrderID string
	Status       Status
}
