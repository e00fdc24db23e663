package bus

import "github.com/peter-kozarec/fixsim/internal/fix"

type EventId uint8

const (
	SessionOpenEvent EventId = iota
	ReportEvent
)

type SessionOpenEventHandler func(*fix.Message) error
type ReportEventHandler func(*fix.Message) error
