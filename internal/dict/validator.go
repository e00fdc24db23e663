package dict

import (
	"fmt"

	"github.com/peter-kozarec/fixsim/internal/fix"
)

// Validate checks structural acceptance of msg against d: message type
// known, every required field present. It reports the first failure only
// and performs no business-rule checks.
func Validate(msg *fix.Message, d *Dictionary) (bool, string) {
	msgType, ok := msg.MsgType()
	if !ok {
		return false, "Message is missing MsgType(35)"
	}

	spec, ok := d.Message(msgType)
	if !ok {
		return false, fmt.Sprintf("Unknown MsgType(35)='%s' in this protocol", msgType)
	}

	for _, tag := range spec.Required {
		if !msg.Has(tag) {
			name := "Unknown"
			if meta, ok := d.Field(tag); ok {
				name = meta.Name
			}
			return false, fmt.Sprintf("Required field %s(%d) missing from %s", name, tag, spec.Name)
		}
	}

	return true, "Message valid"
}
