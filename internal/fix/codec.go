package fix

import (
	"bytes"
	"fmt"
	"strconv"
)

const soh = '\x01'

// checksum trailer is always "10=NNN<SOH>"
const trailerLength = 7

// Encode frames msg into wire bytes: the BeginString field must already be
// the first field, BodyLength and CheckSum are computed here.
func Encode(msg *Message) ([]byte, error) {
	fields := msg.Fields()
	if len(fields) == 0 || fields[0].Tag != TagBeginString {
		return nil, fmt.Errorf("message must start with BeginString(8)")
	}

	var body bytes.Buffer
	for _, field := range fields[1:] {
		if field.Tag == TagBodyLength || field.Tag == TagCheckSum {
			continue
		}
		writeField(&body, field)
	}

	var out bytes.Buffer
	writeField(&out, fields[0])
	writeField(&out, Field{Tag: TagBodyLength, Value: strconv.Itoa(body.Len())})
	out.Write(body.Bytes())
	writeField(&out, Field{Tag: TagCheckSum, Value: fmt.Sprintf("%03d", checksum(out.Bytes()))})

	return out.Bytes(), nil
}

func writeField(buf *bytes.Buffer, field Field) {
	buf.WriteString(strconv.Itoa(int(field.Tag)))
	buf.WriteByte('=')
	buf.WriteString(field.Value)
	buf.WriteByte(soh)
}

func checksum(data []byte) int {
	sum := 0
	for _, b := range data {
		sum += int(b)
	}
	return sum % 256
}

// Parser reassembles discrete messages from a byte stream. Bytes before the
// next BeginString are discarded.
type Parser struct {
	buf []byte
}

func NewParser() *Parser {
	return &Parser{}
}

func (parser *Parser) AppendBuffer(data []byte) {
	parser.buf = append(parser.buf, data...)
}

// Next returns the next complete message, or nil when the buffer does not
// hold one yet. A framing or checksum error discards the buffer.
func (parser *Parser) Next() (*Message, error) {
	start := bytes.Index(parser.buf, []byte("8="))
	if start < 0 {
		return nil, nil
	}
	parser.buf = parser.buf[start:]

	beginEnd := bytes.IndexByte(parser.buf, soh)
	if beginEnd < 0 {
		return nil, nil
	}

	rest := parser.buf[beginEnd+1:]
	if !bytes.HasPrefix(rest, []byte("9=")) {
		parser.buf = nil
		return nil, fmt.Errorf("BodyLength(9) does not follow BeginString(8)")
	}
	lengthEnd := bytes.IndexByte(rest, soh)
	if lengthEnd < 0 {
		return nil, nil
	}
	bodyLength, err := strconv.Atoi(string(rest[2:lengthEnd]))
	if err != nil {
		parser.buf = nil
		return nil, fmt.Errorf("invalid BodyLength(9): %w", err)
	}

	total := beginEnd + 1 + lengthEnd + 1 + bodyLength + trailerLength
	if len(parser.buf) < total {
		return nil, nil
	}

	frame := parser.buf[:total]
	parser.buf = parser.buf[total:]

	msg, err := decodeFrame(frame)
	if err != nil {
		parser.buf = nil
		return nil, err
	}
	return msg, nil
}

func decodeFrame(frame []byte) (*Message, error) {
	msg := NewMessage()
	for _, raw := range bytes.Split(frame, []byte{soh}) {
		if len(raw) == 0 {
			continue
		}
		eq := bytes.IndexByte(raw, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("malformed field %q", raw)
		}
		tag, err := strconv.Atoi(string(raw[:eq]))
		if err != nil {
			return nil, fmt.Errorf("malformed tag %q: %w", raw[:eq], err)
		}
		msg.Append(Tag(tag), string(raw[eq+1:]))
	}

	declared, ok := msg.Get(TagCheckSum)
	if !ok {
		return nil, fmt.Errorf("missing CheckSum(10)")
	}
	want := fmt.Sprintf("%03d", checksum(frame[:len(frame)-trailerLength]))
	if declared != want {
		return nil, fmt.Errorf("checksum mismatch: declared %s, computed %s", declared, want)
	}
	return msg, nil
}
