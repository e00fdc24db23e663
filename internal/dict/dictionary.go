package dict

import (
	"encoding/xml"
	"fmt"
	"os"

	"github.com/peter-kozarec/fixsim/internal/fix"
)

type FieldMeta struct {
	Name string
	Type string
}

type MessageSpec struct {
	Name     string
	Required []fix.Tag
}

// Dictionary is the immutable schema for one protocol version: field
// metadata by tag and the required field set per message type.
type Dictionary struct {
	fields   map[fix.Tag]FieldMeta
	messages map[string]MessageSpec
}

func (d *Dictionary) Field(tag fix.Tag) (FieldMeta, bool) {
	meta, ok := d.fields[tag]
	return meta, ok
}

func (d *Dictionary) Message(msgType string) (MessageSpec, bool) {
	spec, ok := d.messages[msgType]
	return spec, ok
}

type xmlDictionary struct {
	XMLName  xml.Name     `xml:"fix"`
	Fields   []xmlField   `xml:"fields>field"`
	Messages []xmlMessage `xml:"messages>message"`
}

type xmlField struct {
	Number int    `xml:"number,attr"`
	Name   string `xml:"name,attr"`
	Type   string `xml:"type,attr"`
}

type xmlMessage struct {
	MsgType string        `xml:"msgtype,attr"`
	Name    string        `xml:"name,attr"`
	Fields  []xmlMsgField `xml:"field"`
}

type xmlMsgField struct {
	Number   int    `xml:"number,attr"`
	Required string `xml:"required,attr"`
}

// Load reads a dictionary definition from disk. Field tags referenced by a
// message but absent from the fields section stay valid for validation,
// they only lose their display name in failure reasons.
func Load(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read dictionary %s: %w", path, err)
	}
	return parse(data, path)
}

func parse(data []byte, path string) (*Dictionary, error) {
	var raw xmlDictionary
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unable to parse dictionary %s: %w", path, err)
	}

	d := &Dictionary{
		fields:   make(map[fix.Tag]FieldMeta, len(raw.Fields)),
		messages: make(map[string]MessageSpec, len(raw.Messages)),
	}
	for _, field := range raw.Fields {
		d.fields[fix.Tag(field.Number)] = FieldMeta{Name: field.Name, Type: field.Type}
	}
	for _, msg := range raw.Messages {
		spec := MessageSpec{Name: msg.Name}
		for _, field := range msg.Fields {
			if field.Required == "Y" {
				spec.Required = append(spec.Required, fix.Tag(field.Number))
			}
		}
		d.messages[msg.MsgType] = spec
	}
	return d, nil
}
