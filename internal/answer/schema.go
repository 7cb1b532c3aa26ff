// Package answer encodes and decodes the fixed-size answer accounts written
// by oracle consumer programs.
//
// A Schema lists the fields of one on-chain layout in Borsh order. Every
// account is preallocated to Schema.Size bytes: pubkeys take 32, integers are
// little-endian u64, and each string owns a fixed budget that includes its
// 4-byte length prefix. Bytes after the last field are zero padding.
package answer

import (
	"fmt"
	"strings"
)

// Kind is the wire type of a field.
type Kind int

const (
	KindPubkey Kind = iota
	KindU64
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindPubkey:
		return "pubkey"
	case KindU64:
		return "u64"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FieldID binds a schema field to a member of Answer.
type FieldID int

const (
	FieldAddr FieldID = iota
	FieldChain
	FieldCode
	FieldName
	FieldPrice
	FieldDecimal
	FieldTime
	FieldPriceType
)

// Field is one slot in a layout.
type Field struct {
	Name  string
	ID    FieldID
	Kind  Kind
	Width int // bytes reserved, length prefix included for strings
}

const (
	pubkeyWidth = 32
	u64Width    = 8
	lenPrefix   = 4
)

func pubkeyField(name string, id FieldID) Field {
	return Field{Name: name, ID: id, Kind: KindPubkey, Width: pubkeyWidth}
}

func u64Field(name string, id FieldID) Field {
	return Field{Name: name, ID: id, Kind: KindU64, Width: u64Width}
}

func stringField(name string, id FieldID, capacity int) Field {
	return Field{Name: name, ID: id, Kind: KindString, Width: capacity}
}

// Schema is a named, versioned fixed layout.
type Schema struct {
	Name   string
	Fields []Field
}

// Size is the exact byte length of an encoded record.
func (s Schema) Size() int {
	n := 0
	for _, f := range s.Fields {
		n += f.Width
	}
	return n
}

// Has reports whether the layout carries the field.
func (s Schema) Has(id FieldID) bool {
	for _, f := range s.Fields {
		if f.ID == id {
			return true
		}
	}
	return false
}

// Validate checks that widths are consistent with kinds.
func (s Schema) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %s: no fields", s.Name)
	}
	seen := make(map[FieldID]bool, len(s.Fields))
	for _, f := range s.Fields {
		if seen[f.ID] {
			return fmt.Errorf("schema %s: field %s bound twice", s.Name, f.Name)
		}
		seen[f.ID] = true

		switch f.Kind {
		case KindPubkey:
			if f.Width != pubkeyWidth {
				return fmt.Errorf("schema %s: pubkey field %s must be %d bytes", s.Name, f.Name, pubkeyWidth)
			}
		case KindU64:
			if f.Width != u64Width {
				return fmt.Errorf("schema %s: u64 field %s must be %d bytes", s.Name, f.Name, u64Width)
			}
		case KindString:
			if f.Width <= lenPrefix {
				return fmt.Errorf("schema %s: string field %s needs more than %d bytes", s.Name, f.Name, lenPrefix)
			}
		default:
			return fmt.Errorf("schema %s: field %s has unknown kind %s", s.Name, f.Name, f.Kind)
		}
	}
	return nil
}

// FeedV1 is the layout of the deployed oracle example program:
// addr, price, decimal, time, name, price_type. 256 bytes.
var FeedV1 = Schema{
	Name: "feed-v1",
	Fields: []Field{
		pubkeyField("addr", FieldAddr),
		u64Field("price", FieldPrice),
		u64Field("decimal", FieldDecimal),
		u64Field("time", FieldTime),
		stringField("name", FieldName, 100),
		stringField("price_type", FieldPriceType, 100),
	},
}

// CrossChainV1 carries a price reported from another chain for a local mint.
var CrossChainV1 = Schema{
	Name: "cross-chain-v1",
	Fields: []Field{
		pubkeyField("mint", FieldAddr),
		u64Field("chain", FieldChain),
		u64Field("price", FieldPrice),
		u64Field("decimals", FieldDecimal),
		u64Field("aggregate_time", FieldTime),
		stringField("unit", FieldPriceType, 32),
	},
}

// CodeV1 identifies the asset by a short code instead of an address.
var CodeV1 = Schema{
	Name: "code-v1",
	Fields: []Field{
		stringField("code", FieldCode, 16),
		u64Field("price", FieldPrice),
		u64Field("decimals", FieldDecimal),
		u64Field("aggregate_time", FieldTime),
		stringField("unit", FieldPriceType, 16),
	},
}

// Schemas lists every known layout.
var Schemas = []Schema{FeedV1, CrossChainV1, CodeV1}

// SchemaByName looks up a layout by name, case-insensitively.
func SchemaByName(name string) (Schema, error) {
	for _, s := range Schemas {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	names := make([]string, len(Schemas))
	for i, s := range Schemas {
		names[i] = s.Name
	}
	return Schema{}, fmt.Errorf("unknown answer schema %q (known: %s)", name, strings.Join(names, ", "))
}
