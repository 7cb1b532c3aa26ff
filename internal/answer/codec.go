package answer

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
)

var (
	// ErrMalformedRecord is returned when account bytes do not hold a valid
	// record: too short, or a string prefix that overruns the record.
	ErrMalformedRecord = errors.New("malformed answer record")

	// ErrFieldOverflow is returned when a value does not fit its slot.
	ErrFieldOverflow = errors.New("answer field exceeds reserved capacity")
)

// Answer is the unified in-memory record. A schema decides which members
// are on the wire; the rest stay zero.
type Answer struct {
	Addr      solanago.PublicKey
	Chain     uint64
	Code      string
	Name      string
	Price     uint64
	Decimal   uint64
	Time      uint64
	PriceType string
}

// Encode serializes a into exactly s.Size() bytes.
func Encode(s Schema, a *Answer) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("encode %s: nil answer", s.Name)
	}

	size := s.Size()
	buf := bytes.NewBuffer(make([]byte, 0, size))
	enc := bin.NewBorshEncoder(buf)

	for _, f := range s.Fields {
		var err error
		switch f.Kind {
		case KindPubkey:
			addr := a.pubkey(f.ID)
			err = enc.WriteBytes(addr[:], false)
		case KindU64:
			err = enc.WriteUint64(a.u64(f.ID), bin.LE)
		case KindString:
			v := a.str(f.ID)
			if lenPrefix+len(v) > f.Width {
				return nil, fmt.Errorf("encode %s.%s: %w: %d bytes, capacity %d",
					s.Name, f.Name, ErrFieldOverflow, len(v), f.Width-lenPrefix)
			}
			if err = enc.WriteUint32(uint32(len(v)), bin.LE); err == nil {
				err = enc.WriteBytes([]byte(v), false)
			}
		default:
			return nil, fmt.Errorf("encode %s.%s: unknown kind %s", s.Name, f.Name, f.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("encode %s.%s: %w", s.Name, f.Name, err)
		}
	}

	out := buf.Bytes()
	if len(out) > size {
		return nil, fmt.Errorf("encode %s: %w: %d > %d", s.Name, ErrFieldOverflow, len(out), size)
	}
	return append(out, make([]byte, size-len(out))...), nil
}

// Decode reads a record from the first s.Size() bytes of data. Anything past
// that is ignored.
func Decode(s Schema, data []byte) (*Answer, error) {
	size := s.Size()
	if len(data) < size {
		return nil, fmt.Errorf("decode %s: %w: %d bytes, need %d", s.Name, ErrMalformedRecord, len(data), size)
	}

	dec := bin.NewBorshDecoder(data[:size])
	a := &Answer{}

	for _, f := range s.Fields {
		switch f.Kind {
		case KindPubkey:
			raw, err := dec.ReadNBytes(pubkeyWidth)
			if err != nil {
				return nil, fieldErr(s, f, err)
			}
			a.setPubkey(f.ID, solanago.PublicKeyFromBytes(raw))
		case KindU64:
			v, err := dec.ReadUint64(bin.LE)
			if err != nil {
				return nil, fieldErr(s, f, err)
			}
			a.setU64(f.ID, v)
		case KindString:
			n, err := dec.ReadUint32(bin.LE)
			if err != nil {
				return nil, fieldErr(s, f, err)
			}
			// the program writes sequential borsh, so a string may spill past
			// its nominal slot as long as it stays inside the record
			if uint64(n) > uint64(dec.Remaining()) {
				return nil, fmt.Errorf("decode %s.%s: %w: length %d overruns record, %d bytes left",
					s.Name, f.Name, ErrMalformedRecord, n, dec.Remaining())
			}
			raw, err := dec.ReadNBytes(int(n))
			if err != nil {
				return nil, fieldErr(s, f, err)
			}
			if !utf8.Valid(raw) {
				return nil, fmt.Errorf("decode %s.%s: %w: invalid utf-8", s.Name, f.Name, ErrMalformedRecord)
			}
			a.setStr(f.ID, string(raw))
		default:
			return nil, fmt.Errorf("decode %s.%s: unknown kind %s", s.Name, f.Name, f.Kind)
		}
	}

	return a, nil
}

func fieldErr(s Schema, f Field, err error) error {
	return fmt.Errorf("decode %s.%s: %w: %v", s.Name, f.Name, ErrMalformedRecord, err)
}

func (a *Answer) pubkey(id FieldID) solanago.PublicKey {
	if id == FieldAddr {
		return a.Addr
	}
	return solanago.PublicKey{}
}

func (a *Answer) setPubkey(id FieldID, v solanago.PublicKey) {
	if id == FieldAddr {
		a.Addr = v
	}
}

func (a *Answer) u64(id FieldID) uint64 {
	switch id {
	case FieldChain:
		return a.Chain
	case FieldPrice:
		return a.Price
	case FieldDecimal:
		return a.Decimal
	case FieldTime:
		return a.Time
	}
	return 0
}

func (a *Answer) setU64(id FieldID, v uint64) {
	switch id {
	case FieldChain:
		a.Chain = v
	case FieldPrice:
		a.Price = v
	case FieldDecimal:
		a.Decimal = v
	case FieldTime:
		a.Time = v
	}
}

func (a *Answer) str(id FieldID) string {
	switch id {
	case FieldCode:
		return a.Code
	case FieldName:
		return a.Name
	case FieldPriceType:
		return a.PriceType
	}
	return ""
}

func (a *Answer) setStr(id FieldID, v string) {
	switch id {
	case FieldCode:
		a.Code = v
	case FieldName:
		a.Name = v
	case FieldPriceType:
		a.PriceType = v
	}
}
