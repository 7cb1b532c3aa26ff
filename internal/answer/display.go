package answer

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// TimeLayout renders answer timestamps.
const TimeLayout = "Mon Jan 02 2006 15:04:05 MST"

// ErrDecimalOutOfRange is returned when the exponent cannot scale a price.
var ErrDecimalOutOfRange = errors.New("answer decimal out of range")

// Value returns Price / 10^Decimal as an exact decimal.
func (a *Answer) Value() (decimal.Decimal, error) {
	if a.Decimal > math.MaxInt32 {
		return decimal.Zero, fmt.Errorf("%w: %d", ErrDecimalOutOfRange, a.Decimal)
	}
	return decimal.NewFromBigInt(new(big.Int).SetUint64(a.Price), -int32(a.Decimal)), nil
}

// Timestamp converts Time (Unix seconds) to a UTC time.
func (a *Answer) Timestamp() time.Time {
	if a.Time > math.MaxInt64 {
		return time.Unix(math.MaxInt64, 0).UTC()
	}
	return time.Unix(int64(a.Time), 0).UTC()
}

// FormatPrice renders "<value> <unit>", e.g. "1234.56 USD".
func (a *Answer) FormatPrice() string {
	v, err := a.Value()
	if err != nil {
		return fmt.Sprintf("%d/10^%d %s", a.Price, a.Decimal, a.PriceType)
	}
	if a.PriceType == "" {
		return v.String()
	}
	return v.String() + " " + a.PriceType
}

// Format renders the one-line console summary for a record decoded with s.
func (a *Answer) Format(s Schema) string {
	updated := a.Timestamp().Format(TimeLayout)

	switch {
	case s.Has(FieldCode):
		return fmt.Sprintf("%s price is %s updated on <%s>", a.Code, a.FormatPrice(), updated)
	case s.Has(FieldChain):
		return fmt.Sprintf("[%s] chain %d price is %s updated on <%s>", a.Addr, a.Chain, a.FormatPrice(), updated)
	default:
		return fmt.Sprintf("%s [%s] price is %s updated on <%s>", a.Name, a.Addr, a.FormatPrice(), updated)
	}
}
