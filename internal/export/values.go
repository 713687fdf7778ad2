package export

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// cellValue converts a pgx row value into something a spreadsheet cell accepts.
func cellValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case pgtype.Numeric:
		d, ok := numericDecimal(val)
		if !ok {
			return nil
		}
		return d.InexactFloat64()
	case decimal.Decimal:
		return val.InexactFloat64()
	case time.Time:
		return val
	case [16]byte:
		return uuid.UUID(val).String()
	case []byte:
		return hex.EncodeToString(val)
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// cellText renders a pgx row value for CSV.
func cellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case pgtype.Numeric:
		d, ok := numericDecimal(val)
		if !ok {
			return ""
		}
		return d.String()
	case decimal.Decimal:
		return val.String()
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case string:
		return val
	}

	switch cv := cellValue(v).(type) {
	case string:
		return cv
	default:
		return fmt.Sprint(cv)
	}
}

func numericDecimal(n pgtype.Numeric) (decimal.Decimal, bool) {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), true
}
