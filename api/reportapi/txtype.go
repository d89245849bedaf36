package reportapi

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TxType identifies one of the five TPC-C transaction profiles.
type TxType int

const (
	NewOrder TxType = iota
	Payment
	OrderStatus
	Delivery
	StockLevel
)

// AllTxTypes lists every transaction type in report order.
var AllTxTypes = [...]TxType{NewOrder, Payment, OrderStatus, Delivery, StockLevel}

// NumTxTypes is the number of transaction types.
const NumTxTypes = len(AllTxTypes)

func (t TxType) String() string {
	switch t {
	case NewOrder:
		return "NewOrder"
	case Payment:
		return "Payment"
	case OrderStatus:
		return "OrderStatus"
	case Delivery:
		return "Delivery"
	case StockLevel:
		return "StockLevel"
	default:
		return fmt.Sprintf("TxType(%d)", int(t))
	}
}

// Index returns the position of t in AllTxTypes. It panics on values outside
// of the enumeration.
func (t TxType) Index() int {
	switch t {
	case NewOrder, Payment, OrderStatus, Delivery, StockLevel:
		return int(t)
	default:
		panic(fmt.Errorf("unknown transaction type %d", int(t)))
	}
}

// ParseTxType parses a transaction type name. Matching is case-insensitive
// and accepts the legacy names Status and Threshold.
func ParseTxType(s string) (TxType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "neworder", "new_order":
		return NewOrder, nil
	case "payment":
		return Payment, nil
	case "orderstatus", "order_status", "status":
		return OrderStatus, nil
	case "delivery":
		return Delivery, nil
	case "stocklevel", "stock_level", "threshold":
		return StockLevel, nil
	default:
		return 0, fmt.Errorf("unknown transaction type %q", s)
	}
}

func (t TxType) MarshalText() ([]byte, error) {
	if t < NewOrder || t > StockLevel {
		return nil, fmt.Errorf("unknown transaction type %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *TxType) UnmarshalText(b []byte) error {
	v, err := ParseTxType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t TxType) MarshalJSON() ([]byte, error) {
	b, err := t.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(b))
}

func (t *TxType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return t.UnmarshalText([]byte(s))
}
