package ledger

import (
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Selector is the four byte method identifier derived from a signature.
type Selector [4]byte

// SelectorOf returns the first four bytes of keccak-256 over the signature.
// The empty signature maps to the zero selector, reserved for plain value transfers.
func SelectorOf(signature string) Selector {
	var s Selector
	if signature == "" {
		return s
	}
	copy(s[:], keccak256([]byte(signature))[:4])
	return s
}

func (s Selector) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

// Calldata is a method invocation: a Solidity-style signature such as
// "withdraw(address,uint256)" plus its arguments.
type Calldata struct {
	Signature string
	Args      Values
}

// NewCall builds calldata for signature with args.
func NewCall(signature string, args ...any) Calldata {
	return Calldata{Signature: signature, Args: args}
}

// IsEmpty reports whether the calldata carries no method, i.e. a plain transfer.
func (c Calldata) IsEmpty() bool {
	return c.Signature == ""
}

func (c Calldata) Selector() Selector {
	return SelectorOf(c.Signature)
}

// Method returns the bare method name without the parameter list.
func (c Calldata) Method() string {
	if i := strings.IndexByte(c.Signature, '('); i >= 0 {
		return c.Signature[:i]
	}
	return c.Signature
}

func (c Calldata) String() string {
	if c.IsEmpty() {
		return "receive()"
	}
	return c.Method() + "(" + c.Args.Format() + ")"
}

// Values carries call arguments and return data. Accessors convert to the
// expected type and fail with ErrBadArgument on a mismatch.
type Values []any

// Format renders the values for logs and receipts.
func (v Values) Format() string {
	parts := make([]string, len(v))
	for i, item := range v {
		parts[i] = formatValue(item)
	}
	return strings.Join(parts, ", ")
}

func formatValue(item any) string {
	switch x := item.(type) {
	case Address:
		return x.String()
	case decimal.Decimal:
		return x.String()
	case string:
		return strconv.Quote(x)
	case Calldata:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Expect fails unless exactly n values are present.
func (v Values) Expect(n int) error {
	if len(v) != n {
		return fmt.Errorf("%w: expected %d arguments, got %d", ErrBadArgument, n, len(v))
	}
	return nil
}

func (v Values) at(i int) (any, error) {
	if i < 0 || i >= len(v) {
		return nil, fmt.Errorf("%w: missing argument %d", ErrBadArgument, i)
	}
	return v[i], nil
}

func (v Values) Address(i int) (Address, error) {
	item, err := v.at(i)
	if err != nil {
		return ZeroAddress, err
	}
	switch x := item.(type) {
	case Address:
		return x, nil
	case string:
		a, err := HexToAddress(x)
		if err != nil {
			return ZeroAddress, fmt.Errorf("%w: %v", ErrBadArgument, err)
		}
		return a, nil
	}
	return ZeroAddress, fmt.Errorf("%w: argument %d is %T, want address", ErrBadArgument, i, item)
}

// Amount returns a non-negative integer amount in smallest native units.
func (v Values) Amount(i int) (decimal.Decimal, error) {
	item, err := v.at(i)
	if err != nil {
		return decimal.Zero, err
	}
	var d decimal.Decimal
	switch x := item.(type) {
	case decimal.Decimal:
		d = x
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case uint64:
		d = decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0)
	case *big.Int:
		if x == nil {
			return decimal.Zero, fmt.Errorf("%w: argument %d is a nil integer", ErrBadArgument, i)
		}
		d = decimal.NewFromBigInt(x, 0)
	default:
		return decimal.Zero, fmt.Errorf("%w: argument %d is %T, want uint256", ErrBadArgument, i, item)
	}
	if d.IsNegative() || !d.IsInteger() {
		return decimal.Zero, fmt.Errorf("%w: argument %d must be a non-negative integer, got %s", ErrBadArgument, i, d.String())
	}
	return d, nil
}

func (v Values) Uint64(i int) (uint64, error) {
	item, err := v.at(i)
	if err != nil {
		return 0, err
	}
	switch x := item.(type) {
	case uint64:
		return x, nil
	case int:
		if x >= 0 {
			return uint64(x), nil
		}
	case int64:
		if x >= 0 {
			return uint64(x), nil
		}
	case decimal.Decimal:
		if !x.IsNegative() && x.IsInteger() && x.LessThanOrEqual(decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)) {
			return x.BigInt().Uint64(), nil
		}
	default:
		return 0, fmt.Errorf("%w: argument %d is %T, want uint64", ErrBadArgument, i, item)
	}
	return 0, fmt.Errorf("%w: argument %d out of range for uint64", ErrBadArgument, i)
}

func (v Values) String(i int) (string, error) {
	item, err := v.at(i)
	if err != nil {
		return "", err
	}
	s, ok := item.(string)
	if !ok {
		return "", fmt.Errorf("%w: argument %d is %T, want string", ErrBadArgument, i, item)
	}
	return s, nil
}

func (v Values) Bool(i int) (bool, error) {
	item, err := v.at(i)
	if err != nil {
		return false, err
	}
	b, ok := item.(bool)
	if !ok {
		return false, fmt.Errorf("%w: argument %d is %T, want bool", ErrBadArgument, i, item)
	}
	return b, nil
}

func (v Values) Calldata(i int) (Calldata, error) {
	item, err := v.at(i)
	if err != nil {
		return Calldata{}, err
	}
	switch x := item.(type) {
	case Calldata:
		return x, nil
	case nil:
		return Calldata{}, nil
	}
	return Calldata{}, fmt.Errorf("%w: argument %d is %T, want bytes", ErrBadArgument, i, item)
}
