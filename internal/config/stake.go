package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
)

// UnlimitedStakeAmount is the sentinel accepted for stake_amount.
const UnlimitedStakeAmount = "unlimited"

// StakeAmount is either a fixed amount per trade or unlimited.
type StakeAmount struct {
	Unlimited bool
	Amount    decimal.Decimal
}

func Unlimited() StakeAmount { return StakeAmount{Unlimited: true} }

func FixedStake(amount decimal.Decimal) StakeAmount { return StakeAmount{Amount: amount} }

func (s StakeAmount) String() string {
	if s.Unlimited {
		return UnlimitedStakeAmount
	}
	return s.Amount.String()
}

// ParseStakeAmount accepts "unlimited" or any decimal literal.
func ParseStakeAmount(raw string) (StakeAmount, error) {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, UnlimitedStakeAmount) {
		return Unlimited(), nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return StakeAmount{}, fmt.Errorf("stake_amount must be a number or %q, got %q", UnlimitedStakeAmount, raw)
	}
	return FixedStake(d), nil
}

var (
	decimalType = reflect.TypeOf(decimal.Decimal{})
	stakeType   = reflect.TypeOf(StakeAmount{})
)

func toDecimal(data any) (decimal.Decimal, error) {
	switch v := data.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("cannot convert %T to decimal", data)
	}
}

// decimalHook decodes numbers, strings and the unlimited sentinel into
// decimal.Decimal and StakeAmount fields.
func decimalHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		switch to {
		case decimalType:
			if from == decimalType {
				return data, nil
			}
			return toDecimal(data)
		case stakeType:
			if from == stakeType {
				return data, nil
			}
			if s, ok := data.(string); ok {
				return ParseStakeAmount(s)
			}
			d, err := toDecimal(data)
			if err != nil {
				return nil, err
			}
			return FixedStake(d), nil
		}
		return data, nil
	}
}
