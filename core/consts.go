package core

import (
	"github.com/shopspring/decimal"
)

const (
	// Decimals is the on-ledger fixed-point scale: every amount, USD value
	// and health factor carries at most 18 fractional digits.
	Decimals = 18

	// OracleDecimals is the scale of raw feed answers.
	OracleDecimals = 8
)

var (
	ONE = decimal.NewFromInt(1)

	ZERO_AMOUNT_THRESHOLD = decimal.Zero

	LIQUIDATION_THRESHOLD = decimal.NewFromInt(50)
	LIQUIDATION_PRECISION = decimal.NewFromInt(100)
	LIQUIDATION_BONUS     = decimal.NewFromInt(10)

	MIN_HEALTH_FACTOR = ONE

	// MAX_HEALTH_FACTOR is the health factor of a debt-free account:
	// (2^256-1)/10^18, the numeric maximum of the ledger representation.
	MAX_HEALTH_FACTOR = decimal.RequireFromString(
		"115792089237316195423570985008687907853269984665640564039457.584007913129639935")
)
