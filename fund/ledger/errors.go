package ledger

import "github.com/anoideaopen/crowdfund/fund"

var (
	ErrInvalidConfig      = fund.NewError(fund.ErrInputValidation, "invalid ledger configuration")
	ErrEmptyInvestor      = fund.NewError(fund.ErrInputValidation, "investor address is empty")
	ErrZeroTokenAmount    = fund.NewError(fund.ErrInputValidation, "token amount must be positive")
	ErrZeroCost           = fund.NewError(fund.ErrInputValidation, "cost must be positive")
	ErrZeroCostUSD        = fund.NewError(fund.ErrInputValidation, "usd cost must be positive")
	ErrPseudoSymbol       = fund.NewError(fund.ErrInputValidation, "usd bucket is not a payment asset")
	ErrUnregisteredSymbol = fund.NewError(fund.ErrInputValidation, "symbol is not registered")
	ErrInsufficientValue  = fund.NewError(fund.ErrInputValidation, "attached value is less than cost")
	ErrUnexpectedValue    = fund.NewError(fund.ErrInputValidation, "value attached to a token purchase")
	ErrPaymentNotReceived = fund.NewError(fund.ErrInputValidation, "payment is not in fund custody")
	ErrNothingToRefund    = fund.NewError(fund.ErrInputValidation, "investor has no tokens to refund")
	ErrExceedsBalance     = fund.NewError(fund.ErrInputValidation, "refund exceeds remaining token balance")
	ErrTokensNotApproved  = fund.NewError(fund.ErrInputValidation, "project tokens are not approved to the fund")
	ErrTokensNotHeld      = fund.NewError(fund.ErrInputValidation, "investor does not hold the project tokens")

	ErrNotCrowdsale = fund.NewError(fund.ErrUnauthorized, "caller is not the crowdsale")
	ErrNotOwner     = fund.NewError(fund.ErrUnauthorized, "caller is not the fund owner")

	ErrSaleNotEnded        = fund.NewError(fund.ErrScheduleGate, "sale has not ended")
	ErrNothingBought       = fund.NewError(fund.ErrScheduleGate, "no tokens were bought")
	ErrMilestoneNotActive  = fund.NewError(fund.ErrScheduleGate, "milestone is not active")
	ErrTrancheCompleted    = fund.NewError(fund.ErrScheduleGate, "tranche is already completed")
	ErrOutsideRefundWindow = fund.NewError(fund.ErrScheduleGate, "outside the refund window")

	ErrInsufficientLiquidity = fund.NewError(fund.ErrLiquidityShortfall, "fund balance is below the payout")
)
