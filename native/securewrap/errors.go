package securewrap

import "errors"

var (
	ErrInvalidClock                  = errors.New("securewrap: clock returned a non-positive time")
	ErrMathOverflow                  = errors.New("securewrap: overflow in arithmetic operation")
	ErrInvalidUserTokenStateAccount  = errors.New("securewrap: user token state bound to a different account")
	ErrPrematureThaw                 = errors.New("securewrap: thaw requested too early")
	ErrAccountPermanentlyFrozen      = errors.New("securewrap: permanently frozen account cannot be thawed")
	ErrInvalidThaw                   = errors.New("securewrap: thaw requested on account that is not frozen")
	ErrInvalidPermanentFreeze        = errors.New("securewrap: permanent freeze requires the wrapped and original accounts to be frozen")
	ErrIneligibleFreeze              = errors.New("securewrap: account is frozen or was thawed too recently to freeze again")
	ErrFreezePeriodMaximumExceeded   = errors.New("securewrap: maximum freeze period is 14 days")
	ErrInvalidFrozenFundDistribution = errors.New("securewrap: frozen funds can only be redistributed from a permanently frozen account")
	ErrFrozenFundDistributionExceed  = errors.New("securewrap: cannot distribute beyond the permanently frozen balance")
	ErrInvalidTokenAmount            = errors.New("securewrap: amount must be non-zero")
	ErrInvalidOrderAmount            = errors.New("securewrap: unwrap orders need amount_in > amount_out, wrap orders amount_out > amount_in")
	ErrOrdersHalted                  = errors.New("securewrap: orders are halted")
	ErrWrapOrdersHalted              = errors.New("securewrap: wrap orders are halted")
	ErrPendingUnwrapNotInitialized   = errors.New("securewrap: pending unwrap not found")
	ErrPrematurePendingUnwrap        = errors.New("securewrap: pending unwrap release requested too early")
	ErrUnwrapFrozenAccount           = errors.New("securewrap: funds cannot be unwrapped from a frozen account")
	ErrUnwrapHalted                  = errors.New("securewrap: unwrap is halted")
	ErrSetUnwrapDelayMaximumExceeded = errors.New("securewrap: maximum unwrap delay is 24 hours")
	ErrOrderSideInvalid              = errors.New("securewrap: order side must be wrap or unwrap")
	ErrFillOrderFrozenAccount        = errors.New("securewrap: orders belonging to a frozen account cannot be filled")
	ErrProgramCannotFillWrapOrders   = errors.New("securewrap: wrap orders cannot be filled from custody")
	ErrProgramCancelUnwrap           = errors.New("securewrap: custody can only cancel unwraps of permanently frozen users")
	ErrProgramCancelOrder            = errors.New("securewrap: custody can only cancel unwrap orders of permanently frozen users")

	ErrUnauthorized           = errors.New("securewrap: caller is not the authority")
	ErrAlreadyInitialized     = errors.New("securewrap: global state already initialized")
	ErrNotInitialized         = errors.New("securewrap: global state not initialized")
	ErrMintPairExists         = errors.New("securewrap: mint pair already exists")
	ErrMintPairNotFound       = errors.New("securewrap: mint pair not found")
	ErrPendingUnwrapExists    = errors.New("securewrap: a pending unwrap already exists")
	ErrOrderExists            = errors.New("securewrap: an order already exists for this side")
	ErrOrderNotFound          = errors.New("securewrap: order not found")
	ErrUserTokenStateNotFound = errors.New("securewrap: user token state not found")

	errNilState  = errors.New("securewrap engine: state not configured")
	errNilLedger = errors.New("securewrap engine: ledger not configured")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidClock, "InvalidClock"},
	{ErrMathOverflow, "MathOverflow"},
	{ErrInvalidUserTokenStateAccount, "InvalidUserTokenStateAccount"},
	{ErrPrematureThaw, "PrematureThaw"},
	{ErrAccountPermanentlyFrozen, "AccountPermanentlyFrozen"},
	{ErrInvalidThaw, "InvalidThaw"},
	{ErrInvalidPermanentFreeze, "InvalidPermanentFreeze"},
	{ErrIneligibleFreeze, "IneligibleFreezeError"},
	{ErrFreezePeriodMaximumExceeded, "FreezePeriodMaximumExceeded"},
	{ErrInvalidFrozenFundDistribution, "InvalidFrozenFundDistribution"},
	{ErrFrozenFundDistributionExceed, "FrozenFundDistributionExceeded"},
	{ErrInvalidTokenAmount, "InvalidTokenAmount"},
	{ErrInvalidOrderAmount, "InvalidOrderAmount"},
	{ErrOrdersHalted, "OrdersHalted"},
	{ErrWrapOrdersHalted, "WrapOrdersHalted"},
	{ErrPendingUnwrapNotInitialized, "PendingUnwrapNotInitialized"},
	{ErrPrematurePendingUnwrap, "PrematurePendingUnwrap"},
	{ErrUnwrapFrozenAccount, "UnwrapFrozenAccountError"},
	{ErrUnwrapHalted, "UnwrapHalted"},
	{ErrSetUnwrapDelayMaximumExceeded, "SetUnwrapDelayMaximumExceeded"},
	{ErrOrderSideInvalid, "OrderSideInvalid"},
	{ErrFillOrderFrozenAccount, "FillOrderFrozenAccountError"},
	{ErrProgramCannotFillWrapOrders, "ProgramCannotFillWrapOrders"},
	{ErrProgramCancelUnwrap, "ProgramCancelUnwrapError"},
	{ErrProgramCancelOrder, "ProgramCancelOrderError"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrAlreadyInitialized, "AlreadyInitialized"},
	{ErrNotInitialized, "NotInitialized"},
	{ErrMintPairExists, "MintPairExists"},
	{ErrMintPairNotFound, "MintPairNotFound"},
	{ErrPendingUnwrapExists, "PendingUnwrapExists"},
	{ErrOrderExists, "OrderExists"},
	{ErrOrderNotFound, "OrderNotFound"},
	{ErrUserTokenStateNotFound, "UserTokenStateNotFound"},
}

// Code returns the stable name of a securewrap failure, or the empty string
// when err is not one of the package's conditions.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return ""
}
