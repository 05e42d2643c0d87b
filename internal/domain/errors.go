package domain

import "errors"

var (
	// ErrUnauthorized is returned when the caller's MSP is not the admin organization
	ErrUnauthorized = errors.New("client is not authorized")

	// ErrInvalidAmount is returned when a numeric argument is malformed or non-positive where positivity is required
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNegativeAmount is returned when a transfer value is negative
	ErrNegativeAmount = errors.New("transfer amount cannot be negative")

	// ErrSelfTransfer is returned when a transfer names the same account on both sides
	ErrSelfTransfer = errors.New("cannot transfer to and from the same account")

	// ErrNoBalance is returned when the transfer sender has no balance entry
	ErrNoBalance = errors.New("account has no balance")

	// ErrBalanceNotFound is returned when the burn source has no balance entry
	ErrBalanceNotFound = errors.New("balance does not exist")

	// ErrAccountNotFound is returned when balanceOf queries a never-funded account
	ErrAccountNotFound = errors.New("account does not exist")

	// ErrInsufficientFunds is returned when a debit exceeds the current balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSupplyNotInitialized is returned when the total supply singleton is missing
	ErrSupplyNotInitialized = errors.New("total supply is not initialized")

	// ErrTransferFailed is returned when the transfer primitive reports failure
	ErrTransferFailed = errors.New("transfer failed")

	// ErrUnknownFunction is returned when a submission names an unregistered contract function
	ErrUnknownFunction = errors.New("unknown contract function")

	// ErrBadArgCount is returned when a submission carries the wrong number of arguments
	ErrBadArgCount = errors.New("wrong number of arguments")
)
