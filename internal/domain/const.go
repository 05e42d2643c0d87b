package domain

const (
	// World-state key constants
	BalancePrefix  = "balance"
	TotalSupplyKey = "totalSupply"
	NameKey        = "tokenName"
	SymbolKey      = "tokenSymbol"
	DecimalsKey    = "tokenDecimals"

	// ZeroAddress is the sentinel used as the counterparty of mint and burn
	// transfer events. Consumers rely on it to classify events.
	ZeroAddress = "0x0"
)
