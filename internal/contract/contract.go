package contract

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/deustocoin/sc-ledger/internal/adapter"
	"github.com/deustocoin/sc-ledger/internal/domain"
	"github.com/deustocoin/sc-ledger/internal/logger"
	"github.com/deustocoin/sc-ledger/internal/worldstate"
)

// Config holds contract instantiation parameters
type Config struct {
	// AdminMSP is the organization authorized to mint, burn and process actions
	AdminMSP string
}

// Contract implements the custodial token ledger. Every operation runs
// against the transaction context's world-state view; the surrounding
// runtime provides atomic commit of the resulting write-set.
type Contract struct {
	cfg  Config
	json adapter.JSON
	jcs  adapter.JCS
}

// NewContract creates a contract bound to the given admin organization
func NewContract(cfg Config, jsonAdapter adapter.JSON, jcsAdapter adapter.JCS) *Contract {
	return &Contract{
		cfg:  cfg,
		json: jsonAdapter,
		jcs:  jcsAdapter,
	}
}

// TokenName returns the configured token name
func (c *Contract) TokenName(ctx context.Context, tc *Context) (string, error) {
	value, err := tc.State.GetState(ctx, domain.NameKey)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

// Symbol returns the configured token symbol
func (c *Contract) Symbol(ctx context.Context, tc *Context) (string, error) {
	value, err := tc.State.GetState(ctx, domain.SymbolKey)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

// Decimals returns the number of decimals the token uses
func (c *Contract) Decimals(ctx context.Context, tc *Context) (int64, error) {
	decimals, ok, err := readInt(ctx, tc.State, domain.DecimalsKey)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: decimals not set", domain.ErrInvalidAmount)
	}
	return decimals, nil
}

// SetOption stores the token metadata. Gated on the admin organization, the
// same privilege model as mint and burn.
func (c *Contract) SetOption(ctx context.Context, tc *Context, name, symbol, decimals string) (bool, error) {
	if err := c.requireAdmin(tc); err != nil {
		return false, err
	}

	if _, err := strconv.ParseInt(decimals, 10, 64); err != nil {
		return false, fmt.Errorf("%w: decimals %q", domain.ErrInvalidAmount, decimals)
	}

	if err := tc.State.PutState(ctx, domain.NameKey, []byte(name)); err != nil {
		return false, err
	}
	if err := tc.State.PutState(ctx, domain.SymbolKey, []byte(symbol)); err != nil {
		return false, err
	}
	if err := tc.State.PutState(ctx, domain.DecimalsKey, []byte(decimals)); err != nil {
		return false, err
	}

	logger.Info("token options set",
		zap.String("name", name),
		zap.String("symbol", symbol),
		zap.String("decimals", decimals),
	)
	return true, nil
}

// TotalSupply returns the total token supply
func (c *Contract) TotalSupply(ctx context.Context, tc *Context) (int64, error) {
	supply, ok, err := readInt(ctx, tc.State, domain.TotalSupplyKey)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, domain.ErrSupplyNotInitialized
	}
	return supply, nil
}

// BalanceOf returns the balance of the given account. Querying an account
// that has never been funded is an error, even though mint and transfer
// treat the same account as having an implicit zero balance.
func (c *Contract) BalanceOf(ctx context.Context, tc *Context, owner string) (int64, error) {
	balance, ok, err := readInt(ctx, tc.State, balanceKey(owner))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, owner)
	}
	return balance, nil
}

// ClientAccountID returns the client identity of the caller
func (c *Contract) ClientAccountID(tc *Context) string {
	return tc.Identity.ClientID
}

// Transfer moves tokens from the caller's account to the recipient and
// emits a Transfer event.
func (c *Contract) Transfer(ctx context.Context, tc *Context, to, value string) (bool, error) {
	from := tc.Identity.ClientID

	ok, err := c.transfer(ctx, tc, from, to, value)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, domain.ErrTransferFailed
	}

	v, _ := strconv.ParseInt(value, 10, 64)
	if err := c.emit(tc, domain.EventTransfer, domain.TransferEvent{From: from, To: to, Value: v}); err != nil {
		return false, err
	}
	return true, nil
}

// Mint creates new tokens on the recipient's account and grows the total
// supply. Only the admin organization may mint.
func (c *Contract) Mint(ctx context.Context, tc *Context, to, amount string) (bool, error) {
	if err := c.requireAdmin(tc); err != nil {
		return false, err
	}

	v, err := parseAmount(amount)
	if err != nil {
		return false, err
	}
	if v <= 0 {
		return false, fmt.Errorf("%w: mint amount must be a positive integer", domain.ErrInvalidAmount)
	}

	// Recipient balance is created lazily at zero
	toBalance, _, err := readInt(ctx, tc.State, balanceKey(to))
	if err != nil {
		return false, err
	}
	if err := putInt(ctx, tc.State, balanceKey(to), toBalance+v); err != nil {
		return false, err
	}

	supply, ok, err := readInt(ctx, tc.State, domain.TotalSupplyKey)
	if err != nil {
		return false, err
	}
	if !ok {
		logger.Info("initializing total supply")
	}
	if err := putInt(ctx, tc.State, domain.TotalSupplyKey, supply+v); err != nil {
		return false, err
	}

	if err := c.emit(tc, domain.EventTransfer, domain.TransferEvent{From: domain.ZeroAddress, To: to, Value: v}); err != nil {
		return false, err
	}

	logger.Debug("minted tokens",
		zap.String("to", to),
		zap.Int64("old_balance", toBalance),
		zap.Int64("new_balance", toBalance+v),
		zap.Int64("total_supply", supply+v),
	)
	return true, nil
}

// Burn redeems tokens from an account and shrinks the total supply. Only
// the admin organization may burn. Amount sign and overdraft are not
// validated here; the submitting backend is trusted to burn within balance.
func (c *Contract) Burn(ctx context.Context, tc *Context, from, amount string) (bool, error) {
	if err := c.requireAdmin(tc); err != nil {
		return false, err
	}

	v, err := parseAmount(amount)
	if err != nil {
		return false, err
	}

	fromBalance, ok, err := readInt(ctx, tc.State, balanceKey(from))
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrBalanceNotFound, from)
	}
	if err := putInt(ctx, tc.State, balanceKey(from), fromBalance-v); err != nil {
		return false, err
	}

	supply, ok, err := readInt(ctx, tc.State, domain.TotalSupplyKey)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, domain.ErrSupplyNotInitialized
	}
	if err := putInt(ctx, tc.State, domain.TotalSupplyKey, supply-v); err != nil {
		return false, err
	}

	if err := c.emit(tc, domain.EventTransfer, domain.TransferEvent{From: from, To: domain.ZeroAddress, Value: v}); err != nil {
		return false, err
	}

	logger.Debug("burned tokens",
		zap.String("from", from),
		zap.Int64("old_balance", fromBalance),
		zap.Int64("new_balance", fromBalance-v),
		zap.Int64("total_supply", supply-v),
	)
	return true, nil
}

// ProcessAction rewards a collaborator for a fulfilled action: it moves the
// reward from the action owner to the collaborator and emits the Action
// event off-chain consumers use to rebuild the action history. Submitted by
// the admin backend on the collaborator's behalf after verifying the proof.
func (c *Contract) ProcessAction(ctx context.Context, tc *Context, from, to, actionID, value, actionTime, ipfsHash string) (bool, error) {
	if err := c.requireAdmin(tc); err != nil {
		return false, err
	}

	ok, err := c.transfer(ctx, tc, from, to, value)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, domain.ErrTransferFailed
	}

	v, err := parseAmount(value)
	if err != nil {
		return false, err
	}
	t, err := strconv.ParseInt(actionTime, 10, 64)
	if err != nil {
		return false, fmt.Errorf("%w: time %q", domain.ErrInvalidAmount, actionTime)
	}

	event := domain.ActionEvent{
		From:     from,
		To:       to,
		ActionID: actionID,
		Value:    v,
		Time:     t,
		IPFSHash: ipfsHash,
	}
	if err := c.emit(tc, domain.EventAction, event); err != nil {
		return false, err
	}
	return true, nil
}

// transfer is the internal primitive carrying out a balance-conserving
// move. A zero value is accepted and applied as a no-op pair of writes.
// Both balance writes land in the same write-set; the runtime commits them
// as one unit.
func (c *Contract) transfer(ctx context.Context, tc *Context, from, to, value string) (bool, error) {
	if from == to {
		return false, domain.ErrSelfTransfer
	}

	v, err := parseAmount(value)
	if err != nil {
		return false, err
	}
	if v < 0 {
		return false, domain.ErrNegativeAmount
	}

	fromBalance, ok, err := readInt(ctx, tc.State, balanceKey(from))
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrNoBalance, from)
	}
	if fromBalance < v {
		return false, fmt.Errorf("%w: client account %s", domain.ErrInsufficientFunds, from)
	}

	// Recipient balance is created lazily at zero
	toBalance, _, err := readInt(ctx, tc.State, balanceKey(to))
	if err != nil {
		return false, err
	}

	if err := putInt(ctx, tc.State, balanceKey(from), fromBalance-v); err != nil {
		return false, err
	}
	if err := putInt(ctx, tc.State, balanceKey(to), toBalance+v); err != nil {
		return false, err
	}

	logger.Debug("sender balance updated",
		zap.String("account", from),
		zap.Int64("old_balance", fromBalance),
		zap.Int64("new_balance", fromBalance-v),
	)
	logger.Debug("recipient balance updated",
		zap.String("account", to),
		zap.Int64("old_balance", toBalance),
		zap.Int64("new_balance", toBalance+v),
	)
	return true, nil
}

// requireAdmin gates the privileged operations on the admin organization
func (c *Contract) requireAdmin(tc *Context) error {
	if tc.Identity.MSPID != c.cfg.AdminMSP {
		return fmt.Errorf("%w: msp %q", domain.ErrUnauthorized, tc.Identity.MSPID)
	}
	return nil
}

// emit canonicalizes the event payload and hands it to the sink
func (c *Contract) emit(tc *Context, name domain.EventName, payload interface{}) error {
	data, err := c.json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", name, err)
	}
	canonical, err := c.jcs.Transform(data)
	if err != nil {
		return fmt.Errorf("failed to canonicalize %s event: %w", name, err)
	}
	tc.Events.SetEvent(name, canonical)
	return nil
}

// balanceKey builds the composite world-state key for an owner's balance
func balanceKey(owner string) string {
	return worldstate.CompositeKey(domain.BalancePrefix, owner)
}

// parseAmount parses a wire-format amount string
func parseAmount(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, s)
	}
	return v, nil
}

// readInt reads an integer state value; ok is false when the key is absent
// or empty
func readInt(ctx context.Context, state worldstate.WorldState, key string) (int64, bool, error) {
	value, err := state.GetState(ctx, key)
	if err != nil {
		return 0, false, err
	}
	if len(value) == 0 {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt state value at %q: %w", key, err)
	}
	return v, true, nil
}

// putInt writes an integer state value in wire format
func putInt(ctx context.Context, state worldstate.WorldState, key string, v int64) error {
	return state.PutState(ctx, key, []byte(strconv.FormatInt(v, 10)))
}
