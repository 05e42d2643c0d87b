package contract

import (
	"context"
	"fmt"

	"github.com/deustocoin/sc-ledger/internal/domain"
)

// Handler executes one contract function against a transaction context
type Handler func(ctx context.Context, tc *Context, args []string) (interface{}, error)

// Registry maps transaction function names to handlers. The runtime
// dispatches submissions through it; there is no framework base type.
type Registry map[domain.Function]Handler

// Invoke dispatches a named function with positional string arguments
func (r Registry) Invoke(ctx context.Context, tc *Context, fn domain.Function, args []string) (interface{}, error) {
	handler, ok := r[fn]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownFunction, fn)
	}
	return handler(ctx, tc, args)
}

// Registry returns the contract's transaction function table
func (c *Contract) Registry() Registry {
	return Registry{
		domain.FnTokenName: func(ctx context.Context, tc *Context, args []string) (interface{}, error) {
			if err := wantArgs(domain.FnTokenName, args, 0); err != nil {
				return nil, err
			}
			return c.TokenName(ctx, tc)
		},
		domain.FnSymbol: func(ctx context.Context, tc *Context, args []string) (interface{}, error) {
			if err := wantArgs(domain.FnSymbol, args, 0); err != nil {
				return nil, err
			}
			return c.Symbol(ctx, tc)
		},
		domain.FnDecimals: func(ctx context.Context, tc *Context, args []string) (interface{}, error) {
			if err := wantArgs(domain.FnDecimals, args, 0); err != nil {
				return nil, err
			}
			return c.Decimals(ctx, tc)
		},
		domain.FnTotalSupply: func(ctx context.Context, tc *Context, args []string) (interface{}, error) {
			if err := wantArgs(domain.FnTotalSupply, args, 0); err != nil {
				return nil, err
			}
			return c.TotalSupply(ctx, tc)
		},
		domain.FnBalanceOf: func(ctx context.Context, tc *Context, args []string) (interface{}, error) {
			if err := wantArgs(domain.FnBalanceOf, args, 1); err != nil {
				return nil, err
			}
			return c.BalanceOf(ctx, tc, args[0])
		},
		domain.FnTransfer: func(ctx context.Context, tc *Context, args []string) (interface{}, error) {
			if err := wantArgs(domain.FnTransfer, args, 2); err != nil {
				return nil, err
			}
			return c.Transfer(ctx, tc, args[0], args[1])
		},
		domain.FnMint: func(ctx context.Context, tc *Context, args []string) (interface{}, error) {
			if err := wantArgs(domain.FnMint, args, 2); err != nil {
				return nil, err
			}
			return c.Mint(ctx, tc, args[0], args[1])
		},
		domain.FnBurn: func(ctx context.Context, tc *Context, args []string) (interface{}, error) {
			if err := wantArgs(domain.FnBurn, args, 2); err != nil {
				return nil, err
			}
			return c.Burn(ctx, tc, args[0], args[1])
		},
		domain.FnProcessAction: func(ctx context.Context, tc *Context, args []string) (interface{}, error) {
			if err := wantArgs(domain.FnProcessAction, args, 6); err != nil {
				return nil, err
			}
			return c.ProcessAction(ctx, tc, args[0], args[1], args[2], args[3], args[4], args[5])
		},
		domain.FnSetOption: func(ctx context.Context, tc *Context, args []string) (interface{}, error) {
			if err := wantArgs(domain.FnSetOption, args, 3); err != nil {
				return nil, err
			}
			return c.SetOption(ctx, tc, args[0], args[1], args[2])
		},
		domain.FnClientAccountID: func(ctx context.Context, tc *Context, args []string) (interface{}, error) {
			if err := wantArgs(domain.FnClientAccountID, args, 0); err != nil {
				return nil, err
			}
			return c.ClientAccountID(tc), nil
		},
	}
}

func wantArgs(fn domain.Function, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: %s expects %d, got %d", domain.ErrBadArgCount, fn, n, len(args))
	}
	return nil
}
