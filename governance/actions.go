package governance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"washika-dao/models"
	"washika-dao/repository"
	"washika-dao/timelock"
)

// In-process targets a proposal may address
const (
	TargetDAO   = "washika-dao"
	TargetToken = "governance-token"
)

type valueArgs struct {
	Value uint64 `json:"value"`
}

type principalArgs struct {
	Principal models.Principal `json:"principal"`
}

type mintArgs struct {
	To     models.Principal `json:"to"`
	Amount uint64           `json:"amount"`
}

func decodeCalldata(a models.Action, out any) error {
	if err := json.Unmarshal(a.Calldata, out); err != nil {
		return fmt.Errorf("decode calldata of %s: %w", a.Signature, err)
	}
	return nil
}

// RegisterActions routes timelock actions on the DAO and the token back into
// the ledger, using the transaction the timelock runs in
func (e *Engine) RegisterActions(tl *timelock.Local) {
	tl.Register(TargetDAO, func(ctx context.Context, caller models.Principal, a models.Action) error {
		r, err := repository.FromContext(ctx)
		if err != nil {
			return err
		}
		s := e.session(ctx, r)
		if a.Signature == "set-authority" {
			var args principalArgs
			if err := decodeCalldata(a, &args); err != nil {
				return err
			}
			return s.setAuthority(caller, args.Principal)
		}
		name, ok := strings.CutPrefix(a.Signature, "set-")
		if !ok {
			return fmt.Errorf("%w: %s", models.ErrUnknownParameter, a.Signature)
		}
		var args valueArgs
		if err := decodeCalldata(a, &args); err != nil {
			return err
		}
		return s.setParam(caller, name, args.Value)
	})

	tl.Register(TargetToken, func(ctx context.Context, caller models.Principal, a models.Action) error {
		r, err := repository.FromContext(ctx)
		if err != nil {
			return err
		}
		if a.Signature != "mint" {
			return fmt.Errorf("unsupported token action %q", a.Signature)
		}
		var args mintArgs
		if err := decodeCalldata(a, &args); err != nil {
			return err
		}
		return e.session(ctx, r).ledger.Mint(caller, args.To, args.Amount)
	})
}
