package workers

import (
	"context"

	"tera-rewards-backend/internal/service/rewards"
)

type apiCommands struct {
	api *rewards.API
}

// APICommands adapts the rewards API to the worker's command set.
func APICommands(api *rewards.API) Commands {
	return apiCommands{api: api}
}

func (c apiCommands) ApproveDeposit(ctx context.Context, id, note string) error {
	_, err := c.api.ApproveDeposit(ctx, id, note)
	return err
}

func (c apiCommands) RejectDeposit(ctx context.Context, id, note string) error {
	_, err := c.api.RejectDeposit(ctx, id, note)
	return err
}

func (c apiCommands) ApproveWithdrawal(ctx context.Context, id, note string) error {
	_, err := c.api.ApproveWithdrawal(ctx, id, note)
	return err
}

func (c apiCommands) RejectWithdrawal(ctx context.Context, id, note string) error {
	_, err := c.api.RejectWithdrawal(ctx, id, note)
	return err
}

func (c apiCommands) StopMining(ctx context.Context, accountID int64) error {
	_, err := c.api.StopMining(ctx, accountID)
	return err
}

func (c apiCommands) ToggleAccount(ctx context.Context, accountID int64) error {
	_, err := c.api.ToggleAccountStatus(ctx, accountID)
	return err
}
