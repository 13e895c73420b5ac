package transfer

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LogDispatcher implements ports.FundTransferor by recording the outbound
// transfer. Escrowed funds are released off-ledger, so the engine's only job
// after the debit commits is to hand the instruction on.
type LogDispatcher struct {
	log zerolog.Logger
}

// NewLogDispatcher creates a new LogDispatcher.
func NewLogDispatcher(log zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

// TransferOut dispatches an outbound transfer instruction.
func (d *LogDispatcher) TransferOut(_ context.Context, accountID uuid.UUID, currency string, amount int64) error {
	d.log.Info().
		Str("account_id", accountID.String()).
		Str("currency", currency).
		Int64("amount", amount).
		Msg("outbound transfer dispatched")
	return nil
}
