package ledger

import "github.com/shopspring/decimal"

// Recompute applies each entry's signed amount to a running total starting at
// start and returns the balance after every entry, in order. The input is not
// modified.
//
// When allowNegative is false the first expense or transfer_out that would
// drive the running total below zero aborts the computation with an
// *InsufficientFundsError naming that entry. Income-like entries may follow a
// negative start without error only if allowNegative is true; a non-negative
// sequence always recomputes the same way regardless of the flag.
func Recompute(start decimal.Decimal, txs []*Transaction, allowNegative bool) ([]decimal.Decimal, error) {
	balances := make([]decimal.Decimal, len(txs))
	running := start

	for i, tx := range txs {
		running = running.Add(tx.Signed())

		if !allowNegative && running.IsNegative() && tx.Kind.Sign() < 0 {
			return nil, &InsufficientFundsError{
				TransactionID: tx.ID,
				Date:          tx.Date,
				Balance:       running,
			}
		}

		balances[i] = running
	}

	return balances, nil
}
