package swap

// ReconciliationResult reports how a confirmed swap affected the trader
// ledger's recorded value.
type ReconciliationResult struct {
	// PreviousValue is the recorded value before the swap confirmed.
	PreviousValue uint64

	// UpdatedValue is the recorded value after reconciliation.
	UpdatedValue uint64

	// ValueChanged is true when reconciliation moved the recorded value.
	ValueChanged bool
}

// reconcileRecordedValue computes the ledger's new recorded value after a
// confirmed swap.
//
// The recorded value only tracks base asset holdings. A swap into the base
// asset realizes a position, so the recorded value snaps to the observed base
// balance. A swap out of the base asset opens a position whose worth is
// unknown until it is closed, so the recorded value is left untouched rather
// than guessed at.
func reconcileRecordedValue(previousValue, observedBaseBalance uint64, outputIsBase bool) ReconciliationResult {
	if !outputIsBase {
		return ReconciliationResult{
			PreviousValue: previousValue,
			UpdatedValue:  previousValue,
		}
	}

	return ReconciliationResult{
		PreviousValue: previousValue,
		UpdatedValue:  observedBaseBalance,
		ValueChanged:  observedBaseBalance != previousValue,
	}
}
