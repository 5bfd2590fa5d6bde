package billing

import "fmt"

// Cache keys are per account. Every mutation invalidates both; the ledger is
// an aggregate over the same rows the listing reads.
func recentEstimatesKey(accountID int64) string {
	return fmt.Sprintf("billing:estimates:recent:%d", accountID)
}

func ledgerKey(accountID int64) string {
	return fmt.Sprintf("billing:ledger:%d", accountID)
}
