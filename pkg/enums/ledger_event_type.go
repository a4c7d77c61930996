package enums

// LedgerEventType classifies money movements recorded against an order.
type LedgerEventType string

const (
	LedgerEventTypeSellerPayout       LedgerEventType = "seller_payout"
	LedgerEventTypeCommissionRetained LedgerEventType = "commission_retained"
	LedgerEventTypeTransferReversal   LedgerEventType = "transfer_reversal"
	LedgerEventTypeRefund             LedgerEventType = "refund"
)

var validLedgerEventTypes = []LedgerEventType{
	LedgerEventTypeSellerPayout,
	LedgerEventTypeCommissionRetained,
	LedgerEventTypeTransferReversal,
	LedgerEventTypeRefund,
}

// IsValid reports whether the value matches the canonical ledger event enum.
func (t LedgerEventType) IsValid() bool {
	for _, candidate := range validLedgerEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}
