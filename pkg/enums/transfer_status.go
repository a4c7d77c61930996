package enums

// TransferStatus tracks a single settlement record's payout.
type TransferStatus string

const (
	TransferStatusPending     TransferStatus = "pending"
	TransferStatusTransferred TransferStatus = "transferred"
	TransferStatusFailed      TransferStatus = "failed"
	// TransferStatusNotRequired marks groups that move no money (platform, zero payout).
	TransferStatusNotRequired TransferStatus = "not_required"
	TransferStatusReversed    TransferStatus = "reversed"
)

var validTransferStatuses = []TransferStatus{
	TransferStatusPending,
	TransferStatusTransferred,
	TransferStatusFailed,
	TransferStatusNotRequired,
	TransferStatusReversed,
}

func (s TransferStatus) IsValid() bool {
	for _, candidate := range validTransferStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
