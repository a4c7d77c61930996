package enums

// AccountStatus is the cached capability status of a connected account.
type AccountStatus string

const (
	AccountStatusPending    AccountStatus = "pending"
	AccountStatusActive     AccountStatus = "active"
	AccountStatusRestricted AccountStatus = "restricted"
)

var validAccountStatuses = []AccountStatus{
	AccountStatusPending,
	AccountStatusActive,
	AccountStatusRestricted,
}

func (s AccountStatus) IsValid() bool {
	for _, candidate := range validAccountStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// DeriveAccountStatus maps gateway capability flags onto AccountStatus.
func DeriveAccountStatus(chargesEnabled, payoutsEnabled, detailsSubmitted bool) AccountStatus {
	switch {
	case chargesEnabled && payoutsEnabled:
		return AccountStatusActive
	case detailsSubmitted:
		return AccountStatusRestricted
	default:
		return AccountStatusPending
	}
}
