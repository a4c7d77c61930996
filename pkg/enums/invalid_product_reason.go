package enums

// InvalidProductReason explains why a cart product cannot be paid out.
type InvalidProductReason string

const (
	InvalidProductSellerNotConnected InvalidProductReason = "seller_not_connected"
	InvalidProductAccountRestricted  InvalidProductReason = "seller_account_restricted"
	InvalidProductUnknown            InvalidProductReason = "product_not_found"
)
