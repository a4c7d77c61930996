package enums

// ListingStatus is the catalog visibility of a seller product.
type ListingStatus string

const (
	ListingStatusPending   ListingStatus = "pending"
	ListingStatusPublished ListingStatus = "published"
)

func (s ListingStatus) IsValid() bool {
	return s == ListingStatusPending || s == ListingStatusPublished
}
