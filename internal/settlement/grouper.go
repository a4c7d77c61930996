package settlement

import "github.com/extrachill/marketplace-settlement/pkg/db/models"

// PlatformSellerID identifies the synthetic platform group.
const PlatformSellerID int64 = 0

// SellerGroup is the transient set of an order's line items owned by one
// seller. It is recomputed every time settlement runs.
type SellerGroup struct {
	SellerID      int64
	Items         []models.OrderLineItem
	SubtotalCents int64
}

// IsPlatform reports whether the group belongs to the platform.
func (g SellerGroup) IsPlatform() bool {
	return g.SellerID == PlatformSellerID
}

// GroupBySeller partitions items by seller. Items without a seller, or owned
// by platformSellerID, coalesce into one platform group. Groups appear in the
// order their seller is first seen and keep their items' input order.
func GroupBySeller(items []models.OrderLineItem, platformSellerID int64) []SellerGroup {
	var groups []SellerGroup
	index := make(map[int64]int)
	for _, item := range items {
		sellerID := item.SellerID
		if sellerID <= 0 || (platformSellerID > 0 && sellerID == platformSellerID) {
			sellerID = PlatformSellerID
		}
		pos, ok := index[sellerID]
		if !ok {
			pos = len(groups)
			index[sellerID] = pos
			groups = append(groups, SellerGroup{SellerID: sellerID})
		}
		groups[pos].Items = append(groups[pos].Items, item)
		groups[pos].SubtotalCents += item.SubtotalCents
	}
	return groups
}

// PlatformOnly reports whether no group needs a transfer.
func PlatformOnly(groups []SellerGroup) bool {
	for _, g := range groups {
		if !g.IsPlatform() {
			return false
		}
	}
	return true
}
