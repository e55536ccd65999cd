package models

// Storage areas a single account owns objects under. Usage is computed
// over both independently and summed.
const (
	AreaMediaLibrary = "media-library"
	AreaRenders      = "renders"
)

// AreaUsage is the aggregate for one storage area.
type AreaUsage struct {
	Bytes int64 `json:"bytes"`
	Files int   `json:"files"`
}

// StorageUsage is a point-in-time snapshot of an account's storage
// consumption. It is computed fresh on every admission check and never
// persisted.
//
// Degraded is set when any subtree listing failed and contributed zero
// bytes, so callers can tell "empty" from "unknown due to error".
type StorageUsage struct {
	MediaLibrary   AreaUsage `json:"media_library"`
	Renders        AreaUsage `json:"renders"`
	TotalUsedBytes int64     `json:"total_used_bytes"`
	Degraded       bool      `json:"degraded,omitempty"`
}

// Tier is the account's subscription level. It is read-only input here;
// tier changes arrive through billing, outside this service.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// Storage ceilings per tier.
const (
	FreeLimitBytes    int64 = 5 << 30   // 5 GiB
	PremiumLimitBytes int64 = 100 << 30 // 100 GiB
)

// LimitBytes returns the storage ceiling for the tier. Unknown tiers get
// the free ceiling.
func (t Tier) LimitBytes() int64 {
	if t == TierPremium {
		return PremiumLimitBytes
	}
	return FreeLimitBytes
}
