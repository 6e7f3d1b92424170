package rdx

import (
	"fmt"
	"strconv"
	"time"
)

const availabilityTTL = 30 * time.Second

func availabilityKey(facilityID string) string {
	return fmt.Sprintf("availability:%s", facilityID)
}

// CachedAvailability returns the cached free-slot count for a facility,
// or ok=false when the cache is cold. The count is only a read-path
// optimization for nearby search; the allocator and the cancellation
// policy always recount from the booking ledger.
func CachedAvailability(facilityID string) (int, bool) {
	val, err := RdxGet(availabilityKey(facilityID))
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return n, true
}

func CacheAvailability(facilityID string, free int) {
	_ = SetWithExpiry(availabilityKey(facilityID), strconv.Itoa(free), availabilityTTL)
}

// InvalidateAvailability drops the cached count after a ledger write.
func InvalidateAvailability(facilityID string) {
	_ = RdxDel(availabilityKey(facilityID))
}
