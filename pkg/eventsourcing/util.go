package eventsourcing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// TimeFunc returns the current time. It is a package-level var, matching the
// teacher's approach, specifically so tests can override it; unlike the
// teacher's process-wide serializer defaults (§9 design notes), a clock is
// genuinely process-global by nature and safe to override this way.
var TimeFunc = time.Now

// Now returns the current time via TimeFunc.
func Now() time.Time {
	return TimeFunc()
}

// GenerateDeterministicEventID derives a stable event id from an aggregate
// id and the event's sequence number in that aggregate's stream, so the same
// stream position always produces the same id, whatever the payload (§12
// supplement). Providers
// that want idempotent storage keys can use SerializedEvent.ID instead of
// minting their own.
func GenerateDeterministicEventID(aggregateID AggregateID, sequence int64) string {
	h := sha256.New()
	h.Write([]byte(fmt.Sprintf("%s:%d", aggregateID, sequence)))
	return hex.EncodeToString(h.Sum(nil))[:32]
}
