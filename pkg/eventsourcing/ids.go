package eventsourcing

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AggregateID is the opaque 128-bit identifier of an aggregate (§3).
type AggregateID uuid.UUID

// NewAggregateID generates a fresh, random aggregate identifier.
func NewAggregateID() AggregateID {
	return AggregateID(uuid.New())
}

// ParseAggregateID parses the textual form of an aggregate identifier.
func ParseAggregateID(s string) (AggregateID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return AggregateID{}, fmt.Errorf("aggregatestore: parsing aggregate id %q: %w", s, err)
	}
	return AggregateID(id), nil
}

// String returns the canonical textual form of the identifier.
func (id AggregateID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether id is the zero value (never a valid generated id).
func (id AggregateID) IsZero() bool {
	return id == AggregateID{}
}

// PartitionKey routes an aggregate to a storage partition. By convention it
// equals the textual form of the AggregateID unless the caller chooses
// otherwise (§3); it is immutable for the aggregate's lifetime.
type PartitionKey string

// DefaultPartitionKey returns the spec's default partition-key convention:
// the textual form of the aggregate id.
func DefaultPartitionKey(id AggregateID) PartitionKey {
	return PartitionKey(id.String())
}

// partitionScopeSeparator separates a routing scope from the aggregate id
// component of a composed partition key.
const partitionScopeSeparator = "::"

// ComposePartitionKey builds a scoped partition key, generalizing the
// teacher's tenant-scoped aggregate id composition (pkg/multitenancy) into a
// plain routing-scope convention: "{scope}::{aggregateID}". An empty scope
// returns the default partition key unscoped.
func ComposePartitionKey(scope string, id AggregateID) PartitionKey {
	if scope == "" {
		return DefaultPartitionKey(id)
	}
	return PartitionKey(scope + partitionScopeSeparator + id.String())
}

// DecomposePartitionKey splits a partition key produced by ComposePartitionKey
// back into its routing scope (empty if unscoped) and aggregate id.
func DecomposePartitionKey(pk PartitionKey) (scope string, id AggregateID, err error) {
	parts := strings.SplitN(string(pk), partitionScopeSeparator, 2)
	switch len(parts) {
	case 1:
		id, err = ParseAggregateID(parts[0])
		return "", id, err
	case 2:
		id, err = ParseAggregateID(parts[1])
		return parts[0], id, err
	default:
		return "", AggregateID{}, fmt.Errorf("aggregatestore: invalid partition key %q", pk)
	}
}
