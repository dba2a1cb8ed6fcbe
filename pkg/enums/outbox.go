package enums

import "fmt"

// OutboxEventType labels events emitted through the transactional outbox.
type OutboxEventType string

const (
	OutboxEventTypeBalanceChanged OutboxEventType = "balance.changed"
	OutboxEventTypeWalletChanged  OutboxEventType = "wallet.changed"
)

var validOutboxEventTypes = []OutboxEventType{
	OutboxEventTypeBalanceChanged,
	OutboxEventTypeWalletChanged,
}

// IsValid reports whether the value is a known OutboxEventType.
func (t OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregateTypeLedger OutboxAggregateType = "credit_ledger"
	OutboxAggregateTypeWallet OutboxAggregateType = "wallet"
)

var validOutboxAggregateTypes = []OutboxAggregateType{
	OutboxAggregateTypeLedger,
	OutboxAggregateTypeWallet,
}

// IsValid reports whether the value is a known OutboxAggregateType.
func (t OutboxAggregateType) IsValid() bool {
	for _, candidate := range validOutboxAggregateTypes {
		if candidate == t {
			return true
		}
	}
	return false
}
