package services

import "github.com/ethereum/go-ethereum/common"

// EntryRegistry is the ordered list of tickets in the active round. An
// identity appears once per ticket it holds.
type EntryRegistry struct {
	entries []common.Address
	frozen  bool
}

// NewEntryRegistry returns an empty, unfrozen registry.
func NewEntryRegistry() *EntryRegistry {
	return &EntryRegistry{entries: make([]common.Address, 0)}
}

// Add appends a ticket for id and returns its zero-based position.
func (r *EntryRegistry) Add(id common.Address) (int, error) {
	if r.frozen {
		return 0, ErrRoundLocked
	}
	r.entries = append(r.entries, id)
	return len(r.entries) - 1, nil
}

// Count returns the number of tickets.
func (r *EntryRegistry) Count() int {
	return len(r.entries)
}

// At returns the holder of the ticket at index.
func (r *EntryRegistry) At(index int) (common.Address, error) {
	if index < 0 || index >= len(r.entries) {
		return common.Address{}, ErrIndexOutOfRange
	}
	return r.entries[index], nil
}

// Entries returns a copy of all tickets in purchase order.
func (r *EntryRegistry) Entries() []common.Address {
	out := make([]common.Address, len(r.entries))
	copy(out, r.entries)
	return out
}

// Clear drops every ticket.
func (r *EntryRegistry) Clear() {
	r.entries = make([]common.Address, 0)
}

// Freeze rejects further entries until Unfreeze.
func (r *EntryRegistry) Freeze() { r.frozen = true }

// Unfreeze accepts entries again.
func (r *EntryRegistry) Unfreeze() { r.frozen = false }

func (r *EntryRegistry) restore(entries []common.Address, frozen bool) {
	r.entries = entries
	r.frozen = frozen
}
