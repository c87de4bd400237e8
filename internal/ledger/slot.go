package ledger

import (
	"fmt"
	"strings"
	"time"
)

// SlotConfig maps wall-clock time to ledger slots.
type SlotConfig struct {
	ZeroTime   int64  // unix ms of ZeroSlot
	ZeroSlot   uint64
	SlotLength int64 // ms
}

var networks = map[string]SlotConfig{
	"mainnet": {ZeroTime: 1596059091000, ZeroSlot: 4492800, SlotLength: 1000},
	"preprod": {ZeroTime: 1654041600000 + 1728000000, ZeroSlot: 86400, SlotLength: 1000},
	"preview": {ZeroTime: 1666656000000, ZeroSlot: 0, SlotLength: 1000},
	// in-process ledger twin
	"memory": {ZeroTime: 1666656000000, ZeroSlot: 0, SlotLength: 1000},
}

// Network returns the slot configuration of a named network.
func Network(name string) (SlotConfig, error) {
	cfg, ok := networks[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return SlotConfig{}, fmt.Errorf("ledger: unknown network %q", name)
	}
	return cfg, nil
}

// Slot returns the slot containing t.
func (c SlotConfig) Slot(t time.Time) uint64 {
	ms := t.UnixMilli()
	if ms <= c.ZeroTime || c.SlotLength <= 0 {
		return c.ZeroSlot
	}
	return c.ZeroSlot + uint64((ms-c.ZeroTime)/c.SlotLength)
}

// Time returns the start time of slot.
func (c SlotConfig) Time(slot uint64) time.Time {
	if slot < c.ZeroSlot {
		slot = c.ZeroSlot
	}
	return time.UnixMilli(c.ZeroTime + int64(slot-c.ZeroSlot)*c.SlotLength)
}
