package types

import "time"

type SignalType string

const (
	// SignalTypeEntryLong is a signal that tells the engine to open a long position
	SignalTypeEntryLong SignalType = "entry_long"
	// SignalTypeEntryShort is a signal that tells the engine to open a short position
	SignalTypeEntryShort SignalType = "entry_short"
	// SignalTypeExit is a signal that tells the engine to close an open position
	SignalTypeExit SignalType = "exit"
	// SignalTypeNoAction is a signal that tells the engine to take no action
	SignalTypeNoAction SignalType = "no_action"
)

type Signal struct {
	// Time is the time of the signal
	Time time.Time
	// Type is the type of the signal
	Type SignalType
	// Name is the name of the strategy that generated the signal
	Name string
	// Reason is the reason for the signal
	Reason string
	// Symbol is the symbol of the signal
	Symbol string
}

// IsEntry reports whether the signal requests opening a new position.
func (s Signal) IsEntry() bool {
	return s.Type == SignalTypeEntryLong || s.Type == SignalTypeEntryShort
}
