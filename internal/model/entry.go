// Package model defines the core domain records for the chatledger application.
package model

import "fmt"

// Kind distinguishes the two payment record shapes found in transcripts.
type Kind string

// Payment kinds.
const (
	KindIndividual Kind = "Individual"
	KindGroup      Kind = "Group"
)

// TypeTag returns the single-digit tag used as the deposit code prefix.
func (k Kind) TypeTag() string {
	if k == KindIndividual {
		return "1"
	}
	return "0"
}

// Sentinel values used when a field cannot be extracted.
const (
	BranchPending     = "pending"
	BranchUnspecified = "unspecified"
	ConceptPending    = "pending image"
	SequencePending   = "pending"
	WeeklyNotFound    = "not found"
	DefaultCycle      = "01"
)

// Time slot values derived from the message hour.
const (
	SlotMorning = "morning"
	SlotEvening = "evening"
)

// PaymentEntry is one payment record extracted from a chat message.
type PaymentEntry struct {
	Kind           Kind
	Identifier     string // 6 digits, zero-padded
	DisplayName    string
	Date           string // DD/MM/YY
	Time           string // HH:MM:SS
	Payment        float64
	Savings        float64
	Total          float64
	SequenceNumber string
	Branch         string
	TimeSlot       string
	Cycle          string // "01" or "02"
	Concept        string
	DepositCode    string // 9 chars: type tag + identifier + cycle
	WeeklyPayment  string
	Confirmed      bool
	SourceFile     string
}

// DedupKey identifies a payment for duplicate detection across batches.
// Existing ledger rows win over reprocessed duplicates carrying the same key.
func (e *PaymentEntry) DedupKey() string {
	return fmt.Sprintf("%s|%s|%.2f|%.2f", e.Identifier, e.DisplayName, e.Payment, e.Savings)
}

// BatchKey extends the dedup key with the message timestamp for
// intra-file deduplication.
func (e *PaymentEntry) BatchKey() string {
	return fmt.Sprintf("%s|%s %s", e.DedupKey(), e.Date, e.Time)
}

// LedgerRow is a persisted payment row. It is a superset of PaymentEntry with
// the confirmed flag stored as a yes/no token and a stable row id.
type LedgerRow struct {
	RowID          int64
	Identifier     string
	DisplayName    string
	Date           string
	Time           string
	Payment        float64
	Savings        float64
	Total          float64
	SequenceNumber string
	Branch         string
	TimeSlot       string
	Kind           Kind
	Cycle          string
	Concept        string
	DepositCode    string
	WeeklyPayment  string
	Confirmed      bool
	SourceFile     string
}

// ConfirmedToken renders the persisted yes/no form of the confirmed flag.
func (r *LedgerRow) ConfirmedToken() string {
	if r.Confirmed {
		return "yes"
	}
	return "no"
}

// DedupKey matches PaymentEntry.DedupKey for merge-append comparisons.
func (r *LedgerRow) DedupKey() string {
	return fmt.Sprintf("%s|%s|%.2f|%.2f", r.Identifier, r.DisplayName, r.Payment, r.Savings)
}
