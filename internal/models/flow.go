package models

import (
	"fmt"
	"time"
)

// FlowState is the step a pending flow is waiting on.
type FlowState string

const (
	StateAwaitingDescription    FlowState = "awaiting_description"
	StateAwaitingPaymentMethod  FlowState = "awaiting_payment_method"
	StateAwaitingCard           FlowState = "awaiting_card"
	StateAwaitingInstallments   FlowState = "awaiting_installments"
	StateAwaitingCategory       FlowState = "awaiting_category"
	StateAwaitingConfirmation   FlowState = "awaiting_confirmation"
	StateAwaitingCorrection     FlowState = "awaiting_correction"
	StateAwaitingNewValue       FlowState = "awaiting_new_value"
	StateAwaitingNewDate        FlowState = "awaiting_new_date"
	StateAwaitingNewDescription FlowState = "awaiting_new_description"
)

var flowStates = map[FlowState]struct{}{
	StateAwaitingDescription:    {},
	StateAwaitingPaymentMethod:  {},
	StateAwaitingCard:           {},
	StateAwaitingInstallments:   {},
	StateAwaitingCategory:       {},
	StateAwaitingConfirmation:   {},
	StateAwaitingCorrection:     {},
	StateAwaitingNewValue:       {},
	StateAwaitingNewDate:        {},
	StateAwaitingNewDescription: {},
}

// ParseFlowState converts a stable tag back to a FlowState.
func ParseFlowState(tag string) (FlowState, error) {
	s := FlowState(tag)
	if _, ok := flowStates[s]; !ok {
		return "", fmt.Errorf("unknown flow state: %q", tag)
	}
	return s, nil
}

// CorrectionTarget is the field a correction sub-flow is resolving.
type CorrectionTarget string

const (
	CorrectNone          CorrectionTarget = ""
	CorrectDescription   CorrectionTarget = "description"
	CorrectValue         CorrectionTarget = "value"
	CorrectCategory      CorrectionTarget = "category"
	CorrectPaymentMethod CorrectionTarget = "payment_method"
	CorrectDate          CorrectionTarget = "date"
)

// ParseCorrectionTarget converts a stable tag back to a CorrectionTarget.
func ParseCorrectionTarget(tag string) (CorrectionTarget, error) {
	switch t := CorrectionTarget(tag); t {
	case CorrectNone, CorrectDescription, CorrectValue, CorrectCategory, CorrectPaymentMethod, CorrectDate:
		return t, nil
	default:
		return CorrectNone, fmt.Errorf("unknown correction target: %q", tag)
	}
}

// PendingFlow is the in-flight dialogue of one conversation.
type PendingFlow struct {
	ConversationID      string
	UserID              string
	Origin              string
	Draft               TransactionDraft
	State               FlowState
	Correcting          CorrectionTarget
	CandidateCards      []Card
	CandidateCategories []Category
	SuggestedCategory   *Category
	// AskInstallments is set when the user picked credit during the
	// dialogue, so the installment count must be asked before confirming.
	AskInstallments bool
	StartedAt       time.Time
	LastTouched     time.Time
}

// Clone returns a deep copy so callers never share mutable state with the
// session store.
func (f PendingFlow) Clone() PendingFlow {
	out := f
	out.Draft = f.Draft.Clone()
	if f.CandidateCards != nil {
		out.CandidateCards = append([]Card(nil), f.CandidateCards...)
	}
	if f.CandidateCategories != nil {
		out.CandidateCategories = append([]Category(nil), f.CandidateCategories...)
	}
	if f.SuggestedCategory != nil {
		c := *f.SuggestedCategory
		out.SuggestedCategory = &c
	}
	return out
}

// Expired reports whether the flow has been idle longer than ttl at now.
func (f PendingFlow) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(f.LastTouched) > ttl
}
