package service

import (
	"fmt"

	"github.com/kubiknyc/SuperSiteHero-sub015/internal/repository"
)

// Display-number formatting. The sequence allocator returns raw integers;
// these pure functions layer the presentation format on top.

// Sequence scope keys for change orders: the PCO counter runs independently
// of the CO counter so both stay monotonic and never reused.
const (
	ScopePCO = "pco"
	ScopeCO  = "co"
)

// FormatRFINumber renders an RFI number, e.g. RFI-003.
func FormatRFINumber(n int64) string {
	return fmt.Sprintf("RFI-%03d", n)
}

// FormatSubmittalNumber renders a submittal number within its spec section,
// e.g. "05 12 00-1".
func FormatSubmittalNumber(specSection string, n int64) string {
	return fmt.Sprintf("%s-%d", specSection, n)
}

// FormatPCONumber renders a potential-change-order number, e.g. PCO-002.
func FormatPCONumber(n int64) string {
	return fmt.Sprintf("PCO-%03d", n)
}

// FormatCONumber renders an executed change-order number, e.g. CO-001.
func FormatCONumber(n int64) string {
	return fmt.Sprintf("CO-%03d", n)
}

// sequenceScope maps an entity type to its display-number counter scope.
// Submittal numbers are scoped by spec section; RFIs use the empty scope;
// change orders draw from the PCO counter until executed.
func sequenceScope(entityType repository.EntityType, specSection *string) *repository.SequenceRequest {
	switch entityType {
	case repository.EntityTypeSubmittal:
		section := ""
		if specSection != nil {
			section = *specSection
		}
		return &repository.SequenceRequest{
			ScopeKey: section,
			Format:   func(n int64) string { return FormatSubmittalNumber(section, n) },
		}
	case repository.EntityTypeChangeOrder:
		return &repository.SequenceRequest{ScopeKey: ScopePCO, Format: FormatPCONumber}
	default:
		return &repository.SequenceRequest{ScopeKey: "", Format: FormatRFINumber}
	}
}

// displayNumberRequest builds the sequence request for the transition that
// first leaves draft.
func displayNumberRequest(item *repository.WorkflowItem) *repository.SequenceRequest {
	return sequenceScope(item.EntityType, item.SpecSection)
}

// coNumberRequest builds the sequence request for the CO number assigned on
// owner approval.
func coNumberRequest() *repository.SequenceRequest {
	return &repository.SequenceRequest{ScopeKey: ScopeCO, Format: FormatCONumber}
}
