package combo

import "fmt"

// Reason classifies a selection constraint violation.
type Reason string

const (
	ReasonNoSelection          Reason = "no_selection"
	ReasonInsufficientQuantity Reason = "insufficient_quantity"
	ReasonExceedsMax           Reason = "exceeds_max"
)

// ValidationFailure is a recoverable constraint violation. The engine state
// is unchanged when one is returned.
type ValidationFailure struct {
	GroupKey         string `json:"groupKey"`
	GroupName        string `json:"groupName"`
	Reason           Reason `json:"reason"`
	RequiredQuantity int    `json:"requiredQuantity,omitempty"`
	CurrentQuantity  int    `json:"currentQuantity,omitempty"`
	MaxQuantity      int    `json:"maxQuantity,omitempty"`
}

func (f *ValidationFailure) Error() string {
	return f.Message()
}

// Message is the customer-facing text naming the group and what it needs.
func (f *ValidationFailure) Message() string {
	switch f.Reason {
	case ReasonNoSelection:
		return fmt.Sprintf("Please choose %s from %s.", items(f.RequiredQuantity), f.GroupName)
	case ReasonInsufficientQuantity:
		return fmt.Sprintf("%s needs %s, %d chosen so far.", f.GroupName, items(f.RequiredQuantity), f.CurrentQuantity)
	case ReasonExceedsMax:
		return fmt.Sprintf("You can choose at most %s from %s.", items(f.MaxQuantity), f.GroupName)
	}
	return fmt.Sprintf("%s: invalid selection", f.GroupName)
}

func items(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}
