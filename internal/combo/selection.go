package combo

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownGroup     = errors.New("unknown group")
	ErrUnknownItem      = errors.New("unknown item")
	ErrNegativeQuantity = errors.New("quantity must not be negative")
	ErrStepOutOfRange   = errors.New("step out of range")
)

// SelectedItem is one chosen product and its quantity.
type SelectedItem struct {
	ProductKey string `json:"productKey"`
	Quantity   int    `json:"quantity"`
}

// Selections maps a group key to its chosen items in the order they were
// first chosen.
type Selections map[string][]SelectedItem

// Total is the summed quantity of a group.
func (s Selections) Total(groupKey string) int {
	n := 0
	for _, it := range s[groupKey] {
		n += it.Quantity
	}
	return n
}

// Quantity of one product in one group.
func (s Selections) Quantity(groupKey, productKey string) int {
	for _, it := range s[groupKey] {
		if it.ProductKey == productKey {
			return it.Quantity
		}
	}
	return 0
}

// Clone returns a deep copy.
func (s Selections) Clone() Selections {
	out := make(Selections, len(s))
	for k, v := range s {
		out[k] = append([]SelectedItem(nil), v...)
	}
	return out
}

// Transition describes the state after a successful quantity change.
type Transition struct {
	GroupKey    string `json:"groupKey"`
	ProductKey  string `json:"productKey"`
	Quantity    int    `json:"quantity"`
	GroupTotal  int    `json:"groupTotal"`
	Advanced    bool   `json:"advanced"`
	ToReview    bool   `json:"toReview"`
	ActiveIndex int    `json:"activeIndex"`
}

// Engine tracks one customer's selections for one combo. It is not safe for
// concurrent use; each ordering session owns its own engine.
type Engine struct {
	combo      *Combo
	index      map[string]int
	selections Selections
	active     int
}

// NewEngine starts an empty session on the first group.
func NewEngine(c *Combo) *Engine {
	e := &Engine{
		combo:      c,
		index:      make(map[string]int, len(c.Groups)),
		selections: make(Selections),
	}
	for i, g := range c.Groups {
		e.index[g.Key] = i
	}
	return e
}

// Combo returns the catalog structure the engine was built from.
func (e *Engine) Combo() *Combo { return e.combo }

// Selections returns a copy of the current selections.
func (e *Engine) Selections() Selections { return e.selections.Clone() }

// ActiveIndex is the current step; ReviewIndex means the review step.
func (e *Engine) ActiveIndex() int { return e.active }

// ReviewIndex is the index of the trailing review/confirm step.
func (e *Engine) ReviewIndex() int { return len(e.combo.Groups) }

// InReview reports whether the review step is active.
func (e *Engine) InReview() bool { return e.active == e.ReviewIndex() }

// ActiveGroup returns the group of the current step, false on review.
func (e *Engine) ActiveGroup() (CatalogGroup, bool) {
	if e.InReview() {
		return CatalogGroup{}, false
	}
	return e.combo.Groups[e.active], true
}

// SetQuantity sets how many of productKey are chosen in groupKey. Zero
// removes the item.
//
// A change that would push the group total above MaxQuantity is rejected
// with a *ValidationFailure and leaves the state untouched. After a change
// to the active group the engine moves on when a forced group has reached
// its required quantity, and moves to review after a pick in the last group.
func (e *Engine) SetQuantity(groupKey, productKey string, qty int) (Transition, error) {
	gi, ok := e.index[groupKey]
	if !ok {
		return Transition{}, fmt.Errorf("%w: %s", ErrUnknownGroup, groupKey)
	}
	g := e.combo.Groups[gi]
	if _, ok := g.Item(productKey); !ok {
		return Transition{}, fmt.Errorf("%w: %s in %s", ErrUnknownItem, productKey, groupKey)
	}
	if qty < 0 {
		return Transition{}, ErrNegativeQuantity
	}

	current := e.selections[groupKey]
	others := 0
	for _, it := range current {
		if it.ProductKey != productKey {
			others += it.Quantity
		}
	}
	total := others + qty
	if g.MaxQuantity > 0 && total > g.MaxQuantity {
		return Transition{}, &ValidationFailure{
			GroupKey:        g.Key,
			GroupName:       g.GroupName,
			Reason:          ReasonExceedsMax,
			MaxQuantity:     g.MaxQuantity,
			CurrentQuantity: others,
		}
	}

	next := make([]SelectedItem, 0, len(current)+1)
	replaced := false
	for _, it := range current {
		if it.ProductKey == productKey {
			replaced = true
			if qty > 0 {
				next = append(next, SelectedItem{ProductKey: productKey, Quantity: qty})
			}
			continue
		}
		next = append(next, it)
	}
	if !replaced && qty > 0 {
		next = append(next, SelectedItem{ProductKey: productKey, Quantity: qty})
	}
	if len(next) == 0 {
		delete(e.selections, groupKey)
	} else {
		e.selections[groupKey] = next
	}

	t := Transition{
		GroupKey:   groupKey,
		ProductKey: productKey,
		Quantity:   qty,
		GroupTotal: total,
	}
	if gi == e.active {
		last := gi == len(e.combo.Groups)-1
		switch {
		case g.Required() && total >= g.RequiredQuantity():
			e.active = gi + 1
			t.Advanced = true
			t.ToReview = e.InReview()
		case last && qty > 0:
			e.active = e.ReviewIndex()
			t.Advanced = true
			t.ToReview = true
		}
	}
	t.ActiveIndex = e.active
	return t, nil
}

// GoTo jumps to any group or, with ReviewIndex, to review. Earlier groups
// need not be complete.
func (e *Engine) GoTo(i int) error {
	if i < 0 || i > e.ReviewIndex() {
		return fmt.Errorf("%w: %d", ErrStepOutOfRange, i)
	}
	e.active = i
	return nil
}

// GoToReview jumps to the review step.
func (e *Engine) GoToReview() {
	e.active = e.ReviewIndex()
}

// IsComplete reports whether a forced group has reached its required
// quantity or an optional group has at least one item.
func (e *Engine) IsComplete(groupKey string) bool {
	g, ok := e.combo.Group(groupKey)
	if !ok {
		return false
	}
	total := e.selections.Total(groupKey)
	if g.Required() {
		return total >= g.RequiredQuantity()
	}
	return total > 0
}

// Validate checks every group in order and returns the first violation as
// a *ValidationFailure: a total above MaxQuantity, or a required group short
// of its quantity.
func (e *Engine) Validate() error {
	for _, g := range e.combo.Groups {
		total := e.selections.Total(g.Key)
		if g.MaxQuantity > 0 && total > g.MaxQuantity {
			return &ValidationFailure{
				GroupKey:        g.Key,
				GroupName:       g.GroupName,
				Reason:          ReasonExceedsMax,
				MaxQuantity:     g.MaxQuantity,
				CurrentQuantity: total,
			}
		}
		if !g.Required() {
			continue
		}
		need := g.RequiredQuantity()
		if total == 0 {
			return &ValidationFailure{
				GroupKey:         g.Key,
				GroupName:        g.GroupName,
				Reason:           ReasonNoSelection,
				RequiredQuantity: need,
			}
		}
		if total < need {
			return &ValidationFailure{
				GroupKey:         g.Key,
				GroupName:        g.GroupName,
				Reason:           ReasonInsufficientQuantity,
				RequiredQuantity: need,
				CurrentQuantity:  total,
			}
		}
	}
	return nil
}

// ApplyDefaults chooses every IsDefault item at its DefaultQuantity (at
// least 1) in groups that have nothing chosen yet. Defaults that would
// exceed MaxQuantity are skipped. The active step does not move.
func (e *Engine) ApplyDefaults() {
	for _, g := range e.combo.Groups {
		if len(e.selections[g.Key]) > 0 {
			continue
		}
		total := 0
		for _, it := range g.Items {
			if !it.IsDefault {
				continue
			}
			qty := it.DefaultQuantity
			if qty <= 0 {
				qty = 1
			}
			if g.MaxQuantity > 0 && total+qty > g.MaxQuantity {
				continue
			}
			total += qty
			e.selections[g.Key] = append(e.selections[g.Key], SelectedItem{ProductKey: it.ProductKey, Quantity: qty})
		}
	}
}

// CommitInput carries what the cart line needs beyond the selections.
type CommitInput struct {
	Quantity int
	Notes    string
	Pricing  Pricing
}

// Commit validates the selections and, when every required group passes,
// prices them and returns the cart line.
func (e *Engine) Commit(in CommitInput) (CartLineItem, error) {
	if err := e.Validate(); err != nil {
		return CartLineItem{}, err
	}
	return Materialize(e.combo, e.selections, in), nil
}
