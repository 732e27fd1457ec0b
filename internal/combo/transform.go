package combo

import (
	"errors"
	"fmt"
)

// ErrMissingKey marks a source row without a ComboKey or ProductKey.
var ErrMissingKey = errors.New("missing required key")

// ContractError is an input-contract violation on a source row. It is fatal
// for the whole batch.
type ContractError struct {
	Row   int    // 1-based position in the input
	Field string // "ComboKey" or "ProductKey"
	Err   error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("row %d: %s: %v", e.Row, e.Field, e.Err)
}

func (e *ContractError) Unwrap() error { return e.Err }

// Normalized is the transformer output, ready for bulk loading.
type Normalized struct {
	Headers []Header
	Groups  []Group
	Details []Detail
}

type headerKey struct {
	comboKey string
	branchID int
}

type groupKey struct {
	comboKey       string
	branchID       int
	groupName      string
	subGroupName   string
	groupOrderID   int
	forcedQuantity int
	maxQuantity    int
	isForcedGroup  bool
}

// Transform turns flat combo rows into headers, groups and details.
//
// Headers and groups are deduplicated on first sight; later rows with the
// same key never overwrite the first. Every row becomes a detail. Output
// order follows first appearance in the input.
//
// A row missing ComboKey or ProductKey aborts the batch with a
// *ContractError and no output.
func Transform(rows []SourceRow) (*Normalized, error) {
	out := &Normalized{
		Details: make([]Detail, 0, len(rows)),
	}
	headers := make(map[headerKey]struct{})
	groups := make(map[groupKey]struct{})

	for i, r := range rows {
		if r.ComboKey == "" {
			return nil, &ContractError{Row: i + 1, Field: "ComboKey", Err: ErrMissingKey}
		}
		if r.ProductKey == "" {
			return nil, &ContractError{Row: i + 1, Field: "ProductKey", Err: ErrMissingKey}
		}

		hk := headerKey{comboKey: r.ComboKey, branchID: r.BranchID}
		if _, seen := headers[hk]; !seen {
			headers[hk] = struct{}{}
			out.Headers = append(out.Headers, Header{
				ComboKey:  r.ComboKey,
				BranchID:  r.BranchID,
				ComboName: r.ComboName,
			})
		}

		gk := groupKey{
			comboKey:       r.ComboKey,
			branchID:       r.BranchID,
			groupName:      r.GroupName,
			subGroupName:   r.SubGroupName,
			groupOrderID:   r.GroupOrderID,
			forcedQuantity: r.ForcedQuantity,
			maxQuantity:    r.MaxQuantity,
			isForcedGroup:  r.IsForcedGroup,
		}
		if _, seen := groups[gk]; !seen {
			groups[gk] = struct{}{}
			out.Groups = append(out.Groups, Group{
				ComboKey:       r.ComboKey,
				BranchID:       r.BranchID,
				GroupName:      r.GroupName,
				SubGroupName:   r.SubGroupName,
				GroupOrderID:   r.GroupOrderID,
				ForcedQuantity: r.ForcedQuantity,
				MaxQuantity:    r.MaxQuantity,
				IsForcedGroup:  r.IsForcedGroup,
			})
		}

		out.Details = append(out.Details, Detail{
			ComboKey:        r.ComboKey,
			BranchID:        r.BranchID,
			GroupName:       r.GroupName,
			SubGroupName:    r.SubGroupName,
			ProductKey:      r.ProductKey,
			DefaultQuantity: r.DefaultQuantity,
			IsDefault:       r.IsDefault,
			ScreenOrderID:   r.ScreenOrderID,
			ExtraPrices:     r.ExtraPrices,
		})
	}

	return out, nil
}
