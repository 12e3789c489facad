// Package reconcile merges an operator-edited override table back onto the
// aggregated case table and turns the merged proposals into per-case tag
// update maps.
package reconcile

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"

	"dicom-redactor/internal/cases"
	"dicom-redactor/internal/tabular"
)

// Validation failure classes. Each merge failure wraps exactly one of these
// and carries a single human-readable message; the case table is left
// unmodified so the operator can fix the upload and retry.
var (
	ErrBlankProposed     = errors.New("proposed value column has blank entries")
	ErrNoProposedMatch   = errors.New("uploaded table lacks the proposed match column")
	ErrNoMatchColumn     = errors.New("uploaded table lacks the match column")
	ErrUnmatchedIdentity = errors.New("cases missing from uploaded table")
)

// Merge validates the uploaded table against the case table and, on success,
// copies every updatable field's proposed value onto the matching case rows.
// Case rows without a corresponding uploaded row keep their prior proposals,
// so re-uploading the same table is idempotent.
func Merge(ct *cases.Table, upload *tabular.Table) error {
	if err := validate(ct, upload); err != nil {
		return err
	}

	matchCol := ct.MatchField
	for i := range upload.Rows {
		matchValue, _ := upload.Cell(i, matchCol)
		for _, c := range ct.Cases {
			if c.Fields[matchCol] != matchValue {
				continue
			}
			for _, field := range ct.UpdatableFields {
				if v, ok := upload.Cell(i, tabular.ProposedColumn(field)); ok {
					c.Proposed[field] = cleanValue(v)
				}
			}
		}
	}

	return nil
}

// validate applies the upload checks in order, stopping at the first failure.
func validate(ct *cases.Table, upload *tabular.Table) error {
	// 1. Every proposed column the operator uploaded must be fully
	// populated: a blank cell is an unfinished edit, not an instruction.
	var blank []string
	for _, field := range ct.UpdatableFields {
		col := tabular.ProposedColumn(field)
		if !upload.HasColumn(col) {
			continue
		}
		for i := range upload.Rows {
			if v, _ := upload.Cell(i, col); cleanValue(v) == "" {
				blank = appendUnique(blank, col)
				break
			}
		}
	}
	if len(blank) > 0 {
		return fmt.Errorf("%w: %s", ErrBlankProposed, strings.Join(blank, ", "))
	}

	// 2. The proposed counterpart of the match column must be present.
	proposedMatch := tabular.ProposedColumn(ct.MatchField)
	if !upload.HasColumn(proposedMatch) {
		return fmt.Errorf("%w: %s", ErrNoProposedMatch, proposedMatch)
	}

	// 3. The raw match column must be present.
	if !upload.HasColumn(ct.MatchField) {
		return fmt.Errorf("%w: %s", ErrNoMatchColumn, ct.MatchField)
	}

	// 4. Every case must be findable in the upload, either by its raw match
	// value or by the proposed counterpart.
	known := make(map[string]bool)
	for i := range upload.Rows {
		if v, ok := upload.Cell(i, ct.MatchField); ok {
			known[v] = true
		}
		if v, ok := upload.Cell(i, proposedMatch); ok {
			known[v] = true
		}
	}

	var unmatched []string
	for _, c := range ct.Cases {
		if !known[c.Fields[ct.MatchField]] {
			unmatched = appendUnique(unmatched, c.Fields[ct.MatchField])
		}
	}
	if len(unmatched) > 0 {
		sort.Strings(unmatched)
		return fmt.Errorf("%w: %s", ErrUnmatchedIdentity, strings.Join(unmatched, ", "))
	}

	return nil
}

// Consolidate converts a case's proposed field values into a map from the
// binary tag identifier to the literal override value. Fields with an empty
// or not-a-value proposal are skipped, so an unfilled field means "do not
// touch".
func Consolidate(c *cases.Case, updatableFields []string) (map[tag.Tag]string, error) {
	updates := make(map[tag.Tag]string)
	for _, field := range updatableFields {
		value := cleanValue(c.Proposed[field])
		if value == "" {
			continue
		}
		info, err := tag.FindByName(field)
		if err != nil {
			return nil, fmt.Errorf("unknown field %q: %w", field, err)
		}
		updates[info.Tag] = value
	}
	return updates, nil
}

// cleanValue normalizes spreadsheet artifacts: surrounding whitespace and
// textual NaN markers both read as "no value".
func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "nan") {
		return ""
	}
	return v
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
