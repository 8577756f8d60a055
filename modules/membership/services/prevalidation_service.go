package services

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/identity"
	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/member"
	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/upload"
)

// PreValidationService normalizes and validates raw rows, detects
// intra-batch duplicates and classifies records against the registry with a
// single batched lookup.
type PreValidationService struct {
	repo member.Repository
	log  *logrus.Logger
}

func NewPreValidationService(repo member.Repository, log *logrus.Logger) *PreValidationService {
	return &PreValidationService{repo: repo, log: log}
}

// ValidateRecords processes records in row order. A registry lookup failure
// aborts the whole run; there is no partial result.
func (s *PreValidationService) ValidateRecords(ctx context.Context, records []upload.RawRecord) (*upload.ValidationResult, error) {
	result := &upload.ValidationResult{}
	result.Stats.TotalRecords = len(records)

	type occurrence struct {
		record upload.Record
		rows   []int
	}
	// row order is significant: the first occurrence of an identity wins
	groups := make(map[string]*occurrence)
	order := make([]string, 0, len(records))
	rowsByID := make(map[string][]upload.RawRecord)

	for _, raw := range records {
		outcome := identity.Validate(raw.IDNumber)
		if !outcome.Valid() {
			result.Stats.InvalidIDs++
			result.Invalid = append(result.Invalid, upload.InvalidRecord{
				Raw:      raw,
				IDNumber: raw.IDNumber,
				Reason:   outcome.Reason,
			})
			continue
		}
		result.Stats.ValidIDs++
		rowsByID[outcome.Digits] = append(rowsByID[outcome.Digits], raw)

		g, seen := groups[outcome.Digits]
		if !seen {
			rec := upload.Record{
				Raw:         raw,
				IDNumber:    outcome.Digits,
				Gender:      identity.GenderOf(outcome.Digits),
				Citizenship: identity.CitizenshipOf(outcome.Digits),
			}
			if dob, ok := identity.DateOfBirth(outcome.Digits); ok {
				rec.DateOfBirth = &dob
			}
			groups[outcome.Digits] = &occurrence{record: rec, rows: []int{raw.RowNumber}}
			order = append(order, outcome.Digits)
			continue
		}
		g.rows = append(g.rows, raw.RowNumber)
	}

	result.Stats.UniqueRecords = len(order)

	for _, id := range order {
		g := groups[id]
		if len(g.rows) < 2 {
			continue
		}
		// every occurrence is reported, not just the extras
		result.Stats.Duplicates += len(g.rows)
		for _, raw := range rowsByID[id] {
			result.Duplicates = append(result.Duplicates, upload.DuplicateRecord{
				Raw:                raw,
				IDNumber:           id,
				DuplicateCount:     len(g.rows),
				FirstOccurrenceRow: g.rows[0],
				AllRowNumbers:      append([]int(nil), g.rows...),
			})
		}
	}

	matches, err := s.lookupExisting(ctx, order)
	if err != nil {
		return nil, errors.Wrap(err, "registry lookup for bulk upload failed")
	}

	for _, id := range order {
		rec := groups[id].record
		match, exists := matches[id]
		if !exists {
			result.NewMembers = append(result.NewMembers, rec)
			continue
		}
		match.WardChanged = fieldChanged(rec.Raw.WardCode, match.CurrentWard)
		match.VDChanged = fieldChanged(rec.Raw.VotingDistrictCode, match.CurrentVotingDistrict)
		result.ExistingMembers = append(result.ExistingMembers, upload.ExistingRecord{Record: rec, Match: match})
	}

	result.Stats.NewMembers = len(result.NewMembers)
	result.Stats.ExistingMembers = len(result.ExistingMembers)

	if s.log != nil {
		s.log.WithFields(logrus.Fields{
			"total":    result.Stats.TotalRecords,
			"valid":    result.Stats.ValidIDs,
			"invalid":  result.Stats.InvalidIDs,
			"unique":   result.Stats.UniqueRecords,
			"existing": result.Stats.ExistingMembers,
			"new":      result.Stats.NewMembers,
		}).Info("pre-validation complete")
	}

	return result, nil
}

func (s *PreValidationService) lookupExisting(ctx context.Context, ids []string) (map[string]upload.ExistingMatch, error) {
	if len(ids) == 0 {
		return map[string]upload.ExistingMatch{}, nil
	}
	return s.repo.FindByIDNumbers(ctx, ids)
}

// fieldChanged reports whether a submitted value differs from the stored
// one. An absent submission never counts as a change.
func fieldChanged(submitted, current *string) bool {
	if submitted == nil || *submitted == "" {
		return false
	}
	if current == nil {
		return true
	}
	return *submitted != *current
}
