// Package report renders the per-run bulk upload workbook.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/upload"
)

const dateLayout = "2006-01-02 15:04:05"

// XlsxSink writes one workbook per run under the configured directory.
type XlsxSink struct {
	dir string
}

func NewXlsxSink(dir string) *XlsxSink {
	return &XlsxSink{dir: dir}
}

func (s *XlsxSink) Generate(ctx context.Context, result *upload.RunResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create report directory")
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	writeSummary(f, result)
	writeAllRecords(f, result)
	writeInvalid(f, result.Validation.Invalid)
	writeDuplicates(f, result.Validation.Duplicates)
	writeNotRegistered(f, result)
	writeOperations(f, "New Members", result, upload.OperationInsert)
	writeOperations(f, "Updated Members", result, upload.OperationUpdate)
	writeFailures(f, result.Persistence)

	// The default sheet excelize creates is replaced by Summary.
	f.DeleteSheet("Sheet1") //nolint:errcheck

	path := filepath.Join(s.dir, fmt.Sprintf("bulk_upload_report_%s.xlsx", result.RunID))
	if err := f.SaveAs(path); err != nil {
		return "", errors.Wrap(err, "save report workbook")
	}
	return path, nil
}

func writeSummary(f *excelize.File, result *upload.RunResult) {
	sheet := mustSheet(f, "Summary")
	rows := [][]interface{}{
		{"Run ID", result.RunID},
		{"File", result.FileName},
		{"Started", result.StartedAt.Format(dateLayout)},
		{"Finished", result.FinishedAt.Format(dateLayout)},
		{"Duration", result.FinishedAt.Sub(result.StartedAt).Round(time.Second).String()},
		{},
		{"Total records", result.Validation.Stats.TotalRecords},
		{"Valid IDs", result.Validation.Stats.ValidIDs},
		{"Invalid IDs", result.Validation.Stats.InvalidIDs},
		{"Duplicates", result.Validation.Stats.Duplicates},
		{"New members", result.Validation.Stats.NewMembers},
		{"Existing members", result.Validation.Stats.ExistingMembers},
		{},
		{"Inserted", result.Persistence.Stats.Inserts},
		{"Updated", result.Persistence.Stats.Updates},
		{"Skipped", result.Persistence.Stats.Skipped},
		{"Failed", result.Persistence.Stats.Failures},
	}
	for i, row := range rows {
		setRow(f, sheet, i+1, row)
	}
}

func writeAllRecords(f *excelize.File, result *upload.RunResult) {
	sheet := mustSheet(f, "All Records")
	setRow(f, sheet, 1, []interface{}{"Row", "ID Number", "Name", "Classification"})

	type entry struct {
		row            int
		id, name, kind string
	}
	entries := make([]entry, 0, result.Validation.Stats.TotalRecords)
	for _, rec := range result.Validation.NewMembers {
		entries = append(entries, entry{rec.Raw.RowNumber, rec.IDNumber, rec.Raw.FullName(), "new"})
	}
	for _, rec := range result.Validation.ExistingMembers {
		entries = append(entries, entry{rec.Raw.RowNumber, rec.IDNumber, rec.Raw.FullName(), "existing"})
	}
	for _, rec := range result.Validation.Invalid {
		entries = append(entries, entry{rec.Raw.RowNumber, rec.IDNumber, rec.Raw.FullName(), "invalid"})
	}
	for _, rec := range result.Validation.Duplicates {
		if rec.Raw.RowNumber == rec.FirstOccurrenceRow {
			continue // already listed under its classification
		}
		entries = append(entries, entry{rec.Raw.RowNumber, rec.IDNumber, rec.Raw.FullName(), "duplicate"})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].row < entries[j].row })

	for i, e := range entries {
		setRow(f, sheet, i+2, []interface{}{e.row, e.id, e.name, e.kind})
	}
}

func writeInvalid(f *excelize.File, invalid []upload.InvalidRecord) {
	sheet := mustSheet(f, "Invalid IDs")
	setRow(f, sheet, 1, []interface{}{"Row", "ID Number", "Name", "Reason"})
	for i, rec := range invalid {
		setRow(f, sheet, i+2, []interface{}{
			rec.Raw.RowNumber, rec.IDNumber, rec.Raw.FullName(), string(rec.Reason),
		})
	}
}

func writeDuplicates(f *excelize.File, duplicates []upload.DuplicateRecord) {
	sheet := mustSheet(f, "Duplicates")
	setRow(f, sheet, 1, []interface{}{"Row", "ID Number", "Name", "Occurrences", "First Row"})
	for i, rec := range duplicates {
		setRow(f, sheet, i+2, []interface{}{
			rec.Raw.RowNumber, rec.IDNumber, rec.Raw.FullName(),
			rec.DuplicateCount, rec.FirstOccurrenceRow,
		})
	}
}

func writeNotRegistered(f *excelize.File, result *upload.RunResult) {
	sheet := mustSheet(f, "Not Registered")
	setRow(f, sheet, 1, []interface{}{"ID Number", "Voter Status", "Detail"})
	row := 2
	for _, id := range verificationOrder(result) {
		v := result.Verification[id]
		if v.IsRegistered {
			continue
		}
		setRow(f, sheet, row, []interface{}{v.IDNumber, v.VoterStatus, v.Error})
		row++
	}
}

func writeOperations(f *excelize.File, name string, result *upload.RunResult, kind upload.OperationKind) {
	sheet := mustSheet(f, name)
	setRow(f, sheet, 1, []interface{}{"ID Number", "Member ID", "Voter Status", "Voting District"})
	row := 2
	for _, op := range result.Persistence.Successful {
		if op.Kind != kind {
			continue
		}
		v := result.Verification[op.IDNumber]
		setRow(f, sheet, row, []interface{}{
			op.IDNumber, op.MemberID, v.VoterStatus, v.VotingDistrictCode,
		})
		row++
	}
}

func writeFailures(f *excelize.File, batch upload.BatchResult) {
	sheet := mustSheet(f, "Failures")
	setRow(f, sheet, 1, []interface{}{"ID Number", "Operation", "Error"})
	row := 2
	for _, op := range batch.Failed {
		setRow(f, sheet, row, []interface{}{op.IDNumber, string(op.Kind), op.Error})
		row++
	}
	for _, skip := range batch.Skipped {
		setRow(f, sheet, row, []interface{}{skip.IDNumber, "skipped", skip.Reason})
		row++
	}
}

// verificationOrder keeps the workbook deterministic: results come out in
// the order the records were classified, not map order.
func verificationOrder(result *upload.RunResult) []string {
	seen := make(map[string]bool, len(result.Verification))
	order := make([]string, 0, len(result.Verification))
	add := func(id string) {
		if _, ok := result.Verification[id]; ok && !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	for _, rec := range result.Validation.NewMembers {
		add(rec.IDNumber)
	}
	for _, rec := range result.Validation.ExistingMembers {
		add(rec.IDNumber)
	}
	return order
}

func mustSheet(f *excelize.File, name string) string {
	_, _ = f.NewSheet(name)
	return name
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) {
	for col, v := range values {
		axis, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			continue
		}
		_ = f.SetCellValue(sheet, axis, v)
	}
}
