// Package excel reads bulk-upload spreadsheets into raw records. Header
// aliases are resolved exactly once here; downstream stages only ever see
// named fields.
package excel

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/upload"
)

type Reader struct {
	defaultSubscription *decimal.Decimal
}

func NewReader() *Reader {
	return &Reader{}
}

// WithDefaultSubscription prices rows that name a subscription tier without
// an amount at the given default.
func (r *Reader) WithDefaultSubscription(amount decimal.Decimal) *Reader {
	r.defaultSubscription = &amount
	return r
}

// Read parses the first sheet of an .xlsx file. The first row is the
// header; data rows are numbered from 1.
func (r *Reader) Read(path string) ([]upload.RawRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "open upload file")
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("upload file has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrap(err, "read upload sheet")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	columns := resolveColumns(rows[0])

	records := make([]upload.RawRecord, 0, len(rows)-1)
	rowNumber := 0
	for _, row := range rows[1:] {
		if emptyRow(row) {
			continue
		}
		rowNumber++
		rec := upload.RawRecord{RowNumber: rowNumber}
		for col, field := range columns {
			if col >= len(row) {
				continue
			}
			setField(&rec, field, strings.TrimSpace(row[col]))
		}
		rec.ApplyExpiryDefault()
		rec.ApplySubscriptionDefault(r.defaultSubscription)
		records = append(records, rec)
	}
	return records, nil
}

func resolveColumns(header []string) map[int]upload.Field {
	columns := make(map[int]upload.Field, len(header))
	for i, name := range header {
		if field, ok := upload.ResolveHeader(name); ok {
			if _, taken := fieldTaken(columns, field); !taken {
				columns[i] = field
			}
		}
	}
	return columns
}

func fieldTaken(columns map[int]upload.Field, field upload.Field) (int, bool) {
	for col, f := range columns {
		if f == field {
			return col, true
		}
	}
	return 0, false
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func setField(rec *upload.RawRecord, field upload.Field, value string) {
	if value == "" {
		return
	}
	switch field {
	case upload.FieldIDNumber:
		rec.IDNumber = numericCell(value)
	case upload.FieldFirstName:
		rec.FirstName = &value
	case upload.FieldSurname:
		rec.Surname = &value
	case upload.FieldEmail:
		rec.Email = &value
	case upload.FieldCellphone:
		rec.Cellphone = &value
	case upload.FieldAltPhone:
		rec.AltPhone = &value
	case upload.FieldAddressLine1:
		rec.AddressLine1 = &value
	case upload.FieldAddressLine2:
		rec.AddressLine2 = &value
	case upload.FieldCity:
		rec.City = &value
	case upload.FieldPostalCode:
		rec.PostalCode = &value
	case upload.FieldLanguage:
		rec.Language = &value
	case upload.FieldOccupation:
		rec.Occupation = &value
	case upload.FieldQualification:
		rec.Qualification = &value
	case upload.FieldProvinceCode:
		code := numericCell(value)
		rec.ProvinceCode = &code
	case upload.FieldProvinceName:
		rec.ProvinceName = &value
	case upload.FieldMunicipalityCode:
		code := numericCell(value)
		rec.MunicipalityCode = &code
	case upload.FieldMunicipalityName:
		rec.MunicipalityName = &value
	case upload.FieldWardCode:
		code := numericCell(value)
		rec.WardCode = &code
	case upload.FieldVotingDistrictCode:
		code := numericCell(value)
		rec.VotingDistrictCode = &code
	case upload.FieldVotingStation:
		rec.VotingStation = &value
	case upload.FieldMembershipType:
		rec.MembershipType = &value
	case upload.FieldDateJoined:
		rec.DateJoined = parseDate(value)
	case upload.FieldLastPaymentDate:
		rec.LastPaymentDate = parseDate(value)
	case upload.FieldExpiryDate:
		rec.ExpiryDate = parseDate(value)
	case upload.FieldSubscriptionType:
		rec.SubscriptionType = &value
	case upload.FieldSubscriptionAmount:
		if amount, err := decimal.NewFromString(value); err == nil {
			rec.SubscriptionAmount = &amount
		}
	case upload.FieldPaymentMethod:
		rec.PaymentMethod = &value
	case upload.FieldPaymentReference:
		rec.PaymentReference = &value
	}
}

// numericCell renders numeric cells the way a human typed them: scientific
// notation and trailing decimals from spreadsheet number formatting are
// collapsed back to a plain digit string.
func numericCell(value string) string {
	if !strings.ContainsAny(value, ".eE") {
		return value
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"2 January 2006",
	"2 Jan 2006",
}

// parseDate accepts calendar strings or a spreadsheet day serial. Serials
// go through excelize so the 1900 leap-year quirk is handled consistently.
func parseDate(value string) *time.Time {
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil
		}
		t = t.Truncate(24 * time.Hour)
		return &t
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
