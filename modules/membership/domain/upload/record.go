// Package upload holds the data model of one bulk-upload pipeline run: raw
// spreadsheet rows, validation outcomes, verification results and the
// aggregated run result. Everything lives only for the run's lifetime.
package upload

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord is one spreadsheet row with columns already resolved to named
// fields. RowNumber is 1-based, excludes the header row, and is unique
// within a run.
type RawRecord struct {
	RowNumber int

	IDNumber  string
	FirstName *string
	Surname   *string

	Email     *string
	Cellphone *string
	AltPhone  *string

	AddressLine1 *string
	AddressLine2 *string
	City         *string
	PostalCode   *string

	Language      *string
	Occupation    *string
	Qualification *string

	ProvinceCode       *string
	ProvinceName       *string
	MunicipalityCode   *string
	MunicipalityName   *string
	WardCode           *string
	VotingDistrictCode *string
	VotingStation      *string

	MembershipType  *string
	DateJoined      *time.Time
	LastPaymentDate *time.Time
	ExpiryDate      *time.Time
	// ExpirySystemCalculated marks an expiry derived from the last payment
	// date rather than supplied in the sheet.
	ExpirySystemCalculated bool

	SubscriptionType   *string
	SubscriptionAmount *decimal.Decimal
	PaymentMethod      *string
	PaymentReference   *string
}

func (r *RawRecord) FullName() string {
	parts := make([]string, 0, 2)
	if r.FirstName != nil && *r.FirstName != "" {
		parts = append(parts, *r.FirstName)
	}
	if r.Surname != nil && *r.Surname != "" {
		parts = append(parts, *r.Surname)
	}
	return strings.Join(parts, " ")
}

// ApplyExpiryDefault computes a missing expiry as last payment + 24 months
// and flags it as system-calculated.
func (r *RawRecord) ApplyExpiryDefault() {
	if r.ExpiryDate != nil || r.LastPaymentDate == nil {
		return
	}
	expiry := r.LastPaymentDate.AddDate(0, 24, 0)
	r.ExpiryDate = &expiry
	r.ExpirySystemCalculated = true
}

// ApplySubscriptionDefault fills in the configured amount when a row names a
// subscription tier without pricing it. A row without a tier is left alone.
func (r *RawRecord) ApplySubscriptionDefault(amount *decimal.Decimal) {
	if amount == nil || r.SubscriptionType == nil || r.SubscriptionAmount != nil {
		return
	}
	v := *amount
	r.SubscriptionAmount = &v
}

// Field names a recognized spreadsheet column after alias resolution.
type Field string

const (
	FieldIDNumber           Field = "id_number"
	FieldFirstName          Field = "first_name"
	FieldSurname            Field = "surname"
	FieldEmail              Field = "email"
	FieldCellphone          Field = "cellphone"
	FieldAltPhone           Field = "alt_phone"
	FieldAddressLine1       Field = "address_line1"
	FieldAddressLine2       Field = "address_line2"
	FieldCity               Field = "city"
	FieldPostalCode         Field = "postal_code"
	FieldLanguage           Field = "language"
	FieldOccupation         Field = "occupation"
	FieldQualification      Field = "qualification"
	FieldProvinceCode       Field = "province_code"
	FieldProvinceName       Field = "province_name"
	FieldMunicipalityCode   Field = "municipality_code"
	FieldMunicipalityName   Field = "municipality_name"
	FieldWardCode           Field = "ward_code"
	FieldVotingDistrictCode Field = "voting_district_code"
	FieldVotingStation      Field = "voting_station"
	FieldMembershipType     Field = "membership_type"
	FieldDateJoined         Field = "date_joined"
	FieldLastPaymentDate    Field = "last_payment_date"
	FieldExpiryDate         Field = "expiry_date"
	FieldSubscriptionType   Field = "subscription_type"
	FieldSubscriptionAmount Field = "subscription_amount"
	FieldPaymentMethod      Field = "payment_method"
	FieldPaymentReference   Field = "payment_reference"
)

// headerAliases maps canonicalized human column names to fields. Alias
// resolution happens exactly once, at ingestion.
var headerAliases = map[string]Field{
	"idnumber":       FieldIDNumber,
	"identitynumber": FieldIDNumber,
	"idno":           FieldIDNumber,
	"id":             FieldIDNumber,

	"name":      FieldFirstName,
	"firstname": FieldFirstName,
	"names":     FieldFirstName,

	"surname":  FieldSurname,
	"lastname": FieldSurname,

	"email":        FieldEmail,
	"emailaddress": FieldEmail,

	"cellphone":   FieldCellphone,
	"cellno":      FieldCellphone,
	"mobile":      FieldCellphone,
	"phone":       FieldCellphone,
	"contactno":   FieldCellphone,
	"altphone":    FieldAltPhone,
	"alternative": FieldAltPhone,

	"address":      FieldAddressLine1,
	"addressline1": FieldAddressLine1,
	"addressline2": FieldAddressLine2,
	"city":         FieldCity,
	"town":         FieldCity,
	"postalcode":   FieldPostalCode,

	"language":      FieldLanguage,
	"occupation":    FieldOccupation,
	"qualification": FieldQualification,

	"provincecode": FieldProvinceCode,
	"province":     FieldProvinceName,
	"provincename": FieldProvinceName,

	"municipalitycode": FieldMunicipalityCode,
	"municipality":     FieldMunicipalityName,
	"municipalityname": FieldMunicipalityName,

	"ward":     FieldWardCode,
	"wardcode": FieldWardCode,
	"wardno":   FieldWardCode,

	"votingdistrict":     FieldVotingDistrictCode,
	"votingdistrictcode": FieldVotingDistrictCode,
	"vdcode":             FieldVotingDistrictCode,
	"vd":                 FieldVotingDistrictCode,

	"votingstation":     FieldVotingStation,
	"votingstationname": FieldVotingStation,

	"membershiptype": FieldMembershipType,
	"datejoined":     FieldDateJoined,
	"joindate":       FieldDateJoined,

	"lastpaymentdate": FieldLastPaymentDate,
	"lastpayment":     FieldLastPaymentDate,
	"datepaid":        FieldLastPaymentDate,

	"expirydate": FieldExpiryDate,
	"expiry":     FieldExpiryDate,

	"subscriptiontype":   FieldSubscriptionType,
	"subscription":       FieldSubscriptionType,
	"subscriptionamount": FieldSubscriptionAmount,
	"amount":             FieldSubscriptionAmount,

	"paymentmethod":    FieldPaymentMethod,
	"paymentreference": FieldPaymentReference,
	"paymentref":       FieldPaymentReference,
}

// ResolveHeader maps a human column name to its field, ignoring case,
// spaces, underscores and punctuation.
func ResolveHeader(name string) (Field, bool) {
	canonical := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return -1
		}
	}, name)
	f, ok := headerAliases[canonical]
	return f, ok
}
