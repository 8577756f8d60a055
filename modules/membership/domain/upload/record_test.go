package upload

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestResolveHeader(t *testing.T) {
	cases := map[string]Field{
		"ID Number":        FieldIDNumber,
		"identity_number":  FieldIDNumber,
		"Firstname":        FieldFirstName,
		"Name":             FieldFirstName,
		"SURNAME":          FieldSurname,
		"Last Name":        FieldSurname,
		"Voting District":  FieldVotingDistrictCode,
		"VD Code":          FieldVotingDistrictCode,
		"Ward No":          FieldWardCode,
		"Last Payment":     FieldLastPaymentDate,
		"Expiry Date":      FieldExpiryDate,
		"Cell No":          FieldCellphone,
		"Municipality":     FieldMunicipalityName,
		"Province Code":    FieldProvinceCode,
	}
	for header, want := range cases {
		got, ok := ResolveHeader(header)
		require.True(t, ok, header)
		require.Equal(t, want, got, header)
	}

	_, ok := ResolveHeader("Unrelated Column")
	require.False(t, ok)
}

func TestApplyExpiryDefault(t *testing.T) {
	paid := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

	r := RawRecord{LastPaymentDate: &paid}
	r.ApplyExpiryDefault()
	require.NotNil(t, r.ExpiryDate)
	require.Equal(t, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC), *r.ExpiryDate)
	require.True(t, r.ExpirySystemCalculated)

	// a supplied expiry is never overwritten
	supplied := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	r = RawRecord{LastPaymentDate: &paid, ExpiryDate: &supplied}
	r.ApplyExpiryDefault()
	require.Equal(t, supplied, *r.ExpiryDate)
	require.False(t, r.ExpirySystemCalculated)

	// nothing to derive from
	r = RawRecord{}
	r.ApplyExpiryDefault()
	require.Nil(t, r.ExpiryDate)
}

func TestApplySubscriptionDefault(t *testing.T) {
	tier := "Standard"
	def := decimal.NewFromFloat(10.00)

	r := RawRecord{SubscriptionType: &tier}
	r.ApplySubscriptionDefault(&def)
	require.NotNil(t, r.SubscriptionAmount)
	require.True(t, r.SubscriptionAmount.Equal(def))

	// a supplied amount is never overwritten
	paid := decimal.NewFromFloat(25.50)
	r = RawRecord{SubscriptionType: &tier, SubscriptionAmount: &paid}
	r.ApplySubscriptionDefault(&def)
	require.True(t, r.SubscriptionAmount.Equal(paid))

	// no tier means no default pricing
	r = RawRecord{}
	r.ApplySubscriptionDefault(&def)
	require.Nil(t, r.SubscriptionAmount)

	// no configured default
	r = RawRecord{SubscriptionType: &tier}
	r.ApplySubscriptionDefault(nil)
	require.Nil(t, r.SubscriptionAmount)
}

func TestFullName(t *testing.T) {
	first, last := "Thabo", "Mokoena"
	r := RawRecord{FirstName: &first, Surname: &last}
	require.Equal(t, "Thabo Mokoena", r.FullName())

	r = RawRecord{Surname: &last}
	require.Equal(t, "Mokoena", r.FullName())

	r = RawRecord{}
	require.Equal(t, "", r.FullName())
}
