package identity

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidate_KnownGoodNumber(t *testing.T) {
	out := Validate("8001015009087")
	require.True(t, out.Valid())
	require.Equal(t, "8001015009087", out.Digits)
	require.Equal(t, Male, GenderOf(out.Digits))
	require.Equal(t, SACitizen, CitizenshipOf(out.Digits))

	dob, ok := DateOfBirth(out.Digits)
	require.True(t, ok)
	require.Equal(t, time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC), dob)
}

func TestValidate_ChecksumMismatch(t *testing.T) {
	out := Validate("8001015009088")
	require.False(t, out.Valid())
	require.Equal(t, ReasonChecksum, out.Reason)
}

func TestValidate_FlippingFinalDigitFlipsOutcome(t *testing.T) {
	valid := []string{"8001015009087", "9202204720083"}
	for _, id := range valid {
		require.True(t, Validate(id).Valid(), id)
		for d := byte('0'); d <= '9'; d++ {
			flipped := id[:12] + string(d)
			if flipped == id {
				continue
			}
			out := Validate(flipped)
			require.False(t, out.Valid(), flipped)
			require.Equal(t, ReasonChecksum, out.Reason, flipped)
		}
	}
}

func TestValidate_MissingAndMalformed(t *testing.T) {
	cases := map[string]Reason{
		"":              ReasonMissing,
		"   ":           ReasonMissing,
		"0000000000000": ReasonMissing,
		"0":             ReasonMissing,
		"abc123":        ReasonMissing, // non-numeric normalizes to empty
		"80010150090871234": ReasonLength,
	}
	for raw, reason := range cases {
		out := Validate(raw)
		require.False(t, out.Valid(), raw)
		require.Equal(t, reason, out.Reason, raw)
	}
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "8001015009087", Normalize(" 800101 500-9087 "))
	require.Equal(t, "0000000123456", Normalize("123456"))
	require.Equal(t, "", Normalize("12a3"))
	require.Equal(t, "", Normalize(""))
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"8001015009087", " 800101-5009087", "123", "abc", ""}
	for _, in := range inputs {
		once := Normalize(in)
		require.Equal(t, once, Normalize(once), in)
	}
}

func TestDateOfBirth_RoundTrip(t *testing.T) {
	ids := []string{"8001015009087", "9202204720083"}
	for _, id := range ids {
		dob, ok := DateOfBirth(id)
		require.True(t, ok, id)
		encoded := fmt.Sprintf("%02d%02d%02d", dob.Year()%100, int(dob.Month()), dob.Day())
		require.Equal(t, id[:6], encoded, id)
	}
}

func TestDateOfBirth_InvalidCalendarDates(t *testing.T) {
	// month 13 and Feb 30 both decode to no date rather than panicking
	for _, id := range []string{"8013015009087", "8002305009087", "8000005009087"} {
		_, ok := DateOfBirth(id)
		require.False(t, ok, id)
	}
}

func TestGenderBoundary(t *testing.T) {
	require.Equal(t, Female, GenderOf("8001014999087"))
	require.Equal(t, Male, GenderOf("8001015000087"))
}

func TestCitizenship(t *testing.T) {
	require.Equal(t, SACitizen, CitizenshipOf("8001015009087"))
	require.Equal(t, PermanentResident, CitizenshipOf("8001015009187"))
}

func TestAge(t *testing.T) {
	dob := time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, 45, Age(dob, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, 44, Age(dob, time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)))
}
