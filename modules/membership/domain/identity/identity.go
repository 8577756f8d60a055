// Package identity validates South African national identity numbers and
// derives the attributes they encode. Everything here is pure and
// deterministic.
package identity

import (
	"strings"
	"time"
)

type Gender string

const (
	Male   Gender = "Male"
	Female Gender = "Female"
)

type Citizenship string

const (
	SACitizen         Citizenship = "SA Citizen"
	PermanentResident Citizenship = "Permanent Resident"
)

// Reason classifies why an identity number failed validation.
type Reason string

const (
	ReasonMissing  Reason = "missing"
	ReasonChecksum Reason = "checksum"
	ReasonLength   Reason = "length"
)

// Outcome is the result of validating one identity number. A zero Reason
// means the number is valid.
type Outcome struct {
	Digits string
	Reason Reason
}

func (o Outcome) Valid() bool {
	return o.Reason == ""
}

// Normalize strips spaces and dashes and left-pads short numeric strings to
// 13 digits. Non-numeric or empty input yields the empty string.
func Normalize(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if cleaned == "" {
		return ""
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return ""
		}
	}
	if len(cleaned) < 13 {
		cleaned = strings.Repeat("0", 13-len(cleaned)) + cleaned
	}
	return cleaned
}

// Validate normalizes raw and checks the mod-10 checksum.
func Validate(raw string) Outcome {
	digits := Normalize(raw)
	if digits == "" || allZero(digits) {
		return Outcome{Digits: digits, Reason: ReasonMissing}
	}
	if len(digits) != 13 {
		return Outcome{Digits: digits, Reason: ReasonLength}
	}
	if !luhnValid(digits) {
		return Outcome{Digits: digits, Reason: ReasonChecksum}
	}
	return Outcome{Digits: digits}
}

func allZero(s string) bool {
	for _, r := range s {
		if r != '0' {
			return false
		}
	}
	return true
}

// luhnValid doubles every second digit from the right, sums the digits of
// the products, and checks the total against mod 10.
func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// DateOfBirth decodes the leading YYMMDD. Two-digit years at or below the
// current year's final two digits resolve to the 2000s, the rest to the
// 1900s. Invalid calendar dates report ok=false, never panic.
func DateOfBirth(digits string) (time.Time, bool) {
	if len(digits) != 13 {
		return time.Time{}, false
	}
	yy := int(digits[0]-'0')*10 + int(digits[1]-'0')
	mm := int(digits[2]-'0')*10 + int(digits[3]-'0')
	dd := int(digits[4]-'0')*10 + int(digits[5]-'0')

	if mm < 1 || mm > 12 || dd < 1 || dd > 31 {
		return time.Time{}, false
	}

	year := 1900 + yy
	if yy <= time.Now().Year()%100 {
		year = 2000 + yy
	}

	d := time.Date(year, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 30 -> Mar 2); reject those.
	if int(d.Month()) != mm || d.Day() != dd {
		return time.Time{}, false
	}
	return d, true
}

// GenderOf reads the four-digit sequence at positions 7-10.
func GenderOf(digits string) Gender {
	if len(digits) != 13 {
		return ""
	}
	seq := 0
	for i := 6; i < 10; i++ {
		seq = seq*10 + int(digits[i]-'0')
	}
	if seq < 5000 {
		return Female
	}
	return Male
}

// CitizenshipOf reads digit 11: 0 means SA citizen, anything else a
// permanent resident.
func CitizenshipOf(digits string) Citizenship {
	if len(digits) != 13 {
		return ""
	}
	if digits[10] == '0' {
		return SACitizen
	}
	return PermanentResident
}

// Age in whole years at the given moment.
func Age(dob, at time.Time) int {
	years := at.Year() - dob.Year()
	anniversary := dob.AddDate(years, 0, 0)
	if anniversary.After(at) {
		years--
	}
	return years
}
