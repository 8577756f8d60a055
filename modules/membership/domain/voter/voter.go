package voter

import "context"

// Registration is the external authority's answer for one identity number.
// Optional fields are absent when the authority has no value on file.
type Registration struct {
	IsRegistered       bool    `json:"is_registered"`
	VoterStatus        string  `json:"voter_status"`
	ProvinceCode       *string `json:"province_code,omitempty"`
	MunicipalityCode   *string `json:"municipality_code,omitempty"`
	WardCode           *string `json:"ward_code,omitempty"`
	VotingDistrictCode *string `json:"voting_district_code,omitempty"`
	VotingStationName  *string `json:"voting_station_name,omitempty"`
}

// Verifier is the contract the pipeline expects from the voter-registration
// authority. A nil Registration with a nil error means "not found".
type Verifier interface {
	CheckRegistration(ctx context.Context, idNumber string) (*Registration, error)
}
