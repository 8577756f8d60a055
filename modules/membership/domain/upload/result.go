package upload

import (
	"time"

	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/identity"
)

// Record is a RawRecord whose identity number validated, together with the
// attributes derived from it.
type Record struct {
	Raw         RawRecord
	IDNumber    string // normalized 13 digits
	DateOfBirth *time.Time
	Gender      identity.Gender
	Citizenship identity.Citizenship
}

// InvalidRecord is a row whose identity number failed validation.
type InvalidRecord struct {
	Raw      RawRecord
	IDNumber string // as entered
	Reason   identity.Reason
}

// DuplicateRecord reports one occurrence of an identity shared by several
// rows. Every occurrence is reported, not only the extras.
type DuplicateRecord struct {
	Raw                RawRecord
	IDNumber           string
	DuplicateCount     int
	FirstOccurrenceRow int
	AllRowNumbers      []int
}

// ExistingMatch describes the registry's current state for an identity that
// already exists.
type ExistingMatch struct {
	MemberID              int64
	CurrentName           string
	CurrentWard           *string
	CurrentVotingDistrict *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
	WardChanged           bool
	VDChanged             bool
}

// ExistingRecord couples a validated record with its registry match.
type ExistingRecord struct {
	Record
	Match ExistingMatch
}

type ValidationStats struct {
	TotalRecords  int `json:"total_records"`
	ValidIDs      int `json:"valid_ids"`
	InvalidIDs    int `json:"invalid_ids"`
	UniqueRecords int `json:"unique_records"`
	// Duplicates counts ALL occurrences across duplicate groups, not just
	// the extras. This matches the registry's historical accounting.
	Duplicates      int `json:"duplicates"`
	ExistingMembers int `json:"existing_members"`
	NewMembers      int `json:"new_members"`
}

// ValidationResult is the pre-validation stage output.
type ValidationResult struct {
	Stats           ValidationStats
	Invalid         []InvalidRecord
	Duplicates      []DuplicateRecord
	NewMembers      []Record
	ExistingMembers []ExistingRecord
}

// Sentinel voting-district codes and voter statuses.
const (
	SentinelRegisteredNoDistrict = "22222222"
	SentinelNotRegistered        = "99999999"

	StatusRegistered        = "Registered"
	StatusNotRegistered     = "Not Registered"
	StatusVerificationError = "Verification Error"
)

// VerificationResult is the outcome of the IEC check for one identity.
// VotingDistrictCode is always set: a real code or one of the sentinels.
type VerificationResult struct {
	IDNumber           string
	IsRegistered       bool
	VoterStatus        string
	WardCode           *string
	VotingDistrictCode string
	VerificationDate   time.Time
	Error              string
}

type OperationKind string

const (
	OperationInsert OperationKind = "insert"
	OperationUpdate OperationKind = "update"
)

type OperationStats struct {
	TotalRecords int `json:"total_records"`
	Inserts      int `json:"inserts"`
	Updates      int `json:"updates"`
	Skipped      int `json:"skipped"`
	Failures     int `json:"failures"`
}

type Operation struct {
	IDNumber string
	MemberID int64
	Kind     OperationKind
}

type FailedOperation struct {
	IDNumber string
	Kind     OperationKind
	Error    string
}

type SkippedRecord struct {
	IDNumber string
	Reason   string
}

// BatchResult is the persistence engine's aggregate for one run.
type BatchResult struct {
	Stats      OperationStats
	Successful []Operation
	Failed     []FailedOperation
	Skipped    []SkippedRecord
}

// RunResult aggregates one complete pipeline run.
type RunResult struct {
	RunID      string
	FileName   string
	StartedAt  time.Time
	FinishedAt time.Time

	Validation   ValidationResult
	Verification map[string]VerificationResult
	Persistence  BatchResult

	ReportPath string
}
