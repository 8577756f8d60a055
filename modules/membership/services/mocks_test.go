package services

import (
	"context"
	"sync"

	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/upload"
	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/voter"
	"github.com/ntsowef/eff-membership-system-sub020/pkg/ratelimit"
)

// Valid identity numbers used across the service tests.
const (
	idThabo   = "8001015009087"
	idLerato  = "9202204720083"
	idNaledi  = "7506152430095"
	idSipho   = "9001015009086"
	idZanele  = "8506154800088"
	idMandla  = "6307205120085"
	idBadLuhn = "8001015009088"
)

type mockMemberRepository struct {
	mu sync.Mutex

	existing  map[string]upload.ExistingMatch
	findErr   error
	insertErr map[string]error
	updateErr map[string]error

	nextID  int64
	lookups [][]string
	inserts []string
	updates []int64
}

func (m *mockMemberRepository) FindByIDNumbers(_ context.Context, ids []string) (map[string]upload.ExistingMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, append([]string(nil), ids...))
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := make(map[string]upload.ExistingMatch, len(ids))
	for _, id := range ids {
		if match, ok := m.existing[id]; ok {
			out[id] = match
		}
	}
	return out, nil
}

func (m *mockMemberRepository) Insert(_ context.Context, rec upload.Record, _ upload.VerificationResult) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.insertErr[rec.IDNumber]; err != nil {
		return 0, err
	}
	m.nextID++
	m.inserts = append(m.inserts, rec.IDNumber)
	return m.nextID, nil
}

func (m *mockMemberRepository) Update(_ context.Context, memberID int64, rec upload.Record, _ upload.VerificationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.updateErr[rec.IDNumber]; err != nil {
		return err
	}
	m.updates = append(m.updates, memberID)
	return nil
}

type stubVerifier struct {
	mu    sync.Mutex
	calls []string

	regs map[string]*voter.Registration
	errs map[string]error
}

func (s *stubVerifier) CheckRegistration(_ context.Context, idNumber string) (*voter.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, idNumber)
	if err := s.errs[idNumber]; err != nil {
		return nil, err
	}
	return s.regs[idNumber], nil
}

func (s *stubVerifier) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// cappedLimiter allows a fixed number of increments, then trips.
type cappedLimiter struct {
	mu    sync.Mutex
	limit int64
	count int64
	err   error
}

func (l *cappedLimiter) IncrementAndCheck(context.Context, string) (ratelimit.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return ratelimit.Result{}, l.err
	}
	l.count++
	return ratelimit.Result{
		Allowed:   l.count <= l.limit,
		Remaining: max64(l.limit-l.count, 0),
	}, nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func strptr(s string) *string {
	return &s
}

func rawRecord(row int, idNumber string) upload.RawRecord {
	return upload.RawRecord{RowNumber: row, IDNumber: idNumber}
}

func registered(ward, district string) *voter.Registration {
	return &voter.Registration{
		IsRegistered:       true,
		VoterStatus:        upload.StatusRegistered,
		WardCode:           strptr(ward),
		VotingDistrictCode: strptr(district),
	}
}
