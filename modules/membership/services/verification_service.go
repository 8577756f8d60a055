package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/upload"
	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/voter"
	"github.com/ntsowef/eff-membership-system-sub020/pkg/metrics"
	"github.com/ntsowef/eff-membership-system-sub020/pkg/ratelimit"
)

// DefaultWaveSize bounds how many IEC calls are in flight at once.
const DefaultWaveSize = 5

// rateLimiterKey is shared by every pipeline run so the ceiling applies
// process-wide, not per upload.
const rateLimiterKey = "iec_api"

// ProgressCallback reports cumulative records processed after each wave.
type ProgressCallback func(processed, total int)

// VerificationService checks voter-registration status against the IEC in
// rate-limited waves of concurrent calls.
type VerificationService struct {
	verifier voter.Verifier
	limiter  ratelimit.Limiter
	waveSize int
	log      *logrus.Logger
	now      func() time.Time
}

func NewVerificationService(verifier voter.Verifier, limiter ratelimit.Limiter, waveSize int, log *logrus.Logger) *VerificationService {
	if waveSize <= 0 {
		waveSize = DefaultWaveSize
	}
	return &VerificationService{
		verifier: verifier,
		limiter:  limiter,
		waveSize: waveSize,
		log:      log,
		now:      time.Now,
	}
}

// VerifyBatch verifies every record and returns a result per identity. One
// failing call never aborts its wave or subsequent waves; a wave fully
// resolves before the next one starts.
func (s *VerificationService) VerifyBatch(ctx context.Context, records []upload.Record, progress ProgressCallback) (map[string]upload.VerificationResult, error) {
	results := make(map[string]upload.VerificationResult, len(records))
	if len(records) == 0 {
		return results, nil
	}

	var mu sync.Mutex
	total := len(records)
	processed := 0

	for start := 0; start < total; start += s.waveSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + s.waveSize
		if end > total {
			end = total
		}
		wave := records[start:end]

		var wg sync.WaitGroup
		wg.Add(len(wave))
		for _, rec := range wave {
			go func(rec upload.Record) {
				defer wg.Done()
				res := s.verifyOne(ctx, rec.IDNumber)
				mu.Lock()
				results[rec.IDNumber] = res
				mu.Unlock()
			}(rec)
		}
		wg.Wait()

		processed += len(wave)
		if progress != nil {
			progress(processed, total)
		}
	}

	return results, nil
}

func (s *VerificationService) verifyOne(ctx context.Context, idNumber string) upload.VerificationResult {
	res := upload.VerificationResult{
		IDNumber:         idNumber,
		VerificationDate: s.now(),
	}

	limit, err := s.limiter.IncrementAndCheck(ctx, rateLimiterKey)
	if err == nil && !limit.Allowed {
		// the external call is skipped entirely once the limiter trips
		metrics.VerificationRateLimited.Inc()
		res.VoterStatus = upload.StatusVerificationError
		res.VotingDistrictCode = upload.SentinelNotRegistered
		res.Error = "IEC API rate limit exceeded; verification skipped"
		if s.log != nil {
			s.log.WithField("id_number", idNumber).Warn("IEC rate limit reached, skipping verification call")
		}
		return res
	}
	if err != nil {
		metrics.VerificationRequests.WithLabelValues("error").Inc()
		res.VoterStatus = upload.StatusVerificationError
		res.VotingDistrictCode = upload.SentinelNotRegistered
		res.Error = err.Error()
		return res
	}

	reg, err := s.verifier.CheckRegistration(ctx, idNumber)
	if err != nil {
		metrics.VerificationRequests.WithLabelValues("error").Inc()
		res.VoterStatus = upload.StatusVerificationError
		res.VotingDistrictCode = upload.SentinelNotRegistered
		res.Error = err.Error()
		if s.log != nil {
			s.log.WithField("id_number", idNumber).WithError(err).Warn("IEC verification call failed")
		}
		return res
	}

	// a null response is equivalent to "not registered"
	if reg == nil || !reg.IsRegistered {
		metrics.VerificationRequests.WithLabelValues("not_registered").Inc()
		res.VoterStatus = upload.StatusNotRegistered
		res.VotingDistrictCode = upload.SentinelNotRegistered
		return res
	}

	metrics.VerificationRequests.WithLabelValues("verified").Inc()
	res.IsRegistered = true
	res.VoterStatus = reg.VoterStatus
	if res.VoterStatus == "" {
		res.VoterStatus = upload.StatusRegistered
	}
	res.WardCode = reg.WardCode
	if reg.VotingDistrictCode != nil && *reg.VotingDistrictCode != "" {
		res.VotingDistrictCode = *reg.VotingDistrictCode
	} else {
		res.VotingDistrictCode = upload.SentinelRegisteredNoDistrict
	}
	return res
}
