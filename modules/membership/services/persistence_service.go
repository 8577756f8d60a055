package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/member"
	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/upload"
	"github.com/ntsowef/eff-membership-system-sub020/pkg/composables"
	"github.com/ntsowef/eff-membership-system-sub020/pkg/metrics"
)

const skipReasonNoVerification = "No IEC verification result"

// overridable in tests
var (
	inTxFn       = composables.InTx
	inNestedTxFn = composables.InNestedTx
)

// PersistenceService writes classified, verified records inside exactly one
// transaction per run. By default an individual statement failure is
// isolated behind a savepoint and the transaction still commits; StrictAtomic
// restores all-or-nothing semantics.
type PersistenceService struct {
	repo         member.Repository
	strictAtomic bool
	log          *logrus.Logger
}

func NewPersistenceService(repo member.Repository, strictAtomic bool, log *logrus.Logger) *PersistenceService {
	return &PersistenceService{repo: repo, strictAtomic: strictAtomic, log: log}
}

func (s *PersistenceService) ProcessRecords(
	ctx context.Context,
	newMembers []upload.Record,
	existingMembers []upload.ExistingRecord,
	verification map[string]upload.VerificationResult,
) (*upload.BatchResult, error) {
	result := &upload.BatchResult{}
	result.Stats.TotalRecords = len(newMembers) + len(existingMembers)

	err := inTxFn(ctx, func(txCtx context.Context) error {
		for _, rec := range newMembers {
			v, ok := verification[rec.IDNumber]
			if !ok {
				s.skip(result, rec.IDNumber)
				continue
			}

			var memberID int64
			opErr := inNestedTxFn(txCtx, func(c context.Context) error {
				var err error
				memberID, err = s.repo.Insert(c, rec, v)
				return err
			})
			if opErr != nil {
				if s.strictAtomic {
					return opErr
				}
				s.fail(result, rec.IDNumber, upload.OperationInsert, opErr)
				continue
			}
			s.succeed(result, rec.IDNumber, memberID, upload.OperationInsert)
		}

		for _, rec := range existingMembers {
			v, ok := verification[rec.IDNumber]
			if !ok {
				s.skip(result, rec.IDNumber)
				continue
			}

			opErr := inNestedTxFn(txCtx, func(c context.Context) error {
				return s.repo.Update(c, rec.Match.MemberID, rec.Record, v)
			})
			if opErr != nil {
				if s.strictAtomic {
					return opErr
				}
				s.fail(result, rec.IDNumber, upload.OperationUpdate, opErr)
				continue
			}
			s.succeed(result, rec.IDNumber, rec.Match.MemberID, upload.OperationUpdate)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.log != nil {
		s.log.WithFields(logrus.Fields{
			"inserts":  result.Stats.Inserts,
			"updates":  result.Stats.Updates,
			"skipped":  result.Stats.Skipped,
			"failures": result.Stats.Failures,
		}).Info("bulk persistence complete")
	}

	return result, nil
}

func (s *PersistenceService) succeed(result *upload.BatchResult, idNumber string, memberID int64, kind upload.OperationKind) {
	switch kind {
	case upload.OperationInsert:
		result.Stats.Inserts++
		metrics.PersistedOperations.WithLabelValues("insert").Inc()
	case upload.OperationUpdate:
		result.Stats.Updates++
		metrics.PersistedOperations.WithLabelValues("update").Inc()
	}
	result.Successful = append(result.Successful, upload.Operation{
		IDNumber: idNumber,
		MemberID: memberID,
		Kind:     kind,
	})
}

func (s *PersistenceService) fail(result *upload.BatchResult, idNumber string, kind upload.OperationKind, err error) {
	result.Stats.Failures++
	metrics.PersistedOperations.WithLabelValues("failure").Inc()
	result.Failed = append(result.Failed, upload.FailedOperation{
		IDNumber: idNumber,
		Kind:     kind,
		Error:    err.Error(),
	})
	if s.log != nil {
		s.log.WithFields(logrus.Fields{"id_number": idNumber, "operation": kind}).
			WithError(err).Warn("record persistence failed, continuing batch")
	}
}

func (s *PersistenceService) skip(result *upload.BatchResult, idNumber string) {
	result.Stats.Skipped++
	metrics.PersistedOperations.WithLabelValues("skip").Inc()
	result.Skipped = append(result.Skipped, upload.SkippedRecord{
		IDNumber: idNumber,
		Reason:   skipReasonNoVerification,
	})
}
