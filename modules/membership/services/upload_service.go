package services

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/upload"
	"github.com/ntsowef/eff-membership-system-sub020/pkg/eventbus"
	"github.com/ntsowef/eff-membership-system-sub020/pkg/metrics"
	"github.com/ntsowef/eff-membership-system-sub020/pkg/serrors"
)

// ErrNoDataFound rejects a run whose input holds no rows.
var ErrNoDataFound = serrors.NewError("BULK_NO_DATA", "no data found in upload file", "")

// ReportSink consumes a completed run and renders it. The pipeline only
// depends on this contract, never on a concrete renderer.
type ReportSink interface {
	Generate(ctx context.Context, result *upload.RunResult) (string, error)
}

// UploadService drives the pipeline stages in fixed order:
// initialization -> validation -> verification -> persistence -> report ->
// completion. There is no branching or retry; a fatal error rejects the run
// with no partial result.
type UploadService struct {
	preValidation *PreValidationService
	verification  *VerificationService
	persistence   *PersistenceService
	reports       ReportSink
	publisher     eventbus.EventBus
	log           *logrus.Logger
}

func NewUploadService(
	preValidation *PreValidationService,
	verification *VerificationService,
	persistence *PersistenceService,
	reports ReportSink,
	publisher eventbus.EventBus,
	log *logrus.Logger,
) *UploadService {
	return &UploadService{
		preValidation: preValidation,
		verification:  verification,
		persistence:   persistence,
		reports:       reports,
		publisher:     publisher,
		log:           log,
	}
}

// ProcessRecords runs the whole pipeline over the given rows.
func (s *UploadService) ProcessRecords(ctx context.Context, fileName string, records []upload.RawRecord, progress upload.ProgressFunc) (*upload.RunResult, error) {
	runID := uuid.NewString()
	startedAt := time.Now()

	emit := func(stage upload.Stage, percent int, message string) {
		if progress != nil {
			progress(stage, percent, message)
		}
		if s.publisher != nil {
			s.publisher.Publish(&upload.ProgressEvent{
				RunID:   runID,
				Stage:   stage,
				Percent: percent,
				Message: message,
			})
		}
	}

	reject := func(err error) (*upload.RunResult, error) {
		metrics.RunsCompleted.WithLabelValues("rejected").Inc()
		if s.log != nil {
			s.log.WithField("run_id", runID).WithError(err).Error("bulk upload run rejected")
		}
		return nil, err
	}

	emit(upload.StageInitialization, 0, "starting bulk upload run")
	if len(records) == 0 {
		return reject(ErrNoDataFound)
	}

	emit(upload.StageValidation, 10, "validating identity numbers")
	validation, err := s.preValidation.ValidateRecords(ctx, records)
	if err != nil {
		return reject(errors.Wrap(err, "validation stage failed"))
	}

	candidates := make([]upload.Record, 0, len(validation.NewMembers)+len(validation.ExistingMembers))
	candidates = append(candidates, validation.NewMembers...)
	for _, rec := range validation.ExistingMembers {
		candidates = append(candidates, rec.Record)
	}

	emit(upload.StageVerification, 35, "verifying voter registration with the IEC")
	verification, err := s.verification.VerifyBatch(ctx, candidates, func(processed, total int) {
		percent := 35
		if total > 0 {
			percent = 35 + (30*processed)/total
		}
		emit(upload.StageVerification, percent, "verifying voter registration with the IEC")
	})
	if err != nil {
		return reject(errors.Wrap(err, "verification stage failed"))
	}

	emit(upload.StagePersistence, 70, "writing members to the registry")
	batch, err := s.persistence.ProcessRecords(ctx, validation.NewMembers, validation.ExistingMembers, verification)
	if err != nil {
		return reject(errors.Wrap(err, "persistence stage failed"))
	}

	result := &upload.RunResult{
		RunID:        runID,
		FileName:     fileName,
		StartedAt:    startedAt,
		Validation:   *validation,
		Verification: verification,
		Persistence:  *batch,
	}

	emit(upload.StageReport, 90, "generating upload report")
	if s.reports != nil {
		path, err := s.reports.Generate(ctx, result)
		if err != nil {
			// the data is committed; a failed report must not reject the run
			if s.log != nil {
				s.log.WithField("run_id", runID).WithError(err).Error("report generation failed")
			}
		} else {
			result.ReportPath = path
		}
	}

	result.FinishedAt = time.Now()
	metrics.RunsCompleted.WithLabelValues("completed").Inc()
	emit(upload.StageCompletion, 100, "bulk upload run complete")

	if s.log != nil {
		s.log.WithFields(logrus.Fields{
			"run_id":   runID,
			"file":     fileName,
			"total":    validation.Stats.TotalRecords,
			"inserts":  batch.Stats.Inserts,
			"updates":  batch.Stats.Updates,
			"failures": batch.Stats.Failures,
			"duration": result.FinishedAt.Sub(startedAt).String(),
		}).Info("bulk upload run complete")
	}

	return result, nil
}
