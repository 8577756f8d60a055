package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/upload"
	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/voter"
	"github.com/ntsowef/eff-membership-system-sub020/pkg/eventbus"
	"github.com/ntsowef/eff-membership-system-sub020/pkg/ratelimit"
	"github.com/ntsowef/eff-membership-system-sub020/pkg/serrors"
)

type stubReportSink struct {
	path  string
	err   error
	calls int
	last  *upload.RunResult
}

func (s *stubReportSink) Generate(_ context.Context, result *upload.RunResult) (string, error) {
	s.calls++
	s.last = result
	if s.err != nil {
		return "", s.err
	}
	return s.path, nil
}

type pipelineFixture struct {
	repo     *mockMemberRepository
	verifier *stubVerifier
	sink     *stubReportSink
	svc      *UploadService
}

func newPipeline(t *testing.T, repo *mockMemberRepository, verifier *stubVerifier) *pipelineFixture {
	t.Helper()
	passthroughTx(t)

	log := quietLogger()
	sink := &stubReportSink{path: "/reports/out.xlsx"}
	svc := NewUploadService(
		NewPreValidationService(repo, log),
		NewVerificationService(verifier, ratelimit.Unlimited(), 2, log),
		NewPersistenceService(repo, false, log),
		sink,
		eventbus.NewEventPublisher(log),
		log,
	)
	return &pipelineFixture{repo: repo, verifier: verifier, sink: sink, svc: svc}
}

func TestProcessRecords_FullRun(t *testing.T) {
	repo := &mockMemberRepository{
		existing: map[string]upload.ExistingMatch{
			idLerato: {MemberID: 42},
		},
	}
	verifier := &stubVerifier{regs: map[string]*voter.Registration{
		idThabo:  registered("79800001", "32840123"),
		idLerato: registered("79800002", "32840124"),
	}}
	p := newPipeline(t, repo, verifier)

	var stages []upload.Stage
	var percents []int
	result, err := p.svc.ProcessRecords(context.Background(), "members.xlsx",
		[]upload.RawRecord{rawRecord(1, idThabo), rawRecord(2, idLerato)},
		func(stage upload.Stage, percent int, _ string) {
			stages = append(stages, stage)
			percents = append(percents, percent)
		})
	require.NoError(t, err)
	require.NotNil(t, result)

	require.NotEmpty(t, result.RunID)
	require.Equal(t, "members.xlsx", result.FileName)
	require.False(t, result.FinishedAt.Before(result.StartedAt))

	require.Equal(t, 1, result.Persistence.Stats.Inserts)
	require.Equal(t, 1, result.Persistence.Stats.Updates)
	require.Len(t, result.Verification, 2)
	require.Equal(t, "/reports/out.xlsx", result.ReportPath)
	require.Equal(t, 1, p.sink.calls)

	require.Equal(t, upload.StageInitialization, stages[0])
	require.Equal(t, upload.StageCompletion, stages[len(stages)-1])
	require.Equal(t, 100, percents[len(percents)-1])

	// stages never run out of order
	order := map[upload.Stage]int{
		upload.StageInitialization: 0,
		upload.StageValidation:     1,
		upload.StageVerification:   2,
		upload.StagePersistence:    3,
		upload.StageReport:         4,
		upload.StageCompletion:     5,
	}
	for i := 1; i < len(stages); i++ {
		require.GreaterOrEqual(t, order[stages[i]], order[stages[i-1]])
	}
}

func TestProcessRecords_EmptyInputIsRejected(t *testing.T) {
	p := newPipeline(t, &mockMemberRepository{}, &stubVerifier{})

	result, err := p.svc.ProcessRecords(context.Background(), "empty.xlsx", nil, nil)
	require.ErrorIs(t, err, ErrNoDataFound)
	require.Nil(t, result)
	require.Zero(t, p.sink.calls)
}

func TestProcessRecords_ValidationFailureRejectsTheRun(t *testing.T) {
	repo := &mockMemberRepository{
		findErr: serrors.NewError("DB_DOWN", "connection refused", ""),
	}
	p := newPipeline(t, repo, &stubVerifier{})

	result, err := p.svc.ProcessRecords(context.Background(), "members.xlsx",
		[]upload.RawRecord{rawRecord(1, idThabo)}, nil)
	require.Error(t, err)
	require.Nil(t, result)
	require.Zero(t, p.verifier.callCount())
	require.Zero(t, p.sink.calls)
}

func TestProcessRecords_ReportFailureDoesNotRejectTheRun(t *testing.T) {
	p := newPipeline(t, &mockMemberRepository{}, &stubVerifier{
		regs: map[string]*voter.Registration{idThabo: registered("79800001", "32840123")},
	})
	p.sink.err = serrors.NewError("DISK_FULL", "no space left on device", "")

	result, err := p.svc.ProcessRecords(context.Background(), "members.xlsx",
		[]upload.RawRecord{rawRecord(1, idThabo)}, nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Empty(t, result.ReportPath)
	require.Equal(t, 1, result.Persistence.Stats.Inserts)
}

func TestProcessRecords_PublishesProgressEvents(t *testing.T) {
	p := newPipeline(t, &mockMemberRepository{}, &stubVerifier{})

	bus := eventbus.NewEventPublisher(quietLogger())
	p.svc.publisher = bus

	var events []*upload.ProgressEvent
	bus.Subscribe(func(ev *upload.ProgressEvent) {
		events = append(events, ev)
	})

	result, err := p.svc.ProcessRecords(context.Background(), "members.xlsx",
		[]upload.RawRecord{rawRecord(1, idThabo)}, nil)
	require.NoError(t, err)

	require.NotEmpty(t, events)
	for _, ev := range events {
		require.Equal(t, result.RunID, ev.RunID)
	}
	last := events[len(events)-1]
	require.Equal(t, upload.StageCompletion, last.Stage)
	require.Equal(t, 100, last.Percent)
}

func TestProcessRecords_VerificationProgressStaysWithinStageBounds(t *testing.T) {
	verifier := &stubVerifier{}
	p := newPipeline(t, &mockMemberRepository{}, verifier)

	var verifyPercents []int
	_, err := p.svc.ProcessRecords(context.Background(), "members.xlsx",
		[]upload.RawRecord{
			rawRecord(1, idThabo), rawRecord(2, idLerato), rawRecord(3, idNaledi),
			rawRecord(4, idSipho), rawRecord(5, idZanele), rawRecord(6, idMandla),
		},
		func(stage upload.Stage, percent int, _ string) {
			if stage == upload.StageVerification {
				verifyPercents = append(verifyPercents, percent)
			}
		})
	require.NoError(t, err)

	// stage entry plus one update per wave of 2
	require.Equal(t, []int{35, 45, 55, 65}, verifyPercents)
}
