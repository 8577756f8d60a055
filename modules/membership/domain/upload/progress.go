package upload

// Stage names the pipeline's strictly sequential states.
type Stage string

const (
	StageInitialization Stage = "initialization"
	StageValidation     Stage = "validation"
	StageVerification   Stage = "verification"
	StagePersistence    Stage = "persistence"
	StageReport         Stage = "report"
	StageCompletion     Stage = "completion"
)

// ProgressEvent is published on the event bus at every stage transition so
// any number of consumers (UI, logs, metrics) can subscribe.
type ProgressEvent struct {
	RunID   string
	Stage   Stage
	Percent int
	Message string
}

// ProgressFunc is the optional per-run callback mirror of ProgressEvent.
type ProgressFunc func(stage Stage, percent int, message string)
