package deploy

import "time"

// Stage names one step of the pipeline.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageLock      Stage = "lock"
	StageWorkspace Stage = "workspace"
	StageFetch     Stage = "fetch"
	StageConfigure Stage = "configure"
	StagePrepare   Stage = "prepare"
	StageTransfer  Stage = "transfer"
	StageSwap      Stage = "swap"
	StageLaunch    Stage = "launch"
	StageCleanup   Stage = "cleanup"
)

// Stages lists the observable stages in pipeline order.
var Stages = []Stage{
	StageWorkspace,
	StageFetch,
	StageConfigure,
	StagePrepare,
	StageTransfer,
	StageSwap,
	StageLaunch,
	StageCleanup,
}

// Description is a short human label for the stage.
func (s Stage) Description() string {
	switch s {
	case StageWorkspace:
		return "Creating workspace"
	case StageFetch:
		return "Fetching source"
	case StageConfigure:
		return "Gathering variables"
	case StagePrepare:
		return "Preparing remote root"
	case StageTransfer:
		return "Transferring files"
	case StageSwap:
		return "Swapping deployment"
	case StageLaunch:
		return "Launching"
	case StageCleanup:
		return "Cleaning up"
	default:
		return string(s)
	}
}

// Observer is told when stages start and finish. Calls come from the
// goroutine running Deploy, one stage at a time.
type Observer interface {
	StageStarted(s Stage)
	StageFinished(s Stage, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) StageStarted(Stage)                        {}
func (nopObserver) StageFinished(Stage, time.Duration, error) {}
