package pipeline

import (
	"call-insights-go/internal/engine"
	"call-insights-go/internal/types"
)

const reasonNoResult = "execution finished without recording a result"

// Verdict is the merged view of engine status and persisted stage.
type Verdict struct {
	Stage  types.Stage
	Reason string
}

type mergeRule func(unit *types.AudioUnit, desc *engine.Description) Verdict

// mergeTable maps the engine status to the rule deciding the reported
// stage. Statuses absent from the table are treated as still running.
var mergeTable = map[engine.Status]mergeRule{
	engine.StatusSucceeded: func(unit *types.AudioUnit, _ *engine.Description) Verdict {
		// the engine finishing says nothing about the analysis outcome
		if unit.Stage.Terminal() {
			return Verdict{Stage: unit.Stage}
		}
		return Verdict{Stage: types.StageFailed, Reason: reasonNoResult}
	},
	engine.StatusAborted: func(*types.AudioUnit, *engine.Description) Verdict {
		return Verdict{Stage: types.StageCancelled, Reason: "execution aborted"}
	},
	engine.StatusFailed: func(unit *types.AudioUnit, desc *engine.Description) Verdict {
		if unit.Stage == types.StageFailed {
			return Verdict{Stage: types.StageFailed}
		}
		return Verdict{Stage: types.StageFailed, Reason: desc.Error}
	},
	engine.StatusRunning: running,
}

func running(*types.AudioUnit, *engine.Description) Verdict {
	return Verdict{Stage: types.StageRunning}
}

// Reconcile merges the live execution description with the persisted unit.
func Reconcile(desc *engine.Description, unit *types.AudioUnit) Verdict {
	rule, ok := mergeTable[desc.Status]
	if !ok {
		rule = running
	}
	return rule(unit, desc)
}
