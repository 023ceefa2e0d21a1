package stages

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

var validTransitions = map[State]map[State]bool{
	StatePending: {StateRunning: true, StateFailed: true, StateCompleted: true},
	StateRunning: {StateRunning: true, StateCompleted: true, StateFailed: true},
}

func isValidTransition(from, to State) bool {
	return validTransitions[from][to]
}

type Transition struct {
	From  State
	To    State
	Stage string
	Err   error
}

type Outcome struct {
	State       State
	FailedStage string
	Err         error
	Warnings    []string
}

// Runner executes stages strictly in order and stops at the first failure.
// Nothing is retried.
type Runner struct {
	OnTransition func(rc *Context, t Transition)
}

func (r Runner) Run(ctx context.Context, rc *Context, stages []Stage) Outcome {
	state := StatePending
	move := func(to State, stage string, err error) {
		if !isValidTransition(state, to) {
			panic(fmt.Sprintf("invalid run transition %s -> %s", state, to))
		}
		t := Transition{From: state, To: to, Stage: stage, Err: err}
		state = to
		if r.OnTransition != nil {
			r.OnTransition(rc, t)
		}
	}
	fail := func(stage string, err error) Outcome {
		sf := &StageFailure{Stage: stage, RunID: rc.RunID, JobID: rc.Job.Title(), Err: err}
		move(StateFailed, stage, sf)
		return Outcome{State: StateFailed, FailedStage: stage, Err: sf}
	}

	var warnings []string
	for _, st := range stages {
		name := st.Name()
		if err := ctx.Err(); err != nil {
			return fail(name, err)
		}
		move(StateRunning, name, nil)
		log := rc.Log.WithField("stage", name)

		err := rc.Require(name, st.Requires()...)
		if err == nil {
			err = st.Execute(ctx, rc)
		}
		if err == nil {
			err = rc.Require(name, st.Produces()...)
			if err != nil {
				err = fmt.Errorf("stage did not record its output: %w", err)
			}
		}
		if err != nil {
			if be, ok := st.(BestEffort); ok && be.BestEffort() {
				log.WithError(err).Warn("stage failed, continuing")
				warnings = append(warnings, fmt.Sprintf("%s: %v", name, err))
				continue
			}
			log.WithError(err).Error("stage failed")
			return fail(name, err)
		}
		log.Debug("stage completed")
	}

	move(StateCompleted, "", nil)
	return Outcome{State: StateCompleted, Warnings: warnings}
}

// LogTransitions returns an OnTransition hook that writes every transition to
// the run's logger.
func LogTransitions() func(rc *Context, t Transition) {
	return func(rc *Context, t Transition) {
		entry := rc.Log.WithFields(logrus.Fields{"from": t.From, "to": t.To})
		if t.Stage != "" {
			entry = entry.WithField("stage", t.Stage)
		}
		if t.Err != nil {
			entry.WithError(t.Err).Info("run transition")
			return
		}
		entry.Info("run transition")
	}
}
