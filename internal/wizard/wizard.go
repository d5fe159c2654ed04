package wizard

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"analyst-alchemist/internal/profile"
)

type Step string

const (
	StepNaming     Step = "naming"
	StepPreset     Step = "preset"
	StepConfigure  Step = "configure"
	StepKnowledge  Step = "knowledge"
	StepSimulation Step = "simulation"
)

var steps = []Step{StepNaming, StepPreset, StepConfigure, StepKnowledge, StepSimulation}

func stepIndex(s Step) int {
	for i, v := range steps {
		if v == s {
			return i
		}
	}
	return -1
}

const DefaultBacktestDuration = 2500 * time.Millisecond

type KnowledgeFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type State struct {
	Step             Step            `json:"step"`
	Name             string          `json:"name"`
	WorkflowID       string          `json:"workflow_id,omitempty"`
	PersonaID        string          `json:"persona_id,omitempty"`
	Knowledge        []KnowledgeFile `json:"knowledge,omitempty"`
	KnowledgeSkipped bool            `json:"knowledge_skipped,omitempty"`
	Backtest         Backtest        `json:"backtest"`
	CanAdvance       bool            `json:"can_advance"`
	Deployed         bool            `json:"deployed"`
	Deploying        bool            `json:"deploying,omitempty"`
}

// Source yields uniform samples in [0, 1).
type Source interface {
	Float64() float64
}

// Wizard walks a user through naming, workflow, persona, knowledge and a
// mock backtest before the agent can be deployed.
type Wizard struct {
	mu       sync.Mutex
	state    State
	duration time.Duration
	src      Source
	onChange func(State)

	runSeq int
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Wizard)

func WithBacktestDuration(d time.Duration) Option {
	return func(w *Wizard) {
		if d > 0 {
			w.duration = d
		}
	}
}

func WithSource(src Source) Option {
	return func(w *Wizard) {
		if src != nil {
			w.src = src
		}
	}
}

// OnChange registers a hook called with a state copy after backtest progress.
func OnChange(fn func(State)) Option {
	return func(w *Wizard) { w.onChange = fn }
}

func New(opts ...Option) *Wizard {
	w := &Wizard{
		state:    State{Step: StepNaming, Backtest: Backtest{Status: BacktestIdle}},
		duration: DefaultBacktestDuration,
		src:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Wizard) snapshotLocked() State {
	out := w.state
	out.Knowledge = append([]KnowledgeFile(nil), w.state.Knowledge...)
	out.Backtest = w.state.Backtest.clone()
	out.CanAdvance = w.guardLocked() == nil
	return out
}

func (w *Wizard) SetName(name string) (State, error) {
	return w.mutate(StepNaming, func() error {
		w.state.Name = name
		return nil
	})
}

// SelectWorkflow picks the workflow; switching workflows clears the persona.
func (w *Wizard) SelectWorkflow(id string) (State, error) {
	return w.mutate(StepPreset, func() error {
		if _, ok := FindWorkflow(id); !ok {
			return ErrUnknownWorkflow
		}
		if w.state.WorkflowID != id {
			w.state.PersonaID = ""
		}
		w.state.WorkflowID = id
		return nil
	})
}

func (w *Wizard) SelectPersona(id string) (State, error) {
	return w.mutate(StepConfigure, func() error {
		wf, ok := FindWorkflow(w.state.WorkflowID)
		if !ok {
			return ErrWorkflowRequired
		}
		if _, ok := wf.Persona(id); !ok {
			return ErrUnknownPersona
		}
		w.state.PersonaID = id
		return nil
	})
}

func (w *Wizard) AddKnowledge(files ...KnowledgeFile) (State, error) {
	return w.mutate(StepKnowledge, func() error {
		for _, f := range files {
			if strings.TrimSpace(f.Name) == "" {
				continue
			}
			w.state.Knowledge = append(w.state.Knowledge, f)
		}
		return nil
	})
}

// Next advances one step when the current step's guard passes.
func (w *Wizard) Next() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.frozenLocked(); err != nil {
		return w.snapshotLocked(), err
	}
	if err := w.guardLocked(); err != nil {
		return w.snapshotLocked(), err
	}
	i := stepIndex(w.state.Step)
	if i >= len(steps)-1 {
		return w.snapshotLocked(), ErrAtLastStep
	}
	if w.state.Step == StepNaming {
		w.state.Name = strings.TrimSpace(w.state.Name)
	}
	w.state.Step = steps[i+1]
	return w.snapshotLocked(), nil
}

// SkipKnowledge leaves the knowledge step without uploads; it lands on the
// same step as Next.
func (w *Wizard) SkipKnowledge() (State, error) {
	w.mu.Lock()
	if w.state.Step != StepKnowledge {
		defer w.mu.Unlock()
		return w.snapshotLocked(), ErrWrongStep
	}
	w.state.KnowledgeSkipped = true
	w.mu.Unlock()
	return w.Next()
}

// Back returns to the previous step. Leaving the simulation step cancels a
// running backtest and discards its result.
func (w *Wizard) Back() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.frozenLocked(); err != nil {
		return w.snapshotLocked(), err
	}
	i := stepIndex(w.state.Step)
	if i <= 0 {
		return w.snapshotLocked(), ErrAtFirstStep
	}
	if w.state.Step == StepSimulation {
		w.stopRunLocked()
		w.state.Backtest = Backtest{Status: BacktestIdle}
	}
	w.state.Step = steps[i-1]
	return w.snapshotLocked(), nil
}

// Finish yields the agent profile once the backtest has finished. It does not
// change the wizard; deploying goes through BeginDeploy.
func (w *Wizard) Finish() (profile.Profile, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.finishLocked()
}

// BeginDeploy is Finish plus a claim on the deployment: until MarkDeployed
// or AbortDeploy the wizard is frozen and a second BeginDeploy fails with
// ErrDeployInProgress.
func (w *Wizard) BeginDeploy() (profile.Profile, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, err := w.finishLocked()
	if err != nil {
		return profile.Profile{}, err
	}
	w.state.Deploying = true
	return p, nil
}

// AbortDeploy releases a claim taken by BeginDeploy after a failed deploy.
func (w *Wizard) AbortDeploy() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Deploying = false
	return w.snapshotLocked()
}

func (w *Wizard) MarkDeployed() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Deploying = false
	w.state.Deployed = true
	return w.snapshotLocked()
}

func (w *Wizard) finishLocked() (profile.Profile, error) {
	if err := w.frozenLocked(); err != nil {
		return profile.Profile{}, err
	}
	if w.state.Step != StepSimulation {
		return profile.Profile{}, ErrWrongStep
	}
	if w.state.Backtest.Status != BacktestFinished {
		return profile.Profile{}, ErrBacktestNotFinished
	}
	wf, ok := FindWorkflow(w.state.WorkflowID)
	if !ok {
		return profile.Profile{}, ErrWorkflowRequired
	}
	persona, ok := wf.Persona(w.state.PersonaID)
	if !ok {
		return profile.Profile{}, ErrPersonaRequired
	}
	prompts := make(map[profile.Capability]string, len(persona.Prompts))
	for k, v := range persona.Prompts {
		prompts[k] = v
	}
	return profile.Profile{
		Name:       w.state.Name,
		Class:      persona.Class,
		Stats:      persona.Stats,
		Modules:    append([]string(nil), persona.Modules...),
		Prompts:    prompts,
		WorkflowID: wf.ID,
		PersonaID:  persona.ID,
	}, nil
}

func (w *Wizard) frozenLocked() error {
	switch {
	case w.state.Deployed:
		return ErrDeployed
	case w.state.Deploying:
		return ErrDeployInProgress
	}
	return nil
}

// Close stops any running backtest.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopRunLocked()
}

func (w *Wizard) mutate(step Step, fn func() error) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.frozenLocked(); err != nil {
		return w.snapshotLocked(), err
	}
	if w.state.Step != step {
		return w.snapshotLocked(), ErrWrongStep
	}
	if err := fn(); err != nil {
		return w.snapshotLocked(), err
	}
	return w.snapshotLocked(), nil
}

func (w *Wizard) guardLocked() error {
	switch w.state.Step {
	case StepNaming:
		if strings.TrimSpace(w.state.Name) == "" {
			return ErrNameRequired
		}
	case StepPreset:
		if _, ok := FindWorkflow(w.state.WorkflowID); !ok {
			return ErrWorkflowRequired
		}
	case StepConfigure:
		wf, ok := FindWorkflow(w.state.WorkflowID)
		if !ok {
			return ErrWorkflowRequired
		}
		if _, ok := wf.Persona(w.state.PersonaID); !ok {
			return ErrPersonaRequired
		}
	case StepSimulation:
		return ErrAtLastStep
	}
	return nil
}
