package wizard

import "errors"

var (
	ErrNameRequired        = errors.New("name_required")
	ErrWorkflowRequired    = errors.New("workflow_required")
	ErrPersonaRequired     = errors.New("persona_required")
	ErrUnknownWorkflow     = errors.New("unknown_workflow")
	ErrUnknownPersona      = errors.New("unknown_persona")
	ErrWrongStep           = errors.New("wrong_step")
	ErrAtFirstStep         = errors.New("at_first_step")
	ErrAtLastStep          = errors.New("at_last_step")
	ErrBacktestNotFinished = errors.New("backtest_not_finished")
	ErrDeployed            = errors.New("already_deployed")
	ErrDeployInProgress    = errors.New("deploy_in_progress")
)
