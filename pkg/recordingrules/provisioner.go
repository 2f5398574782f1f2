package recordingrules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v5"

	"github.com/donaldgifford/aks_rules_provisioner/pkg/arm"
)

// Options tunes a Provisioner.
type Options struct {
	// Recorder observes the run. Nil disables observation.
	Recorder Recorder

	// NameFunc derives rule group names. Nil means DefaultRuleGroupName.
	NameFunc NameFunc

	// ValidateExpressions parses every rule expression before provisioning.
	ValidateExpressions bool

	// Strict turns rejected templates and validation errors into failures
	// instead of warnings.
	Strict bool
}

// Provisioner fetches rule templates and provisions rule groups.
type Provisioner struct {
	client   ManagementClient
	logger   *slog.Logger
	recorder Recorder
	nameFunc NameFunc
	validate bool
	strict   bool
}

// NewProvisioner creates a Provisioner that talks to ARM through client.
func NewProvisioner(client ManagementClient, logger *slog.Logger, opts Options) *Provisioner {
	p := &Provisioner{
		client:   client,
		logger:   logger,
		recorder: opts.Recorder,
		nameFunc: opts.NameFunc,
		validate: opts.ValidateExpressions,
		strict:   opts.Strict,
	}

	if p.recorder == nil {
		p.recorder = nopRecorder{}
	}

	if p.nameFunc == nil {
		p.nameFunc = DefaultRuleGroupName
	}

	return p
}

// Plan is the outcome of fetching and resolving templates for a cluster.
type Plan struct {
	Groups     []RuleGroup
	Rejected   []Rejection
	Validation ValidationResult
}

// FetchTemplates reads the recommendations of a workspace and returns the
// accepted templates and the rejected entries. The read is not retried.
func (p *Provisioner) FetchTemplates(ctx context.Context, workspaceID string) ([]Template, []Rejection, error) {
	body, err := p.client.Get(ctx, recommendationsPath(workspaceID), AlertsAPIVersion,
		userAgentPrefix+".get_recording_rules_template")
	if err != nil {
		return nil, nil, fmt.Errorf("fetching recording rule templates: %w", err)
	}

	templates, rejected, err := ParseTemplates(body)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing recording rule templates: %w", err)
	}

	p.recorder.ObserveTemplates(len(templates), len(rejected))

	return templates, rejected, nil
}

// Plan fetches templates for the workspace in params and resolves the rule
// groups to provision, without writing anything.
func (p *Provisioner) Plan(ctx context.Context, params Params) (Plan, error) {
	if err := params.Validate(); err != nil {
		return Plan{}, err
	}

	templates, rejected, err := p.FetchTemplates(ctx, params.WorkspaceResourceID)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{Rejected: rejected}

	for _, r := range rejected {
		p.logger.Warn("Ignoring malformed recording rule template", "template", r.Name, "index", r.Index, "reason", r.Reason)
	}

	p.logger.Info("Fetched recording rule templates",
		"accepted", len(templates),
		"rejected", len(rejected),
		"templates", TemplateNames(templates),
	)

	if p.strict && len(rejected) > 0 {
		return plan, fmt.Errorf("%w: %d rejected, first: %s", ErrRejectedTemplates, len(rejected), rejected[0])
	}

	assignments, err := AssignRoles(templates)
	if err != nil {
		return plan, err
	}

	if p.validate {
		used := make([]Template, len(assignments))
		for i, a := range assignments {
			used[i] = a.Template
		}

		plan.Validation = ValidateTemplates(used)

		for _, w := range plan.Validation.Warnings {
			p.logger.Warn("Recording rule warning", "detail", w)
		}

		for _, e := range plan.Validation.Errors {
			p.logger.Warn("Invalid recording rule", "detail", e)
		}

		if p.strict && !plan.Validation.Ok() {
			return plan, fmt.Errorf("%w: %d errors, first: %s",
				ErrInvalidExpressions, len(plan.Validation.Errors), plan.Validation.Errors[0])
		}
	}

	plan.Groups, err = BuildRuleGroups(params, assignments, p.nameFunc)
	if err != nil {
		return plan, err
	}

	return plan, nil
}

// Apply provisions groups in order. The first group that still fails after
// MaxAttempts stops the run; later groups are not attempted.
func (p *Provisioner) Apply(ctx context.Context, groups []RuleGroup) error {
	for _, g := range groups {
		if err := p.Put(ctx, g); err != nil {
			return fmt.Errorf("role %s: %w", g.Role, err)
		}
	}

	return nil
}

// CreateRules provisions the default recording rule groups for a cluster.
func (p *Provisioner) CreateRules(ctx context.Context, params Params) error {
	plan, err := p.Plan(ctx, params)
	if err != nil {
		return err
	}

	return p.Apply(ctx, plan.Groups)
}

// Put writes a single rule group, attempting it up to MaxAttempts times with
// no delay. Only management-plane failures are retried; the error returned
// after the last attempt is the last error seen.
func (p *Provisioner) Put(ctx context.Context, group RuleGroup) error {
	body := group.Resource()
	userAgent := userAgentPrefix + ".put_rules." + group.Name
	attempt := 0

	operation := func() (struct{}, error) {
		attempt++

		err := p.client.Put(ctx, group.ID, RulesAPIVersion, userAgent, body)
		p.recorder.ObserveAttempt(group.Name, err)

		if err == nil {
			return struct{}{}, nil
		}

		if !arm.IsManagementError(err) {
			return struct{}{}, backoff.Permanent(err)
		}

		p.logger.Warn("Rule group write failed",
			"rule_group", group.Name,
			"attempt", attempt,
			"max_attempts", MaxAttempts,
			"status", arm.StatusCode(err),
			"err", err,
		)

		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(&backoff.ZeroBackOff{}),
		backoff.WithMaxTries(MaxAttempts),
		backoff.WithMaxElapsedTime(0),
	)

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}

	p.recorder.ObserveGroup(group.Name, group.Enabled, err)

	if err != nil {
		return fmt.Errorf("provisioning rule group %s after %d attempt(s): %w", group.Name, attempt, err)
	}

	p.logger.Info("Provisioned rule group",
		"rule_group", group.Name,
		"role", group.Role.String(),
		"enabled", group.Enabled,
		"rules", len(group.Rules),
		"attempts", attempt,
	)

	return nil
}
