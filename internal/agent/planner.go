// internal/agent/planner.go
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/agent-backend/api/schemas"
	"github.com/xkilldash9x/agent-backend/internal/config"
	"github.com/xkilldash9x/agent-backend/internal/llmutil"
)

// doneSentinel marks a plan as final when it appears as the whole plan text.
const doneSentinel = "done"

const contextCleanupTimeout = 10 * time.Second

// jsonPlan is the JSON planning format. Some models emit this instead of the
// delimited transcript even when prompted otherwise, so both are accepted.
type jsonPlan struct {
	Observation   string   `json:"observation"`
	Plan          string   `json:"plan"`
	FunctionCalls []string `json:"function_calls"`
}

// Planner drives the observe-plan-act loop for a single task: it prompts the
// LLM, parses the plan, hands the function calls to the executor, and feeds
// the results back into the next prompt.
type Planner struct {
	llm      schemas.LLMClient
	executor CallExecutor
	contexts ContextManager
	cfg      config.AgentConfig

	systemPrompt string
	logger       *zap.Logger
}

// NewPlanner wires a planner over the LLM client, the call executor, and the
// browser context manager.
func NewPlanner(
	llm schemas.LLMClient,
	executor CallExecutor,
	contexts ContextManager,
	toolDefs []schemas.Tool,
	cfg config.AgentConfig,
	logger *zap.Logger,
) *Planner {
	return &Planner{
		llm:          llm,
		executor:     executor,
		contexts:     contexts,
		cfg:          cfg,
		systemPrompt: SystemPrompt(toolDefs),
		logger:       logger.Named("planner"),
	}
}

// SystemPrompt returns the rendered planning system prompt.
func (p *Planner) SystemPrompt() string {
	return p.systemPrompt
}

// ParsePlan parses a raw LLM response into a plan. The JSON format is tried
// first; responses without a parsable JSON object fall back to the delimited
// format. A plan consisting solely of the done sentinel marks the task
// complete regardless of format.
func (p *Planner) ParsePlan(response string) (*schemas.PlanResponse, error) {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return nil, fmt.Errorf("failed to parse plan: response is empty")
	}

	if strings.Contains(trimmed, "{") {
		if parsed, err := llmutil.ParseJSONResponse[jsonPlan](trimmed); err == nil {
			plan := &schemas.PlanResponse{
				Observation:   parsed.Observation,
				Plan:          parsed.Plan,
				FunctionCalls: parsed.FunctionCalls,
			}
			if plan.FunctionCalls == nil {
				plan.FunctionCalls = []string{}
			}
			plan.Done = strings.EqualFold(strings.TrimSpace(plan.Plan), doneSentinel)
			return plan, nil
		}
	}

	plan, err := llmutil.ParseDelimitedPlan(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	if strings.EqualFold(strings.TrimSpace(plan.Plan), doneSentinel) {
		plan.Done = true
	}
	return plan, nil
}

// ReactLoop runs the full planning loop for one task. Each completed step is
// reported through onStep before the next iteration begins. The browser
// context created for the task is always cleaned up, including on error and
// cancellation paths.
func (p *Planner) ReactLoop(ctx context.Context, taskID uuid.UUID, request string, onStep func(schemas.TaskStep)) error {
	logger := p.logger.With(zap.String("task_id", taskID.String()))
	logger.Info("Starting react loop.", zap.String("request", request))

	contextID, err := p.contexts.NewContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to create browser context for task: %w", err)
	}
	defer func() {
		// The request context may already be canceled; cleanup gets its own.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), contextCleanupTimeout)
		defer cancel()
		if err := p.contexts.CloseContext(cleanupCtx, contextID); err != nil {
			logger.Warn("Failed to close browser context after task.", zap.Error(err))
		}
	}()

	var steps []schemas.TaskStep
	parseFailures := 0

	for stepIndex := 1; stepIndex <= p.cfg.MaxSteps; stepIndex++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("task aborted: %w", err)
		}

		raw, err := p.llm.Generate(ctx, schemas.GenerationRequest{
			SystemPrompt: p.systemPrompt,
			UserPrompt:   buildStepPrompt(request, steps),
			Tier:         schemas.TierPowerful,
		})
		if err != nil {
			return fmt.Errorf("LLM generation failed at step %d: %w", stepIndex, err)
		}

		plan, err := p.ParsePlan(raw)
		if err != nil {
			parseFailures++
			logger.Warn("Could not parse planning response.",
				zap.Int("step", stepIndex),
				zap.Int("parse_failures", parseFailures),
				zap.Error(err),
			)
			if parseFailures > p.cfg.ParseErrorBudget {
				return fmt.Errorf("exceeded parse error budget (%d): %w", p.cfg.ParseErrorBudget, err)
			}
			continue
		}

		results := p.runCalls(ctx, logger, contextID, plan.FunctionCalls)

		step := schemas.TaskStep{
			Index:         stepIndex,
			Observation:   plan.Observation,
			Plan:          plan.Plan,
			FunctionCalls: plan.FunctionCalls,
			Results:       results,
			Timestamp:     time.Now().UTC(),
		}
		steps = append(steps, step)
		if onStep != nil {
			onStep(step)
		}

		if plan.Done {
			logger.Info("Task marked done by planner.", zap.Int("steps", stepIndex))
			return nil
		}
	}

	return fmt.Errorf("task did not complete within %d steps", p.cfg.MaxSteps)
}

// runCalls parses and executes one batch of function calls. Parse errors are
// surfaced as an in-band failure so the model can correct itself on the next
// iteration instead of killing the task.
func (p *Planner) runCalls(ctx context.Context, logger *zap.Logger, contextID uuid.UUID, calls []string) []schemas.ToolResponse {
	if len(calls) == 0 {
		return nil
	}

	parsed, err := p.executor.ParseCalls(calls)
	if err != nil {
		logger.Warn("Planner emitted unparsable function calls.", zap.Error(err))
		return []schemas.ToolResponse{schemas.ToolError("%v", err)}
	}
	return p.executor.ExecuteCalls(ctx, contextID, parsed)
}
