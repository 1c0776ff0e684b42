// Package agent implements the tool-calling conversation loop with durable
// checkpoints, call budgets and human approval for protected tools.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/n1kko777/sber-agents/internal/domain"
	"github.com/n1kko777/sber-agents/internal/tool"
)

const (
	defaultModelCallLimit   = 20
	defaultToolCallLimit    = 20
	defaultMaxParallelTools = 5
	defaultLLMMaxTokens     = 4096
	defaultTemperature      = 0.3
)

const (
	budgetAnswer   = "К сожалению, я не смог завершить обработку вашего запроса: превышен лимит обращений к инструментам. Попробуйте переформулировать вопрос проще."
	fallbackAnswer = "Извините, произошла техническая ошибка при обработке запроса. Попробуйте повторить вопрос позже."
	rejectedResult = "Пользователь отклонил вызов инструмента."
)

// Loop is the agent engine: receive question → call LLM → execute tools →
// respond, with the whole thread checkpointed at every step boundary.
type Loop struct {
	client           domain.CompletionClient
	tools            *tool.Registry
	store            domain.CheckpointStore
	logger           *slog.Logger
	systemPrompt     string
	model            string
	modelCallLimit   int
	toolCallLimit    int
	maxParallelTools int
}

// LoopConfig holds all dependencies and tuning parameters for the agent loop.
type LoopConfig struct {
	Client           domain.CompletionClient
	Tools            *tool.Registry
	Store            domain.CheckpointStore
	Logger           *slog.Logger
	SystemPrompt     string
	Model            string
	ModelCallLimit   int
	ToolCallLimit    int
	MaxParallelTools int
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.ModelCallLimit <= 0 {
		cfg.ModelCallLimit = defaultModelCallLimit
	}
	if cfg.ToolCallLimit <= 0 {
		cfg.ToolCallLimit = defaultToolCallLimit
	}
	if cfg.MaxParallelTools <= 0 {
		cfg.MaxParallelTools = defaultMaxParallelTools
	}
	return &Loop{
		client:           cfg.Client,
		tools:            cfg.Tools,
		store:            cfg.Store,
		logger:           cfg.Logger,
		systemPrompt:     cfg.SystemPrompt,
		model:            cfg.Model,
		modelCallLimit:   cfg.ModelCallLimit,
		toolCallLimit:    cfg.ToolCallLimit,
		maxParallelTools: cfg.MaxParallelTools,
	}
}

// Result is the outcome of one Ask or Resume: either a final answer with the
// sources it was grounded on, or a pending interrupt awaiting a human
// decision.
type Result struct {
	Answer    string
	Documents []domain.SourceRef
	Interrupt *domain.InterruptRequest
}

// Ask starts a new run on the thread: appends the user turn, resets the call
// budgets and drives the loop until an answer or an interrupt. A thread with
// a pending interrupt cannot accept new questions; it must be resumed first.
func (l *Loop) Ask(ctx context.Context, threadID, question string) (*Result, error) {
	thread, err := l.store.Get(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	if thread == nil {
		thread = &domain.Thread{ID: threadID}
	}
	if thread.PendingInterrupt != nil {
		return nil, &domain.InterruptProtocolError{
			ThreadID: threadID,
			Detail:   "thread has a pending interrupt, resume it before asking",
		}
	}

	thread.Turns = append(thread.Turns, domain.Turn{Role: domain.RoleUser, Content: question})
	thread.ModelCalls = 0
	thread.ToolCalls = 0
	if err := l.checkpoint(ctx, thread); err != nil {
		return nil, err
	}
	return l.run(ctx, thread)
}

// Resume applies a human decision to the thread's pending interrupt and
// continues the run. The deferred tool batch is re-read from the last
// assistant turn so the checkpoint alone fully determines what happens next.
// On reject, a non-empty reason is appended to the synthetic tool result so
// the model can explain the refusal to the user.
func (l *Loop) Resume(ctx context.Context, threadID string, decision domain.InterruptDecision, reason string) (*Result, error) {
	thread, err := l.store.Get(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	if thread == nil || thread.PendingInterrupt == nil {
		return nil, &domain.InterruptProtocolError{
			ThreadID: threadID,
			Detail:   "no pending interrupt to resume",
		}
	}
	interrupt := thread.PendingInterrupt
	if !interrupt.Allows(decision) {
		return nil, &domain.InterruptProtocolError{
			ThreadID: threadID,
			Detail:   fmt.Sprintf("decision %q not allowed for interrupt %s", decision, interrupt.ID),
		}
	}

	batch := lastToolCallBatch(thread.Turns)
	if len(batch) == 0 {
		return nil, &domain.InterruptProtocolError{
			ThreadID: threadID,
			Detail:   "pending interrupt without a deferred tool batch",
		}
	}

	thread.PendingInterrupt = nil
	l.logger.Info("interrupt resolved",
		"thread", threadID,
		"interrupt", interrupt.ID,
		"tool", interrupt.ToolName,
		"decision", decision,
	)

	results := l.executeBatch(ctx, batch, decision == domain.DecisionReject, reason)
	thread.ToolCalls += len(batch)
	thread.Turns = append(thread.Turns, results...)
	if err := l.checkpoint(ctx, thread); err != nil {
		return nil, err
	}
	return l.run(ctx, thread)
}

// run drives model and tool steps until a terminal state. The thread is
// checkpointed after every step so a crash resumes from the last boundary.
func (l *Loop) run(ctx context.Context, thread *domain.Thread) (*Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if thread.ModelCalls >= l.modelCallLimit {
			return l.finishOverBudget(ctx, thread, &domain.BudgetExceededError{
				Kind: "model", Calls: thread.ModelCalls, Limit: l.modelCallLimit,
			})
		}

		resp, err := l.client.Chat(ctx, domain.ChatRequest{
			Model:       l.model,
			Messages:    l.withSystemPrompt(thread.Turns),
			Tools:       l.tools.GetDefinitions(),
			MaxTokens:   defaultLLMMaxTokens,
			Temperature: defaultTemperature,
		})
		thread.ModelCalls++
		if err != nil {
			l.logger.Error("model call failed", "thread", thread.ID, "error", err)
			thread.Turns = append(thread.Turns, domain.Turn{Role: domain.RoleAssistant, Content: fallbackAnswer})
			if cerr := l.checkpoint(ctx, thread); cerr != nil {
				return nil, cerr
			}
			return &Result{Answer: fallbackAnswer}, nil
		}

		thread.Turns = append(thread.Turns, domain.Turn{
			Role:      domain.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		if err := l.checkpoint(ctx, thread); err != nil {
			return nil, err
		}

		if !resp.HasToolCalls() {
			return l.finish(thread, resp.Content), nil
		}

		if thread.ToolCalls >= l.toolCallLimit {
			thread.Turns = append(thread.Turns, skippedResults(resp.ToolCalls)...)
			return l.finishOverBudget(ctx, thread, &domain.BudgetExceededError{
				Kind: "tool", Calls: thread.ToolCalls, Limit: l.toolCallLimit,
			})
		}

		if interrupt := l.findProtected(resp.ToolCalls); interrupt != nil {
			thread.PendingInterrupt = interrupt
			if err := l.checkpoint(ctx, thread); err != nil {
				return nil, err
			}
			l.logger.Info("protected tool deferred",
				"thread", thread.ID,
				"interrupt", interrupt.ID,
				"tool", interrupt.ToolName,
			)
			return &Result{Interrupt: interrupt}, nil
		}

		results := l.executeBatch(ctx, resp.ToolCalls, false, "")
		thread.ToolCalls += len(resp.ToolCalls)
		thread.Turns = append(thread.Turns, results...)
		if err := l.checkpoint(ctx, thread); err != nil {
			return nil, err
		}
	}
}

// findProtected returns an interrupt for the first protected call in the
// batch, or nil. One protected call defers the whole batch; the siblings run
// together with it after the decision.
func (l *Loop) findProtected(calls []domain.ToolCall) *domain.InterruptRequest {
	for _, tc := range calls {
		if l.tools.Protected(tc.Name) {
			return &domain.InterruptRequest{
				ID:               uuid.NewString(),
				ToolName:         tc.Name,
				ToolArgs:         tc.Arguments,
				AllowedDecisions: []domain.InterruptDecision{domain.DecisionApprove, domain.DecisionReject},
			}
		}
	}
	return nil
}

// executeBatch runs the calls with bounded concurrency and returns tool turns
// in request order. With rejected set, protected calls are answered with a
// rejection message (plus the user's reason, when given) instead of
// executing; unprotected siblings still run.
func (l *Loop) executeBatch(ctx context.Context, calls []domain.ToolCall, rejected bool, reason string) []domain.Turn {
	rejection := rejectedResult
	if reason != "" {
		rejection = fmt.Sprintf("%s Причина: %s", rejectedResult, reason)
	}

	results := make([]domain.Turn, len(calls))
	sem := make(chan struct{}, l.maxParallelTools)
	var wg sync.WaitGroup

	for i, tc := range calls {
		if rejected && l.tools.Protected(tc.Name) {
			results[i] = domain.Turn{
				Role:       domain.RoleTool,
				Content:    rejection,
				ToolCallID: tc.ID,
				ToolName:   tc.Name,
			}
			continue
		}

		wg.Add(1)
		go func(idx int, tc domain.ToolCall) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			started := time.Now()
			result, err := l.tools.Execute(ctx, tc.Name, tc.Arguments)
			if err != nil {
				l.logger.Warn("tool failed", "tool", tc.Name, "error", err)
				result = fmt.Sprintf("Error executing tool %s: %s", tc.Name, err.Error())
			}
			l.logger.Debug("tool executed", "tool", tc.Name, "duration", time.Since(started))
			results[idx] = domain.Turn{
				Role:       domain.RoleTool,
				Content:    result,
				ToolCallID: tc.ID,
				ToolName:   tc.Name,
			}
		}(i, tc)
	}
	wg.Wait()
	return results
}

func (l *Loop) finish(thread *domain.Thread, answer string) *Result {
	docs := ExtractDocuments(thread.Turns, l.logger)
	for i := range docs {
		docs[i].Text = MaskCards(docs[i].Text)
	}
	return &Result{
		Answer:    MaskCards(answer),
		Documents: docs,
	}
}

// finishOverBudget ends the run with a polite refusal instead of an error.
// The refusal is recorded as the assistant's turn so the history stays
// well-formed.
func (l *Loop) finishOverBudget(ctx context.Context, thread *domain.Thread, cause *domain.BudgetExceededError) (*Result, error) {
	l.logger.Warn("run terminated", "thread", thread.ID, "cause", cause)
	thread.Turns = append(thread.Turns, domain.Turn{Role: domain.RoleAssistant, Content: budgetAnswer})
	if err := l.checkpoint(ctx, thread); err != nil {
		return nil, err
	}
	return l.finish(thread, budgetAnswer), nil
}

func (l *Loop) withSystemPrompt(turns []domain.Turn) []domain.Turn {
	messages := make([]domain.Turn, 0, len(turns)+1)
	messages = append(messages, domain.Turn{Role: domain.RoleSystem, Content: l.systemPrompt})
	return append(messages, turns...)
}

func (l *Loop) checkpoint(ctx context.Context, thread *domain.Thread) error {
	thread.UpdatedAt = time.Now().UTC()
	if err := l.store.Put(ctx, thread); err != nil {
		return fmt.Errorf("checkpoint thread %s: %w", thread.ID, err)
	}
	return nil
}

// skippedResults answers every call in the batch with a skip notice so the
// tool turns stay paired with the assistant's tool calls.
func skippedResults(calls []domain.ToolCall) []domain.Turn {
	turns := make([]domain.Turn, 0, len(calls))
	for _, tc := range calls {
		turns = append(turns, domain.Turn{
			Role:       domain.RoleTool,
			Content:    "skipped: tool call budget exceeded",
			ToolCallID: tc.ID,
			ToolName:   tc.Name,
		})
	}
	return turns
}

// lastToolCallBatch returns the tool calls of the most recent assistant turn
// that requested any.
func lastToolCallBatch(turns []domain.Turn) []domain.ToolCall {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == domain.RoleAssistant && len(turns[i].ToolCalls) > 0 {
			return turns[i].ToolCalls
		}
	}
	return nil
}
