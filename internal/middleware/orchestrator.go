// Package middleware exposes the two-phase conversational middleware façade:
// PreProcess before the external generation call, PostProcess after it. The
// orchestrator composes the memory store, relevance engine, style classifier,
// prompt builder and response validators, and emits per-turn telemetry.
package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fmattioli/socrates/internal/memory"
	"github.com/fmattioli/socrates/internal/observability"
	"github.com/fmattioli/socrates/internal/policy"
	"github.com/fmattioli/socrates/internal/prompt"
	"github.com/fmattioli/socrates/internal/retrieval"
	"github.com/fmattioli/socrates/internal/style"
	"github.com/fmattioli/socrates/internal/validate"
)

// minTurnsForClaimCheck stops the claim validator from firing on a
// conversation's first exchange, where the user's own message would be the
// only history a claim could be checked against.
const minTurnsForClaimCheck = 2

// fallbackResponse replaces a reply when multiple independent corrections
// were needed; a compounded half-fixed reply is worse than a safe menu.
const fallbackResponse = "I want to be careful not to give you a muddled answer here. " +
	"What would help most right now?\n" +
	"1. A quick summary of where we are\n" +
	"2. A step-by-step walkthrough\n" +
	"3. A more detailed explanation"

// Options wires the orchestrator's collaborators. Gate and Sink are required;
// Profiles is opt-in and may be nil.
type Options struct {
	Capacity   int
	WindowSize int
	MaxResults int
	Gate       policy.Gate
	Sink       observability.Sink
	Metrics    *observability.Metrics
	Window     *observability.StageWindow
	Profiles   style.ProfileStore
}

// PreProcessResult carries everything the caller needs to invoke the external
// generator.
type PreProcessResult struct {
	TurnID string
	Bundle prompt.ContextBundle
}

// PostProcessResult is the validated final reply plus its telemetry.
type PostProcessResult struct {
	FinalText    string
	Findings     []validate.Finding
	UsedFallback bool
	Telemetry    observability.TelemetryRecord
}

type conversation struct {
	store      *memory.ConversationStore
	classifier *style.Classifier
	// turnStartedAt spans one pre/post cycle; per-conversation turns are
	// serialized by the caller.
	turnStartedAt time.Time
}

// Orchestrator holds no domain logic of its own; it delegates to the owned
// per-conversation state and the injected collaborators, so it can be
// recreated freely.
type Orchestrator struct {
	arena   *memory.Arena
	engine  *retrieval.Engine
	builder *prompt.Builder
	claims  *validate.MemoryClaimValidator
	math    *validate.MathValidator
	opts    Options

	mu    sync.RWMutex
	convs map[string]*conversation
}

func New(opts Options) *Orchestrator {
	if opts.Gate == nil {
		opts.Gate = policy.AllEnabled()
	}
	if opts.Sink == nil {
		opts.Sink = observability.NopSink{}
	}
	engine := retrieval.NewEngine(opts.MaxResults)
	return &Orchestrator{
		arena:   memory.NewArena(opts.Capacity),
		engine:  engine,
		builder: prompt.NewBuilder(engine, opts.WindowSize),
		claims:  validate.NewMemoryClaimValidator(),
		math:    validate.NewMathValidator(),
		opts:    opts,
		convs:   make(map[string]*conversation),
	}
}

// NewConversation registers a conversation and its owned store. Calling it
// again with a known ID is a no-op returning the existing state.
func (o *Orchestrator) NewConversation(conversationID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.convs[conversationID]; ok {
		return
	}
	o.convs[conversationID] = &conversation{
		store:      o.arena.Create(conversationID),
		classifier: style.NewClassifier(),
	}
	if o.opts.Metrics != nil {
		o.opts.Metrics.ActiveConversations.Set(float64(len(o.convs)))
	}
}

// Clear empties a conversation's turn log, topic table and style signal
// without discarding the conversation itself.
func (o *Orchestrator) Clear(conversationID string) error {
	conv, err := o.get(conversationID)
	if err != nil {
		return err
	}
	conv.store.Clear()
	conv.classifier.Reset()
	return nil
}

// End discards a conversation entirely. Content is never persisted.
func (o *Orchestrator) End(conversationID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.convs[conversationID]; !ok {
		return memory.ErrConversationNotFound
	}
	delete(o.convs, conversationID)
	_ = o.arena.Remove(conversationID)
	if o.opts.Metrics != nil {
		o.opts.Metrics.ActiveConversations.Set(float64(len(o.convs)))
	}
	return nil
}

// ActiveCount returns the number of live conversations.
func (o *Orchestrator) ActiveCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.convs)
}

// PreProcess records the user turn, updates the style estimate and assembles
// the context bundle for the external generation call. Once the user turn is
// appended it stays recorded even if the turn is later abandoned.
func (o *Orchestrator) PreProcess(ctx context.Context, userID, conversationID, message string) (PreProcessResult, error) {
	conv, err := o.get(conversationID)
	if err != nil {
		return PreProcessResult{}, err
	}
	started := time.Now()
	conv.turnStartedAt = started

	text := message
	redacted := false
	if o.opts.Gate.IsEnabled(policy.FeaturePIIRedaction, userID) {
		text, redacted = policy.RedactPII(message)
	}

	dominant := style.Undetermined
	if o.opts.Gate.IsEnabled(policy.FeatureStyleAdaptation, userID) {
		o.restoreProfile(ctx, userID, conv)
		conv.classifier.Observe(text)
		dominant = conv.classifier.DominantStyle()
	}

	// The bundle is built before the new turn is appended so retrieval and the
	// recent window reflect prior history, not the message being answered.
	var bundle prompt.ContextBundle
	if o.opts.Gate.IsEnabled(policy.FeatureMemoryContext, userID) {
		bundle = o.builder.Build(conv.store, text, dominant)
	} else {
		bundle = prompt.ContextBundle{DominantStyle: dominant}
	}

	turn := conv.store.Append(memory.Turn{
		ID:          uuid.NewString(),
		Role:        memory.RoleUser,
		Text:        text,
		PIIRedacted: redacted,
	})

	if o.opts.Metrics != nil {
		o.opts.Metrics.TurnEvents.WithLabelValues("preprocess").Inc()
	}
	if o.opts.Window != nil {
		o.opts.Window.Observe(observability.StagePreProcess,
			float64(time.Since(started).Microseconds())/1000)
	}
	return PreProcessResult{TurnID: turn.ID, Bundle: bundle}, nil
}

// PostProcess validates the generated reply, corrects or replaces it, records
// the final assistant turn and emits telemetry. The two validators only read
// state and are independent, so they run concurrently.
func (o *Orchestrator) PostProcess(ctx context.Context, userID, conversationID, turnID, generatedText string) (PostProcessResult, error) {
	conv, err := o.get(conversationID)
	if err != nil {
		return PostProcessResult{}, err
	}
	started := time.Now()

	var (
		claimText     string
		claimFindings []validate.Finding
		mathText      string
		mathFindings  []validate.Finding
	)

	runClaims := o.opts.Gate.IsEnabled(policy.FeatureMemoryClaimCheck, userID) &&
		conv.store.Len() >= minTurnsForClaimCheck
	runMath := o.opts.Gate.IsEnabled(policy.FeatureMathCheck, userID)

	var wg sync.WaitGroup
	if runClaims {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimText, claimFindings = o.claims.Validate(generatedText, conv.store)
		}()
	} else {
		claimText = generatedText
	}
	if runMath {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mathText, mathFindings = o.math.Validate(generatedText)
		}()
	} else {
		mathText = generatedText
	}
	wg.Wait()

	findings := append(claimFindings, mathFindings...)
	finalText := mergeCorrections(generatedText, claimText, mathText)

	usedFallback := false
	if validate.Corrections(findings) >= 2 {
		finalText = fallbackResponse
		usedFallback = true
		slog.Info("response replaced with fallback",
			"conversation_id", conversationID,
			"corrections", validate.Corrections(findings))
	}

	conv.store.Append(memory.Turn{
		Role: memory.RoleAssistant,
		Text: finalText,
	})

	o.persistProfile(ctx, userID, conv)

	latency := time.Since(conv.turnStartedAt)
	rec := observability.TelemetryRecord{
		ConversationID: conversationID,
		TurnID:         turnID,
		Findings:       findings,
		StyleSnapshot:  conv.classifier.Confidences(),
		LatencyMS:      float64(latency.Microseconds()) / 1000,
		UsedFallback:   usedFallback,
		CreatedAt:      time.Now().UTC(),
	}
	o.opts.Sink.Record(rec)

	if o.opts.Metrics != nil {
		o.opts.Metrics.TurnEvents.WithLabelValues("postprocess").Inc()
	}
	if o.opts.Window != nil {
		o.opts.Window.Observe(observability.StagePostProcess,
			float64(time.Since(started).Microseconds())/1000)
	}

	return PostProcessResult{
		FinalText:    finalText,
		Findings:     findings,
		UsedFallback: usedFallback,
		Telemetry:    rec,
	}, nil
}

// mergeCorrections combines the claim validator's in-place rewrites with the
// math validator's appended correction block. The math block is independent
// of the claim rewrites, so the merge stays in textual order.
func mergeCorrections(original, claimText, mathText string) string {
	out := claimText
	if len(mathText) > len(original) {
		out += mathText[len(original):]
	}
	return out
}

func (o *Orchestrator) get(conversationID string) (*conversation, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	conv, ok := o.convs[conversationID]
	if !ok {
		return nil, memory.ErrConversationNotFound
	}
	return conv, nil
}

// restoreProfile seeds the classifier from the opt-in profile store once per
// conversation. Absence of the store, or any store error, changes nothing.
func (o *Orchestrator) restoreProfile(ctx context.Context, userID string, conv *conversation) {
	if o.opts.Profiles == nil || conv.classifier.Observed() {
		return
	}
	if !o.opts.Gate.IsEnabled(policy.FeatureProfileSync, userID) {
		return
	}
	profile, err := o.opts.Profiles.Get(ctx, userID)
	if err != nil {
		return
	}
	conv.classifier.Restore(profile)
}

func (o *Orchestrator) persistProfile(ctx context.Context, userID string, conv *conversation) {
	if o.opts.Profiles == nil || !conv.classifier.Observed() {
		return
	}
	if !o.opts.Gate.IsEnabled(policy.FeatureProfileSync, userID) {
		return
	}
	if err := o.opts.Profiles.Put(ctx, userID, conv.classifier.Confidences()); err != nil {
		slog.Debug("style profile sync failed", "user_id", userID, "error", err)
	}
}
