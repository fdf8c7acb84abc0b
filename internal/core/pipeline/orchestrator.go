package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"recipe-agents/internal/core/ai/provider"
	"recipe-agents/internal/core/prompt"
	"recipe-agents/internal/core/sanitize"
	"recipe-agents/internal/infrastructure/config"
	"recipe-agents/internal/pkg/common"

	"go.uber.org/zap"
)

// Orchestrator 執行已註冊的管線，建立後只持有唯讀設定
type Orchestrator struct {
	gen       Generator
	catalogue *prompt.Catalogue
	stages    map[string]config.StageConfig
	pipelines map[string]*Pipeline
}

// Option 設定 Orchestrator
type Option func(*Orchestrator)

// WithStageConfig 各階段的模型設定
func WithStageConfig(stages map[string]config.StageConfig) Option {
	return func(o *Orchestrator) {
		for name, sc := range stages {
			o.stages[name] = sc
		}
	}
}

// NewOrchestrator 註冊管線並檢查每個階段的模板都存在
func NewOrchestrator(gen Generator, catalogue *prompt.Catalogue, pipelines []*Pipeline, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		gen:       gen,
		catalogue: catalogue,
		stages:    make(map[string]config.StageConfig),
		pipelines: make(map[string]*Pipeline, len(pipelines)),
	}
	for _, opt := range opts {
		opt(o)
	}

	for _, p := range pipelines {
		if p.Name == "" {
			return nil, errors.New("pipeline name is required")
		}
		if _, dup := o.pipelines[p.Name]; dup {
			return nil, fmt.Errorf("pipeline %s registered twice", p.Name)
		}
		if len(p.Stages) == 0 {
			return nil, fmt.Errorf("pipeline %s has no stages", p.Name)
		}
		for _, st := range p.Stages {
			if _, err := catalogue.Get(st.templateName()); err != nil {
				return nil, fmt.Errorf("pipeline %s stage %s: %w", p.Name, st.Name, err)
			}
			if st.Bind == nil {
				return nil, fmt.Errorf("pipeline %s stage %s: missing bind function", p.Name, st.Name)
			}
			if st.Output == OutputJSON && st.Decode == nil {
				return nil, fmt.Errorf("pipeline %s stage %s: json stage needs a decoder", p.Name, st.Name)
			}
		}
		o.pipelines[p.Name] = p
	}
	return o, nil
}

// Names 已註冊的管線名稱
func (o *Orchestrator) Names() []string {
	names := make([]string, 0, len(o.pipelines))
	for name := range o.pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type runIDKey struct{}

// WithRunID 指定執行編號，例如沿用 HTTP 請求 ID
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func runIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok && id != "" {
		return id
	}
	return common.GenerateUUID()
}

// Run 執行管線。驗證失敗時不會發出任何生成呼叫；
// 任一階段失敗即中止，返回的 *Error 帶有失敗階段與已完成的稽核紀錄。
func (o *Orchestrator) Run(ctx context.Context, name string, payload Payload) (*Result, error) {
	p, ok := o.pipelines[name]
	if !ok {
		return nil, invalidRequest(name, []string{fmt.Sprintf("unknown pipeline %q", name)})
	}

	start := time.Now()
	rc := newRunContext(runIDFrom(ctx), name)
	if problems := p.seed(rc, payload); len(problems) > 0 {
		common.LogWarn("Pipeline request rejected",
			zap.String("run_id", rc.RunID),
			zap.String("pipeline", name),
			zap.Strings("problems", problems),
		)
		err := invalidRequest(name, problems)
		err.RunID = rc.RunID
		return nil, err
	}

	if p.Seed != nil {
		p.Seed(ctx, rc)
	}

	audit := make([]AuditEntry, 0, len(p.Stages))
	for _, st := range p.Stages {
		entry, err := o.runStage(ctx, rc, st)
		if err != nil {
			err.RunID = rc.RunID
			err.Pipeline = name
			err.Audit = audit
			common.LogError("管線階段失敗",
				zap.String("run_id", rc.RunID),
				zap.String("pipeline", name),
				zap.String("stage", st.Name),
				zap.String("kind", string(err.Kind)),
				zap.String("raw", err.Raw),
				zap.Error(err.Err),
			)
			return nil, err
		}
		audit = append(audit, entry)
	}

	var value any
	if p.Finish != nil {
		value = p.Finish(rc)
	}

	result := &Result{
		RunID:    rc.RunID,
		Pipeline: name,
		Value:    value,
		Audit:    audit,
		Warnings: rc.Warnings(),
		Duration: time.Since(start),
	}

	common.LogInfo("管線完成",
		zap.String("run_id", rc.RunID),
		zap.String("pipeline", name),
		zap.Int("stages", len(audit)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

func (o *Orchestrator) runStage(ctx context.Context, rc *RunContext, st Stage) (AuditEntry, *Error) {
	start := time.Now()
	common.LogDebug("Stage started",
		zap.String("run_id", rc.RunID),
		zap.String("pipeline", rc.Pipeline),
		zap.String("stage", st.Name),
	)

	tmpl, err := o.catalogue.Get(st.templateName())
	if err != nil {
		return AuditEntry{}, &Error{Kind: KindInternal, Stage: st.Name, Err: err}
	}
	rendered, err := tmpl.Render(st.Bind(rc))
	if err != nil {
		return AuditEntry{}, &Error{Kind: KindInternal, Stage: st.Name, Message: "prompt rendering failed", Err: err}
	}

	sc := o.stages[st.Name]
	raw, err := o.gen.Invoke(ctx, provider.Invocation{
		Stage:       st.Name,
		Prompt:      rendered,
		Model:       sc.Model,
		Temperature: sc.Temperature,
		MaxTokens:   sc.MaxTokens,
	})
	if err != nil {
		return AuditEntry{}, &Error{Kind: KindGenerativeCall, Stage: st.Name, Message: "generative call failed", Err: err}
	}

	value, cleaned, err := sanitizeOutput(st, raw)
	if err != nil {
		return AuditEntry{}, &Error{Kind: KindMalformedOutput, Stage: st.Name, Message: "output does not match the stage contract", Raw: raw, Err: err}
	}

	if st.Fold != nil {
		st.Fold(rc, value)
	} else {
		rc.Data[st.Name] = value
	}

	duration := time.Since(start)
	common.LogInfo("Stage completed",
		zap.String("run_id", rc.RunID),
		zap.String("pipeline", rc.Pipeline),
		zap.String("stage", st.Name),
		zap.String("output_contract", st.Output.String()),
		zap.Duration("duration", duration),
	)

	return AuditEntry{
		Stage:      st.Name,
		Prompt:     rendered,
		Output:     cleaned,
		Raw:        raw,
		Model:      sc.Model,
		DurationMS: duration.Milliseconds(),
	}, nil
}

// sanitizeOutput 依輸出約定清理生成結果，同時返回寫入稽核紀錄的清理後文字
func sanitizeOutput(st Stage, raw string) (any, string, error) {
	if st.Output == OutputJSON {
		value, err := st.Decode(raw)
		if err != nil {
			var mo *sanitize.MalformedOutputError
			if !errors.As(err, &mo) {
				err = &sanitize.MalformedOutputError{Raw: raw, Err: err}
			}
			return nil, "", err
		}
		return value, sanitize.SplitFence(raw).Body, nil
	}

	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, "", &sanitize.MalformedOutputError{Raw: raw, Err: sanitize.ErrEmptyOutput}
	}
	return text, text, nil
}
