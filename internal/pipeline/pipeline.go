package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"slack-summarizer/internal/extract"
	"slack-summarizer/internal/llm"
	"slack-summarizer/internal/parser"
	"slack-summarizer/internal/prompt"
	"slack-summarizer/internal/summary"
)

// DefaultMinChars is the shortest extracted text, in characters, worth a model call.
const DefaultMinChars = 50

// Stage names one step of a run.
type Stage string

const (
	StageValidated    Stage = "validated"
	StageExtracting   Stage = "extracting"
	StagePrompting    Stage = "prompting"
	StageModelCalling Stage = "model_calling"
	StageParsing      Stage = "parsing"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// Runner turns a summary request into a result.
type Runner interface {
	Run(ctx context.Context, req summary.Request) (summary.Result, error)
}

// Pipeline runs extract, prompt, model call and parse in order for one request.
// It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	extractor extract.Extractor
	model     llm.Client
	log       *slog.Logger
	minChars  int
}

// New builds a Pipeline. minChars <= 0 selects DefaultMinChars.
func New(extractor extract.Extractor, model llm.Client, log *slog.Logger, minChars int) *Pipeline {
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	return &Pipeline{
		extractor: extractor,
		model:     model,
		log:       log,
		minChars:  minChars,
	}
}

// Run executes the stages for req. Every error it returns is a *summary.Error.
func (p *Pipeline) Run(ctx context.Context, req summary.Request) (summary.Result, error) {
	log := p.log.With("request_id", req.ID.String(), "url", req.URL)
	log.Debug("pipeline stage", "stage", StageValidated)

	res, err := p.run(ctx, req, log)
	if err != nil {
		log.Debug("pipeline stage", "stage", StageFailed, "kind", summary.KindOf(err), "err", err)
		return summary.Result{}, err
	}
	log.Debug("pipeline stage", "stage", StageDone, "keywords", len(res.Keywords))
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, req summary.Request, log *slog.Logger) (summary.Result, error) {
	log.Debug("pipeline stage", "stage", StageExtracting)
	content, err := p.extractor.Extract(ctx, req.URL)
	if err != nil {
		if summary.KindOf(err) == "" {
			err = summary.Wrap(summary.ExtractionFailed, "extract content", err)
		}
		return summary.Result{}, err
	}
	if n := content.Length(); n < p.minChars {
		return summary.Result{}, summary.Fail(summary.ContentTooShort,
			fmt.Sprintf("extracted %d characters, need at least %d", n, p.minChars))
	}

	log.Debug("pipeline stage", "stage", StagePrompting, "chars", content.Length(), "truncated", content.Truncated)
	built := prompt.Build(content)

	log.Debug("pipeline stage", "stage", StageModelCalling)
	reply, err := p.complete(ctx, built)
	if err != nil {
		return summary.Result{}, summary.Wrap(summary.ModelCallFailed, "model call", err)
	}

	log.Debug("pipeline stage", "stage", StageParsing, "reply_chars", len(reply))
	return parser.Parse(parser.TextReply(reply))
}

// complete makes the single model call, turning a panic in the client into an error.
func (p *Pipeline) complete(ctx context.Context, req prompt.Request) (reply string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("model client panic: %v", rec)
		}
	}()
	return p.model.Complete(ctx, req)
}
