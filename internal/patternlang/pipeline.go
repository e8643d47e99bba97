package patternlang

import (
	"fmt"

	"github.com/acmatch/acmatch/internal/term"
)

// PipelineContext threads one compilation unit of pattern-language source
// through the Pipeline's stages, in the shape of the teacher's
// pipeline.PipelineContext: a single mutable bag the processors take turns
// filling in, carrying accumulated errors rather than aborting on the first.
type PipelineContext struct {
	Source     string
	Resolver   ConstraintResolver
	Tokens     []Token
	Expression term.Expression
	Errors     []error
}

// NewPipelineContext returns a context ready to run through a Pipeline.
func NewPipelineContext(source string, resolver ConstraintResolver) *PipelineContext {
	return &PipelineContext{Source: source, Resolver: resolver}
}

// Processor is one pipeline stage.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline runs a fixed sequence of Processors over a PipelineContext.
type Pipeline struct {
	processors []Processor
}

// New returns a Pipeline running processors in order.
func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run drives initialCtx through every stage, continuing past a stage that
// records errors so later stages can still contribute diagnostics.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
	}
	return ctx
}

// LexProcessor tokenizes ctx.Source into ctx.Tokens, for callers that want
// the raw token stream (e.g. a future syntax-highlighting surface) without
// paying for a full parse.
type LexProcessor struct{}

func (LexProcessor) Process(ctx *PipelineContext) *PipelineContext {
	lex := NewLexer(ctx.Source)
	for {
		tok := lex.NextToken()
		ctx.Tokens = append(ctx.Tokens, tok)
		if tok.Type == EOF {
			break
		}
		if tok.Type == ILLEGAL {
			ctx.Errors = append(ctx.Errors, &illegalTokenError{tok})
		}
	}
	return ctx
}

// ParseProcessor parses ctx.Source directly into ctx.Expression, independent
// of whether LexProcessor already ran.
type ParseProcessor struct{}

func (ParseProcessor) Process(ctx *PipelineContext) *PipelineContext {
	expr, err := Parse(ctx.Source, ctx.Resolver)
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}
	ctx.Expression = expr
	return ctx
}

// Compile runs the standard Lex+Parse pipeline over source and returns the
// resulting expression, or the first recorded error.
func Compile(source string, resolver ConstraintResolver) (term.Expression, error) {
	ctx := New(LexProcessor{}, ParseProcessor{}).Run(NewPipelineContext(source, resolver))
	if len(ctx.Errors) > 0 {
		return nil, ctx.Errors[0]
	}
	return ctx.Expression, nil
}

type illegalTokenError struct {
	tok Token
}

func (e *illegalTokenError) Error() string {
	return fmt.Sprintf("patternlang: illegal character %q at line %d, column %d", e.tok.Lexeme, e.tok.Line, e.tok.Column)
}
