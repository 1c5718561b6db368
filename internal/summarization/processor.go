package summarization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"briefcast/internal/artifacts"
	"briefcast/internal/config"
	"briefcast/internal/fileutil"
	"briefcast/internal/logging"
	"briefcast/internal/services"
	"briefcast/internal/services/llm"
	"briefcast/internal/stage"
	"briefcast/internal/textutil"
)

// budgetMargin is held back from the model's input window for message
// framing.
const budgetMargin = 64

// Completer runs one chat completion.
type Completer interface {
	Complete(ctx context.Context, system, user, model string) (llm.Completion, error)
}

// Processor summarizes transcribed jobs.
type Processor struct {
	client        Completer
	prompts       config.Prompts
	model         config.ModelInfo
	compressLevel int
	layout        artifacts.Layout
	logger        *slog.Logger
}

// Options configures a Processor.
type Options struct {
	Model         string
	CompressLevel int
	Layout        artifacts.Layout
	Logger        *slog.Logger
}

// NewProcessor wires the completion client and prompt templates.
func NewProcessor(client Completer, prompts config.Prompts, opts Options) *Processor {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Processor{
		client:        client,
		prompts:       prompts,
		model:         config.LookupModel(opts.Model),
		compressLevel: opts.CompressLevel,
		layout:        opts.Layout,
		logger:        logging.NewComponentLogger(logger, "summarizer"),
	}
}

// Process implements workflow.Processor.
func (p *Processor) Process(ctx context.Context, _ struct{}, job stage.Job) stage.Result {
	if !job.Transcribed {
		return stage.Failure(job, services.Wrap(services.ErrValidation, "summarize", "precondition", "entry is not transcribed", nil))
	}
	if err := p.summarize(ctx, job.VideoID); err != nil {
		return stage.Failure(job, err)
	}
	return stage.Success(job.WithSummarized())
}

func (p *Processor) summarize(ctx context.Context, videoID string) error {
	transcript, err := os.ReadFile(p.layout.WhisperPath(videoID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "summarize", "read transcript", p.layout.WhisperPath(videoID)+" not found", err)
		}
		return fmt.Errorf("read transcript: %w", err)
	}

	outline, err := p.outline(ctx, videoID, string(transcript))
	if err != nil {
		return err
	}

	brief, err := p.complete(ctx, config.PromptBrief, outline)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(p.layout.BriefPath(videoID), []byte(brief), 0o644); err != nil {
		return fmt.Errorf("write brief: %w", err)
	}
	return nil
}

func (p *Processor) outline(ctx context.Context, videoID, transcript string) (string, error) {
	path := p.layout.OutlinePath(videoID)
	if existing, err := os.ReadFile(path); err == nil {
		p.logger.Debug("reusing outline", logging.String(logging.FieldVideoID, videoID))
		return string(existing), nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read outline: %w", err)
	}

	budget := p.model.MaxInput - textutil.EstimateTokens(p.system(config.PromptOutlineTrace)) - budgetMargin
	if budget <= 0 {
		return "", services.Wrap(services.ErrConfiguration, "summarize", "token budget",
			fmt.Sprintf("outline prompt leaves no room in %s's %d token window", p.model.Name, p.model.MaxInput), nil)
	}

	chunks := textutil.Chunk(transcript, budget)
	outlines := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		input, tag := chunk, ""
		if len(chunks) > 1 {
			tag = fmt.Sprintf("[Part %d/%d]", i+1, len(chunks))
			input = tag + " segmented input; keep context.\n" + chunk
		}
		resp, err := p.complete(ctx, config.PromptOutlineTrace, input)
		if err != nil {
			return "", err
		}
		if tag != "" {
			resp = tag + "\n" + resp
		}
		outlines = append(outlines, resp)
	}

	outline := strings.Join(outlines, "\n\n")
	if err := fileutil.WriteFileAtomic(path, []byte(outline), 0o644); err != nil {
		return "", fmt.Errorf("write outline: %w", err)
	}
	return outline, nil
}

func (p *Processor) complete(ctx context.Context, prompt, input string) (string, error) {
	completion, err := p.client.Complete(ctx, p.system(prompt), input, p.model.Name)
	if err != nil {
		return "", err
	}
	logging.WithContext(ctx, p.logger).Info(
		"completion finished",
		logging.String("prompt", prompt),
		logging.String("model", completion.Model),
		logging.Int("prompt_tokens", completion.PromptTokens),
		logging.Int("completion_tokens", completion.CompletionTokens),
		logging.Float64("cost", p.model.Cost(completion.PromptTokens, completion.CompletionTokens)),
	)
	return completion.Content, nil
}

// system renders the system prompt for name. Levels below 100 ask for a
// proportionally shorter brief.
func (p *Processor) system(name string) string {
	text := p.prompts.Get(name)
	if name == config.PromptBrief && p.compressLevel > 0 && p.compressLevel < 100 {
		text += fmt.Sprintf("\n\nKeep the brief to roughly %d%% of its usual length.", p.compressLevel)
	}
	return text
}
