package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/lensquery/internal/domain"
	"github.com/vbonduro/lensquery/internal/history"
	"github.com/vbonduro/lensquery/internal/location"
	"github.com/vbonduro/lensquery/internal/summary"
	"github.com/vbonduro/lensquery/internal/textwrap"
	"github.com/vbonduro/lensquery/internal/transport"
	"github.com/vbonduro/lensquery/internal/vision"
)

// ErrInFlight is returned by Trigger while another cycle is running.
var ErrInFlight = errors.New("a query is already in flight")

const (
	DefaultWrapWidth = 40

	framePrefix = "frame"
)

// State is the orchestrator's position in the query cycle.
type State int

const (
	Idle State = iota
	Validating
	Encoding
	Requesting
	Normalizing
	Summarizing
	Publishing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Encoding:
		return "encoding"
	case Requesting:
		return "requesting"
	case Normalizing:
		return "normalizing"
	case Summarizing:
		return "summarizing"
	case Publishing:
		return "publishing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ValidationError lists the inputs a cycle was missing.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing input: " + strings.Join(e.Missing, ", ")
}

// PromptSource is the text component holding the user's question.
type PromptSource interface {
	Text() string
}

// FrameSource supplies the current camera frame, if any.
type FrameSource interface {
	Frame() (image.Image, bool)
}

type LocationReader interface {
	Latest() (location.Fix, bool)
}

// Speaker plays text aloud. Implementations must not block.
type Speaker interface {
	Speak(text string)
}

type Surface interface {
	SetText(text string)
}

type summarizer interface {
	Summarize(ctx context.Context, text string) summary.Summary
}

// cycleJournal is the subset of store.CycleStore the orchestrator requires.
type cycleJournal interface {
	Create(ctx context.Context, c *domain.Cycle) error
}

// frameArchive is the subset of blobstore.Store the orchestrator requires.
type frameArchive interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (string, error)
}

type Config struct {
	Endpoint    vision.Endpoint
	JPEGQuality int
	// RequestTimeout bounds the provider call. Zero means no bound.
	RequestTimeout time.Duration
	WrapWidth      int
}

// Deps are the orchestrator's collaborators. Prompts, Output, Diagnostic,
// Doer and History are required; the rest may be nil.
type Deps struct {
	Prompts    PromptSource
	Frames     FrameSource
	Location   LocationReader
	Speaker    Speaker
	Output     Surface
	Diagnostic Surface
	Doer       transport.Doer
	History    *history.Buffer
	Summarizer summarizer
	Journal    cycleJournal
	Archive    frameArchive
	Logger     *slog.Logger
}

// Outcome describes one finished cycle. Result holds exactly what was
// published; DisplayText and SpokenText are empty when Published is false.
type Outcome struct {
	CycleID   string
	Published bool
	Result    vision.Result
	Err       error
}

// Orchestrator runs at most one query cycle at a time. A Trigger that
// arrives while a cycle is running is dropped, not queued.
type Orchestrator struct {
	cfg  Config
	deps Deps
	log  *slog.Logger

	mu    sync.Mutex
	state State
}

func NewOrchestrator(cfg Config, deps Deps) *Orchestrator {
	if cfg.WrapWidth <= 0 {
		cfg.WrapWidth = DefaultWrapWidth
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = vision.DefaultJPEGQuality
	}
	if deps.History == nil {
		deps.History = history.New(history.DefaultCapacity, "")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{cfg: cfg, deps: deps, log: logger}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) History() *history.Buffer {
	return o.deps.History
}

// cycle accumulates journal metadata while a trigger runs.
type cycle struct {
	id            string
	started       time.Time
	outcome       domain.CycleOutcome
	httpStatus    int
	tokenEstimate int
	frameKey      string
	err           error
	published     bool
}

// Trigger runs one full query cycle on the caller's goroutine and returns
// its outcome. It returns ErrInFlight, without touching any output, when a
// cycle is already running. Cycle failures, including recovered panics, are
// reported in Outcome.Err and on the diagnostic surface, never as a returned
// error.
func (o *Orchestrator) Trigger(ctx context.Context) (out *Outcome, err error) {
	if !o.begin() {
		o.log.Debug("trigger dropped, query already in flight")
		return nil, ErrInFlight
	}
	defer o.finish()

	c := &cycle{id: uuid.NewString(), started: time.Now()}
	out = &Outcome{CycleID: c.id}
	logger := o.log.With("cycle_id", c.id, "provider", o.cfg.Endpoint.Kind.String())

	defer func() {
		if r := recover(); r != nil {
			logger.Error("query cycle panicked", "panic", r)
			perr := fmt.Errorf("unexpected failure: %v", r)
			if c.published {
				// Outputs were already written for this cycle; only the
				// record reflects the failure.
				c.outcome, c.err = domain.OutcomeError, perr
				out.Err = perr
			} else {
				o.safely(logger, "publish failure", func() { o.fail(logger, c, out, perr) })
			}
		}
		o.safely(logger, "record cycle", func() { o.record(ctx, logger, c) })
	}()

	o.run(ctx, logger, c, out)
	return out, nil
}

// safely runs fn and logs instead of propagating a panic from it.
func (o *Orchestrator) safely(logger *slog.Logger, what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("recovered panic", "during", what, "panic", r)
		}
	}()
	fn()
}

func (o *Orchestrator) begin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != Idle {
		return false
	}
	o.state = Validating
	return true
}

func (o *Orchestrator) finish() {
	o.setState(Idle)
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) run(ctx context.Context, logger *slog.Logger, c *cycle, out *Outcome) {
	prompt := ""
	if o.deps.Prompts != nil {
		prompt = strings.TrimSpace(o.deps.Prompts.Text())
	}
	var frame image.Image
	hasFrame := false
	if o.deps.Frames != nil {
		frame, hasFrame = o.deps.Frames.Frame()
		hasFrame = hasFrame && frame != nil
	}
	if err := o.validate(prompt, hasFrame); err != nil {
		o.fail(logger, c, out, err)
		return
	}

	o.setState(Encoding)
	q := vision.Query{Prompt: prompt, History: o.deps.History.PromptContext()}
	if hasFrame {
		enc, err := vision.EncodeJPEG(frame, o.cfg.JPEGQuality)
		if err != nil {
			o.fail(logger, c, out, fmt.Errorf("failed to encode frame: %w", err))
			return
		}
		q.Image = enc.Base64()
		c.frameKey = o.archive(ctx, logger, enc)
	}
	if o.deps.Location != nil {
		if fix, ok := o.deps.Location.Latest(); ok {
			q.Location = &vision.Location{Latitude: fix.Latitude, Longitude: fix.Longitude}
		}
	}

	req, err := vision.BuildRequest(o.cfg.Endpoint, q)
	if err != nil {
		o.fail(logger, c, out, fmt.Errorf("failed to build request: %w", err))
		return
	}
	c.tokenEstimate = vision.EstimateTokens(req.Body)

	o.setState(Requesting)
	resp, err := o.send(ctx, req)
	if err != nil {
		o.fail(logger, c, out, err)
		return
	}
	c.httpStatus = resp.StatusCode
	if err := resp.Err(); err != nil {
		o.fail(logger, c, out, err)
		return
	}

	o.setState(Normalizing)
	result, err := vision.Normalize(req, resp.Body)
	if err != nil {
		o.fail(logger, c, out, fmt.Errorf("failed to read response: %w", err))
		return
	}

	text := result.DisplayText
	diagnostic := result.Diagnostic
	if o.deps.Summarizer != nil {
		o.setState(Summarizing)
		s := o.summarize(ctx, text)
		if s.SummaryOnly != "" {
			text = s.SummaryOnly
			diagnostic = result.Diagnostic + "\n\n" + s.FullText
		}
	}

	o.setState(Publishing)
	c.outcome = domain.OutcomeSuccess
	out.Result = vision.Result{DisplayText: text, SpokenText: text, Diagnostic: diagnostic}

	// From the first surface write on, a panic must not publish again.
	c.published = true
	out.Published = true
	o.deps.Output.SetText(textwrap.Wrap(text, o.cfg.WrapWidth))
	o.deps.Diagnostic.SetText(diagnostic)
	o.deps.History.Append(prompt, text)
	if o.deps.Speaker != nil {
		o.safely(logger, "speak", func() { o.deps.Speaker.Speak(text) })
	}

	logger.Info("query cycle complete", "http_status", c.httpStatus, "token_estimate", c.tokenEstimate)
}

func (o *Orchestrator) validate(prompt string, hasFrame bool) error {
	var missing []string
	if prompt == "" {
		missing = append(missing, "prompt")
	}
	kind := o.cfg.Endpoint.Kind
	if kind.RequiresImage() && !hasFrame {
		missing = append(missing, "image")
	}
	if kind.RequiresKey() && strings.TrimSpace(o.cfg.Endpoint.APIKey) == "" {
		missing = append(missing, "API key")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// bounded applies the configured request timeout to ctx.
func (o *Orchestrator) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, o.cfg.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

func (o *Orchestrator) summarize(ctx context.Context, text string) summary.Summary {
	ctx, cancel := o.bounded(ctx)
	defer cancel()
	return o.deps.Summarizer.Summarize(ctx, text)
}

func (o *Orchestrator) send(ctx context.Context, req *vision.Request) (*transport.Response, error) {
	ctx, cancel := o.bounded(ctx)
	defer cancel()
	return o.deps.Doer.Do(ctx, &transport.Request{
		Method: req.Method,
		URL:    req.URL,
		Header: req.Header,
		Body:   req.Body,
	})
}

// archive stores the encoded frame and returns its key, or "" when no
// archive is configured or saving fails.
func (o *Orchestrator) archive(ctx context.Context, logger *slog.Logger, enc *vision.EncodedImage) string {
	if o.deps.Archive == nil {
		return ""
	}
	key, err := o.deps.Archive.Save(ctx, framePrefix, enc.MIMEType, bytes.NewReader(enc.Data))
	if err != nil {
		logger.Warn("failed to archive frame", "error", err)
		return ""
	}
	return key
}

// fail publishes a failure. The primary text and history are left alone.
func (o *Orchestrator) fail(logger *slog.Logger, c *cycle, out *Outcome, err error) {
	o.setState(Publishing)

	diagnostic := FailureDiagnostic(err)
	c.err = err
	c.outcome = outcomeFor(err)
	out.Published = false
	out.Err = err
	out.Result = vision.Result{Diagnostic: diagnostic}
	logger.Warn("query cycle failed", "outcome", string(c.outcome), "error", err)

	o.deps.Diagnostic.SetText(diagnostic)
}

// FailureDiagnostic renders err as the text shown on the diagnostic surface.
func FailureDiagnostic(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return "Missing input: " + strings.Join(verr.Missing, ", ")
	}
	var serr *transport.StatusError
	if errors.As(err, &serr) {
		return fmt.Sprintf("Error (HTTP %d)\n\nThe request failed. Please try again or check your connection.", serr.StatusCode)
	}
	return "Error\n\nSomething went wrong: " + err.Error()
}

func outcomeFor(err error) domain.CycleOutcome {
	var verr *ValidationError
	var serr *transport.StatusError
	switch {
	case errors.As(err, &verr):
		return domain.OutcomeInvalid
	case errors.As(err, &serr):
		return domain.OutcomeHTTPError
	default:
		return domain.OutcomeError
	}
}

// record writes the cycle to the journal. It runs after the trigger's
// context may have been cancelled, so it detaches from it.
func (o *Orchestrator) record(ctx context.Context, logger *slog.Logger, c *cycle) {
	if o.deps.Journal == nil {
		return
	}
	entry := &domain.Cycle{
		ID:            c.id,
		Provider:      o.cfg.Endpoint.Kind.String(),
		Model:         o.cfg.Endpoint.Model,
		Outcome:       c.outcome,
		HTTPStatus:    c.httpStatus,
		TokenEstimate: c.tokenEstimate,
		DurationMS:    time.Since(c.started).Milliseconds(),
		FrameKey:      c.frameKey,
		StartedAt:     c.started,
	}
	if c.err != nil {
		entry.Error = c.err.Error()
	}
	if err := o.deps.Journal.Create(context.WithoutCancel(ctx), entry); err != nil {
		logger.Error("failed to record cycle", "error", err)
	}
}
