package liveness

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"liveness-playground/internal/domain/image"
	"liveness-playground/internal/domain/notify"
	"liveness-playground/internal/domain/preview"
	"liveness-playground/internal/platform/errors"
	"liveness-playground/internal/platform/logging"
	"liveness-playground/internal/platform/observability"
)

// DefaultSDKTimeout bounds every SDK call.
const DefaultSDKTimeout = 10 * time.Second

// ErrBusy is returned when a batch is submitted while another one runs.
var ErrBusy = errors.New(errors.KindValidation, "liveness.evaluate", "an evaluation is already in progress")

// Deps wires an Evaluator.
type Deps struct {
	Ingester   *image.Ingester
	Previews   *preview.Store
	SaaS       SaaSClient
	SDK        SDKClient
	Notifier   notify.Publisher
	Logger     *logging.Logger
	SDKTimeout time.Duration
	// Session is attached to every notification.
	Session string
}

// Evaluator runs liveness batches for one caller and holds the latest batch.
// Images are evaluated one at a time, and within an image the SaaS call
// always precedes the SDK calls.
type Evaluator struct {
	ingester   *image.Ingester
	previews   *preview.Store
	saas       SaaSClient
	sdk        SDKClient
	notifier   notify.Publisher
	logger     *logging.Logger
	sdkTimeout time.Duration
	session    string

	mu      sync.Mutex
	state   State
	results []Result
	lastErr string
}

func NewEvaluator(deps Deps) *Evaluator {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Ingester == nil {
		deps.Ingester = image.NewIngester(image.Limits{AllowedFormats: image.SupportedExtensions}, deps.Logger)
	}
	if deps.Previews == nil {
		deps.Previews = preview.NewStore(deps.Logger)
	}
	if deps.SDKTimeout <= 0 {
		deps.SDKTimeout = DefaultSDKTimeout
	}
	return &Evaluator{
		ingester:   deps.Ingester,
		previews:   deps.Previews,
		saas:       deps.SaaS,
		sdk:        deps.SDK,
		notifier:   deps.Notifier,
		logger:     deps.Logger,
		sdkTimeout: deps.SDKTimeout,
		session:    deps.Session,
		state:      StateIdle,
	}
}

// batch accumulates one run. owned records every locator created so far so
// an aborted run can still release them.
type batch struct {
	results []Result
	owned   []string
}

// EvaluateFromFiles evaluates every file with a supported extension. Other
// files are dropped without being opened.
func (e *Evaluator) EvaluateFromFiles(ctx context.Context, files []File, opts Options) ([]Result, error) {
	const op = "liveness.evaluate_files"

	supported := make([]File, 0, len(files))
	for _, f := range files {
		if image.IsSupportedFile(f.Name) {
			supported = append(supported, f)
		}
	}

	if err := e.begin(); err != nil {
		return nil, err
	}
	if len(supported) == 0 {
		return nil, e.reject(errors.Newf(errors.KindValidation, op,
			"no valid images selected, supported formats: %s", strings.Join(image.SupportedExtensions, ", ")))
	}

	e.logger.InfoTag("LIVENESS", "evaluating %d file(s), %d dropped", len(supported), len(files)-len(supported))
	return e.run(ctx, op, len(supported), opts, func(ctx context.Context, b *batch, _ int, f File) {
		res, payload := e.ingestFile(ctx, b, f)
		if res.Error == "" {
			e.evaluateImage(ctx, &res, payload, opts)
		}
		b.results = append(b.results, res)
	}, supported)
}

// EvaluateFromBase64 evaluates raw Base64 payloads, each optionally carrying a
// data URI prefix.
func (e *Evaluator) EvaluateFromBase64(ctx context.Context, payloads []string, opts Options) ([]Result, error) {
	const op = "liveness.evaluate_base64"

	if err := e.begin(); err != nil {
		return nil, err
	}
	if len(payloads) == 0 {
		return nil, e.reject(errors.New(errors.KindValidation, op, "no base64 payloads provided"))
	}

	files := make([]File, len(payloads))
	width := len(fmt.Sprint(len(payloads)))
	for i := range payloads {
		files[i] = File{Name: fmt.Sprintf("Image %0*d", width, i+1)}
	}

	e.logger.InfoTag("LIVENESS", "evaluating %d base64 payload(s)", len(payloads))
	return e.run(ctx, op, len(payloads), opts, func(ctx context.Context, b *batch, i int, f File) {
		res, payload := e.ingestBase64(ctx, f.Name, payloads[i])
		if res.Error == "" {
			e.evaluateImage(ctx, &res, payload, opts)
		}
		b.results = append(b.results, res)
	}, files)
}

// ClearResults releases the locators of the held batch and empties it. It is
// safe to call at any time and any number of times. A running batch is not
// interrupted.
func (e *Evaluator) ClearResults() {
	e.mu.Lock()
	prev := e.results
	e.results = nil
	if e.state != StateProcessing {
		e.state = StateIdle
		e.lastErr = ""
	}
	e.mu.Unlock()

	e.release(prev)
}

// Snapshot returns a copy of the observable state.
func (e *Evaluator) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		Results: append([]Result{}, e.results...),
		Loading: e.state == StateProcessing,
		State:   e.state,
	}
	if e.lastErr != "" {
		msg := e.lastErr
		snap.Error = &msg
	}
	return snap
}

func (e *Evaluator) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateProcessing {
		return ErrBusy
	}
	e.state = StateProcessing
	e.lastErr = ""
	return nil
}

// reject fails a run before any work started. The held batch is kept.
func (e *Evaluator) reject(err error) error {
	e.mu.Lock()
	e.state = StateFailed
	e.lastErr = messageOf(err)
	e.mu.Unlock()

	e.logger.WarnTag("LIVENESS", "batch rejected: %v", err)
	e.publish(notify.LevelError, "Evaluation rejected", messageOf(err))
	return err
}

func (e *Evaluator) run(ctx context.Context, op string, n int, opts Options,
	process func(context.Context, *batch, int, File), files []File) ([]Result, error) {

	e.mu.Lock()
	prev := e.results
	e.results = nil
	e.mu.Unlock()
	e.release(prev)

	// A started batch is not cancelable: it completes even when the caller
	// goes away, and the outcome stays readable through Snapshot.
	ctx = context.WithoutCancel(ctx)

	e.publish(notify.LevelInfo, "Evaluation started", fmt.Sprintf("Processing %d image(s)", n))
	started := time.Now()

	results, err := e.process(ctx, op, process, files)

	e.mu.Lock()
	if err != nil {
		e.state = StateFailed
		e.lastErr = messageOf(err)
		e.results = nil
	} else {
		e.state = StateReady
		e.results = results
	}
	e.mu.Unlock()

	elapsed := time.Since(started)
	observability.RecordMetric(ctx, "liveness.batch.duration_ms", float64(elapsed.Milliseconds()),
		map[string]string{"op": op, "sdk": fmt.Sprint(opts.SDKEnabled)})

	if err != nil {
		e.logger.ErrorTag("LIVENESS", "batch failed after %s: %v", elapsed, err)
		e.publish(notify.LevelError, "Evaluation failed", messageOf(err))
		return nil, err
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	e.logger.InfoTag("LIVENESS", "batch finished in %s: %d result(s), %d ingestion error(s)", elapsed, len(results), failed)
	e.publish(notify.LevelSuccess, "Evaluation finished", fmt.Sprintf("%d image(s) evaluated", len(results)))
	return append([]Result{}, results...), nil
}

// process runs every item in order. A panic anywhere in the run discards the
// whole batch and becomes the batch error.
func (e *Evaluator) process(ctx context.Context, op string, process func(context.Context, *batch, int, File), files []File) (results []Result, err error) {
	b := &batch{}
	defer func() {
		if r := recover(); r != nil {
			for _, loc := range b.owned {
				e.previews.Revoke(loc)
			}
			results = nil
			err = errors.Newf(errors.KindEvaluation, op, "unexpected failure: %v", r)
		}
	}()

	for i, f := range files {
		process(ctx, b, i, f)
	}

	sort.SliceStable(b.results, func(i, j int) bool {
		return b.results[i].Title < b.results[j].Title
	})
	return b.results, nil
}

func (e *Evaluator) ingestFile(ctx context.Context, b *batch, f File) (Result, string) {
	res := Result{Title: f.Name, ImagePath: f.Name}

	if f.Open == nil {
		return ingestFailure(res, errors.New(errors.KindIngest, "liveness.ingest_file", "file has no content")), ""
	}
	rc, err := f.Open()
	if err != nil {
		return ingestFailure(res, err), ""
	}
	defer rc.Close()

	decoded, err := e.ingester.FromFile(ctx, f.Name, f.MimeType, rc)
	if err != nil {
		return ingestFailure(res, err), ""
	}

	loc := e.previews.Create(decoded.Bytes, decoded.Info.MimeType, f.Name)
	b.owned = append(b.owned, loc)
	res.ImageURL = loc
	res.locallyOwned = true
	fillInfo(&res, decoded.Info)
	return res, decoded.Base64
}

func (e *Evaluator) ingestBase64(ctx context.Context, title, payload string) (Result, string) {
	res := Result{Title: title, ImagePath: title}

	decoded, err := e.ingester.FromBase64(ctx, title, payload)
	if err != nil {
		return ingestFailure(res, err), ""
	}

	res.ImageURL = fmt.Sprintf("data:%s;base64,%s", decoded.Info.MimeType, decoded.Base64)
	fillInfo(&res, decoded.Info)
	return res, decoded.Base64
}

func (e *Evaluator) evaluateImage(ctx context.Context, res *Result, payload string, opts Options) {
	res.DiagnosticSaaS, res.RawSaaSResponse = e.evaluateSaaS(ctx, payload, opts.APIKey)

	if !opts.SDKEnabled {
		return
	}

	res.SDKDiagnostics = make(map[string]string)
	res.SDKRawResponses = make(map[string]json.RawMessage)
	for _, target := range opts.Targets {
		if !target.Active {
			continue
		}
		diagnostic, raw := e.evaluateSDK(ctx, target, payload)
		res.SDKDiagnostics[target.Tag] = diagnostic
		res.SDKRawResponses[target.Tag] = raw
	}
}

func (e *Evaluator) evaluateSaaS(ctx context.Context, payload, apiKey string) (string, json.RawMessage) {
	if strings.TrimSpace(apiKey) == "" {
		return DiagnosticNoAPIKey, nil
	}
	if e.saas == nil {
		return "Error: liveness service client not configured", nil
	}

	ctx, end := observability.StartSpan(ctx, "liveness", "saas.evaluate")
	resp, err := e.saas.EvaluatePassiveLiveness(ctx, payload, apiKey)
	end(err)
	if err != nil {
		e.logger.WarnTag("SAAS", "evaluation failed: %v", err)
		return saasDiagnostic(err), nil
	}
	if resp == nil {
		return DiagnosticNoDiagnostic, nil
	}

	diagnostic := resp.Log
	if diagnostic == "" {
		diagnostic = DiagnosticNoDiagnostic
	}
	return diagnostic, resp.Raw
}

func (e *Evaluator) evaluateSDK(ctx context.Context, target SDKTarget, payload string) (string, json.RawMessage) {
	if e.sdk == nil {
		diagnostic := "Connection error: sdk client not configured"
		return diagnostic, errorPayload(diagnostic)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.sdkTimeout)
	defer cancel()

	callCtx, end := observability.StartSpan(callCtx, "liveness", "sdk.evaluate")
	resp, err := e.sdk.Evaluate(callCtx, target, payload)
	if err != nil && callCtx.Err() == context.DeadlineExceeded {
		err = ErrTimeout
	}
	end(err)

	if err != nil {
		diagnostic := sdkDiagnostic(err, e.sdkTimeout)
		e.logger.WarnTag("SDK", "endpoint %s (%s): %s", target.Tag, target.BaseURL, diagnostic)
		return diagnostic, errorPayload(diagnostic)
	}

	if resp == nil {
		return DiagnosticNoDiagnostic, errorPayload(DiagnosticNoDiagnostic)
	}
	diagnostic := resp.Diagnostic
	if diagnostic == "" {
		diagnostic = DiagnosticNoDiagnostic
	}
	raw := resp.Raw
	if len(raw) == 0 {
		raw = errorPayload(diagnostic)
	}
	return diagnostic, raw
}

// release frees the locally-owned locators of results. Data URIs and foreign
// URLs are left alone.
func (e *Evaluator) release(results []Result) {
	for _, r := range results {
		if r.locallyOwned && r.ImageURL != "" {
			e.previews.Revoke(r.ImageURL)
		}
	}
}

func (e *Evaluator) publish(level notify.Level, title, message string) {
	if e.notifier == nil {
		return
	}
	e.notifier.Publish(notify.Notification{
		Session: e.session,
		Level:   level,
		Title:   title,
		Message: message,
	})
}

func fillInfo(res *Result, info image.ImageInfo) {
	res.ImageInfo = &info
	res.Resolution = FormatResolution(info.Width, info.Height)
	res.Size = FormatSize(info.Size)
}

func ingestFailure(res Result, err error) Result {
	res.Resolution = notAvailable
	res.Size = notAvailable
	res.Error = messageOf(err)
	return res
}

func errorPayload(message string) json.RawMessage {
	data, err := sonic.Marshal(map[string]string{"error": message})
	if err != nil {
		return nil
	}
	return data
}

// messageOf strips the kind and op decoration for user-facing text.
func messageOf(err error) string {
	if typed, ok := err.(*errors.Error); ok {
		if typed.Cause != nil {
			return typed.Message + ": " + typed.Cause.Error()
		}
		return typed.Message
	}
	return err.Error()
}
