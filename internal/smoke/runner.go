package smoke

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrStepFailed = errors.New("smoke step failed")

type StepError struct {
	Step string
	URL  string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("smoke step %s (%s): %v", e.Step, e.URL, e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{ErrStepFailed, e.Err}
}

type Options struct {
	BaseURL   string
	OutputDir string
	Steps     []Step
}

type Runner struct {
	launcher  Launcher
	baseURL   string
	outputDir string
	steps     []Step
	logger    *zap.Logger
}

func NewRunner(launcher Launcher, opts Options, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	steps := opts.Steps
	if steps == nil {
		steps = DefaultSteps()
	}

	return &Runner{
		launcher:  launcher,
		baseURL:   strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		outputDir: strings.TrimSpace(opts.OutputDir),
		steps:     steps,
		logger:    logger,
	}
}

// Run walks the steps in order and stops at the first failure. The browser is
// released on every exit path; a release failure is joined into the returned
// error. The report is always non-nil and reflects progress so far.
func (r *Runner) Run(ctx context.Context) (report *Report, err error) {
	report = &Report{
		RunID:   uuid.NewString(),
		BaseURL: r.baseURL,
		Stage:   StageIdle,
		Visits:  make([]Visit, 0, len(r.steps)),
	}
	logger := r.logger.With(zap.String("run_id", report.RunID))

	if r.launcher == nil {
		report.Stage = StageAborted
		return report, errors.New("browser launcher is nil")
	}
	if r.outputDir != "" {
		if err := os.MkdirAll(r.outputDir, 0o750); err != nil {
			report.Stage = StageAborted
			return report, fmt.Errorf("create screenshot dir: %w", err)
		}
	}

	browser, err := r.launcher.Launch(ctx)
	if err != nil {
		report.Stage = StageAborted
		return report, fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			logger.Warn("close browser failed", zap.Error(closeErr))
			err = errors.Join(err, fmt.Errorf("close browser: %w", closeErr))
			return
		}
		logger.Debug("browser closed")
	}()

	page, err := browser.NewPage(ctx)
	if err != nil {
		report.Stage = StageAborted
		return report, fmt.Errorf("open page: %w", err)
	}

	for _, step := range r.steps {
		if err := r.runStep(ctx, page, step, report, logger); err != nil {
			report.Stage = StageAborted
			logger.Error("smoke step failed", zap.String("step", step.Name), zap.Error(err))
			return report, err
		}
		report.Stage = step.Reached
	}

	report.Stage = StageDone
	logger.Info("smoke run finished", zap.Int("visits", len(report.Visits)))
	return report, nil
}

func (r *Runner) runStep(ctx context.Context, page Page, step Step, report *Report, logger *zap.Logger) error {
	target := r.resolve(step.Path)
	stepErr := func(err error) error {
		return &StepError{Step: step.Name, URL: target, Err: err}
	}

	logger.Info("visiting page", zap.String("step", step.Name), zap.String("url", target))
	if err := page.Goto(ctx, target); err != nil {
		return stepErr(fmt.Errorf("navigate: %w", err))
	}

	visit := Visit{Step: step.Name, URL: target}
	if step.Screenshot != "" {
		visit.Screenshot = filepath.Join(r.outputDir, step.Screenshot)
		if err := page.Screenshot(ctx, visit.Screenshot); err != nil {
			return stepErr(fmt.Errorf("screenshot: %w", err))
		}
		logger.Info("screenshot saved", zap.String("step", step.Name), zap.String("path", visit.Screenshot))
	}
	report.Visits = append(report.Visits, visit)

	for _, check := range step.Checks {
		if err := check(ctx, page, report); err != nil {
			return stepErr(err)
		}
	}
	return nil
}

func (r *Runner) resolve(path string) string {
	if path == "" {
		return r.baseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return r.baseURL + path
}
