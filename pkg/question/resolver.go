// Package question detects in-reader assessments and answers them so the
// reading loop never stalls. Detection runs on every loop iteration and must
// be cheap and non-fatal; answering prefers the backend and always has a
// deterministic local fallback.
package question

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ifung-0/lightsail-auto/pkg/answer"
	"github.com/ifung-0/lightsail-auto/pkg/browser"
	"github.com/ifung-0/lightsail-auto/pkg/logging"
)

// Kind classifies a detected assessment.
type Kind string

const (
	KindMultipleChoice Kind = "multiple-choice"
	KindCloze          Kind = "cloze"
	KindShortAnswer    Kind = "short-answer"
)

// Record describes one detected question and what was done about it.
type Record struct {
	Kind     Kind
	Prompt   string
	Options  []string
	Detected time.Time

	// Answered means an answer was chosen or typed. Submitted means the
	// submit control was clicked; it is set at most once per record.
	Answered  bool
	Submitted bool
}

// Selectors for the assessment surfaces, ordered by detection priority.
const (
	clozePendingSelector = `g.cloze-assessment-pending`
	radioSelector        = `input[type="radio"]`
	textareaSelector     = `textarea:not([readonly])`
	labelSelector        = `label`
)

var submitSelectors = []string{
	`button:has-text("Submit")`,
	`button:has-text("Check")`,
	`button:has-text("Answer")`,
}

// promptSelectors locate the question text container. The page body is the
// fallback when none match.
var promptSelectors = []string{
	`[class*="question"]`,
	`[class*="prompt"]`,
	`[class*="assessment"]`,
}

// controlLabels are visible texts that belong to buttons, not answer options.
var controlLabels = map[string]bool{
	"submit": true, "check": true, "answer": true, "continue": true,
	"ok": true, "cancel": true, "close": true, "next": true,
	"back": true, "clear": true,
}

const (
	minOptionLen = 2
	maxOptionLen = 40

	// maxPromptLen bounds the context passed to the backend before token
	// truncation even runs.
	maxPromptLen = 600
)

// Options configures a Resolver.
type Options struct {
	// ScreenshotDir, when set, captures a screenshot of each newly detected
	// question into this directory.
	ScreenshotDir string
}

// Resolver detects and answers assessments on the shared document handle.
type Resolver struct {
	dom           browser.DOM
	backend       *answer.Client
	logger        *logging.Logger
	screenshotDir string
}

// New creates a Resolver. backend may be disabled; logger may be nil.
func New(dom browser.DOM, backend *answer.Client, logger *logging.Logger, opts Options) *Resolver {
	return &Resolver{
		dom:           dom,
		backend:       backend,
		logger:        logger,
		screenshotDir: opts.ScreenshotDir,
	}
}

// DetectCurrent checks for a visible assessment, highest priority first:
// pending cloze marks, then radio groups, then writable textareas. It
// returns nil when nothing needs answering. Every probe error is swallowed;
// detection runs inside the hot loop and must never break the session.
func (r *Resolver) DetectCurrent() *Record {
	if r.clozePending() {
		return &Record{Kind: KindCloze, Detected: time.Now()}
	}

	if radios, err := r.dom.QuerySelectorAll(radioSelector); err == nil && len(radios) >= 2 {
		return &Record{Kind: KindMultipleChoice, Detected: time.Now()}
	}

	if area, err := r.dom.QuerySelector(textareaSelector); err == nil && area != nil {
		return &Record{Kind: KindShortAnswer, Detected: time.Now()}
	}

	return nil
}

// clozePending reports whether a visible pending cloze mark exists on the
// page or inside any frame. Readers render cloze assessments in an iframe as
// often as not.
func (r *Resolver) clozePending() bool {
	if el, err := r.dom.QuerySelector(clozePendingSelector); err == nil && el != nil {
		if visible, err := el.IsVisible(); err == nil && visible {
			return true
		}
	}
	for _, frame := range r.dom.Frames() {
		el, err := frame.QuerySelector(clozePendingSelector)
		if err != nil || el == nil {
			continue
		}
		if visible, err := el.IsVisible(); err == nil && visible {
			return true
		}
	}
	return false
}

// AnswerCurrent resolves the detected question and submits it. Backend
// failures downgrade to the deterministic fallback and are never fatal; a
// submit control that cannot be found is logged and left for the next loop
// iteration. The record's flags report what actually happened.
func (r *Resolver) AnswerCurrent(ctx context.Context, rec *Record) error {
	if rec == nil {
		return nil
	}
	r.captureScreenshot(rec)

	rec.Prompt = r.promptText()

	var err error
	switch rec.Kind {
	case KindMultipleChoice:
		err = r.answerMultipleChoice(ctx, rec)
	case KindCloze:
		err = r.answerCloze(ctx, rec)
	case KindShortAnswer:
		err = r.answerShortAnswer(ctx, rec)
	default:
		return fmt.Errorf("unknown question kind %q", rec.Kind)
	}
	if err != nil {
		return err
	}

	r.submit(rec)
	return nil
}

// answerMultipleChoice picks one option label and clicks it.
func (r *Resolver) answerMultipleChoice(ctx context.Context, rec *Record) error {
	labels, texts, err := r.optionLabels()
	if err != nil {
		return fmt.Errorf("option lookup failed: %w", err)
	}
	if len(labels) == 0 {
		return &browser.TransientUIError{Op: "answer-multiple-choice", Strategies: []string{labelSelector}}
	}
	rec.Options = texts

	idx := r.chooseOption(ctx, rec.Prompt, texts)
	if idx < 0 || idx >= len(labels) {
		idx = answer.FallbackChoice(texts)
	}

	if err := labels[idx].Click(); err != nil {
		return fmt.Errorf("clicking option %d failed: %w", idx+1, err)
	}
	rec.Answered = true
	r.logf("answered multiple choice with option %d: %s", idx+1, texts[idx])
	return nil
}

// chooseOption asks the backend for an option index, downgrading to the
// first-option fallback on any failure.
func (r *Resolver) chooseOption(ctx context.Context, prompt string, options []string) int {
	if r.backend != nil && r.backend.Enabled() {
		idx, err := r.backend.Choose(ctx, prompt, options)
		if err == nil {
			return idx
		}
		r.logf("backend choice failed, using fallback: %v", err)
	}
	return answer.FallbackChoice(options)
}

// answerCloze activates the pending cloze mark and resolves it: presented
// word options are chosen like multiple choice; a bare text input gets a
// single fill word.
func (r *Resolver) answerCloze(ctx context.Context, rec *Record) error {
	if el, err := r.dom.QuerySelector(clozePendingSelector); err == nil && el != nil {
		if err := el.Click(); err != nil {
			r.logf("cloze mark click failed: %v", err)
		}
	}

	labels, texts, err := r.optionLabels()
	if err == nil && len(labels) > 0 {
		rec.Options = texts
		idx := r.chooseOption(ctx, rec.Prompt, texts)
		if idx < 0 || idx >= len(labels) {
			idx = answer.FallbackChoice(texts)
		}
		if err := labels[idx].Click(); err != nil {
			return fmt.Errorf("clicking cloze option failed: %w", err)
		}
		rec.Answered = true
		r.logf("answered cloze with option: %s", texts[idx])
		return nil
	}

	word := r.clozeWord(ctx, rec.Prompt)
	if err := r.dom.Fill(`input[type="text"]`, word, 3*time.Second); err != nil {
		return &browser.TransientUIError{Op: "answer-cloze", Strategies: []string{labelSelector, `input[type="text"]`}, Last: err}
	}
	rec.Answered = true
	r.logf("filled cloze blank with %q", word)
	return nil
}

func (r *Resolver) clozeWord(ctx context.Context, contextText string) string {
	if r.backend != nil && r.backend.Enabled() {
		word, err := r.backend.FillBlank(ctx, contextText, 1)
		if err == nil && word != "" {
			return word
		}
		r.logf("backend fill failed, using fallback: %v", err)
	}
	return answer.FallbackClozeWord(contextText)
}

// answerShortAnswer types a free-text response into the writable textarea.
func (r *Resolver) answerShortAnswer(ctx context.Context, rec *Record) error {
	text := r.shortAnswerText(ctx, rec.Prompt)
	if err := r.dom.Fill(textareaSelector, text, 3*time.Second); err != nil {
		return fmt.Errorf("filling textarea failed: %w", err)
	}
	rec.Answered = true
	r.logf("typed short answer (%d chars)", len(text))
	return nil
}

func (r *Resolver) shortAnswerText(ctx context.Context, prompt string) string {
	if r.backend != nil && r.backend.Enabled() {
		text, err := r.backend.ShortAnswer(ctx, prompt)
		if err == nil && strings.TrimSpace(text) != "" {
			return text
		}
		r.logf("backend short answer failed, using fallback: %v", err)
	}
	return answer.FallbackShortAnswer(prompt)
}

// submit clicks the ranked submit controls at most once per record. Missing
// controls are logged, never fatal; some assessments auto-advance.
func (r *Resolver) submit(rec *Record) {
	if rec.Submitted {
		return
	}
	selector, err := browser.ClickAny(r.dom, "submit-answer", r.logger, submitSelectors, 3*time.Second)
	if err != nil {
		r.logf("no submit control found: %v", err)
		return
	}
	rec.Submitted = true
	r.logf("submitted via %s", selector)
}

// optionLabels returns clickable answer labels and their texts, filtered of
// control buttons, icon wrappers, and implausible lengths.
func (r *Resolver) optionLabels() ([]browser.Element, []string, error) {
	labels, err := r.dom.QuerySelectorAll(labelSelector)
	if err != nil {
		return nil, nil, err
	}

	var kept []browser.Element
	var texts []string
	for _, label := range labels {
		text, err := label.InnerText()
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if len(text) < minOptionLen || len(text) > maxOptionLen {
			continue
		}
		if controlLabels[strings.ToLower(text)] {
			continue
		}
		class, _ := label.GetAttribute("class")
		lower := strings.ToLower(class)
		if strings.Contains(lower, "icon") || strings.Contains(lower, "arrow") {
			continue
		}
		kept = append(kept, label)
		texts = append(texts, text)
	}
	return kept, texts, nil
}

// promptText extracts the question context for the backend: a dedicated
// question container when one exists, otherwise the page body, capped to a
// fixed length.
func (r *Resolver) promptText() string {
	for _, selector := range promptSelectors {
		el, err := r.dom.QuerySelector(selector)
		if err != nil || el == nil {
			continue
		}
		if text, err := el.InnerText(); err == nil {
			if trimmed := strings.TrimSpace(text); trimmed != "" {
				return capText(trimmed, maxPromptLen)
			}
		}
	}

	raw, err := r.dom.Evaluate(`() => document.body.innerHTML`)
	if err != nil {
		return ""
	}
	src, ok := raw.(string)
	if !ok {
		return ""
	}
	return capText(VisibleText(src), maxPromptLen)
}

func (r *Resolver) captureScreenshot(rec *Record) {
	if r.screenshotDir == "" {
		return
	}
	name := fmt.Sprintf("question-%s-%d.png", rec.Kind, rec.Detected.UnixMilli())
	path := filepath.Join(r.screenshotDir, name)
	if err := r.dom.Screenshot(path); err != nil {
		r.logf("question screenshot failed: %v", err)
	}
}

func (r *Resolver) logf(format string, v ...interface{}) {
	if r.logger != nil {
		r.logger.Infof(format, v...)
	}
}
