package question_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifung-0/lightsail-auto/pkg/answer"
	"github.com/ifung-0/lightsail-auto/pkg/browser/domtest"
	"github.com/ifung-0/lightsail-auto/pkg/question"
)

const (
	clozePending = `g.cloze-assessment-pending`
	radios       = `input[type="radio"]`
	textarea     = `textarea:not([readonly])`
	submitButton = `button:has-text("Submit")`
)

func readerDOM() *domtest.FakeDOM {
	return domtest.NewFakeDOM("https://lightsailed.com/reader/abc")
}

func TestDetectCurrentPriority(t *testing.T) {
	dom := readerDOM()
	// All three surfaces present at once: cloze wins.
	dom.Elements[clozePending] = []*domtest.FakeElement{{Text: "___"}}
	dom.Elements[radios] = []*domtest.FakeElement{{}, {}}
	dom.Elements[textarea] = []*domtest.FakeElement{{}}

	r := question.New(dom, nil, nil, question.Options{})
	rec := r.DetectCurrent()
	require.NotNil(t, rec)
	assert.Equal(t, question.KindCloze, rec.Kind)

	// Without the cloze mark, the radio group wins over the textarea.
	delete(dom.Elements, clozePending)
	rec = r.DetectCurrent()
	require.NotNil(t, rec)
	assert.Equal(t, question.KindMultipleChoice, rec.Kind)

	// A lone radio is not a question.
	dom.Elements[radios] = []*domtest.FakeElement{{}}
	rec = r.DetectCurrent()
	require.NotNil(t, rec)
	assert.Equal(t, question.KindShortAnswer, rec.Kind)

	delete(dom.Elements, textarea)
	delete(dom.Elements, radios)
	assert.Nil(t, r.DetectCurrent())
}

func TestDetectCurrentIgnoresHiddenClozeMark(t *testing.T) {
	dom := readerDOM()
	dom.Elements[clozePending] = []*domtest.FakeElement{{Text: "___", Hidden: true}}

	r := question.New(dom, nil, nil, question.Options{})
	assert.Nil(t, r.DetectCurrent())
}

func TestDetectCurrentFindsClozeInFrame(t *testing.T) {
	dom := readerDOM()
	dom.FramesList = []*domtest.FakeFrame{{
		FrameURL: "https://lightsailed.com/reader/abc/assessment",
		Elements: map[string]*domtest.FakeElement{clozePending: {Text: "___"}},
	}}

	r := question.New(dom, nil, nil, question.Options{})
	rec := r.DetectCurrent()
	require.NotNil(t, rec)
	assert.Equal(t, question.KindCloze, rec.Kind)
}

func TestAnswerMultipleChoiceWithoutBackend(t *testing.T) {
	dom := readerDOM()
	dom.Elements[radios] = []*domtest.FakeElement{{}, {}}
	first := &domtest.FakeElement{Text: "because of the storm"}
	second := &domtest.FakeElement{Text: "sunny day"}
	dom.Elements["label"] = []*domtest.FakeElement{
		{Text: "Submit"}, // control, filtered
		first,
		second,
		{Text: "", Attributes: map[string]string{"class": "icon-arrow"}},
	}
	dom.ClickableSelectors[submitButton] = true

	r := question.New(dom, answer.NewClient(""), nil, question.Options{})
	rec := r.DetectCurrent()
	require.NotNil(t, rec)

	require.NoError(t, r.AnswerCurrent(context.Background(), rec))

	// Backend disabled: the fallback picks the first real option and submits
	// exactly once.
	assert.Equal(t, 1, first.Clicks)
	assert.Zero(t, second.Clicks)
	assert.True(t, rec.Answered)
	assert.True(t, rec.Submitted)

	count := 0
	for _, sel := range dom.Clicked {
		if sel == submitButton {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestAnswerCurrentSubmitsAtMostOnce(t *testing.T) {
	dom := readerDOM()
	dom.Elements[radios] = []*domtest.FakeElement{{}, {}}
	dom.Elements["label"] = []*domtest.FakeElement{{Text: "option one"}, {Text: "option two"}}
	dom.ClickableSelectors[submitButton] = true

	r := question.New(dom, nil, nil, question.Options{})
	rec := r.DetectCurrent()
	require.NotNil(t, rec)

	require.NoError(t, r.AnswerCurrent(context.Background(), rec))
	require.NoError(t, r.AnswerCurrent(context.Background(), rec))

	count := 0
	for _, sel := range dom.Clicked {
		if sel == submitButton {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestAnswerMultipleChoiceUsesBackendIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": "2"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	dom := readerDOM()
	dom.Elements[radios] = []*domtest.FakeElement{{}, {}}
	first := &domtest.FakeElement{Text: "sunny day"}
	second := &domtest.FakeElement{Text: "because of the storm"}
	dom.Elements["label"] = []*domtest.FakeElement{first, second}
	dom.Elements[`[class*="question"]`] = []*domtest.FakeElement{{Text: "Why did the ship turn back?"}}

	backend := answer.NewClient("test-key", answer.WithBaseURL(server.URL))
	r := question.New(dom, backend, nil, question.Options{})

	rec := r.DetectCurrent()
	require.NotNil(t, rec)
	require.NoError(t, r.AnswerCurrent(context.Background(), rec))

	assert.Zero(t, first.Clicks)
	assert.Equal(t, 1, second.Clicks)
	assert.Equal(t, "Why did the ship turn back?", rec.Prompt)
}

func TestAnswerMultipleChoiceBackendUnreachable(t *testing.T) {
	dom := readerDOM()
	dom.Elements[radios] = []*domtest.FakeElement{{}, {}}
	first := &domtest.FakeElement{Text: "option one"}
	dom.Elements["label"] = []*domtest.FakeElement{first, {Text: "option two"}}

	// Point the backend at a closed port; the error must downgrade to the
	// fallback, not fail the answer.
	backend := answer.NewClient("test-key", answer.WithBaseURL("http://127.0.0.1:1"))
	r := question.New(dom, backend, nil, question.Options{})

	rec := r.DetectCurrent()
	require.NotNil(t, rec)
	require.NoError(t, r.AnswerCurrent(context.Background(), rec))

	assert.Equal(t, 1, first.Clicks)
	assert.True(t, rec.Answered)
}

func TestAnswerClozeFillsBlankWhenNoOptions(t *testing.T) {
	dom := readerDOM()
	dom.Elements[clozePending] = []*domtest.FakeElement{{Text: "___"}}
	dom.Elements[`input[type="text"]`] = []*domtest.FakeElement{{}}

	r := question.New(dom, nil, nil, question.Options{})
	rec := r.DetectCurrent()
	require.NotNil(t, rec)
	require.NoError(t, r.AnswerCurrent(context.Background(), rec))

	filled := dom.Filled[`input[type="text"]`]
	assert.NotEmpty(t, filled)
	assert.NotContains(t, filled, " ")
	assert.True(t, rec.Answered)
}

func TestAnswerClozeChoosesPresentedOption(t *testing.T) {
	dom := readerDOM()
	mark := &domtest.FakeElement{Text: "___"}
	dom.Elements[clozePending] = []*domtest.FakeElement{mark}
	wordOption := &domtest.FakeElement{Text: "lighthouse"}
	dom.Elements["label"] = []*domtest.FakeElement{wordOption}

	r := question.New(dom, nil, nil, question.Options{})
	rec := r.DetectCurrent()
	require.NotNil(t, rec)
	require.NoError(t, r.AnswerCurrent(context.Background(), rec))

	assert.Equal(t, 1, mark.Clicks)
	assert.Equal(t, 1, wordOption.Clicks)
	assert.True(t, rec.Answered)
}

func TestAnswerShortAnswerFallbackTemplate(t *testing.T) {
	dom := readerDOM()
	dom.Elements[textarea] = []*domtest.FakeElement{{}}
	dom.Elements[`[class*="question"]`] = []*domtest.FakeElement{{Text: "Why did the keeper stay?"}}

	r := question.New(dom, answer.NewClient(""), nil, question.Options{})
	rec := r.DetectCurrent()
	require.NotNil(t, rec)
	require.NoError(t, r.AnswerCurrent(context.Background(), rec))

	typed := dom.Filled[textarea]
	assert.Contains(t, typed, "because")
	assert.True(t, rec.Answered)
}

func TestAnswerCurrentCapturesScreenshot(t *testing.T) {
	dom := readerDOM()
	dom.Elements[radios] = []*domtest.FakeElement{{}, {}}
	dom.Elements["label"] = []*domtest.FakeElement{{Text: "option one"}, {Text: "option two"}}

	r := question.New(dom, nil, nil, question.Options{ScreenshotDir: t.TempDir()})
	rec := r.DetectCurrent()
	require.NotNil(t, rec)
	require.NoError(t, r.AnswerCurrent(context.Background(), rec))

	require.Len(t, dom.Screenshots, 1)
	assert.True(t, strings.Contains(dom.Screenshots[0], "question-multiple-choice-"))
}

func TestVisibleTextStripsMarkup(t *testing.T) {
	src := `<div><h2>Why did the ship turn back?</h2>
		<script>let x = 1;</script>
		<style>.a { color: red }</style>
		<p>Choose   the best answer.</p></div>`

	got := question.VisibleText(src)
	assert.Equal(t, "Why did the ship turn back? Choose the best answer.", got)
	assert.NotContains(t, got, "color")
}
