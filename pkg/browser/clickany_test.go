package browser_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifung-0/lightsail-auto/pkg/browser"
	"github.com/ifung-0/lightsail-auto/pkg/browser/domtest"
)

func TestClickAnyReturnsWinningSelector(t *testing.T) {
	dom := domtest.NewFakeDOM("https://example.com/reader")
	dom.ClickableSelectors[`button.reader-button-next.btn`] = true

	selectors := []string{
		`button[aria-label="Go To Next Page"]`,
		`button.reader-button-next.btn`,
		`button:has-text("Next")`,
	}

	clicked, err := browser.ClickAny(dom, "flip-forward", nil, selectors, 3*time.Second)
	require.NoError(t, err)
	assert.Equal(t, `button.reader-button-next.btn`, clicked)
	assert.Equal(t, []string{`button.reader-button-next.btn`}, dom.Clicked)
}

func TestClickAnyExhaustion(t *testing.T) {
	dom := domtest.NewFakeDOM("https://example.com/reader")

	_, err := browser.ClickAny(dom, "submit-answer", nil, []string{
		`button:has-text("Submit")`,
		`button:has-text("Check")`,
	}, time.Second)

	var uiErr *browser.TransientUIError
	require.ErrorAs(t, err, &uiErr)
	assert.Equal(t, "submit-answer", uiErr.Op)
	assert.Len(t, uiErr.Strategies, 2)
}
