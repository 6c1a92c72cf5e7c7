package obstacle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSelector_ContainsTranslatesToAriaLabel(t *testing.T) {
	out := SanitizeSelector(`button:contains('Accept All')`, "")
	assert.Equal(t, `button[aria-label*="Accept All"]`, out)
}

func TestSanitizeSelector_BarePseudoClassesStripped(t *testing.T) {
	out := SanitizeSelector(`li:first`, "fallback text")
	assert.Equal(t, `li[aria-label*="fallback text"]`, out)
}

func TestSanitizeSelector_FallsBackToDismissText(t *testing.T) {
	out := SanitizeSelector(`div:eq(2)`, "Close")
	assert.Equal(t, `div[aria-label*="Close"]`, out)
}

func TestSanitizeSelector_NoPseudoClassUnchanged(t *testing.T) {
	out := SanitizeSelector(`#accept-btn`, "ignored")
	assert.Equal(t, `#accept-btn`, out)
}

func TestSanitizeSelector_EscapesQuotesInText(t *testing.T) {
	out := SanitizeSelector(`a:contains('Say "Hi"')`, "")
	assert.Equal(t, `a[aria-label*="Say \"Hi\""]`, out)
}

func TestSanitizeSelector_NoDismissTextDropsOnlyPseudo(t *testing.T) {
	out := SanitizeSelector(`.modal:has(button)`, "")
	assert.Equal(t, `.modal`, out)
}
