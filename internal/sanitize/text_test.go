package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextStripsMarkup(t *testing.T) {
	assert.Equal(t, "Board games night", Text("<b>Board games</b> night"))
	assert.Equal(t, "", Text("<script>alert(1)</script>"))
	assert.Equal(t, "plain", Text("plain"))
}

func TestTextSlice(t *testing.T) {
	assert.Nil(t, TextSlice(nil))
	assert.Equal(t, []string{"music", "live"}, TextSlice([]string{"<i>music</i>", "live"}))
}
