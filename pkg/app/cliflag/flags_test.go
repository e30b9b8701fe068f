package cliflag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagSetKeepsOrder(t *testing.T) {
	var fss NamedFlagSets
	fss.FlagSet("http").String("http.addr", ":8080", "listen address")
	fss.FlagSet("rag").Int("rag.top-k", 5, "results per signal")
	fss.FlagSet("http").Duration("http.read-timeout", 0, "read timeout")
	fss.FlagSet("empty")

	assert.Equal(t, []string{"http", "rag", "empty"}, fss.Order)
	assert.NotNil(t, fss.FlagSets["http"].Lookup("http.read-timeout"))
}

func TestPrintSections(t *testing.T) {
	var fss NamedFlagSets
	fss.FlagSet("http").String("http.addr", ":8080", "listen address")
	fss.FlagSet("empty")

	var buf bytes.Buffer
	PrintSections(&buf, fss, 0)

	out := buf.String()
	assert.Contains(t, out, "Http flags:")
	assert.Contains(t, out, "--http.addr")
	assert.NotContains(t, out, "Empty flags:")
}
