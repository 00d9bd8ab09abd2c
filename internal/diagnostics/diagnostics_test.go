package diagnostics

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWarning() Diagnostic {
	return NewWarning(WarnMissingMethod, "com/example/Clock", "java/time/Instant", "now ()Ljava/time/Instant;", "can't find referenced method")
}

func TestDiagnostic_String(t *testing.T) {
	d := sampleWarning()
	assert.Equal(t, "Warning: W002: com/example/Clock: can't find referenced method", d.String())
	assert.Equal(t, d.String(), d.Error())
	assert.True(t, d.IsWarning())
	assert.False(t, d.IsError())

	cfg := NewConfigError(ConfigInvalidTarget, "java/time/** -> com/example/Missing", "replacement class not found")
	assert.Equal(t, "Error: C002: replacement class not found", cfg.String())
}

func TestDiagnostic_Key(t *testing.T) {
	a := sampleWarning()
	b := sampleWarning()
	b.Class = "com/example/Other"
	assert.Equal(t, a.Key(), b.Key())

	c := sampleWarning()
	c.Member = "parse (Ljava/lang/CharSequence;)Ljava/time/Instant;"
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestPrinter_Terminal(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, PrinterOptions{NoColor: true})

	p.Warn(sampleWarning())

	out := buf.String()
	assert.Contains(t, out, "Warning W002: com/example/Clock")
	assert.Contains(t, out, "--> java/time/Instant.now ()Ljava/time/Instant;")
	assert.Contains(t, out, "can't find referenced method")
	assert.NotContains(t, out, "\x1b[")
	assert.Equal(t, 1, p.Count())
}

func TestPrinter_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, PrinterOptions{JSON: true})

	p.Warn(sampleWarning())
	p.Warn(sampleWarning())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var decoded Diagnostic
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, sampleWarning(), decoded)
}

func TestFilter_DontWarn(t *testing.T) {
	collector := NewCollector()
	f := NewFilter(collector, []string{"sun/misc/**", "java/lang/invoke/*"})

	f.Warn(NewWarning(WarnMissingClass, "a/B", "sun/misc/Unsafe", "", "missing"))
	f.Warn(NewWarning(WarnMissingClass, "a/B", "java/lang/invoke/VarHandle", "", "missing"))
	f.Warn(sampleWarning())

	assert.Equal(t, 1, collector.Len())
	assert.Equal(t, 2, f.Suppressed())
}

func TestTee_And_Nop(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	Tee{a, nil, b}.Warn(sampleWarning())
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())

	assert.NotPanics(t, func() { OrNop(nil).Warn(sampleWarning()) })
	assert.Equal(t, a, OrNop(a))
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Warn(sampleWarning())
		}()
	}
	wg.Wait()
	assert.Len(t, c.Diagnostics(), 50)
}

func TestFormatAsJSON(t *testing.T) {
	out, err := FormatAsJSON([]Diagnostic{
		sampleWarning(),
		NewConfigError(ConfigInvalidPattern, "a -> <2>", "bad placeholder"),
	})
	require.NoError(t, err)

	var decoded JSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "error", decoded.Status)
	assert.Equal(t, 1, decoded.Summary.ErrorCount)
	assert.Equal(t, 1, decoded.Summary.WarningCount)
	assert.Equal(t, 2, decoded.Summary.TotalCount)

	empty := Summarize(nil)
	assert.Equal(t, "success", empty.Status)
}
