package diagnostics

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/conduit-lang/backport/internal/backport/pattern"
)

// Sink receives diagnostics. Implementations must not panic and must be
// safe for concurrent use when classes are converted in parallel.
type Sink interface {
	Warn(d Diagnostic)
}

// Nop discards every diagnostic
type Nop struct{}

// Warn implements Sink
func (Nop) Warn(Diagnostic) {}

// OrNop returns s, or a Nop sink if s is nil
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}

// Collector keeps every diagnostic in arrival order
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

// Warn implements Sink
func (c *Collector) Warn(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, d)
}

// Diagnostics returns a copy of the collected diagnostics
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of collected diagnostics
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Tee forwards every diagnostic to all sinks
type Tee []Sink

// Warn implements Sink
func (t Tee) Warn(d Diagnostic) {
	for _, s := range t {
		if s != nil {
			s.Warn(d)
		}
	}
}

// Filter drops diagnostics whose referenced class matches one of the
// patterns and forwards the rest.
type Filter struct {
	next       Sink
	dontWarn   pattern.List
	mu         sync.Mutex
	suppressed int
}

// NewFilter creates a filter in front of next. Patterns use the rule
// syntax, for example "sun/misc/**".
func NewFilter(next Sink, dontWarn []string) *Filter {
	return &Filter{next: OrNop(next), dontWarn: pattern.CompileList(dontWarn)}
}

// Warn implements Sink
func (f *Filter) Warn(d Diagnostic) {
	if d.Target != "" && f.dontWarn.Matches(d.Target) {
		f.mu.Lock()
		f.suppressed++
		f.mu.Unlock()
		return
	}
	f.next.Warn(d)
}

// Suppressed returns the number of diagnostics dropped by the filter
func (f *Filter) Suppressed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suppressed
}

// PrinterOptions configures a Printer
type PrinterOptions struct {
	NoColor bool
	JSON    bool // one compact JSON object per line
}

// Printer writes diagnostics to a stream as they arrive
type Printer struct {
	mu    sync.Mutex
	out   io.Writer
	opts  PrinterOptions
	count int
}

// NewPrinter creates a printer writing to out
func NewPrinter(out io.Writer, opts PrinterOptions) *Printer {
	return &Printer{out: out, opts: opts}
}

// Warn implements Sink. Write errors are ignored; diagnostics are best
// effort and never abort a conversion.
func (p *Printer) Warn(d Diagnostic) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++

	if p.opts.JSON {
		data, err := json.Marshal(d)
		if err != nil {
			return
		}
		_, _ = p.out.Write(append(data, '\n'))
		return
	}
	_, _ = io.WriteString(p.out, FormatForTerminal(d, p.opts.NoColor))
}

// Count returns the number of diagnostics printed so far
func (p *Printer) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// FormatForTerminal formats a diagnostic with severity colors
//
// Example output:
//
//	Warning W002: com/example/Clock
//	  --> java/time/Instant.now ()Ljava/time/Instant;
//	  can't find referenced method
func FormatForTerminal(d Diagnostic, noColor bool) string {
	header := severityColor(d.Severity)
	location := color.New(color.FgCyan)
	if noColor {
		header.DisableColor()
		location.DisableColor()
	} else {
		header.EnableColor()
		location.EnableColor()
	}

	title := "Warning"
	switch d.Severity {
	case Error:
		title = "Error"
	case Info:
		title = "Info"
	}

	out := header.Sprintf("%s %s", title, d.Code)
	if d.Class != "" {
		out += ": " + d.Class
	}
	out += "\n"
	if d.Target != "" {
		target := d.Target
		if d.Member != "" {
			target += "." + d.Member
		}
		out += location.Sprint("  --> ") + target + "\n"
	}
	out += "  " + d.Message + "\n"
	return out
}

func severityColor(s Severity) *color.Color {
	switch s {
	case Error:
		return color.New(color.FgRed, color.Bold)
	case Warning:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgCyan, color.Bold)
	}
}
