package metrics

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"

	"xinbound/internal/form"
	"xinbound/internal/store"
	"xinbound/internal/xray/sharelink"
)

// Outcome of handling one imported link.
type Outcome string

const (
	Imported    Outcome = "Imported"
	Duplicate   Outcome = "Duplicate"
	Unsupported Outcome = "Unsupported protocol"
	Invalid     Outcome = "Invalid link"
	PortTaken   Outcome = "Port in use"
	Failed      Outcome = "Storage error"
)

// Collector tallies import outcomes per source.
type Collector struct {
	mu sync.Mutex

	bySource  map[string]map[Outcome]int
	errorMsgs map[string]int
	total     int
}

func New() *Collector {
	return &Collector{
		bySource:  make(map[string]map[Outcome]int),
		errorMsgs: make(map[string]int),
	}
}

func (c *Collector) Record(source string, o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bySource[source] == nil {
		c.bySource[source] = make(map[Outcome]int)
	}
	c.bySource[source][o]++
	c.total++
}

// RecordError classifies err and records it against source.
func (c *Collector) RecordError(source string, err error) {
	o := Classify(err)
	c.Record(source, o)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorMsgs[err.Error()]++
}

// Classify maps an import error to its outcome.
func Classify(err error) Outcome {
	var ve *form.ValidationError
	switch {
	case errors.Is(err, sharelink.ErrUnsupportedProtocol):
		return Unsupported
	case errors.Is(err, store.ErrPortInUse):
		return PortTaken
	case errors.As(err, &ve):
		return Invalid
	case errors.Is(err, errStorage):
		return Failed
	}
	return Invalid
}

var errStorage = errors.New("storage")

// StorageError marks err as a storage failure for Classify.
func StorageError(err error) error {
	return fmt.Errorf("%w: %w", errStorage, err)
}

// Count returns how many links from all sources ended with o.
func (c *Collector) Count(o Outcome) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, m := range c.bySource {
		n += m[o]
	}
	return n
}

var outcomes = []Outcome{Imported, Duplicate, Unsupported, Invalid, PortTaken, Failed}

func (c *Collector) PrintReport(out io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\n📊 \033[1mIMPORT REPORT\033[0m")
	fmt.Fprintln(w, "────────────────────────────────────────")

	sources := make([]string, 0, len(c.bySource))
	for s := range c.bySource {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	for _, s := range sources {
		fmt.Fprintf(w, "\033[1;36m[ %s ]\033[0m\n", s)
		for _, o := range outcomes {
			if n := c.bySource[s][o]; n > 0 {
				fmt.Fprintf(w, "  %s:\t%d\n", o, n)
			}
		}
	}
	fmt.Fprintf(w, "  Total links:\t%d\n", c.total)

	if len(c.errorMsgs) > 0 {
		fmt.Fprintln(w, "\n\033[1;36m[ ERRORS ]\033[0m")
		msgs := make([]string, 0, len(c.errorMsgs))
		for m := range c.errorMsgs {
			msgs = append(msgs, m)
		}
		sort.Slice(msgs, func(i, j int) bool { return c.errorMsgs[msgs[i]] > c.errorMsgs[msgs[j]] })
		for _, m := range msgs {
			fmt.Fprintf(w, "  %s:\t%d\n", m, c.errorMsgs[m])
		}
	}

	w.Flush()
}
