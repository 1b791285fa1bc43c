package app

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/five82/cquery/query"
)

// linePrinter writes one line per notification. It backs watch --plain.
type linePrinter struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

func (p *linePrinter) subscriber(key string) query.Callback {
	return func(snap query.Snapshot, _ *query.StopHandle) {
		p.print(key, snap)
	}
}

func (p *linePrinter) print(key string, snap query.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stamp := p.now().Format("15:04:05")
	switch {
	case snap.Loading:
		fmt.Fprintf(p.out, "%s %s loading\n", stamp, key)
	case snap.Err != nil:
		fmt.Fprintf(p.out, "%s %s error: %v\n", stamp, key, snap.Err)
	default:
		fmt.Fprintf(p.out, "%s %s ok %s\n", stamp, key, summarize(snap.Data))
	}
}

// summarize renders data as compact JSON, cut to a single terminal line.
func summarize(data any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	const limit = 120
	if len(b) > limit {
		return string(b[:limit-3]) + "..."
	}
	return string(b)
}
