package pathflock

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

// Profiler keeps the wall time of each stage in the last frame plus a few
// named counters. App.Step fills the stage timings when a Profiler
// resource is present.
type Profiler struct {
	Scopes map[string]time.Duration
	Counts map[string]int
	Order  []string

	starts map[string]time.Time
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes: make(map[string]time.Duration),
		Counts: make(map[string]int),
		starts: make(map[string]time.Time),
	}
}

func (p *Profiler) BeginScope(name string) {
	p.starts[name] = time.Now()
	if !slices.Contains(p.Order, name) {
		p.Order = append(p.Order, name)
	}
}

func (p *Profiler) EndScope(name string) {
	if start, ok := p.starts[name]; ok {
		p.Scopes[name] = time.Since(start)
	}
}

func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

// Total is the sum of all scope timings.
func (p *Profiler) Total() time.Duration {
	var total time.Duration
	for _, d := range p.Scopes {
		total += d
	}
	return total
}

func (p *Profiler) String() string {
	var sb strings.Builder
	sb.WriteString("timings:")
	for _, name := range p.Order {
		fmt.Fprintf(&sb, " %s=%.2fms", name, float64(p.Scopes[name].Microseconds())/1000.0)
	}

	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		sb.WriteString(" counts:")
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%d", k, p.Counts[k])
	}
	return sb.String()
}

// ProfilerModule installs a Profiler and logs it at debug level every
// LogEvery frames (never when zero).
type ProfilerModule struct {
	LogEvery uint64
}

type profilerLog struct {
	every uint64
}

func (m ProfilerModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(NewProfiler(), &profilerLog{every: m.LogEvery})
	cmd.UseSystem(System(profilerLogSystem).InStage(PostRender))
}

func profilerLogSystem(p *Profiler, l *profilerLog, cmd *Commands) {
	if l.every == 0 || cmd.app.Frame()%l.every != 0 {
		return
	}
	cmd.Logger().Debugf("frame %d %s", cmd.app.Frame(), p)
}
