package script

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/coni-eng/HyperIsle-sub002/internal/bridge"
	"github.com/coni-eng/HyperIsle-sub002/internal/island"
)

// payloadSections maps wire kind names to their envelope section.
var payloadSections = map[string]string{
	"incoming_call": "call",
	"ongoing_call":  "call",
	"notification":  "notification",
	"media":         "media",
	"timer":         "timer",
	"navigation":    "navigation",
	"dismiss":       "dismiss",
	"dismiss_all":   "dismiss",
	"user_dismiss":  "dismiss",
}

// StepResult records the coordinator state after one replayed step.
type StepResult struct {
	Step      Step
	ActiveKey string // "" when idle
	Passed    bool   // false only when Expect was set and missed
}

// Result is the outcome of a full script run.
type Result struct {
	Script   *Script
	Steps    []StepResult
	Failures int
}

// Runner replays scripts through a dedicated coordinator on simulated time.
// Timer-driven transitions (auto-collapse chains) do not fire during replay;
// scripts assert the arbitration decisions only.
type Runner struct {
	coord *island.Coordinator
	out   io.Writer
}

// NewRunner creates a runner around opts. The clock is replaced with the
// simulated one; a supplied Clock is ignored.
func NewRunner(opts island.Options, out io.Writer) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		coord: island.New(opts),
		out:   out,
	}
}

// Run replays the script and writes a transition trace. The returned error
// covers malformed steps only; expectation misses are reported in the Result.
func (r *Runner) Run(sc *Script) (*Result, error) {
	defer r.coord.Close()

	base := time.Now()
	now := base
	r.coord.SetClock(func() time.Time { return now })

	res := &Result{Script: sc}
	if sc.Name != "" {
		fmt.Fprintf(r.out, "script: %s (%d steps)\n", sc.Name, len(sc.Steps))
	}

	for i, st := range sc.Steps {
		now = base.Add(st.offset)

		envelope, err := stepEnvelope(st)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		ev, err := bridge.DecodeEvent(envelope)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		r.coord.HandleEvent(ev)

		sr := StepResult{Step: st, Passed: true}
		if active := r.coord.Active(); active != nil {
			sr.ActiveKey = active.NotificationKey
		}

		shown := sr.ActiveKey
		if shown == "" {
			shown = "none"
		}
		fmt.Fprintf(r.out, "  +%-8s %-13s key=%-24s active=%s\n", st.At, st.Kind, st.Key, shown)

		if st.Expect != "" {
			want := st.Expect
			if want == "none" {
				want = ""
			}
			if sr.ActiveKey != want {
				sr.Passed = false
				res.Failures++
				fmt.Fprintf(r.out, "  FAIL: %s step expected active=%s, got %s\n",
					humanize.Ordinal(i+1), st.Expect, shown)
			}
		}
		res.Steps = append(res.Steps, sr)
	}

	snap := r.coord.Snapshot()
	fmt.Fprintf(r.out, "done: %s accepted, %s guarded, %d preempted, %d resumed, %d failures\n",
		humanize.Comma(int64(snap.Accepted)), humanize.Comma(int64(snap.Guarded)),
		snap.Preempted, snap.Resumed, res.Failures)

	return res, nil
}

// stepEnvelope builds the wire JSON envelope for a step.
func stepEnvelope(st Step) ([]byte, error) {
	envelope := map[string]any{
		"kind": st.Kind,
	}
	if st.Key != "" {
		envelope["key"] = st.Key
	}
	if st.Package != "" {
		envelope["package"] = st.Package
	}
	if len(st.Payload) > 0 {
		section, ok := payloadSections[st.Kind]
		if !ok {
			return nil, fmt.Errorf("kind %q takes no payload", st.Kind)
		}
		envelope[section] = st.Payload
	}
	return json.Marshal(envelope)
}
