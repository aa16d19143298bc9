package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Jahawk44/Sun-Research-Tree/internal/document"
	"github.com/Jahawk44/Sun-Research-Tree/internal/layout"
	"github.com/Jahawk44/Sun-Research-Tree/internal/session"
	"github.com/Jahawk44/Sun-Research-Tree/internal/testutil"
	"github.com/Jahawk44/Sun-Research-Tree/internal/tree"
)

// decodeTimeout bounds the wait for image decodes after attach_image.
const decodeTimeout = 10 * time.Second

// Harness executes one scenario.
type Harness struct {
	sess     *session.Session
	recorder *tree.Recorder
	logger   *slog.Logger
}

// Option configures a run.
type Option func(*runOptions)

type runOptions struct {
	logger      *slog.Logger
	sessionOpts []session.Option
}

// WithLogger sets the logger for the run. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *runOptions) {
		o.logger = l
	}
}

// WithSessionOptions passes options to the session under test.
func WithSessionOptions(opts ...session.Option) Option {
	return func(o *runOptions) {
		o.sessionOpts = append(o.sessionOpts, opts...)
	}
}

// Run executes a scenario and returns the result.
//
// An error is returned only when the scenario cannot be executed (a bad
// argument, an unreadable document). Failed expectations and assertions
// are reported in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := runOptions{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	rec := &tree.Recorder{}
	sessOpts := append([]session.Option{session.WithLogger(o.logger)}, o.sessionOpts...)
	sessOpts = append(sessOpts, session.WithListener(rec))
	h := &Harness{
		sess:     session.New(sessOpts...),
		recorder: rec,
		logger:   o.logger,
	}
	defer h.sess.Close()

	if scenario.Document != "" {
		doc, err := readDocument(scenario.Document)
		if err != nil {
			return nil, err
		}
		if err := h.sess.Load(doc); err != nil {
			return nil, fmt.Errorf("initial document: %w", err)
		}
		if err := h.drain(); err != nil {
			return nil, fmt.Errorf("initial document: %w", err)
		}
	}
	h.sess.SetAlign(scenario.Align)

	result := NewResult()
	for i, step := range scenario.Flow {
		rec.Reset()
		if err := h.executeStep(i, step, result); err != nil {
			return nil, fmt.Errorf("flow step %d (%s): %w", i, step.Op, err)
		}
		for _, c := range rec.Changes() {
			result.Trace = append(result.Trace, newTraceEvent(i, c))
		}
	}

	result.Final = h.sess.Save()
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, h.sess.Store()) {
		result.AddError(msg)
	}
	return result, nil
}

// stepOutcome is what an operation returned.
type stepOutcome struct {
	err   error
	id    *int64
	pulse *bool
}

// executeStep performs one step and checks its expect clause.
func (h *Harness) executeStep(i int, step Step, result *Result) error {
	out, err := h.perform(step)
	if err != nil {
		return err
	}

	h.logger.Debug("step executed", "step", i, "op", step.Op, "error", out.err)

	label := fmt.Sprintf("flow[%d] %s", i, step.Op)
	expect := step.Expect
	if expect == nil {
		expect = &ExpectClause{}
	}

	switch {
	case expect.Error == "" && out.err != nil:
		result.AddError(fmt.Sprintf("%s: unexpected error: %v", label, out.err))
		return nil
	case expect.Error != "" && out.err == nil:
		result.AddError(fmt.Sprintf("%s: expected error %s, got success", label, expect.Error))
		return nil
	case expect.Error != "":
		if got := string(tree.CodeOf(out.err)); got != expect.Error {
			result.AddError(fmt.Sprintf("%s: expected error %s, got %v", label, expect.Error, out.err))
		}
		return nil
	}

	if expect.ID != nil {
		if out.id == nil {
			result.AddError(fmt.Sprintf("%s: op returns no id", label))
		} else if *out.id != *expect.ID {
			result.AddError(fmt.Sprintf("%s: expected id %d, got %d", label, *expect.ID, *out.id))
		}
	}
	if expect.Pulse != nil {
		if out.pulse == nil {
			result.AddError(fmt.Sprintf("%s: op returns no pulse", label))
		} else if *out.pulse != *expect.Pulse {
			result.AddError(fmt.Sprintf("%s: expected pulse %t, got %t", label, *expect.Pulse, *out.pulse))
		}
	}
	return nil
}

// perform runs the operation. The returned error is a harness error (bad
// arguments); the operation's own error is in the outcome.
func (h *Harness) perform(step Step) (stepOutcome, error) {
	a := args(step.Args)
	switch step.Op {
	case "add_node":
		pos, err := a.point()
		if err != nil {
			return stepOutcome{}, err
		}
		id := int64(h.sess.AddNode(pos))
		return stepOutcome{id: &id}, nil

	case "move_node":
		id, err := a.integer("id")
		if err != nil {
			return stepOutcome{}, err
		}
		pos, err := a.point()
		if err != nil {
			return stepOutcome{}, err
		}
		return stepOutcome{err: h.sess.MoveNode(tree.NodeID(id), pos)}, nil

	case "delete_node":
		id, err := a.integer("id")
		if err != nil {
			return stepOutcome{}, err
		}
		return stepOutcome{err: h.sess.DeleteNode(tree.NodeID(id))}, nil

	case "add_edge":
		from, err := a.integer("from")
		if err != nil {
			return stepOutcome{}, err
		}
		to, err := a.integer("to")
		if err != nil {
			return stepOutcome{}, err
		}
		eid, opErr := h.sess.AddEdge(tree.NodeID(from), tree.NodeID(to))
		if opErr != nil {
			return stepOutcome{err: opErr}, nil
		}
		id := int64(eid)
		return stepOutcome{id: &id}, nil

	case "delete_edge":
		id, err := a.integer("id")
		if err != nil {
			return stepOutcome{}, err
		}
		return stepOutcome{err: h.sess.DeleteEdge(tree.EdgeID(id))}, nil

	case "update_node":
		return h.updateNode(a)

	case "attach_image":
		return h.attachImage(a)

	case "unlock":
		id, err := a.integer("id")
		if err != nil {
			return stepOutcome{}, err
		}
		pulse, opErr := h.sess.AttemptUnlock(tree.NodeID(id))
		if opErr != nil {
			return stepOutcome{err: opErr}, nil
		}
		return stepOutcome{pulse: &pulse}, nil

	case "lock":
		id, err := a.integer("id")
		if err != nil {
			return stepOutcome{}, err
		}
		return stepOutcome{err: h.sess.Lock(tree.NodeID(id))}, nil

	case "set_align":
		on, err := a.flag("on")
		if err != nil {
			return stepOutcome{}, err
		}
		h.sess.SetAlign(on)
		return stepOutcome{}, nil

	case "load":
		path, err := a.text("document")
		if err != nil {
			return stepOutcome{}, err
		}
		doc, err := readDocument(path)
		if err != nil {
			// Unreadable or malformed input is the op's outcome, so a
			// scenario can expect MALFORMED_DOCUMENT.
			if tree.CodeOf(err) != "" {
				return stepOutcome{err: err}, nil
			}
			return stepOutcome{}, err
		}
		if err := h.sess.Load(doc); err != nil {
			return stepOutcome{err: err}, nil
		}
		return stepOutcome{err: h.drain()}, nil
	}
	return stepOutcome{}, fmt.Errorf("unknown op %q", step.Op)
}

func (h *Harness) updateNode(a args) (stepOutcome, error) {
	id, err := a.integer("id")
	if err != nil {
		return stepOutcome{}, err
	}
	var f tree.NodeFields
	if a.has("title") {
		title, err := a.text("title")
		if err != nil {
			return stepOutcome{}, err
		}
		f.Title = &title
	}
	if a.has("description") {
		desc, err := a.text("description")
		if err != nil {
			return stepOutcome{}, err
		}
		f.Description = &desc
	}
	if a.has("clear_image") {
		clearImage, err := a.flag("clear_image")
		if err != nil {
			return stepOutcome{}, err
		}
		f.ClearImage = clearImage
	}
	return stepOutcome{err: h.sess.UpdateNode(tree.NodeID(id), f)}, nil
}

func (h *Harness) attachImage(a args) (stepOutcome, error) {
	id, err := a.integer("id")
	if err != nil {
		return stepOutcome{}, err
	}

	var dataURL string
	if a.has("data") {
		if dataURL, err = a.text("data"); err != nil {
			return stepOutcome{}, err
		}
	} else {
		w, err := a.integer("width")
		if err != nil {
			return stepOutcome{}, err
		}
		hgt, err := a.integer("height")
		if err != nil {
			return stepOutcome{}, err
		}
		if w <= 0 || hgt <= 0 {
			return stepOutcome{}, fmt.Errorf("width and height must be positive")
		}
		dataURL = testutil.PNGDataURL(int(w), int(hgt))
	}

	if err := h.sess.AttachImage(tree.NodeID(id), dataURL); err != nil {
		return stepOutcome{err: err}, nil
	}
	return stepOutcome{err: h.drain()}, nil
}

// drain waits for pending decodes so their changes land in this step.
func (h *Harness) drain() error {
	ctx, cancel := context.WithTimeout(context.Background(), decodeTimeout)
	defer cancel()
	err := h.sess.Drain(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("image decode did not finish within %s", decodeTimeout)
	}
	return err
}

// readDocument reads a JSON or YAML (by extension) document file.
func readDocument(path string) (document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Document{}, fmt.Errorf("read document: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return document.UnmarshalYAML(data)
	default:
		return document.Unmarshal(data)
	}
}

// args wraps a step's argument map. YAML numbers arrive as int or float64.
type args map[string]any

func (a args) has(key string) bool {
	_, ok := a[key]
	return ok
}

func (a args) number(key string) (float64, error) {
	switch v := a[key].(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case nil:
		return 0, fmt.Errorf("missing argument %q", key)
	default:
		return 0, fmt.Errorf("argument %q: expected a number, got %T", key, v)
	}
}

func (a args) integer(key string) (int64, error) {
	switch v := a[key].(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("argument %q: expected an integer, got %v", key, v)
		}
		return int64(v), nil
	case nil:
		return 0, fmt.Errorf("missing argument %q", key)
	default:
		return 0, fmt.Errorf("argument %q: expected an integer, got %T", key, v)
	}
}

func (a args) text(key string) (string, error) {
	switch v := a[key].(type) {
	case string:
		return v, nil
	case nil:
		return "", fmt.Errorf("missing argument %q", key)
	default:
		return "", fmt.Errorf("argument %q: expected a string, got %T", key, v)
	}
}

func (a args) flag(key string) (bool, error) {
	switch v := a[key].(type) {
	case bool:
		return v, nil
	case nil:
		return false, fmt.Errorf("missing argument %q", key)
	default:
		return false, fmt.Errorf("argument %q: expected a boolean, got %T", key, v)
	}
}

func (a args) point() (layout.Point, error) {
	x, err := a.number("x")
	if err != nil {
		return layout.Point{}, err
	}
	y, err := a.number("y")
	if err != nil {
		return layout.Point{}, err
	}
	return layout.Point{X: x, Y: y}, nil
}
