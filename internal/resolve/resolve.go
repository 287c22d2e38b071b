// Package resolve runs a set of heuristics over one image and narrows the
// ambiguous ones using the offsets of those that resolved.
//
// # Execution Model
//
//  1. Every variant scans the image in its own goroutine.
//  2. Heuristics are ordered by priority (lowest first), then by pattern
//     tightness (tightest first), then by name.
//  3. In that order, each resolved offset is fed to every ambiguous
//     heuristic of the same or a lower priority (equal or higher Priority
//     value) through SetOffsetsNearby. A reference with no candidate
//     nearby is skipped, so an ambiguous heuristic is never emptied by
//     narrowing. Passes repeat while a pass resolves something new.
//  4. Unresolved heuristics are reported together through ErrUnresolved.
//
// # Thread Safety
//
// A Resolver is immutable after New and safe for concurrent use. The image
// must not be modified while Resolve runs.
package resolve

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"fspatch/internal/heuristic"
	"fspatch/internal/logging"
	"fspatch/internal/search"
)

var (
	// ErrUnresolved means at least one variant did not end with exactly
	// one candidate. It wraps the joined per-variant errors.
	ErrUnresolved = errors.New("unresolved variants")

	// ErrNoVariants means the Resolver was built with nothing to run.
	ErrNoVariants = errors.New("no variants selected")
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for scan and narrowing traces.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithoutDetails skips decoding of resolved offsets.
func WithoutDetails() Option {
	return func(r *Resolver) { r.details = false }
}

// Resolver holds an ordered set of variants.
type Resolver struct {
	variants []heuristic.Variant
	logger   *log.Logger
	details  bool
}

// New validates variants and orders them for narrowing. Names must be
// unique.
func New(variants []heuristic.Variant, opts ...Option) (*Resolver, error) {
	if len(variants) == 0 {
		return nil, ErrNoVariants
	}

	seen := make(map[string]bool, len(variants))
	tightness := make(map[string]int, len(variants))
	for _, v := range variants {
		if err := v.Validate(); err != nil {
			return nil, err
		}
		if seen[v.Name] {
			return nil, fmt.Errorf("%w: duplicate name %q", heuristic.ErrInvalidVariant, v.Name)
		}
		seen[v.Name] = true
		tightness[v.Name] = search.MustParse(v.Pattern).Fixed()
	}

	ordered := slices.Clone(variants)
	slices.SortStableFunc(ordered, func(a, b heuristic.Variant) int {
		return cmp.Or(
			cmp.Compare(a.Priority, b.Priority),
			cmp.Compare(tightness[b.Name], tightness[a.Name]),
			cmp.Compare(a.Name, b.Name),
		)
	})

	r := &Resolver{
		variants: ordered,
		logger:   logging.Discard(),
		details:  true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Variants returns the variants in narrowing order.
func (r *Resolver) Variants() []heuristic.Variant {
	return slices.Clone(r.variants)
}

// Resolve scans image with every variant and narrows the results. The
// returned Result is non-nil whenever scanning completed, including when
// the error is ErrUnresolved.
func (r *Resolver) Resolve(ctx context.Context, image []byte) (*Result, error) {
	start := time.Now()
	ctx, span := startResolveSpan(ctx, len(image), len(r.variants))
	defer span.End()

	finders, err := r.scan(ctx, image)
	if err != nil {
		span.RecordError(err)
		setResolveSpanResult(span, 0, 0, false)
		return nil, err
	}

	passes := r.narrow(finders)

	res := &Result{
		ImageSize: len(image),
		Passes:    passes,
		Outcomes:  make([]Outcome, len(finders)),
	}
	var errs []error
	for i, f := range finders {
		res.Outcomes[i] = r.outcome(f)
		if oErr := res.Outcomes[i].Err; oErr != nil {
			errs = append(errs, oErr)
		}
	}
	res.Duration = time.Since(start)

	success := len(errs) == 0
	setResolveSpanResult(span, len(finders)-len(errs), passes, success)
	recordResolve(ctx, res.Duration, res.Outcomes, success)

	if !success {
		err := fmt.Errorf("%w: %w", ErrUnresolved, errors.Join(errs...))
		span.RecordError(err)
		return res, err
	}
	return res, nil
}

func (r *Resolver) scan(ctx context.Context, image []byte) ([]*heuristic.Finder, error) {
	finders := make([]*heuristic.Finder, len(r.variants))

	g, gCtx := errgroup.WithContext(ctx)
	for i, v := range r.variants {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			f, err := heuristic.New(image, v)
			if err != nil {
				return err
			}
			finders[i] = f

			n := len(f.Candidates())
			recordScan(gCtx, v.Name, n)
			r.logger.Debug("scan", "variant", v.Name, "candidates", n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	// A cancellation that raced the last goroutine still aborts.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return finders, nil
}

// narrow feeds resolved offsets to ambiguous heuristics until a pass
// resolves nothing new. It returns the number of passes.
func (r *Resolver) narrow(finders []*heuristic.Finder) int {
	passes := 0
	for {
		passes++
		progress := false

		for _, ref := range finders {
			if !ref.IsFound() {
				continue
			}
			offset, _ := ref.Offset()

			for _, f := range finders {
				if f == ref || !f.WantLessEntropy() {
					continue
				}
				if ref.Variant().Priority > f.Variant().Priority {
					continue
				}
				if len(f.Nearby(offset)) == 0 {
					r.logger.Debug("narrow skipped, no candidate nearby",
						"variant", f.Name(),
						"by", ref.Name(),
						"near", fmt.Sprintf("0x%x", offset),
					)
					continue
				}
				before := len(f.Candidates())
				resolved := f.SetOffsetsNearby(offset)
				after := len(f.Candidates())

				r.logger.Debug("narrow",
					"variant", f.Name(),
					"by", ref.Name(),
					"near", fmt.Sprintf("0x%x", offset),
					"before", before,
					"after", after,
				)
				if resolved {
					progress = true
				}
			}
		}

		if !progress {
			return passes
		}
	}
}

func (r *Resolver) outcome(f *heuristic.Finder) Outcome {
	v := f.Variant()
	o := Outcome{
		Name:        v.Name,
		Description: v.Description,
		Priority:    v.Priority,
		Tightness:   f.Tightness(),
		Candidates:  f.Candidates(),
	}

	offset, err := f.Offset()
	if err != nil {
		o.Err = err
		return o
	}
	o.Offset = offset

	if r.details {
		o.Details, o.DetailsErr = f.Details()
		if o.DetailsErr != nil {
			r.logger.Warn("details", "variant", v.Name, "err", o.DetailsErr)
		}
	}
	return o
}
