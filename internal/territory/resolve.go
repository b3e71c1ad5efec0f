package territory

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/territory-cli/internal/metrics"
	"github.com/sells-group/territory-cli/internal/region"
)

// Source says where a Result's installer came from.
type Source string

const (
	SourceAssignment Source = "assignment"
	SourceFallback   Source = "fallback"
)

// Request is one address to resolve. A non-empty Geo (typically from a
// geocoder) is used as-is; otherwise Address is decomposed.
type Request struct {
	ID      string           `json:"id,omitempty"`
	Address string           `json:"address,omitempty"`
	Geo     *region.GeoParts `json:"geo,omitempty"`
}

// Result is the responsible installer for a Request.
type Result struct {
	ID          string          `json:"id,omitempty"`
	Geo         region.GeoParts `json:"geo"`
	InstallerID string          `json:"installer_id"`
	Source      Source          `json:"source"`
	MatchedType region.Type     `json:"matched_type,omitempty"`
	MatchedCode string          `json:"matched_code,omitempty"`
	Malformed   bool            `json:"malformed,omitempty"`
}

// GeoFor returns the parts a request resolves on.
func GeoFor(req Request) region.GeoParts {
	if req.Geo != nil && !req.Geo.IsEmpty() {
		return *req.Geo
	}
	return region.Decompose(req.Address)
}

// Resolve returns the installer responsible for req. Unresolved addresses
// and matches on assignments without an installer get the fallback
// installer. A store failure is returned as an error and never replaced
// by the fallback.
func (s *Service) Resolve(ctx context.Context, req Request) (*Result, error) {
	return s.resolveWith(ctx, req, s.Lookup())
}

// ResolveBatch resolves every request against one snapshot of the
// assignment set, so all results reflect the same state. Results are in
// request order.
func (s *Service) ResolveBatch(ctx context.Context, reqs []Request) ([]Result, error) {
	metrics.ObserveBatch(len(reqs))
	if len(reqs) == 0 {
		return []Result{}, nil
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.resolveWith(gctx, req, snap)
			if err != nil {
				return err
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "territory: resolve batch")
	}
	return results, nil
}

func (s *Service) resolveWith(ctx context.Context, req Request, lookup region.Lookup) (*Result, error) {
	geo := GeoFor(req)
	m, err := region.Resolve(ctx, geo, lookup)
	if err != nil {
		metrics.ObserveStoreError("get")
		return nil, err
	}

	res := &Result{ID: req.ID, Geo: geo}
	switch {
	case m == nil:
		res.Source = SourceFallback
	case m.Malformed():
		res.MatchedType, res.MatchedCode = m.Type, m.Code
		res.Malformed = true
		res.Source = SourceFallback
		metrics.ObserveMalformed(string(m.Type))
		logger().Warn("assignment has no installer",
			zap.String("region_type", string(m.Type)),
			zap.String("code", m.Code),
		)
	default:
		res.MatchedType, res.MatchedCode = m.Type, m.Code
		res.InstallerID = m.InstallerID
		res.Source = SourceAssignment
	}

	if res.Source == SourceFallback {
		if s.fallback == "" {
			return nil, eris.Wrapf(ErrNoFallback, "territory: resolve %q", req.Address)
		}
		res.InstallerID = s.fallback
	}

	metrics.ObserveResolution(string(res.MatchedType), string(res.Source))
	return res, nil
}
