package pipeline

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/matzehuels/segmenter/pkg/dag"
	errs "github.com/matzehuels/segmenter/pkg/errors"
	"github.com/matzehuels/segmenter/pkg/graphdef"
	"github.com/matzehuels/segmenter/pkg/policy"
	"github.com/matzehuels/segmenter/pkg/render/nodelink"
	"github.com/matzehuels/segmenter/pkg/segment"
)

// Render generates output artifacts in the requested formats.
func Render(ctx context.Context, g *dag.DAG, segs []segment.Segment, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	var dot string
	for _, format := range opts.Formats {
		var (
			data []byte
			err  error
		)
		switch format {
		case FormatJSON:
			data, err = json.MarshalIndent(segs, "", "  ")
		case FormatGraph:
			var buf bytes.Buffer
			err = graphdef.Write(&buf, graphdef.Assign(opts.Graph, Devices(segs)), graphdef.FormatJSON)
			data = buf.Bytes()
		default:
			if dot == "" {
				if dot, err = toDOT(g, segs, opts); err != nil {
					return nil, err
				}
			}
			data, err = renderDOT(ctx, dot, format)
		}
		if err != nil {
			return nil, errs.WithCode(errs.ErrCodeInternal, err, "render %s", format)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func toDOT(g *dag.DAG, segs []segment.Segment, opts Options) (string, error) {
	nl := nodelink.Options{Detailed: opts.Detailed}
	if opts.Detailed {
		p := policy.New(opts.Policy)
		statuses, err := segment.Statuses(g, p.Candidate, opts.SegmentOptions(), p.Options()...)
		if err != nil {
			return "", err
		}
		nl.Statuses = statuses
	}
	return nodelink.ToDOT(g, segs, nl), nil
}

func renderDOT(ctx context.Context, dot, format string) ([]byte, error) {
	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		return nodelink.RenderSVG(ctx, dot)
	case FormatPNG:
		return nodelink.RenderPNG(ctx, dot, PNGScale)
	case FormatPDF:
		return nodelink.RenderPDF(ctx, dot)
	}
	return nil, errs.New(errs.ErrCodeInvalidArgument, "unsupported format: %s", format)
}

// Devices maps every segmented node to its segment's device label.
func Devices(segs []segment.Segment) map[string]string {
	out := make(map[string]string)
	for _, s := range segs {
		for _, n := range s.Nodes {
			out[n] = s.Device
		}
	}
	return out
}
