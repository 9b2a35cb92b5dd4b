package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/segmenter/pkg/buildinfo"
	errs "github.com/matzehuels/segmenter/pkg/errors"
	"github.com/matzehuels/segmenter/pkg/observability"
	"github.com/matzehuels/segmenter/pkg/pipeline"
	"github.com/matzehuels/segmenter/pkg/segment"
)

// SegmentRequest is the body of POST /v1/segment. Options the request omits
// come from the server config.
type SegmentRequest struct {
	pipeline.Options

	// MinimumSegmentSize shadows the embedded field so that an explicit 0 is
	// told apart from an omitted value.
	MinimumSegmentSize *int `json:"minimum_segment_size,omitempty"`
}

// SegmentResponse is the body of a successful POST /v1/segment.
type SegmentResponse struct {
	RunID     string            `json:"run_id"`
	GraphHash string            `json:"graph_hash"`
	Segments  []segment.Segment `json:"segments"`
	Stats     StatsResponse     `json:"stats"`
	Cached    CacheResponse     `json:"cached"`

	// Artifacts holds the rendered formats. Text formats are inlined,
	// png and pdf are base64 encoded.
	Artifacts map[string]string `json:"artifacts,omitempty"`
}

// StatsResponse mirrors pipeline.Stats with durations in milliseconds.
type StatsResponse struct {
	Nodes     int   `json:"nodes"`
	Edges     int   `json:"edges"`
	Segments  int   `json:"segments"`
	Covered   int   `json:"covered"`
	LoadMS    int64 `json:"load_ms"`
	SegmentMS int64 `json:"segment_ms"`
	RenderMS  int64 `json:"render_ms"`
}

// CacheResponse reports which stages were served from the cache.
type CacheResponse struct {
	Segments  bool `json:"segments"`
	Artifacts bool `json:"artifacts"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the error code, the user-facing message and the id of
// the failed request.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}

func (s *Server) segment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBytes)

	var req SegmentRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.fail(w, r, errs.Wrap(errs.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	opts, err := s.applyDefaults(req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := SegmentResponse{
		RunID:     result.RunID,
		GraphHash: result.GraphHash,
		Segments:  result.Segments,
		Stats: StatsResponse{
			Nodes:     result.Stats.NodeCount,
			Edges:     result.Stats.EdgeCount,
			Segments:  result.Stats.SegmentCount,
			Covered:   result.Stats.CoveredCount,
			LoadMS:    ms(result.Stats.LoadTime),
			SegmentMS: ms(result.Stats.SegmentTime),
			RenderMS:  ms(result.Stats.RenderTime),
		},
		Cached: CacheResponse{
			Segments:  result.CacheInfo.SegmentHit,
			Artifacts: result.CacheInfo.RenderHit,
		},
		Artifacts: encodeArtifacts(result.Artifacts),
	}
	if resp.Segments == nil {
		resp.Segments = []segment.Segment{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// applyDefaults fills options the request left unset from the server config.
func (s *Server) applyDefaults(req SegmentRequest) (pipeline.Options, error) {
	opts := req.Options
	switch {
	case req.MinimumSegmentSize == nil:
		opts.MinimumSegmentSize = s.cfg.Segment.MinimumSegmentSize
	case *req.MinimumSegmentSize < 1:
		return opts, errs.New(errs.ErrCodeInvalidArgument,
			"minimum_segment_size must be at least 1, got %d", *req.MinimumSegmentSize)
	default:
		opts.MinimumSegmentSize = *req.MinimumSegmentSize
	}
	if opts.DevicePrefix == "" {
		opts.DevicePrefix = s.cfg.Segment.DevicePrefix
	}
	if opts.ExcludeNodes == nil {
		opts.ExcludeNodes = append([]string(nil), s.cfg.Segment.ExcludeNodes...)
	}
	p := opts.Policy
	if len(p.CandidateOps)+len(p.MandatoryOps)+len(p.WeakOps)+len(p.DenyOps) == 0 {
		opts.Policy = s.cfg.Policy
	}
	return opts, nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	route := r.URL.Path
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		route = rc.RoutePattern()
	}
	observability.HTTP().OnError(r.Context(), r.Method, route, err)

	status := errs.HTTPStatus(err)
	code := string(errs.GetCode(err))
	if code == "" {
		code = string(errs.ErrCodeInternal)
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "route", route, "error", err)
	} else {
		s.logger.Warn("request rejected", "route", route, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: ErrorBody{
		Code:      code,
		Message:   errs.UserMessage(err),
		RequestID: w.Header().Get(RequestIDHeader),
	}})
}

func encodeArtifacts(in map[string][]byte) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for format, data := range in {
		switch format {
		case pipeline.FormatPNG, pipeline.FormatPDF:
			out[format] = base64.StdEncoding.EncodeToString(data)
		default:
			out[format] = string(data)
		}
	}
	return out
}

func ms(d time.Duration) int64 { return d.Milliseconds() }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
