package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/azdiagram/pkg/buildinfo"
	"github.com/matzehuels/azdiagram/pkg/drawio"
	"github.com/matzehuels/azdiagram/pkg/errors"
	"github.com/matzehuels/azdiagram/pkg/layout"
	"github.com/matzehuels/azdiagram/pkg/model"
	"github.com/matzehuels/azdiagram/pkg/pipeline"
	"github.com/matzehuels/azdiagram/pkg/snapshot"
)

// RenderRequest is the body of POST /v1/diagrams.
type RenderRequest struct {
	Name     string          `json:"name,omitempty"`
	Formats  []string        `json:"formats,omitempty"`
	Detailed bool            `json:"detailed,omitempty"`
	History  bool            `json:"history,omitempty"`
	Graph    json.RawMessage `json:"graph"`
}

// Artifact is one rendered output. Text formats are returned as-is,
// binary ones base64-encoded.
type Artifact struct {
	ContentType string `json:"content_type"`
	Encoding    string `json:"encoding"`
	Data        string `json:"data"`
}

// RenderResponse is the body returned by POST /v1/diagrams.
type RenderResponse struct {
	Name      string              `json:"name"`
	GraphHash string              `json:"graph_hash"`
	Nodes     int                 `json:"nodes"`
	Edges     int                 `json:"edges"`
	Drawio    drawio.Stats        `json:"drawio"`
	Report    model.Report        `json:"report"`
	Artifacts map[string]Artifact `json:"artifacts"`
	Changes   *snapshot.Diff      `json:"changes,omitempty"`
}

// GenerationSummary describes a generation without its cell ids.
type GenerationSummary struct {
	ID        string    `json:"id"`
	Seq       int       `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
	Digest    string    `json:"digest"`
	Cells     int       `json:"cells"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
}

var contentTypes = map[string]string{
	pipeline.FormatDrawio: "application/xml",
	pipeline.FormatSVG:    "image/svg+xml",
	pipeline.FormatPNG:    "image/png",
	pipeline.FormatPDF:    "application/pdf",
	pipeline.FormatJSON:   "application/json",
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"build":  buildinfo.Get(),
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !s.decode(w, r, &req) {
		return
	}
	g, rep, ok := s.readGraph(w, req.Graph)
	if !ok {
		return
	}

	opts := pipeline.Options{
		Name:     req.Name,
		Formats:  req.Formats,
		Detailed: req.Detailed,
		History:  req.History,
		Logger:   s.logger,
	}
	if opts.History && s.runner.History == nil {
		writeError(w, errors.New(errors.ErrCodeUnsupported, "history is not configured on this server"))
		return
	}
	res, err := s.runner.Render(r.Context(), g, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := RenderResponse{
		Name:      opts.Name,
		GraphHash: res.GraphHash,
		Nodes:     res.Stats.NodeCount,
		Edges:     res.Stats.EdgeCount,
		Drawio:    res.Drawio,
		Report:    rep,
		Artifacts: make(map[string]Artifact, len(res.Artifacts)),
		Changes:   res.Changes,
	}
	if resp.Name == "" {
		resp.Name = pipeline.DefaultName
	}
	for format, data := range res.Artifacts {
		resp.Artifacts[format] = encodeArtifact(format, data)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !s.decode(w, r, &req) {
		return
	}
	g, _, ok := s.readGraph(w, req.Graph)
	if !ok {
		return
	}
	_, l := s.runner.Arrange(r.Context(), g)
	writeJSON(w, http.StatusOK, struct {
		Layout layout.Layout `json:"layout"`
	}{l})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	name, ok := s.historyName(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", snapshot.DefaultListLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	gens, err := s.runner.History.List(r.Context(), name, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]GenerationSummary, len(gens))
	for i, g := range gens {
		out[i] = GenerationSummary{
			ID:        g.ID,
			Seq:       g.Seq,
			CreatedAt: g.CreatedAt,
			Digest:    g.Digest,
			Cells:     len(g.CellIDs),
			Nodes:     g.Nodes,
			Edges:     g.Edges,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "generations": out})
}

// handleDiff compares ?from=N with ?to=M. to defaults to the latest
// generation, from to the one before it.
func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	name, ok := s.historyName(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	store := s.runner.History

	to, err := queryInt(r, "to", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	var next *snapshot.Generation
	if to > 0 {
		next, err = store.Get(ctx, name, to)
	} else {
		next, err = store.Latest(ctx, name)
		if err == nil && next == nil {
			err = snapshot.ErrNotFound
		}
	}
	if err != nil {
		writeError(w, err)
		return
	}

	from, err := queryInt(r, "from", next.Seq-1)
	if err != nil {
		writeError(w, err)
		return
	}
	var prev *snapshot.Generation
	if from > 0 {
		if prev, err = store.Get(ctx, name, from); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, snapshot.Compare(prev, next))
}

func (s *Server) historyName(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s.runner.History == nil {
		writeError(w, errors.New(errors.ErrCodeUnsupported, "history is not configured on this server"))
		return "", false
	}
	name := chi.URLParam(r, "name")
	if err := errors.ValidateDiagramName(name); err != nil {
		writeError(w, err)
		return "", false
	}
	return name, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid JSON body"))
		return false
	}
	return true
}

func (s *Server) readGraph(w http.ResponseWriter, raw json.RawMessage) (model.Graph, model.Report, bool) {
	if len(bytes.TrimSpace(raw)) == 0 || string(raw) == "null" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "graph is required"))
		return model.Graph{}, model.Report{}, false
	}
	g, rep, err := model.ReadGraph(bytes.NewReader(raw))
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid graph"))
		return model.Graph{}, model.Report{}, false
	}
	return g, rep, true
}

func encodeArtifact(format string, data []byte) Artifact {
	a := Artifact{ContentType: contentTypes[format]}
	if utf8.Valid(data) && format != pipeline.FormatPNG && format != pipeline.FormatPDF {
		a.Encoding = "utf-8"
		a.Data = string(data)
		return a
	}
	a.Encoding = "base64"
	a.Data = base64.StdEncoding.EncodeToString(data)
	return a
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid %s: %q", key, v)
	}
	return n, nil
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	if stderrors.Is(err, snapshot.ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.IsInvalid(err) {
		return http.StatusBadRequest
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	case errors.ErrCodeBackendUnavailable, errors.ErrCodeNotLoggedIn, errors.ErrCodeExtensionMissing:
		return http.StatusServiceUnavailable
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := string(errors.GetCode(err))
	if code == "" {
		code = string(errors.ErrCodeInternal)
		if stderrors.Is(err, snapshot.ErrNotFound) {
			code = string(errors.ErrCodeNotFound)
		}
	}
	writeJSON(w, statusFor(err), map[string]errorBody{
		"error": {Code: code, Message: errors.UserMessage(err)},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
