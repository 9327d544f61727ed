package controllers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rzbill/traced/internal/artifact"
	"github.com/rzbill/traced/internal/runtime"
	tracesvc "github.com/rzbill/traced/internal/services/traces"
	"github.com/rzbill/traced/internal/tracelog"
	logpkg "github.com/rzbill/traced/pkg/log"
)

// TracesController handles all trace-related HTTP endpoints: event
// ingest, the enable toggle, configuration, dump requests, status, and
// artifact retrieval.
type TracesController struct {
	rt     *runtime.Runtime
	svc    *tracesvc.Service
	logger logpkg.Logger
}

// NewTracesController creates a traces controller.
func NewTracesController(rt *runtime.Runtime, svc *tracesvc.Service, logger logpkg.Logger) *TracesController {
	if logger == nil {
		logger = logpkg.NewNop()
	}
	return &TracesController{rt: rt, svc: svc, logger: logger}
}

// RegisterRoutes registers all trace routes with the given mux.
func (c *TracesController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/trace/record", c.handleRecord)
	mux.HandleFunc("/v1/trace/enable", c.handleEnable)
	mux.HandleFunc("/v1/trace/configure", c.handleConfigure)
	mux.HandleFunc("/v1/trace/dump", c.handleDump)
	mux.HandleFunc("/v1/trace/status", c.handleStatus)
	mux.HandleFunc("/v1/trace/artifacts", c.handleListArtifacts)
	mux.HandleFunc("/v1/trace/artifacts/", c.handleGetArtifact)
}

// handleRecord ingests one trace event.
func (c *TracesController) handleRecord(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req recordReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	typ, err := tracelog.ParseEventType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var payload []byte
	switch {
	case req.PayloadB64 != "":
		payload, err = base64.StdEncoding.DecodeString(req.PayloadB64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "payload is not valid base64")
			return
		}
	case req.Text != "":
		payload = []byte(req.Text)
	}
	err = c.svc.Record(tracesvc.Event{ID: req.ID, Time: tracelog.Now(), Type: typ, Payload: payload})
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, statusResp{Status: "queued"})
	case errors.Is(err, tracelog.ErrPayloadTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, tracesvc.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		writeError(w, http.StatusServiceUnavailable, err.Error())
	}
}

// handleEnable toggles recording.
func (c *TracesController) handleEnable(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req enableReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := c.svc.SetEnabled(r.Context(), req.Enable); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResp{Status: "ok"})
}

// handleConfigure sets the trace file path and budget. Rejections keep
// the previous configuration; settings are ignored once the file is open.
func (c *TracesController) handleConfigure(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req configureReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := c.svc.Configure(r.Context(), req.Path, req.MaxSizeByte); err != nil {
		if errors.Is(err, tracelog.ErrInvalidPath) || errors.Is(err, tracelog.ErrInvalidBudget) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResp{Status: "ok"})
}

// handleDump packages the current trace bytes as an artifact and returns
// its metadata.
func (c *TracesController) handleDump(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	meta, err := c.svc.Dump(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// handleStatus reports the recorder snapshot.
func (c *TracesController) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	st, err := c.svc.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleListArtifacts lists dump artifacts in creation order.
func (c *TracesController) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	metas, err := c.rt.Artifacts().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if metas == nil {
		metas = []artifact.Meta{}
	}
	writeJSON(w, http.StatusOK, metas)
}

// handleGetArtifact streams one artifact's raw trace bytes. The metadata
// rides along in headers so the body stays bit-exact.
func (c *TracesController) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	hexID := strings.TrimPrefix(r.URL.Path, "/v1/trace/artifacts/")
	if hexID == "" {
		writeError(w, http.StatusBadRequest, "missing artifact id")
		return
	}
	meta, data, err := c.rt.Artifacts().Get(hexID)
	if err != nil {
		switch {
		case errors.Is(err, artifact.ErrNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, artifact.ErrCorrupt):
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Traced-Artifact-Id", meta.ID)
	w.Header().Set("X-Traced-Records", fmt.Sprintf("%d", meta.Records))
	w.Header().Set("X-Traced-Crc32c", fmt.Sprintf("%08x", meta.Checksum))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
