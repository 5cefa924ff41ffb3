package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"pipetrace/internal/feedback"
	"pipetrace/internal/metrics"
	"pipetrace/internal/network"
	"pipetrace/internal/service"
	"pipetrace/internal/trace"
)

// Handler carries the HTTP-facing dependencies. hub may be nil when no live
// feedback stream is wanted (tests, embedded use).
type Handler struct {
	svc     *service.Service
	hub     *feedback.Hub
	metrics *metrics.Collector
}

func NewHandler(svc *service.Service, hub *feedback.Hub, collector *metrics.Collector) *Handler {
	return &Handler{svc: svc, hub: hub, metrics: collector}
}

type edgeRecordIn struct {
	EdgeID      string `json:"edge_id"`
	StartNode   string `json:"start_node"`
	EndNode     string `json:"end_node"`
	ExternalRef string `json:"external_ref,omitempty"`
}

type linkRecordIn struct {
	EdgeID        string   `json:"edge_id"`
	SecondaryRefs []string `json:"secondary_refs"`
}

type traceResponse struct {
	RunID          string            `json:"run_id"`
	Direction      string            `json:"direction"`
	VisitedEdges   []string          `json:"visited_edges"`
	VisitedNodes   []string          `json:"visited_nodes"`
	EndOfPathNodes []string          `json:"end_of_path_nodes"`
	ExternalRefs   []string          `json:"external_refs,omitempty"`
	SecondaryRefs  []string          `json:"secondary_refs,omitempty"`
	Summary        *trace.Summary    `json:"summary,omitempty"`
	Build          service.BuildInfo `json:"build"`
}

// HandleTrace runs a trace against a registered dataset or against records
// inlined in the request body.
func (h *Handler) HandleTrace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var in struct {
		Dataset   string   `json:"dataset,omitempty"`
		Direction string   `json:"direction,omitempty"`
		Start     string   `json:"start_node"`
		StopNodes []string `json:"stop_nodes,omitempty"`
		Label     string   `json:"label,omitempty"`
		Summary   bool     `json:"summary,omitempty"`
		Force     bool     `json:"force,omitempty"`

		Edges []edgeRecordIn `json:"edges,omitempty"`
		Links []linkRecordIn `json:"links,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	start := strings.TrimSpace(in.Start)
	if start == "" {
		http.Error(w, "start_node is required", http.StatusBadRequest)
		return
	}
	dataset := strings.TrimSpace(in.Dataset)
	if dataset == "" && len(in.Edges) == 0 {
		http.Error(w, "dataset or inline edges are required", http.StatusBadRequest)
		return
	}

	var direction network.Direction
	if raw := strings.TrimSpace(in.Direction); raw != "" {
		var err error
		direction, err = network.ParseDirection(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	stopNodes := make([]network.NodeID, 0, len(in.StopNodes))
	for _, n := range in.StopNodes {
		if n = strings.TrimSpace(n); n != "" {
			stopNodes = append(stopNodes, n)
		}
	}

	var (
		res *service.TraceResponse
		err error
	)
	if dataset != "" {
		res, err = h.svc.Trace(r.Context(), service.TraceRequest{
			Dataset:     dataset,
			Direction:   direction,
			Start:       start,
			StopNodes:   stopNodes,
			Label:       in.Label,
			WantSummary: in.Summary,
			Force:       in.Force,
		})
	} else {
		if direction == "" {
			http.Error(w, "direction is required for inline records", http.StatusBadRequest)
			return
		}
		res, err = h.svc.TraceInline(r.Context(), service.InlineTraceRequest{
			Edges:       edgeRecords(in.Edges),
			Links:       linkRecords(in.Links),
			Direction:   direction,
			Start:       start,
			StopNodes:   stopNodes,
			Label:       in.Label,
			WantSummary: in.Summary,
		})
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, traceResponse{
		RunID:          res.RunID,
		Direction:      res.Build.Direction.String(),
		VisitedEdges:   res.Result.EdgeList(),
		VisitedNodes:   res.Result.NodeList(),
		EndOfPathNodes: res.Result.EndOfPathList(),
		ExternalRefs:   res.ExternalRefs,
		SecondaryRefs:  res.SecondaryRefs,
		Summary:        res.Result.Summary,
		Build:          res.Build,
	})
}

// HandleBuild builds (or returns the cached) graph for a dataset+direction.
func (h *Handler) HandleBuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var in struct {
		Dataset   string `json:"dataset"`
		Direction string `json:"direction"`
		Force     bool   `json:"force,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	dataset := strings.TrimSpace(in.Dataset)
	if dataset == "" {
		http.Error(w, "dataset is required", http.StatusBadRequest)
		return
	}
	direction, err := network.ParseDirection(in.Direction)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	_, info, err := h.svc.GetOrBuild(r.Context(), service.BuildRequest{
		Dataset:   dataset,
		Direction: direction,
		Force:     in.Force,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, info)
}

// HandleGraphStatus reports cache slots for /v1/graphs/{dataset}.
func (h *Handler) HandleGraphStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	dataset := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/graphs/"), "/")
	if dataset == "" {
		http.Error(w, "dataset is required", http.StatusBadRequest)
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("direction"))
	if raw == "" {
		if m, ok := h.svc.Manifest(dataset); ok && m.Direction != "" {
			raw = m.Direction
		}
	}
	if raw == "" {
		http.Error(w, "direction is required", http.StatusBadRequest)
		return
	}
	direction, err := network.ParseDirection(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	status, err := h.svc.Describe(r.Context(), dataset, direction)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, status)
}

// HandleDatasets lists registered dataset names.
func (h *Handler) HandleDatasets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{"datasets": h.svc.Datasets()})
}

func (h *Handler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func edgeRecords(in []edgeRecordIn) []network.EdgeRecord {
	out := make([]network.EdgeRecord, 0, len(in))
	for _, e := range in {
		out = append(out, network.EdgeRecord{
			EdgeID:      e.EdgeID,
			StartNode:   e.StartNode,
			EndNode:     e.EndNode,
			ExternalRef: e.ExternalRef,
		})
	}
	return out
}

func linkRecords(in []linkRecordIn) []network.LinkRecord {
	out := make([]network.LinkRecord, 0, len(in))
	for _, l := range in {
		out = append(out, network.LinkRecord{EdgeID: l.EdgeID, Refs: l.SecondaryRefs})
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownDataset):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
