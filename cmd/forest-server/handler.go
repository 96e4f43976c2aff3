package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/gorilla/mux"

	"github.com/seqtree/forest/forest"
	"github.com/seqtree/forest/store"
	"github.com/seqtree/forest/tree"
)

// ApiResponse wraps either response data or an error message with a "success"
// indicator boolean.
type ApiResponse struct {
	Success  bool        `json:"success"`
	Response interface{} `json:"response,omitempty"`
	Message  string      `json:"message,omitempty"`
}

// HttpError wraps an error that occurred while processing an HTTP request
// with the HTTP status code that should be returned.
type HttpError struct {
	Status int
	Err    error
}

func extractPath(req *http.Request) string {
	full := req.URL.Path
	if len(full) > 0 && full[0] == '/' {
		full = full[1:]
	}
	parts := strings.Split(full, "/")
	if len(parts) == 0 {
		return "/"
	} else if len(parts) == 1 {
		return "/" + parts[0]
	}
	out := "/" + parts[0] + "/" + parts[1]
	if len(parts) > 3 {
		out = out + "/" + parts[3]
	}
	return out
}

// HandleAPI takes an API handler function as input and turns it into an
// http.HandlerFunc by adding error handling.
func HandleAPI(inner func(rw http.ResponseWriter, req *http.Request) *HttpError) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		path := extractPath(req)

		if err := inner(rw, req); err != nil {
			requestCtr.WithLabelValues(path, fmt.Sprint(err.Status)).Inc()
			log.Printf("%v(%v): %v", req.URL.Path, err.Status, err.Err)

			rw.WriteHeader(err.Status)
			json.NewEncoder(rw).Encode(ApiResponse{
				Success: false,
				Message: err.Err.Error(),
			})
		} else {
			requestCtr.WithLabelValues(path, "200").Inc()
		}
	}
}

type Handler struct {
	config   *APIConfig
	snapshot *atomic.Pointer[forest.Forest]
	ch       chan<- InsertRequest
}

// Home redirects requests to a pre-configured URL, like the API
// documentation.
func (h *Handler) Home(rw http.ResponseWriter, req *http.Request) {
	if h.config.HomeRedirect == "" {
		fmt.Fprintln(rw, "Hi, I'm a forest server!")
		return
	}
	http.Redirect(rw, req, h.config.HomeRedirect, http.StatusSeeOther)
}

func parseId(raw string) (tree.NodeId, error) {
	if len(raw) == 0 || len(raw) > 32 {
		return tree.NodeId{}, fmt.Errorf("malformed node id")
	}
	var hiPart, loPart string
	if len(raw) > 16 {
		hiPart, loPart = raw[:len(raw)-16], raw[len(raw)-16:]
	} else {
		loPart = raw
	}
	var hi uint64
	if hiPart != "" {
		var err error
		hi, err = strconv.ParseUint(hiPart, 16, 64)
		if err != nil {
			return tree.NodeId{}, fmt.Errorf("malformed node id: %v", err)
		}
	}
	lo, err := strconv.ParseUint(loPart, 16, 64)
	if err != nil {
		return tree.NodeId{}, fmt.Errorf("malformed node id: %v", err)
	}
	return tree.NewNodeId(hi, lo), nil
}

func requestId(req *http.Request) (tree.NodeId, *HttpError) {
	id, err := parseId(mux.Vars(req)["id"])
	if err != nil {
		return tree.NodeId{}, &HttpError{http.StatusBadRequest, err}
	}
	return id, nil
}

type NodeResponse struct {
	Id      string              `json:"id"`
	Def     string              `json:"def"`
	Payload []byte              `json:"payload,omitempty"`
	Traits  map[string][]string `json:"traits,omitempty"`
}

func nodeResponse(nav forest.Nav) NodeResponse {
	res := NodeResponse{
		Id:  nav.ID().String(),
		Def: nav.Def().String(),
	}
	if p, ok := nav.Payload(); ok {
		res.Payload = p
	}
	for _, label := range nav.Traits() {
		children := []string{}
		it := nav.Trait(label)
		for {
			c, ok := it.Next()
			if !ok {
				break
			}
			children = append(children, c.ID().String())
		}
		if res.Traits == nil {
			res.Traits = make(map[string][]string)
		}
		res.Traits[label.String()] = children
	}
	return res
}

// Node returns the def, payload, and per-trait child node ids of one node.
func (h *Handler) Node(rw http.ResponseWriter, req *http.Request) *HttpError {
	if req.Method != "GET" {
		return &HttpError{http.StatusMethodNotAllowed, fmt.Errorf("method not allowed")}
	}
	id, herr := requestId(req)
	if herr != nil {
		return herr
	}
	nav, ok := h.snapshot.Load().NavFrom(id)
	if !ok {
		return &HttpError{http.StatusNotFound, fmt.Errorf("node not found")}
	}
	if err := json.NewEncoder(rw).Encode(ApiResponse{Success: true, Response: nodeResponse(nav)}); err != nil {
		return &HttpError{http.StatusInternalServerError, err}
	}
	return nil
}

type ParentResponse struct {
	Id    string `json:"id"`
	Label string `json:"label"`
}

// Parent returns the parent of one node and the label it hangs under.
func (h *Handler) Parent(rw http.ResponseWriter, req *http.Request) *HttpError {
	if req.Method != "GET" {
		return &HttpError{http.StatusMethodNotAllowed, fmt.Errorf("method not allowed")}
	}
	id, herr := requestId(req)
	if herr != nil {
		return herr
	}
	nav, ok := h.snapshot.Load().NavFrom(id)
	if !ok {
		return &HttpError{http.StatusNotFound, fmt.Errorf("node not found")}
	}
	p, ok := nav.Parent()
	if !ok {
		return &HttpError{http.StatusNotFound, fmt.Errorf("node has no parent")}
	}
	res := ParentResponse{Id: p.Node.ID().String(), Label: p.Label.String()}
	if err := json.NewEncoder(rw).Encode(ApiResponse{Success: true, Response: res}); err != nil {
		return &HttpError{http.StatusInternalServerError, err}
	}
	return nil
}

type WalkResponse struct {
	Count     int  `json:"count"`
	Truncated bool `json:"truncated,omitempty"`
}

// Walk returns the size of the subtree under one node.
func (h *Handler) Walk(rw http.ResponseWriter, req *http.Request) *HttpError {
	if req.Method != "GET" {
		return &HttpError{http.StatusMethodNotAllowed, fmt.Errorf("method not allowed")}
	}
	id, herr := requestId(req)
	if herr != nil {
		return herr
	}
	nav, ok := h.snapshot.Load().NavFrom(id)
	if !ok {
		return &HttpError{http.StatusNotFound, fmt.Errorf("node not found")}
	}

	res := WalkResponse{}
	res.Truncated = !nav.Walk(func(forest.Nav) bool {
		res.Count++
		return res.Count < h.config.MaxWalkNodes
	})
	if err := json.NewEncoder(rw).Encode(ApiResponse{Success: true, Response: res}); err != nil {
		return &HttpError{http.StatusInternalServerError, err}
	}
	return nil
}

// Chunk installs one chunk, provided in the codec encoding, under the id in
// the path.
func (h *Handler) Chunk(rw http.ResponseWriter, req *http.Request) *HttpError {
	if req.Method != "POST" {
		return &HttpError{http.StatusMethodNotAllowed, fmt.Errorf("method not allowed")}
	}
	id, herr := requestId(req)
	if herr != nil {
		return herr
	}
	raw, err := io.ReadAll(http.MaxBytesReader(rw, req.Body, 4<<20))
	if err != nil {
		return &HttpError{http.StatusBadRequest, err}
	}
	chunk, err := store.UnmarshalChunk(raw)
	if err != nil {
		return &HttpError{http.StatusBadRequest, err}
	}

	done := make(chan error, 1)
	h.ch <- InsertRequest{Id: tree.ChunkId(id), Chunk: chunk, Raw: raw, Done: done}
	if err := <-done; err != nil {
		return &HttpError{http.StatusInternalServerError, err}
	}
	if err := json.NewEncoder(rw).Encode(ApiResponse{Success: true}); err != nil {
		return &HttpError{http.StatusInternalServerError, err}
	}
	return nil
}
