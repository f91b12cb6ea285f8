package rpc

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// maxInputBytes caps a request body; uploads go through /api/upload instead.
const maxInputBytes = 1 << 20

type successEnvelope struct {
	Result struct {
		Data any `json:"data"`
	} `json:"result"`
}

type errorEnvelope struct {
	Error errorShape `json:"error"`
}

type errorShape struct {
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Data    errorData `json:"data"`
}

type errorData struct {
	Code        Code                `json:"code"`
	HTTPStatus  int                 `json:"httpStatus"`
	Path        string              `json:"path,omitempty"`
	FieldErrors map[string][]string `json:"fieldErrors,omitempty"`
}

// Handler serves the registry over HTTP: queries as GET with ?input=<json>,
// mutations as POST with a JSON body, and ?batch=1 for comma-joined paths.
type Handler struct {
	reg    *Registry
	prefix string
}

// NewHandler serves reg under prefix, e.g. "/api/trpc/".
func NewHandler(reg *Registry, prefix string) *Handler {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Handler{reg: reg, prefix: prefix}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, h.prefix)

	var kind Kind
	switch r.Method {
	case http.MethodGet:
		kind = Query
	case http.MethodPost:
		kind = Mutation
	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorBody(Errorf(CodeMethodNotSupported, "Unsupported method %s", r.Method), path))
		return
	}

	// Browsers cannot send application/json cross-site without a CORS
	// preflight, so this keeps form posts from riding the session cookie.
	if kind == Mutation && !isJSON(r) {
		writeJSON(w, http.StatusUnsupportedMediaType, errorBody(Errorf(CodeUnsupportedMedia, "Mutations require Content-Type: application/json"), path))
		return
	}

	raw, err := readInput(w, r, kind)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(Errorf(CodeParseError, "Unable to read input"), path))
		return
	}

	if r.URL.Query().Get("batch") != "1" {
		status, body := h.call(w, r, kind, path, raw)
		writeJSON(w, status, body)
		return
	}

	inputs := map[string]json.RawMessage{}
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &inputs); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(Errorf(CodeParseError, "Batch input must be an object keyed by index"), path))
			return
		}
	}

	paths := strings.Split(path, ",")
	bodies := make([]any, len(paths))
	status := 0
	for i, p := range paths {
		s, b := h.call(w, r, kind, p, inputs[strconv.Itoa(i)])
		bodies[i] = b
		switch {
		case status == 0:
			status = s
		case status != s:
			status = http.StatusMultiStatus
		}
	}
	writeJSON(w, status, bodies)
}

func (h *Handler) call(w http.ResponseWriter, r *http.Request, kind Kind, path string, input json.RawMessage) (int, any) {
	c := &Call{Path: path, Kind: kind, Input: input, Request: r, Writer: w}
	data, err := h.reg.Invoke(r.Context(), c)
	if err != nil {
		e := AsError(err)
		if e.Code == CodeInternalServerError {
			logger.Error("procedure failed", "path", path, "err", err)
		} else {
			logger.Debug("procedure rejected", "path", path, "code", string(e.Code), "message", e.Message)
		}
		return e.Code.HTTPStatus(), errorBody(e, path)
	}

	var env successEnvelope
	env.Result.Data = data
	return http.StatusOK, env
}

func readInput(w http.ResponseWriter, r *http.Request, kind Kind) (json.RawMessage, error) {
	if kind == Query {
		return json.RawMessage(r.URL.Query().Get("input")), nil
	}
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInputBytes))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func errorBody(e *Error, path string) errorEnvelope {
	d := errorData{Code: e.Code, HTTPStatus: e.Code.HTTPStatus(), Path: path}
	if len(e.Fields) > 0 {
		d.FieldErrors = make(map[string][]string, len(e.Fields))
		for _, f := range e.Fields {
			d.FieldErrors[f.Field] = append(d.FieldErrors[f.Field], f.Message)
		}
	}
	return errorEnvelope{Error: errorShape{Message: e.Message, Code: e.Code.rpcCode(), Data: d}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", "err", err)
	}
}
