package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"call-insights-go/internal/aggregator"
	"call-insights-go/internal/pipeline"
	"call-insights-go/internal/store"
)

// maxBody caps JSON request bodies.
const maxBody = 1 << 20

var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// statusOf maps domain errors to HTTP codes.
func statusOf(err error) int {
	var verr validator.ValidationErrors
	switch {
	case errors.As(err, &verr), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, pipeline.ErrCampaignNotFound),
		errors.Is(err, pipeline.ErrAudioUnitNotFound),
		errors.Is(err, aggregator.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrNotStarted):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	body := errorBody{Error: err.Error()}

	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		body.Error = "validation failed"
		for _, fe := range verr {
			body.Details = append(body.Details, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	if status == http.StatusInternalServerError {
		s.log.WithRequest(r).WithField("error", err.Error()).Error("request error")
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}

// decode reads a JSON body into v and validates it.
func (s *Server) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %s", errBadRequest, strings.TrimPrefix(err.Error(), "json: "))
	}
	return s.validate.Struct(v)
}
