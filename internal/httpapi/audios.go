package httpapi

import (
	"fmt"
	"net/http"

	"call-insights-go/internal/pipeline"
	"call-insights-go/internal/types"
)

type registerAudioRequest struct {
	FileName string  `json:"fileName" validate:"required,max=512"`
	Duration float64 `json:"duration" validate:"gte=0"`
	AudioURL string  `json:"audioUrl" validate:"required,url"`
}

func (s *Server) registerAudio(w http.ResponseWriter, r *http.Request) {
	var req registerAudioRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if !pipeline.IsSupportedAudio(req.FileName) {
		s.fail(w, r, fmt.Errorf("%w: %s is not a supported audio file", errBadRequest, req.FileName))
		return
	}

	res, err := s.pipeline.RegisterAndTrigger(r.Context(), pipeline.TriggerRequest{
		CampaignID:      r.PathValue("campaignId"),
		FileName:        req.FileName,
		AudioURL:        req.AudioURL,
		DurationSeconds: req.Duration,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status := http.StatusAccepted
	if res.AlreadyStarted {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (s *Server) listAudios(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("campaignId")
	if _, err := s.store.GetCampaign(r.Context(), campaignID); err != nil {
		s.fail(w, r, err)
		return
	}
	units, err := s.pipeline.ListUnits(r.Context(), campaignID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if units == nil {
		units = []pipeline.UnitStatus{}
	}
	writeJSON(w, http.StatusOK, units)
}

func (s *Server) getAudio(w http.ResponseWriter, r *http.Request) {
	key := types.UnitKey{CampaignID: r.PathValue("campaignId"), AudioID: r.PathValue("audioId")}
	u, err := s.store.GetAudioUnit(r.Context(), key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.pipeline.QueryStatus(r.Context(), key.CampaignID, key.AudioID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pipeline.UnitStatus{Unit: *u, Status: *st})
}

// audioStatus answers Pending for units that are not registered yet, so
// clients can poll right after uploading.
func (s *Server) audioStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.pipeline.QueryStatus(r.Context(), r.PathValue("campaignId"), r.PathValue("audioId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) abortAudio(w http.ResponseWriter, r *http.Request) {
	campaignID, audioID := r.PathValue("campaignId"), r.PathValue("audioId")
	if err := s.pipeline.Abort(r.Context(), campaignID, audioID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"campaign_id": campaignID, "audio_id": audioID, "status": "abort requested"})
}
