package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"call-insights-go/internal/types"
)

type createCampaignRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Objective   string `json:"objective" validate:"max=2000"`
	Description string `json:"description" validate:"max=2000"`
	Type        string `json:"campaign_type" validate:"required,oneof='Post Call Survey' 'Entry Call'"`
	StartDate   string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	EndDate     string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

func (s *Server) createCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	now := s.now()
	c := &types.Campaign{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Objective:   req.Objective,
		Description: req.Description,
		Type:        types.CampaignType(req.Type),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.PutCampaign(r.Context(), c); err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.WithField("campaign_id", c.ID).Info("campaign created")
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) listCampaigns(w http.ResponseWriter, r *http.Request) {
	cs, err := s.store.ListCampaigns(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if cs == nil {
		cs = []types.Campaign{}
	}
	writeJSON(w, http.StatusOK, cs)
}

func (s *Server) getCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetCampaign(r.Context(), r.PathValue("campaignId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
