package httpapi

import (
	"fmt"
	"net/http"

	"call-insights-go/internal/report"
	"call-insights-go/internal/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// reportedStages are the units a report looks at: Complete ones are
// aggregated, Failed ones only counted.
var reportedStages = []types.Stage{types.StageComplete, types.StageFailed}

func (s *Server) buildReport(r *http.Request, c *types.Campaign) (*types.KPIReport, error) {
	units, err := s.store.ListAudioUnits(r.Context(), c.ID, reportedStages...)
	if err != nil {
		return nil, err
	}
	return s.reports.Build(r.Context(), c, units)
}

func (s *Server) campaignReport(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetCampaign(r.Context(), r.PathValue("campaignId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rep, err := s.buildReport(r, c)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// campaignExport serves ?format=csv|xlsx&table=calls|summary. An xlsx
// export without a table parameter holds both sheets.
func (s *Server) campaignExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = "csv"
	}
	table := q.Get("table")
	if format != "csv" && format != "xlsx" {
		s.fail(w, r, fmt.Errorf("%w: unknown format %q", errBadRequest, format))
		return
	}
	if table != "" && table != "calls" && table != "summary" {
		s.fail(w, r, fmt.Errorf("%w: unknown table %q", errBadRequest, table))
		return
	}

	c, err := s.store.GetCampaign(r.Context(), r.PathValue("campaignId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var tables []report.Table
	if table == "" && format == "csv" {
		table = "calls"
	}
	if table == "" || table == "summary" {
		rep, err := s.buildReport(r, c)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		tables = append(tables, report.SummaryTable(rep))
	}
	if table == "" || table == "calls" {
		units, err := s.store.ListAudioUnits(r.Context(), c.ID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		tables = append(tables, report.UnitTable(c.Type, units))
	}

	name := c.ID
	if table != "" {
		name += "-" + table
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, format))

	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		err = report.WriteDelimited(w, tables[0])
	} else {
		w.Header().Set("Content-Type", xlsxContentType)
		err = report.WriteXLSX(w, tables...)
	}
	if err != nil {
		s.log.WithRequest(r).WithField("error", err.Error()).Error("export write failed")
	}
}
