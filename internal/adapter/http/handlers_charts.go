package adapthttp

import (
	"bytes"
	"net/http"
)

func (s *Server) handleSalaryChart(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.charts.WriteSalaryChart(r.Context(), &buf); err != nil {
		s.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = buf.WriteTo(w)
}
