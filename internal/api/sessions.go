package api

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"

	"github.com/p-n-ai/pai-study/internal/navigation"
	"github.com/p-n-ai/pai-study/internal/render"
	"github.com/p-n-ai/pai-study/internal/studied"
)

// OwnerHeader names the learner whose studied pages and preferences a new
// session uses. The "owner" query parameter takes precedence.
const OwnerHeader = "X-Study-Owner"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type sessionResponse struct {
	ID    string      `json:"id"`
	Owner string      `json:"owner"`
	View  render.View `json:"view"`
}

type jumpRequest struct {
	Domain *int `json:"domain"`
	Topic  *int `json:"topic"`
	Page   *int `json:"page"`
	Quiz   bool `json:"quiz"`
}

func (j jumpRequest) request() navigation.Request {
	return navigation.Request{Domain: j.Domain, Topic: j.Topic, Page: j.Page, Quiz: j.Quiz}
}

type answerRequest struct {
	Option *int `json:"option"`
}

type answerResponse struct {
	Accepted bool                    `json:"accepted"`
	Result   navigation.AnswerResult `json:"result"`
	View     render.View             `json:"view"`
}

// requestFromQuery reads domain, topic, page and quiz. Index values that are
// not integers count as absent; quiz counts whenever it is present.
func requestFromQuery(q url.Values) navigation.Request {
	return navigation.Request{
		Domain: queryInt(q, "domain"),
		Topic:  queryInt(q, "topic"),
		Page:   queryInt(q, "page"),
		Quiz:   q.Has("quiz"),
	}
}

func queryInt(q url.Values, key string) *int {
	v, err := strconv.Atoi(q.Get(key))
	if err != nil {
		return nil
	}
	return &v
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner := q.Get("owner")
	if owner == "" {
		owner = r.Header.Get(OwnerHeader)
	}

	sess, view, err := s.sessions.Create(r.Context(), owner, requestFromQuery(q))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+sess.ID)
	writeData(w, http.StatusCreated, sessionResponse{ID: sess.ID, Owner: sess.Owner, View: view})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.View(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.sessions.End(id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.hub.Close(id)
	writeData(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.Next(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.Previous(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (s *Server) handleNextQuestion(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.NextQuestion(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (s *Server) handleJump(w http.ResponseWriter, r *http.Request) {
	var req jumpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid jump request: "+err.Error())
		return
	}
	view, err := s.sessions.Jump(r.Context(), r.PathValue("id"), req.request())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid answer request: "+err.Error())
		return
	}
	if req.Option == nil {
		writeError(w, http.StatusBadRequest, "option is required")
		return
	}
	view, res, ok, err := s.sessions.Answer(r.Context(), r.PathValue("id"), *req.Option)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, answerResponse{Accepted: ok, Result: res, View: view})
}

func (s *Server) handleStudied(w http.ResponseWriter, r *http.Request) {
	pages, err := s.sessions.Studied(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if pages == nil {
		pages = studied.Pages{}
	}
	writeData(w, http.StatusOK, pages)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.sessions.Preferences(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, prefs)
}

func (s *Server) handleSetPreferences(w http.ResponseWriter, r *http.Request) {
	var prefs studied.Preferences
	if err := decodeJSON(w, r, &prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid preferences: "+err.Error())
		return
	}
	if err := s.sessions.SetPreferences(r.Context(), r.PathValue("id"), prefs); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, prefs)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.sessions.ExportResults(r.PathValue("id"), &buf); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="results.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
