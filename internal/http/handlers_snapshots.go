package http

import (
	"net/http"
	"strings"
)

const snapshotContentType = "application/json; charset=utf-8"

func (s *Server) handleChurchName(w http.ResponseWriter, r *http.Request) {
	name, err := s.svc.ChurchName(r.Context())
	if err != nil {
		ServiceError(r, "church_name", err).Write(w)
		return
	}
	NewResponse().JSON(nameInput{Name: name}).Write(w)
}

func (s *Server) handleSetChurchName(w http.ResponseWriter, r *http.Request) {
	var in nameInput
	if err := decodeJSON(w, r, &in); err != nil {
		ServiceError(r, "set_church_name", err).Write(w)
		return
	}
	name := strings.TrimSpace(in.Name)
	if err := s.svc.SetChurchName(r.Context(), name); err != nil {
		ServiceError(r, "set_church_name", err).Write(w)
		return
	}
	NewResponse().JSON(nameInput{Name: name}).Write(w)
}

// handleDownloadSnapshot sends the current state as a snapshot file without
// recording it in history.
func (s *Server) handleDownloadSnapshot(w http.ResponseWriter, r *http.Request) {
	doc, name, err := s.svc.ExportDocument(r.Context())
	if err != nil {
		ServiceError(r, "download_snapshot", err).Write(w)
		return
	}
	NewResponse().Attachment(name, snapshotContentType, doc).Write(w)
}

func (s *Server) handleImportSnapshot(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		ServiceError(r, "import_snapshot", err).Write(w)
		return
	}
	st, err := s.svc.ImportSnapshot(r.Context(), body)
	if err != nil {
		ServiceError(r, "import_snapshot", err).Write(w)
		return
	}
	NewResponse().JSON(struct {
		Members      int `json:"members"`
		Transactions int `json:"transactions"`
	}{len(st.Members), len(st.Transactions)}).Write(w)
}

func (s *Server) handleImportMembers(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		ServiceError(r, "import_members", err).Write(w)
		return
	}
	members, err := s.svc.ImportMembers(r.Context(), body)
	if err != nil {
		ServiceError(r, "import_members", err).Write(w)
		return
	}
	NewResponse().JSON(newMemberViews(members)).Write(w)
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.History(r.Context())
	if err != nil {
		ServiceError(r, "list_history", err).Write(w)
		return
	}
	NewResponse().JSON(newHistoryViews(entries)).Write(w)
}

// handleSaveSnapshot records the state in history and returns the document
// as a download.
func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	saved, err := s.svc.SaveSnapshot(r.Context())
	if err != nil {
		ServiceError(r, "save_snapshot", err).Write(w)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Attachment(saved.FileName, snapshotContentType, saved.Document).
		Write(w)
}

func (s *Server) handleRestoreHistory(w http.ResponseWriter, r *http.Request) {
	ts, err := pathTimestamp(r)
	if err != nil {
		ServiceError(r, "restore_history", err).Write(w)
		return
	}
	if err := s.svc.RestoreHistory(r.Context(), ts); err != nil {
		ServiceError(r, "restore_history", err).Write(w)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	ts, err := pathTimestamp(r)
	if err != nil {
		ServiceError(r, "delete_history", err).Write(w)
		return
	}
	if err := s.svc.DeleteHistory(r.Context(), ts); err != nil {
		ServiceError(r, "delete_history", err).Write(w)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Reset(r.Context()); err != nil {
		ServiceError(r, "reset", err).Write(w)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}
