package http

import (
	"net/http"
	"strings"

	"parishledger/internal/core"
	"parishledger/internal/services"
)

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.svc.Members(r.Context())
	if err != nil {
		ServiceError(r, "list_members", err).Write(w)
		return
	}
	NewResponse().JSON(newMemberViews(members)).Write(w)
}

func (s *Server) handleMemberGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.svc.MemberGroups(r.Context())
	if err != nil {
		ServiceError(r, "member_groups", err).Write(w)
		return
	}
	NewResponse().JSON(newMemberGroupViews(groups)).Write(w)
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var in memberInput
	if err := decodeJSON(w, r, &in); err != nil {
		ServiceError(r, "create_member", err).Write(w)
		return
	}
	m, err := s.svc.AddMember(r.Context(), strings.TrimSpace(in.Name), strings.TrimSpace(in.Position))
	if err != nil {
		ServiceError(r, "create_member", err).Write(w)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(newMemberView(m)).Write(w)
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ServiceError(r, "update_member", err).Write(w)
		return
	}
	var in memberInput
	if err := decodeJSON(w, r, &in); err != nil {
		ServiceError(r, "update_member", err).Write(w)
		return
	}
	m := core.Member{ID: id, Name: strings.TrimSpace(in.Name), Position: strings.TrimSpace(in.Position)}
	if err := s.svc.UpdateMember(r.Context(), m); err != nil {
		ServiceError(r, "update_member", err).Write(w)
		return
	}
	NewResponse().JSON(newMemberView(m)).Write(w)
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ServiceError(r, "delete_member", err).Write(w)
		return
	}
	if err := s.svc.DeleteMember(r.Context(), id); err != nil {
		ServiceError(r, "delete_member", err).Write(w)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

// handleMemberIncome lists the income recorded against one member, newest
// first, with its total.
func (s *Server) handleMemberIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ServiceError(r, "member_income", err).Write(w)
		return
	}
	members, err := s.svc.Members(r.Context())
	if err != nil {
		ServiceError(r, "member_income", err).Write(w)
		return
	}
	txs, err := s.svc.Search(r.Context(), services.Query{MemberID: &id})
	if err != nil {
		ServiceError(r, "member_income", err).Write(w)
		return
	}
	var total int64
	for _, tx := range txs {
		total += tx.Amount
	}
	NewResponse().JSON(struct {
		Total        int64             `json:"total"`
		Transactions []transactionView `json:"transactions"`
	}{total, newTransactionViews(txs, members)}).Write(w)
}
