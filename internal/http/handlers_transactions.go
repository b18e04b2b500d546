package http

import (
	"net/http"

	"parishledger/internal/core"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.State(r.Context())
	if err != nil {
		ServiceError(r, "list_transactions", err).Write(w)
		return
	}
	txs, err := s.svc.Transactions(r.Context())
	if err != nil {
		ServiceError(r, "list_transactions", err).Write(w)
		return
	}
	NewResponse().JSON(newTransactionViews(txs, st.Members)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in transactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		ServiceError(r, "create_transaction", err).Write(w)
		return
	}
	tx, err := in.toCore()
	if err != nil {
		ServiceError(r, "create_transaction", err).Write(w)
		return
	}
	tx, err = s.svc.AddTransaction(r.Context(), tx)
	if err != nil {
		ServiceError(r, "create_transaction", err).Write(w)
		return
	}
	s.transactionResponse(w, r, tx, http.StatusCreated)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ServiceError(r, "update_transaction", err).Write(w)
		return
	}
	var in transactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		ServiceError(r, "update_transaction", err).Write(w)
		return
	}
	tx, err := in.toCore()
	if err != nil {
		ServiceError(r, "update_transaction", err).Write(w)
		return
	}
	tx.ID = id
	if err := s.svc.UpdateTransaction(r.Context(), tx); err != nil {
		ServiceError(r, "update_transaction", err).Write(w)
		return
	}
	s.transactionResponse(w, r, tx, http.StatusOK)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ServiceError(r, "delete_transaction", err).Write(w)
		return
	}
	if err := s.svc.DeleteTransaction(r.Context(), id); err != nil {
		ServiceError(r, "delete_transaction", err).Write(w)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

// transactionResponse renders tx with its member name resolved.
func (s *Server) transactionResponse(w http.ResponseWriter, r *http.Request, tx core.Transaction, status int) {
	members, err := s.svc.Members(r.Context())
	if err != nil {
		ServiceError(r, "transaction_response", err).Write(w)
		return
	}
	NewResponse().Status(status).JSON(newTransactionViews([]core.Transaction{tx}, members)[0]).Write(w)
}
