package http

import (
	"net/http"

	"parishledger/internal/services"
)

// changeView reports the outcome of a rename or delete.
type changeView struct {
	Rewritten int  `json:"rewritten"`
	InUse     bool `json:"inUse"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Categories(r.Context())
	if err != nil {
		ServiceError(r, "list_categories", err).Write(w)
		return
	}
	NewResponse().JSON(newCategoriesView(c)).Write(w)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var in nameInput
	if err := decodeJSON(w, r, &in); err != nil {
		ServiceError(r, "add_category", err).Write(w)
		return
	}
	kind := services.CategoryKind(r.PathValue("kind"))
	if err := s.svc.AddCategory(r.Context(), kind, in.Name); err != nil {
		ServiceError(r, "add_category", err).Write(w)
		return
	}
	s.categoriesResponse(w, r, http.StatusCreated)
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	var in nameInput
	if err := decodeJSON(w, r, &in); err != nil {
		ServiceError(r, "rename_category", err).Write(w)
		return
	}
	kind := services.CategoryKind(r.PathValue("kind"))
	n, err := s.svc.RenameCategory(r.Context(), kind, r.PathValue("name"), in.Name)
	if err != nil {
		ServiceError(r, "rename_category", err).Write(w)
		return
	}
	NewResponse().JSON(changeView{Rewritten: n}).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	kind := services.CategoryKind(r.PathValue("kind"))
	inUse, err := s.svc.DeleteCategory(r.Context(), kind, r.PathValue("name"))
	if err != nil {
		ServiceError(r, "delete_category", err).Write(w)
		return
	}
	NewResponse().JSON(changeView{InUse: inUse}).Write(w)
}

func (s *Server) handleAddSubCategory(w http.ResponseWriter, r *http.Request) {
	var in nameInput
	if err := decodeJSON(w, r, &in); err != nil {
		ServiceError(r, "add_sub_category", err).Write(w)
		return
	}
	if err := s.svc.AddSubCategory(r.Context(), r.PathValue("main"), in.Name); err != nil {
		ServiceError(r, "add_sub_category", err).Write(w)
		return
	}
	s.categoriesResponse(w, r, http.StatusCreated)
}

func (s *Server) handleRenameSubCategory(w http.ResponseWriter, r *http.Request) {
	var in nameInput
	if err := decodeJSON(w, r, &in); err != nil {
		ServiceError(r, "rename_sub_category", err).Write(w)
		return
	}
	n, err := s.svc.RenameSubCategory(r.Context(), r.PathValue("main"), r.PathValue("sub"), in.Name)
	if err != nil {
		ServiceError(r, "rename_sub_category", err).Write(w)
		return
	}
	NewResponse().JSON(changeView{Rewritten: n}).Write(w)
}

func (s *Server) handleDeleteSubCategory(w http.ResponseWriter, r *http.Request) {
	inUse, err := s.svc.DeleteSubCategory(r.Context(), r.PathValue("main"), r.PathValue("sub"))
	if err != nil {
		ServiceError(r, "delete_sub_category", err).Write(w)
		return
	}
	NewResponse().JSON(changeView{InUse: inUse}).Write(w)
}

func (s *Server) categoriesResponse(w http.ResponseWriter, r *http.Request, status int) {
	c, err := s.svc.Categories(r.Context())
	if err != nil {
		ServiceError(r, "list_categories", err).Write(w)
		return
	}
	NewResponse().Status(status).JSON(newCategoriesView(c)).Write(w)
}
