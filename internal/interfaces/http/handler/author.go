package handler

import (
	libraryapp "github.com/courselibrary/backend/internal/application/library"
	"github.com/courselibrary/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// AuthorHandler handles author endpoints
type AuthorHandler struct {
	BaseHandler
	service *libraryapp.AuthorService
}

// NewAuthorHandler creates a new AuthorHandler
func NewAuthorHandler(service *libraryapp.AuthorService) *AuthorHandler {
	return &AuthorHandler{service: service}
}

// List godoc
//
//	@Summary		List authors
//	@Description	Filters by main category, searches names and categories, and paginates
//	@Tags			authors
//	@Produce		json
//	@Param			mainCategory	query		string	false	"Exact main category, case insensitive"
//	@Param			searchQuery		query		string	false	"Substring of first name, last name or category"
//	@Param			pageNumber		query		int		false	"Page number"	default(1)
//	@Param			pageSize		query		int		false	"Page size"		default(10)
//	@Param			orderBy			query		string	false	"Sort field"	Enums(name, firstName, lastName, mainCategory, createdAt)
//	@Param			orderDir		query		string	false	"Sort order"	Enums(asc, desc)
//	@Success		200				{object}	dto.Response{data=[]libraryapp.AuthorResponse}
//	@Failure		400				{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/authors [get]
func (h *AuthorHandler) List(c *gin.Context) {
	var filter libraryapp.AuthorListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.HandleBindError(c, err, dto.ErrCodeBadRequest, "Invalid query parameters")
		return
	}

	page, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize, page.TotalPages)
}

// Get godoc
//
//	@Summary	Get an author
//	@Tags		authors
//	@Produce	json
//	@Param		authorId	path		string	true	"Author ID"	format(uuid)
//	@Success	200			{object}	dto.Response{data=libraryapp.AuthorResponse}
//	@Failure	400			{object}	dto.Response
//	@Failure	404			{object}	dto.Response
//	@Security	BearerAuth
//	@Router		/authors/{authorId} [get]
func (h *AuthorHandler) Get(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "authorId")
	if !ok {
		return
	}

	author, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, author)
}

// Create godoc
//
//	@Summary		Create an author
//	@Description	Creates one author together with any nested courses
//	@Tags			authors
//	@Accept			json
//	@Produce		json
//	@Param			request	body		libraryapp.AuthorForCreation	true	"Author to create"
//	@Success		201		{object}	dto.Response{data=libraryapp.AuthorResponse}
//	@Failure		400		{object}	dto.Response
//	@Failure		503		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/authors [post]
func (h *AuthorHandler) Create(c *gin.Context) {
	var req libraryapp.AuthorForCreation
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindError(c, err, dto.ErrCodeInvalidJSON, msgInvalidJSON)
		return
	}

	author, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, "/api/v1/authors/"+author.ID.String(), author)
}

// Delete godoc
//
//	@Summary	Delete an author and the author's courses
//	@Tags		authors
//	@Param		authorId	path	string	true	"Author ID"	format(uuid)
//	@Success	204
//	@Failure	404	{object}	dto.Response
//	@Security	BearerAuth
//	@Router		/authors/{authorId} [delete]
func (h *AuthorHandler) Delete(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "authorId")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
