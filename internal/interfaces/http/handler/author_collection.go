package handler

import (
	"net/http"
	"strings"

	libraryapp "github.com/courselibrary/backend/internal/application/library"
	"github.com/courselibrary/backend/internal/interfaces/http/dto"
	"github.com/courselibrary/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MaxIdempotencyKeyLength caps the Idempotency-Key header
const MaxIdempotencyKeyLength = 255

// AuthorCollectionHandler handles bulk author endpoints
type AuthorCollectionHandler struct {
	BaseHandler
	service *libraryapp.AuthorCollectionService
}

// NewAuthorCollectionHandler creates a new AuthorCollectionHandler
func NewAuthorCollectionHandler(service *libraryapp.AuthorCollectionService) *AuthorCollectionHandler {
	return &AuthorCollectionHandler{service: service}
}

// Create godoc
//
//	@Summary		Create a collection of authors
//	@Description	Creates every author of the array, with nested courses, in one transaction
//	@Tags			authorcollections
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string									false	"Replays the first response for a repeated key"
//	@Param			request			body		[]libraryapp.AuthorForCreation			true	"Authors to create"
//	@Success		201				{object}	dto.Response{data=[]libraryapp.AuthorResponse}
//	@Failure		400				{object}	dto.Response
//	@Failure		409				{object}	dto.Response
//	@Failure		503				{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/authorcollections [post]
func (h *AuthorCollectionHandler) Create(c *gin.Context) {
	key := strings.TrimSpace(c.GetHeader(middleware.IdempotencyKeyHeader))
	if len(key) > MaxIdempotencyKeyLength {
		h.BadRequest(c, "Idempotency-Key must be at most 255 characters")
		return
	}

	var requests []libraryapp.AuthorForCreation
	if err := c.ShouldBindJSON(&requests); err != nil {
		h.HandleBindError(c, err, dto.ErrCodeInvalidJSON, msgInvalidJSON)
		return
	}
	if requests == nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Request body must be a JSON array")
		return
	}

	result, err := h.service.Create(c.Request.Context(), key, requests)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.Replayed {
		c.Header(middleware.IdempotentReplayedHeader, "true")
	}
	location := ""
	if len(result.Authors) > 0 {
		ids := make([]uuid.UUID, len(result.Authors))
		for i, a := range result.Authors {
			ids[i] = a.ID
		}
		location = "/api/v1/authorcollections/" + FormatIDList(ids)
	}
	h.Created(c, location, result.Authors)
}

// Get godoc
//
//	@Summary		Get a collection of authors
//	@Description	Returns the authors in the order of the id list
//	@Tags			authorcollections
//	@Produce		json
//	@Param			ids	path		string	true	"Author ids, (id1,id2) or id1,id2"
//	@Success		200	{object}	dto.Response{data=[]libraryapp.AuthorResponse}
//	@Failure		400	{object}	dto.Response
//	@Failure		404	{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/authorcollections/{ids} [get]
func (h *AuthorCollectionHandler) Get(c *gin.Context) {
	ids, err := ParseIDList(c.Param("ids"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	authors, err := h.service.Get(c.Request.Context(), ids)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, authors)
}
