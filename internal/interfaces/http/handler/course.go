package handler

import (
	libraryapp "github.com/courselibrary/backend/internal/application/library"
	"github.com/courselibrary/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CourseHandler handles the courses of an author
type CourseHandler struct {
	BaseHandler
	service *libraryapp.CourseService
}

// NewCourseHandler creates a new CourseHandler
func NewCourseHandler(service *libraryapp.CourseService) *CourseHandler {
	return &CourseHandler{service: service}
}

// List godoc
//
//	@Summary	List the courses of an author
//	@Tags		courses
//	@Produce	json
//	@Param		authorId	path		string	true	"Author ID"	format(uuid)
//	@Success	200			{object}	dto.Response{data=[]libraryapp.CourseResponse}
//	@Failure	404			{object}	dto.Response
//	@Security	BearerAuth
//	@Router		/authors/{authorId}/courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	authorID, ok := h.parseUUIDParam(c, "authorId")
	if !ok {
		return
	}

	courses, err := h.service.ListForAuthor(c.Request.Context(), authorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, courses)
}

// Get godoc
//
//	@Summary	Get a course of an author
//	@Tags		courses
//	@Produce	json
//	@Param		authorId	path		string	true	"Author ID"	format(uuid)
//	@Param		courseId	path		string	true	"Course ID"	format(uuid)
//	@Success	200			{object}	dto.Response{data=libraryapp.CourseResponse}
//	@Failure	404			{object}	dto.Response
//	@Security	BearerAuth
//	@Router		/authors/{authorId}/courses/{courseId} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	authorID, courseID, ok := h.parseIDs(c)
	if !ok {
		return
	}

	course, err := h.service.GetForAuthor(c.Request.Context(), authorID, courseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, course)
}

// Create godoc
//
//	@Summary	Create a course for an author
//	@Tags		courses
//	@Accept		json
//	@Produce	json
//	@Param		authorId	path		string							true	"Author ID"	format(uuid)
//	@Param		request		body		libraryapp.CourseForCreation	true	"Course to create"
//	@Success	201			{object}	dto.Response{data=libraryapp.CourseResponse}
//	@Failure	400			{object}	dto.Response
//	@Failure	404			{object}	dto.Response
//	@Security	BearerAuth
//	@Router		/authors/{authorId}/courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	authorID, ok := h.parseUUIDParam(c, "authorId")
	if !ok {
		return
	}

	var req libraryapp.CourseForCreation
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindError(c, err, dto.ErrCodeInvalidJSON, msgInvalidJSON)
		return
	}

	course, err := h.service.CreateForAuthor(c.Request.Context(), authorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, "/api/v1/authors/"+authorID.String()+"/courses/"+course.ID.String(), course)
}

// Update godoc
//
//	@Summary		Replace a course
//	@Description	Every field is replaced; omitted fields become empty
//	@Tags			courses
//	@Accept			json
//	@Produce		json
//	@Param			authorId	path		string						true	"Author ID"	format(uuid)
//	@Param			courseId	path		string						true	"Course ID"	format(uuid)
//	@Param			request		body		libraryapp.CourseForUpdate	true	"New course content"
//	@Success		200			{object}	dto.Response{data=libraryapp.CourseResponse}
//	@Failure		400			{object}	dto.Response
//	@Failure		404			{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/authors/{authorId}/courses/{courseId} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	authorID, courseID, ok := h.parseIDs(c)
	if !ok {
		return
	}

	var req libraryapp.CourseForUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindError(c, err, dto.ErrCodeInvalidJSON, msgInvalidJSON)
		return
	}

	course, err := h.service.Update(c.Request.Context(), authorID, courseID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, course)
}

// Delete godoc
//
//	@Summary	Delete a course
//	@Tags		courses
//	@Param		authorId	path	string	true	"Author ID"	format(uuid)
//	@Param		courseId	path	string	true	"Course ID"	format(uuid)
//	@Success	204
//	@Failure	404	{object}	dto.Response
//	@Security	BearerAuth
//	@Router		/authors/{authorId}/courses/{courseId} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	authorID, courseID, ok := h.parseIDs(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), authorID, courseID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *CourseHandler) parseIDs(c *gin.Context) (authorID, courseID uuid.UUID, ok bool) {
	if authorID, ok = h.parseUUIDParam(c, "authorId"); !ok {
		return
	}
	courseID, ok = h.parseUUIDParam(c, "courseId")
	return
}
