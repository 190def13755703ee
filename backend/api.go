package backend

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// MountAPI serves b over the comment REST API on r, speaking the same
// envelope Client reads. cmd/test mounts a seeded Memory this way.
//
// Article paths may contain slashes, so routing happens on the path shape:
//
//	GET  /{article...}                   list
//	GET  /{article...}/stats             stats
//	POST /{id}/reply                     reply
//	POST /{id}/like                      like comment
//	POST /{id}/reply/{replyID}/like      like reply
//	POST /{article...}                   comment
func MountAPI(r gin.IRouter, b Backend) {
	h := &apiHandler{b: b}
	r.GET("/*path", h.get)
	r.POST("/*path", h.post)
}

type apiHandler struct {
	b Backend
}

func (h *apiHandler) get(c *gin.Context) {
	path := c.Param("path")
	if article, ok := strings.CutSuffix(path, "/stats"); ok && article != "" {
		h.stats(c, article)
		return
	}
	h.list(c, path)
}

func (h *apiHandler) post(c *gin.Context) {
	segments := strings.Split(strings.Trim(c.Param("path"), "/"), "/")
	switch {
	case len(segments) == 2 && segments[1] == "like":
		h.likeComment(c, segments[0])
	case len(segments) == 2 && segments[1] == "reply":
		h.reply(c, segments[0])
	case len(segments) == 4 && segments[1] == "reply" && segments[3] == "like":
		h.likeReply(c, segments[0], segments[2])
	default:
		h.comment(c, c.Param("path"))
	}
}

func (h *apiHandler) list(c *gin.Context, article string) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(MaxPerPage)))

	result, err := h.b.ListComments(c.Request.Context(), article, page, perPage, c.Query("sort_by"))
	if err != nil {
		fail(c, err)
		return
	}

	data := make([]*wireComment, 0, len(result.Comments))
	for _, cm := range result.Comments {
		data = append(data, fromComment(cm))
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"pagination": wirePagination{
			Page:    result.Pagination.Page,
			PerPage: result.Pagination.PerPage,
			Pages:   result.Pagination.Pages,
			Total:   result.Pagination.Total,
		},
	})
}

func (h *apiHandler) stats(c *gin.Context, article string) {
	s, err := h.b.GetStats(c.Request.Context(), article)
	if err != nil {
		fail(c, err)
		return
	}
	dist := make(map[string]int, len(s.RatingDistribution))
	for rating, n := range s.RatingDistribution {
		dist[strconv.Itoa(rating)] = n
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": wireStats{
			TotalComments:      s.TotalComments,
			AverageRating:      s.AverageRating,
			RatingDistribution: dist,
		},
	})
}

func (h *apiHandler) comment(c *gin.Context, article string) {
	var body wireNewComment
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	created, err := h.b.CreateComment(c.Request.Context(), article, NewComment{
		Author: body.Username,
		Email:  body.Email,
		Body:   body.Content,
		Rating: body.Rating,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": created.Message,
		"data":    wireCreated{CommentID: created.ID, Status: created.Status},
	})
}

func (h *apiHandler) reply(c *gin.Context, commentID string) {
	var body wireNewReply
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	created, err := h.b.CreateReply(c.Request.Context(), commentID, NewReply{
		Author:          body.Username,
		Body:            body.Content,
		ParentReplyID:   body.ParentReplyID,
		MentionedAuthor: body.ReplyToUsername,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": created.Message,
		"data":    wireCreated{ReplyID: created.ID, Status: created.Status},
	})
}

func (h *apiHandler) likeComment(c *gin.Context, commentID string) {
	likes, err := h.b.LikeComment(c.Request.Context(), commentID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": wireLikes{Likes: likes}})
}

func (h *apiHandler) likeReply(c *gin.Context, commentID, replyID string) {
	likes, err := h.b.LikeReply(c.Request.Context(), commentID, replyID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": wireLikes{Likes: likes}})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "Invalid request body",
		"errors":  []string{err.Error()},
	})
}

// fail writes err as a success=false envelope. ServerErrors keep their
// status and messages; anything else is a 500.
func fail(c *gin.Context, err error) {
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		status := serverErr.Status
		if status == 0 {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"success": false,
			"message": serverErr.Message,
			"errors":  serverErr.Errors,
		})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
}

func fromComment(cm *Comment) *wireComment {
	w := &wireComment{
		CommentID: cm.ID,
		Username:  cm.Author,
		Content:   cm.Body,
		Rating:    cm.Rating,
		Likes:     cm.LikeCount,
		CreatedAt: wireTime{cm.CreatedAt},
		Replies:   make([]*wireReply, 0, len(cm.Replies)),
	}
	for _, r := range cm.Replies {
		w.Replies = append(w.Replies, fromReply(r))
	}
	return w
}

func fromReply(r *Reply) *wireReply {
	w := &wireReply{
		ReplyID:         r.ID,
		Username:        r.Author,
		Content:         r.Body,
		Likes:           r.LikeCount,
		CreatedAt:       wireTime{r.CreatedAt},
		ParentReplyID:   r.ParentReplyID,
		ReplyToUsername: r.MentionedAuthor,
	}
	for _, child := range r.Children {
		w.Children = append(w.Children, fromReply(child))
	}
	return w
}
