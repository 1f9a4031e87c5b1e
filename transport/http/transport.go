package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"

	"github.com/flarexio/zoningqa"
)

func statusCode(err error) int {
	switch {
	case errors.Is(err, zoningqa.ErrSessionNotFound),
		errors.Is(err, zoningqa.ErrThreadNotFound):
		return http.StatusNotFound

	case errors.Is(err, zoningqa.ErrInvalidSession),
		errors.Is(err, zoningqa.ErrInvalidThreadID),
		errors.Is(err, zoningqa.ErrEmptyQuestion):
		return http.StatusBadRequest

	default:
		return http.StatusExpectationFailed
	}
}

func abort(c *gin.Context, code int, err error) {
	c.String(code, err.Error())
	c.Error(err)
	c.Abort()
}

func sessionContext(c *gin.Context) (context.Context, error) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		return nil, zoningqa.ErrInvalidSession
	}

	ctx := context.WithValue(c.Request.Context(), zoningqa.SessionID, sessionID)
	return ctx, nil
}

func threadID(c *gin.Context) (zoningqa.ThreadID, error) {
	id, err := strconv.Atoi(c.Param("thread_id"))
	if err != nil {
		return 0, zoningqa.ErrInvalidThreadID
	}

	return zoningqa.ThreadID(id), nil
}

func OpenSessionHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		resp, err := endpoint(ctx, nil)
		if err != nil {
			abort(c, statusCode(err), err)
			return
		}

		c.JSON(http.StatusCreated, &resp)
	}
}

func CloseSessionHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("session_id")
		if sessionID == "" {
			abort(c, http.StatusBadRequest, zoningqa.ErrInvalidSession)
			return
		}

		ctx := c.Request.Context()
		_, err := endpoint(ctx, sessionID)
		if err != nil {
			abort(c, statusCode(err), err)
			return
		}

		c.String(http.StatusOK, "OK")
	}
}

func CreateThreadHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		resp, err := endpoint(ctx, nil)
		if err != nil {
			abort(c, statusCode(err), err)
			return
		}

		c.JSON(http.StatusCreated, &resp)
	}
}

func ListThreadsHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		resp, err := endpoint(ctx, nil)
		if err != nil {
			abort(c, statusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func SelectThreadHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		id, err := threadID(c)
		if err != nil {
			abort(c, statusCode(err), err)
			return
		}

		_, err = endpoint(ctx, id)
		if err != nil {
			abort(c, statusCode(err), err)
			return
		}

		c.String(http.StatusOK, "OK")
	}
}

func GetThreadHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		id, err := threadID(c)
		if err != nil {
			abort(c, statusCode(err), err)
			return
		}

		resp, err := endpoint(ctx, id)
		if err != nil {
			abort(c, statusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func AskHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := sessionContext(c)
		if err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		var req zoningqa.QuestionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, statusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func AnswerHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req zoningqa.QuestionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, statusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}
