package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"

	mcpE "github.com/flarexio/zoningqa/mcp"
)

func MCPStreamableHandler(endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req mcpE.JSONRPCRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(err)
			c.Abort()

			resp := mcpE.ParseError(req.ID, err)
			c.JSON(http.StatusBadRequest, &resp)
			return
		}

		// notifications need no response body
		if req.ID.IsNil() {
			c.Status(http.StatusAccepted)
			return
		}

		endpoint, ok := endpoints[req.Method]
		if !ok {
			err := errors.New("endpoint not found")
			c.Error(err)
			c.Abort()

			resp := mcpE.MethodNotFound(req.ID)
			c.JSON(http.StatusNotFound, &resp)
			return
		}

		ctx := c.Request.Context()
		resp := endpoint(ctx, req)

		c.JSON(http.StatusOK, &resp)
	}
}
