package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/zoningqa"

	mcpE "github.com/flarexio/zoningqa/mcp"
)

func AddRouters(r *gin.Engine, endpoints zoningqa.EndpointSet) {
	api := r.Group("/api")
	{
		api.POST("/answer", AnswerHandler(endpoints.Answer))

		sessions := api.Group("/sessions")
		sessions.POST("", OpenSessionHandler(endpoints.OpenSession))
		sessions.DELETE("/:session_id", CloseSessionHandler(endpoints.CloseSession))
		sessions.POST("/:session_id/ask", AskHandler(endpoints.Ask))

		threads := sessions.Group("/:session_id/threads")
		threads.POST("", CreateThreadHandler(endpoints.CreateThread))
		threads.GET("", ListThreadsHandler(endpoints.ListThreads))
		threads.PUT("/:thread_id", SelectThreadHandler(endpoints.SelectThread))
		threads.GET("/:thread_id", GetThreadHandler(endpoints.GetThread))
	}
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}
