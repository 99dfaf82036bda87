package handler

import (
	"net/http"

	"github.com/fyerfyer/doc-ingest/api/middleware"
	"github.com/fyerfyer/doc-ingest/api/model"
	"github.com/fyerfyer/doc-ingest/pkg/taskqueue"
	"github.com/gin-gonic/gin"
)

// TaskHandler 处理任务相关的API请求
type TaskHandler struct {
	queue taskqueue.Queue // 任务队列
}

// NewTaskHandler 创建新的任务处理器
func NewTaskHandler(queue taskqueue.Queue) *TaskHandler {
	return &TaskHandler{queue: queue}
}

// GetTaskStatus 获取任务状态
// GET /api/tasks/:id
func (h *TaskHandler) GetTaskStatus(c *gin.Context) {
	task, err := h.queue.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewTaskInfo(task)))
}

// GetTasksByKey 获取链接或文档相关的所有任务
// GET /api/tasks?key=...
func (h *TaskHandler) GetTasksByKey(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		middleware.HandleError(c, middleware.NewValidationError("key is required"))
		return
	}

	tasks, err := h.queue.GetTasksByKey(c.Request.Context(), key)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	infos := make([]model.TaskInfo, 0, len(tasks))
	for _, task := range tasks {
		infos = append(infos, model.NewTaskInfo(task))
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(gin.H{
		"key":   key,
		"tasks": infos,
	}))
}
