package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/pinboard/pkg/middleware"
)

// SchedulerJobs 返回所有定时任务信息.
func SchedulerJobs(c *gin.Context) {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		render(c, http.StatusOK, gin.H{"jobs": []any{}})
		return
	}

	render(c, http.StatusOK, gin.H{"jobs": sched.GetJobInfos()})
}

// SchedulerRunJob 立即运行一次任务.
func SchedulerRunJob(c *gin.Context) {
	sched := middleware.GetScheduler(c)
	name := c.Param("name")

	if sched == nil {
		render(c, http.StatusNotFound, gin.H{"error": "scheduler not running"})
		return
	}

	if _, ok := sched.JobID(name); !ok {
		render(c, http.StatusNotFound, gin.H{"error": "job not found: " + name})
		return
	}

	if err := sched.RunNow(name); err != nil {
		render(c, http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	render(c, http.StatusAccepted, gin.H{"message": "job triggered", "job": name})
}

// SchedulerRemoveJob 按名称删除任务.
func SchedulerRemoveJob(c *gin.Context) {
	sched := middleware.GetScheduler(c)
	name := c.Param("name")

	if sched == nil {
		render(c, http.StatusNotFound, gin.H{"error": "scheduler not running"})
		return
	}

	if _, ok := sched.JobID(name); !ok {
		render(c, http.StatusNotFound, gin.H{"error": "job not found: " + name})
		return
	}

	if err := sched.RemoveJobByName(name); err != nil {
		render(c, http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	render(c, http.StatusOK, gin.H{"message": "job removed", "job": name})
}
