package handlers

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mingshilin.com/app/internal/http/middleware"
	"mingshilin.com/app/internal/shared/apperr"
)

// ForestHandler serves the tree/care/comment endpoints. These are thin
// mock-data wrappers: nothing is persisted, responses are synthesized per
// request the way the mini-program expects them.
type ForestHandler struct{}

func NewForestHandler() *ForestHandler { return &ForestHandler{} }

type treePoint struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Region string `json:"region"`
	Level  int    `json:"level"`
	Health string `json:"health"`
}

func (h *ForestHandler) TreePoints(c *gin.Context) {
	points := []treePoint{
		{ID: "1", Name: "梧桐树", X: 300, Y: 200, Region: "名师林", Level: 5, Health: "健康"},
		{ID: "2", Name: "银杏树", X: 500, Y: 350, Region: "名师林", Level: 3, Health: "良好"},
	}

	if region := c.Query("region"); region != "" {
		filtered := points[:0]
		for _, p := range points {
			if p.Region == region {
				filtered = append(filtered, p)
			}
		}
		points = filtered
	}

	OK(c, points, "获取成功")
}

func (h *ForestHandler) TreeDetail(c *gin.Context) {
	treeID := c.Param("treeId")

	OK(c, gin.H{
		"id":       treeID,
		"name":     "梧桐树",
		"species":  "法桐",
		"age":      8,
		"height":   "12米",
		"diameter": "30厘米",
		"health":   "健康",
		"location": gin.H{"region": "名师林", "x": 300, "y": 200},
		"careHistory": []gin.H{
			{"id": "1", "type": "浇水", "date": "2024-08-01", "operator": "张同学", "notes": "定期浇水维护"},
		},
		"images": []string{"/images/1.png", "/images/2.png"},
	}, "获取成功")
}

type careInput struct {
	TreeID   string `json:"treeId" binding:"required"`
	CareType string `json:"careType" binding:"required"`
	ExpValue int    `json:"expValue"`
	PhotoURL string `json:"photoUrl"`
}

func (h *ForestHandler) CareCreate(c *gin.Context) {
	var in careInput
	if !bindJSON(c, &in) {
		return
	}

	exp := in.ExpValue
	if exp == 0 {
		exp = 10
	}

	OK(c, gin.H{
		"id":        strconv.FormatInt(time.Now().UnixMilli(), 10),
		"treeId":    in.TreeID,
		"careType":  in.CareType,
		"expValue":  exp,
		"photoUrl":  in.PhotoURL,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"operator":  "当前用户",
	}, "护理记录成功")
}

type commentInput struct {
	TreeID  string `json:"treeId" binding:"required"`
	Content string `json:"content" binding:"required,max=500"`
}

func (h *ForestHandler) CommentCreate(c *gin.Context) {
	var in commentInput
	if !bindJSON(c, &in) {
		return
	}

	OK(c, gin.H{
		"id":        strconv.FormatInt(time.Now().UnixMilli(), 10),
		"treeId":    in.TreeID,
		"content":   in.Content,
		"author":    "当前用户",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"likes":     0,
	}, "评论成功")
}

func (h *ForestHandler) CommentsByTree(c *gin.Context) {
	treeID := c.Param("treeId")

	OK(c, []gin.H{
		{
			"id":        "1",
			"treeId":    treeID,
			"content":   "这棵树长得真好！",
			"author":    "李同学",
			"timestamp": "2024-08-01T10:00:00Z",
			"likes":     5,
		},
	}, "获取成功")
}

type countInput struct {
	Action string `json:"action" binding:"required"`
}

func (h *ForestHandler) Count(c *gin.Context) {
	var in countInput
	if !bindJSON(c, &in) {
		return
	}
	if in.Action != "inc" {
		middleware.Fail(c, apperr.InvalidErr("Invalid action type.", nil))
		return
	}

	OK(c, gin.H{
		"count":     rand.Intn(100) + 1,
		"action":    "inc",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, "计数成功")
}
