package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"content-service/internal/freshness"
	"content-service/internal/generation"
	"content-service/internal/model"
	"content-service/internal/stage"
	"content-service/pkg/logger"
	"content-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SelectionRequest carries the full set of topic ids to mark selected.
type SelectionRequest struct {
	TopicIDs []uint `json:"topic_ids"`
}

// topicResult is one topic candidate in a generation job's result payload.
type topicResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ListTopics handles retrieving an item's topic candidates with the
// freshness of the set relative to the item.
func ListTopics(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid item id"})
	}

	item, err := records.Item(id)
	if err != nil {
		return jsonError(c, err)
	}
	topics, err := records.TopicsByItem(id)
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"topics":         topics,
		"selected_count": model.CountSelected(topics),
		"freshness":      freshness.TopicsStatus(item, topics),
		"generating":     tracker.Generating(topicTarget(id)),
	})
}

// SetTopicSelection handles replacing an item's selected-topic set. The
// cap is enforced before anything is written.
func SetTopicSelection(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid item id"})
	}

	var req SelectionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	_, project, err := itemProject(id)
	if err != nil {
		return jsonError(c, err)
	}
	if err := stage.CheckStageEnter(project, model.StageBApproved); err != nil {
		log.Warn("Topic selection rejected", zap.Uint("item_id", id), zap.Error(err))
		return jsonError(c, err)
	}
	if err := stage.CheckSelectionCap(len(req.TopicIDs)); err != nil {
		log.Warn("Topic selection over cap",
			zap.Uint("item_id", id),
			zap.Int("requested", len(req.TopicIDs)))
		return jsonError(c, err)
	}

	if err := records.SetTopicSelection(id, req.TopicIDs); err != nil {
		log.Error("Failed to set topic selection", zap.Uint("item_id", id), zap.Error(err))
		return jsonError(c, err)
	}

	log.Info("Topic selection updated",
		zap.Uint("item_id", id),
		zap.Int("selected", len(req.TopicIDs)))
	return c.JSON(http.StatusOK, echo.Map{"selected_count": len(req.TopicIDs)})
}

func topicTarget(itemID uint) string {
	return fmt.Sprintf("topics:%d", itemID)
}

// GenerateTopics submits a topic generation job for one item and awaits
// its completion, then replaces the item's topic candidates with the
// result. A second request for the same item while one is polling is
// refused.
func GenerateTopics(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid item id"})
	}

	item, project, err := itemProject(id)
	if err != nil {
		return jsonError(c, err)
	}
	if err := stage.CheckStageEnter(project, model.StageBApproved); err != nil {
		log.Warn("Topic generation rejected", zap.Uint("item_id", id), zap.Error(err))
		return jsonError(c, err)
	}

	if !tracker.Begin(topicTarget(id)) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Topic generation is already in progress for this item",
		})
	}
	defer tracker.End(topicTarget(id))

	keywords, err := records.KeywordsByItem(id)
	if err != nil {
		return jsonError(c, err)
	}
	questions, err := records.QuestionsByItem(id)
	if err != nil {
		return jsonError(c, err)
	}

	req := generation.Request{
		Kind:      model.JobKindTopics,
		ProjectID: project.ID,
		TargetIDs: []uint{id},
		Inputs: echo.Map{
			"item":      item,
			"keywords":  keywords,
			"questions": questions,
		},
	}

	start := time.Now()
	job, status, err := runJob(c, log, project.ID, req)
	if err != nil {
		return jsonError(c, err)
	}
	prometheus.JobPollDuration.WithLabelValues(string(model.JobKindTopics)).
		Observe(time.Since(start).Seconds())

	var results []topicResult
	if err := json.Unmarshal(status.Result, &results); err != nil {
		log.Error("Invalid topic generation result", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "Invalid generation result"})
	}

	topics := make([]model.Topic, len(results))
	for i, r := range results {
		topics[i] = model.Topic{
			Index:       i + 1,
			Title:       r.Title,
			Description: r.Description,
		}
	}
	if err := records.ReplaceTopics(id, topics); err != nil {
		log.Error("Failed to store generated topics", zap.Uint("item_id", id), zap.Error(err))
		return jsonError(c, err)
	}

	log.Info("Topics generated",
		zap.Uint("item_id", id),
		zap.Uint("job_id", job.ID),
		zap.Int("count", len(topics)))
	return c.JSON(http.StatusOK, echo.Map{
		"job_id": job.ID,
		"count":  len(topics),
	})
}
