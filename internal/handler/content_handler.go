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
	"gorm.io/datatypes"
)

// GenerateContentRequest optionally restricts generation to given items.
type GenerateContentRequest struct {
	ItemIDs []uint `json:"item_ids"`
}

// contentResult is one item's generated fields in a job's result payload.
type contentResult struct {
	ItemID uint           `json:"item_id"`
	Fields map[string]any `json:"fields"`
}

func contentTarget(itemID uint) string {
	return fmt.Sprintf("content:%d", itemID)
}

// GetContent handles retrieving an item's generated content with its
// tri-state freshness: absent means "generate", stale means "regenerate".
func GetContent(c echo.Context) error {
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
	content, err := records.ContentByItem(id)
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"content":    content,
		"freshness":  freshness.ContentStatus(item, topics, content),
		"generating": tracker.Generating(contentTarget(id)),
	})
}

// GenerateContent submits one content generation job covering the
// requested items (default: every item whose content is absent or stale)
// and awaits completion. Every target must have its topic selection
// complete before submission.
func GenerateContent(c echo.Context) error {
	log := logger.FromContext(c)
	projectID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid project id"})
	}

	var req GenerateContentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	project, err := records.Project(projectID)
	if err != nil {
		return jsonError(c, err)
	}
	if err := stage.CheckStageEnter(project, model.StageCApproved); err != nil {
		log.Warn("Content generation rejected", zap.Uint("project_id", projectID), zap.Error(err))
		return jsonError(c, err)
	}

	targets, inputs, err := contentTargets(project.ID, req.ItemIDs)
	if err != nil {
		return jsonError(c, err)
	}
	if len(targets) == 0 {
		return c.JSON(http.StatusOK, echo.Map{"message": "Nothing to generate", "count": 0})
	}

	// Mark every target generating before submitting; back out fully if
	// any of them is already in flight.
	marked := make([]uint, 0, len(targets))
	for _, id := range targets {
		if !tracker.Begin(contentTarget(id)) {
			for _, m := range marked {
				tracker.End(contentTarget(m))
			}
			return c.JSON(http.StatusConflict, echo.Map{
				"error": fmt.Sprintf("Content generation is already in progress for item %d", id),
			})
		}
		marked = append(marked, id)
	}
	defer func() {
		for _, m := range marked {
			tracker.End(contentTarget(m))
		}
	}()

	genReq := generation.Request{
		Kind:      model.JobKindContent,
		ProjectID: project.ID,
		TargetIDs: targets,
		Inputs:    inputs,
	}

	start := time.Now()
	job, status, err := runJob(c, log, project.ID, genReq)
	if err != nil {
		return jsonError(c, err)
	}
	prometheus.JobPollDuration.WithLabelValues(string(model.JobKindContent)).
		Observe(time.Since(start).Seconds())

	var results []contentResult
	if err := json.Unmarshal(status.Result, &results); err != nil {
		log.Error("Invalid content generation result", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "Invalid generation result"})
	}

	written := 0
	for _, r := range results {
		if err := records.UpsertContent(r.ItemID, datatypes.JSONMap(r.Fields)); err != nil {
			log.Error("Failed to store generated content",
				zap.Uint("item_id", r.ItemID),
				zap.Error(err))
			return jsonError(c, err)
		}
		written++
	}

	log.Info("Content generated",
		zap.Uint("project_id", project.ID),
		zap.Uint("job_id", job.ID),
		zap.Int("count", written))
	return c.JSON(http.StatusOK, echo.Map{
		"job_id": job.ID,
		"count":  written,
	})
}

// contentTargets resolves which items to generate for and assembles the
// per-item inputs. Explicit ids are honored as-is; otherwise every item
// whose content is absent or stale is targeted. Each target must have a
// complete topic selection.
func contentTargets(projectID uint, explicit []uint) ([]uint, []echo.Map, error) {
	items, err := records.ItemsByProject(projectID)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[uint]*model.Item, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	candidates := explicit
	if len(candidates) == 0 {
		for i := range items {
			candidates = append(candidates, items[i].ID)
		}
	}

	var targets []uint
	var inputs []echo.Map
	for _, id := range candidates {
		item, ok := byID[id]
		if !ok {
			return nil, nil, fmt.Errorf("%w: item %d is not in project %d", stage.ErrPreconditionFailed, id, projectID)
		}
		topics, err := records.TopicsByItem(id)
		if err != nil {
			return nil, nil, err
		}
		content, err := records.ContentByItem(id)
		if err != nil {
			return nil, nil, err
		}
		if len(explicit) == 0 && freshness.ContentStatus(item, topics, content) == freshness.Fresh {
			continue
		}

		if n := model.CountSelected(topics); !stage.SelectionComplete(n) {
			return nil, nil, fmt.Errorf("%w: item %s has %d selected topics, need exactly %d",
				stage.ErrPreconditionFailed, item.ProductCode, n, model.MaxSelectedTopics)
		}

		selected := make([]model.Topic, 0, model.MaxSelectedTopics)
		for _, t := range topics {
			if t.Selected {
				selected = append(selected, t)
			}
		}
		targets = append(targets, id)
		inputs = append(inputs, echo.Map{
			"item":   item,
			"topics": selected,
		})
	}
	return targets, inputs, nil
}
