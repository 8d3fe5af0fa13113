package handler

import (
	"net/http"

	"content-service/internal/model"
	"content-service/internal/stage"
	"content-service/internal/store"
	"content-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ItemRequest defines the structure for item creation/update requests
type ItemRequest struct {
	ProductCode    string `json:"product_code" validate:"required"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Category       string `json:"category"`
	TargetAudience string `json:"target_audience"`
	Tone           string `json:"tone"`
	Notes          string `json:"notes"`
}

// WordListRequest carries a full replacement for a multi-valued collection
type WordListRequest struct {
	Values []string `json:"values"`
}

// AttributeRequest declares a custom project attribute
type AttributeRequest struct {
	Name string `json:"name" validate:"required"`
}

// AttributeValueRequest sets one item's value for an attribute
type AttributeValueRequest struct {
	AttributeID uint   `json:"attribute_id" validate:"required"`
	Value       string `json:"value"`
}

// itemProject loads the item and its owning project in one step.
func itemProject(id uint) (*model.Item, *model.Project, error) {
	item, err := records.Item(id)
	if err != nil {
		return nil, nil, err
	}
	project, err := records.Project(item.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return item, project, nil
}

// ListItems handles retrieving all items of a project
func ListItems(c echo.Context) error {
	log := logger.FromContext(c)
	projectID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid project id"})
	}

	if _, err := records.Project(projectID); err != nil {
		return jsonError(c, err)
	}

	items, err := records.ItemsByProject(projectID)
	if err != nil {
		log.Error("Failed to list items", zap.Uint("project_id", projectID), zap.Error(err))
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// GetItem handles retrieving a single item with its child collections
func GetItem(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid item id"})
	}

	item, err := records.Item(id)
	if err != nil {
		log.Error("Item not found", zap.Uint("item_id", id), zap.Error(err))
		return jsonError(c, err)
	}

	keywords, err := records.KeywordsByItem(id)
	if err != nil {
		return jsonError(c, err)
	}
	questions, err := records.QuestionsByItem(id)
	if err != nil {
		return jsonError(c, err)
	}
	values, err := records.AttributeValuesByItem(id)
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"item":             item,
		"keywords":         keywords,
		"questions":        questions,
		"attribute_values": values,
	})
}

// CreateItem handles creating a new item; the product code is the natural
// key and must be unique within the project.
func CreateItem(c echo.Context) error {
	log := logger.FromContext(c)
	projectID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid project id"})
	}

	var req ItemRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.ProductCode == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "product_code is required"})
	}

	project, err := records.Project(projectID)
	if err != nil {
		return jsonError(c, err)
	}
	if err := stage.CheckStageAEditable(project); err != nil {
		log.Warn("Item creation rejected", zap.Uint("project_id", projectID), zap.Error(err))
		return jsonError(c, err)
	}

	if _, err := records.ItemByNaturalKey(projectID, req.ProductCode); err == nil {
		log.Warn("Item with this product code already exists",
			zap.Uint("project_id", projectID),
			zap.String("product_code", req.ProductCode))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Item with this product code already exists",
		})
	}

	item := model.Item{
		ProjectID:      projectID,
		ProductCode:    req.ProductCode,
		Name:           req.Name,
		Description:    req.Description,
		Category:       req.Category,
		TargetAudience: req.TargetAudience,
		Tone:           req.Tone,
		Notes:          req.Notes,
	}
	if err := records.CreateItem(&item); err != nil {
		log.Error("Failed to create item",
			zap.String("product_code", req.ProductCode),
			zap.Error(err))
		return jsonError(c, err)
	}

	log.Info("Item created successfully",
		zap.Uint("item_id", item.ID),
		zap.String("product_code", item.ProductCode))
	return c.JSON(http.StatusCreated, item)
}

// UpdateItem handles updating an item's scalar fields
func UpdateItem(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid item id"})
	}

	var req ItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.ProductCode == "" {
		// A reconcilable item must keep its natural key.
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "product_code must not be empty"})
	}

	item, project, err := itemProject(id)
	if err != nil {
		return jsonError(c, err)
	}
	if err := stage.CheckStageAEditable(project); err != nil {
		log.Warn("Item update rejected", zap.Uint("item_id", id), zap.Error(err))
		return jsonError(c, err)
	}

	if req.ProductCode != item.ProductCode {
		if existing, err := records.ItemByNaturalKey(project.ID, req.ProductCode); err == nil && existing.ID != id {
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "Item with this product code already exists",
			})
		}
	}

	item.ProductCode = req.ProductCode
	item.Name = req.Name
	item.Description = req.Description
	item.Category = req.Category
	item.TargetAudience = req.TargetAudience
	item.Tone = req.Tone
	item.Notes = req.Notes

	if err := records.SaveItem(item); err != nil {
		log.Error("Failed to update item", zap.Uint("item_id", id), zap.Error(err))
		return jsonError(c, err)
	}

	log.Info("Item updated successfully",
		zap.Uint("item_id", id),
		zap.String("product_code", item.ProductCode))
	return c.JSON(http.StatusOK, item)
}

// DeleteItem handles deleting an item and its child records
func DeleteItem(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid item id"})
	}

	_, project, err := itemProject(id)
	if err != nil {
		return jsonError(c, err)
	}
	if err := stage.CheckStageAEditable(project); err != nil {
		log.Warn("Item deletion rejected", zap.Uint("item_id", id), zap.Error(err))
		return jsonError(c, err)
	}

	if err := records.DeleteItem(id); err != nil {
		log.Error("Failed to delete item", zap.Uint("item_id", id), zap.Error(err))
		return jsonError(c, err)
	}

	log.Info("Item deleted successfully", zap.Uint("item_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Item deleted successfully"})
}

// ReplaceKeywords handles a full replacement of an item's keyword list
func ReplaceKeywords(c echo.Context) error {
	return replaceWordList(c, "keywords", records.ReplaceKeywords)
}

// ReplaceQuestions handles a full replacement of an item's question list
func ReplaceQuestions(c echo.Context) error {
	return replaceWordList(c, "questions", records.ReplaceQuestions)
}

func replaceWordList(c echo.Context, kind string, replace func(uint, []string) error) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid item id"})
	}

	var req WordListRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	_, project, err := itemProject(id)
	if err != nil {
		return jsonError(c, err)
	}
	if err := stage.CheckStageAEditable(project); err != nil {
		log.Warn("Collection update rejected",
			zap.Uint("item_id", id),
			zap.String("kind", kind),
			zap.Error(err))
		return jsonError(c, err)
	}

	if err := replace(id, req.Values); err != nil {
		log.Error("Failed to replace collection",
			zap.Uint("item_id", id),
			zap.String("kind", kind),
			zap.Error(err))
		return jsonError(c, err)
	}

	log.Info("Collection replaced",
		zap.Uint("item_id", id),
		zap.String("kind", kind),
		zap.Int("count", len(req.Values)))
	return c.JSON(http.StatusOK, echo.Map{"message": kind + " replaced"})
}

// ListAttributes handles retrieving a project's custom attributes
func ListAttributes(c echo.Context) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid project id"})
	}
	attrs, err := records.AttributesByProject(projectID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, attrs)
}

// CreateAttribute handles declaring a new custom attribute for a project
func CreateAttribute(c echo.Context) error {
	log := logger.FromContext(c)
	projectID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid project id"})
	}

	var req AttributeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	project, err := records.Project(projectID)
	if err != nil {
		return jsonError(c, err)
	}
	if err := stage.CheckStageAEditable(project); err != nil {
		return jsonError(c, err)
	}

	attrs, err := records.AttributesByProject(projectID)
	if err != nil {
		return jsonError(c, err)
	}
	for _, a := range attrs {
		if a.Name == req.Name {
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "Attribute with this name already exists",
			})
		}
	}

	attr := model.Attribute{ProjectID: projectID, Name: req.Name}
	if err := records.CreateAttribute(&attr); err != nil {
		log.Error("Failed to create attribute", zap.String("name", req.Name), zap.Error(err))
		return jsonError(c, err)
	}

	log.Info("Attribute created", zap.Uint("attribute_id", attr.ID), zap.String("name", attr.Name))
	return c.JSON(http.StatusCreated, attr)
}

// SetAttributeValue handles writing one item's value for an attribute
func SetAttributeValue(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid item id"})
	}

	var req AttributeValueRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	_, project, err := itemProject(id)
	if err != nil {
		return jsonError(c, err)
	}
	if err := stage.CheckStageAEditable(project); err != nil {
		return jsonError(c, err)
	}

	attrs, err := records.AttributesByProject(project.ID)
	if err != nil {
		return jsonError(c, err)
	}
	known := false
	for _, a := range attrs {
		if a.ID == req.AttributeID {
			known = true
			break
		}
	}
	if !known {
		return jsonError(c, store.ErrNotFound)
	}

	if err := records.SetAttributeValue(id, req.AttributeID, req.Value); err != nil {
		log.Error("Failed to set attribute value",
			zap.Uint("item_id", id),
			zap.Uint("attribute_id", req.AttributeID),
			zap.Error(err))
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Attribute value saved"})
}
