package handler

import (
	"net/http"
	"strconv"

	"content-service/internal/model"
	"content-service/internal/stage"
	"content-service/pkg/logger"
	"content-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ProjectRequest defines the structure for project creation/update requests
type ProjectRequest struct {
	Name string `json:"name" validate:"required"`
}

// StageRequest names the stage an approve/unapprove call targets.
type StageRequest struct {
	Stage string `json:"stage" validate:"required"`
}

func paramID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// ListProjects handles retrieving all projects
func ListProjects(c echo.Context) error {
	log := logger.FromContext(c)

	projects, err := records.Projects()
	if err != nil {
		log.Error("Failed to list projects", zap.Error(err))
		return jsonError(c, err)
	}

	log.Info("Projects retrieved successfully", zap.Int("count", len(projects)))
	return c.JSON(http.StatusOK, projects)
}

// GetProject handles retrieving a single project by ID
func GetProject(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid project id"})
	}

	project, err := records.Project(id)
	if err != nil {
		log.Error("Project not found", zap.Uint("project_id", id), zap.Error(err))
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, project)
}

// CreateProject handles creating a new project in draft
func CreateProject(c echo.Context) error {
	log := logger.FromContext(c)

	var req ProjectRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	project := model.Project{Name: req.Name, Stage: model.StageDraft}
	if err := records.CreateProject(&project); err != nil {
		log.Error("Failed to create project", zap.String("name", req.Name), zap.Error(err))
		return jsonError(c, err)
	}

	log.Info("Project created successfully",
		zap.Uint("project_id", project.ID),
		zap.String("name", project.Name))
	return c.JSON(http.StatusCreated, project)
}

// UpdateProject handles renaming a project. The stage is never assigned
// directly; it only moves through approve/unapprove.
func UpdateProject(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid project id"})
	}

	var req ProjectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	project, err := records.Project(id)
	if err != nil {
		return jsonError(c, err)
	}
	if err := stage.CheckMutable(project); err != nil {
		log.Warn("Project update rejected", zap.Uint("project_id", id), zap.Error(err))
		return jsonError(c, err)
	}

	project.Name = req.Name
	if err := records.SaveProject(project); err != nil {
		log.Error("Failed to update project", zap.Uint("project_id", id), zap.Error(err))
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, project)
}

// DeleteProject handles deleting a project
func DeleteProject(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid project id"})
	}

	if err := records.DeleteProject(id); err != nil {
		log.Error("Failed to delete project", zap.Uint("project_id", id), zap.Error(err))
		return jsonError(c, err)
	}

	log.Info("Project deleted successfully", zap.Uint("project_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Project deleted successfully"})
}

// ApproveStage handles advancing the project one stage forward
func ApproveStage(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid project id"})
	}

	var req StageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	target := model.ParseStage(req.Stage)

	project, err := records.Project(id)
	if err != nil {
		return jsonError(c, err)
	}

	if err := machine.Approve(project, target); err != nil {
		log.Warn("Stage approval rejected",
			zap.Uint("project_id", id),
			zap.String("target", string(target)),
			zap.String("current", string(project.Stage)),
			zap.Error(err))
		prometheus.RecordStageTransition(string(target), "approve", "rejected")
		return jsonError(c, err)
	}

	if err := records.SaveProject(project); err != nil {
		log.Error("Failed to persist stage approval", zap.Uint("project_id", id), zap.Error(err))
		return jsonError(c, err)
	}

	log.Info("Stage approved",
		zap.Uint("project_id", id),
		zap.String("stage", string(project.Stage)))
	prometheus.RecordStageTransition(string(target), "approve", "ok")
	return c.JSON(http.StatusOK, project)
}

// UnapproveStage handles reverting the project exactly one stage back
func UnapproveStage(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid project id"})
	}

	var req StageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	target := model.ParseStage(req.Stage)

	project, err := records.Project(id)
	if err != nil {
		return jsonError(c, err)
	}

	if err := machine.Unapprove(project, target); err != nil {
		log.Warn("Stage unapproval rejected",
			zap.Uint("project_id", id),
			zap.String("target", string(target)),
			zap.String("current", string(project.Stage)),
			zap.Error(err))
		prometheus.RecordStageTransition(string(target), "unapprove", "rejected")
		return jsonError(c, err)
	}

	if err := records.SaveProject(project); err != nil {
		log.Error("Failed to persist stage unapproval", zap.Uint("project_id", id), zap.Error(err))
		return jsonError(c, err)
	}

	log.Info("Stage unapproved",
		zap.Uint("project_id", id),
		zap.String("stage", string(project.Stage)))
	prometheus.RecordStageTransition(string(target), "unapprove", "ok")
	return c.JSON(http.StatusOK, project)
}

// ArchiveProject suspends the project; archived projects accept no
// mutating operations until restored.
func ArchiveProject(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid project id"})
	}

	project, err := records.Project(id)
	if err != nil {
		return jsonError(c, err)
	}
	if err := stage.Archive(project); err != nil {
		log.Warn("Archive rejected", zap.Uint("project_id", id), zap.Error(err))
		return jsonError(c, err)
	}
	if err := records.SaveProject(project); err != nil {
		return jsonError(c, err)
	}

	log.Info("Project archived", zap.Uint("project_id", id))
	return c.JSON(http.StatusOK, project)
}

// RestoreProject clears the suspend flag without touching the stage
func RestoreProject(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid project id"})
	}

	project, err := records.Project(id)
	if err != nil {
		return jsonError(c, err)
	}
	if err := stage.Restore(project); err != nil {
		log.Warn("Restore rejected", zap.Uint("project_id", id), zap.Error(err))
		return jsonError(c, err)
	}
	if err := records.SaveProject(project); err != nil {
		return jsonError(c, err)
	}

	log.Info("Project restored",
		zap.Uint("project_id", id),
		zap.String("stage", string(project.Stage)))
	return c.JSON(http.StatusOK, project)
}

// ProjectStatus reports the stage label and which stage screens are open
func ProjectStatus(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid project id"})
	}

	project, err := records.Project(id)
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"project_id": project.ID,
		"stage":      project.StageLabel(),
		"archived":   project.Archived,
		"editable":   stage.CheckStageAEditable(project) == nil,
		"gates": echo.Map{
			"stage_a": stage.CanEnter(project, model.StageAApproved),
			"stage_b": stage.CanEnter(project, model.StageBApproved),
			"stage_c": stage.CanEnter(project, model.StageCApproved),
		},
	})
}
