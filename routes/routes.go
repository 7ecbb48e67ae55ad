package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	controller "taskscribe/controllers"
	"taskscribe/middleware"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Auth routes group with logging middleware
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/logout", controller.Logout)
	protectedAuth.Post("/change-password", controller.ChangePassword)
	protectedAuth.Get("/me", controller.Me)

	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB) {
	projectController := controller.NewProjectController(db, log.New(os.Stdout, "PROJECT: ", log.LstdFlags))
	elementController := controller.NewElementController(db, log.New(os.Stdout, "ELEMENT: ", log.LstdFlags))
	memberController := controller.NewMemberController(db, log.New(os.Stdout, "MEMBER: ", log.LstdFlags))
	campaignController := controller.NewCampaignController(db, log.New(os.Stdout, "CAMPAIGN: ", log.LstdFlags))
	annotationController := controller.NewAnnotationController(db, log.New(os.Stdout, "ANNOTATION: ", log.LstdFlags))
	commentController := controller.NewCommentController(db, log.New(os.Stdout, "COMMENT: ", log.LstdFlags))
	exportController := controller.NewExportController(db, log.New(os.Stdout, "EXPORT: ", log.LstdFlags))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Project routes
	projects := api.Group("/projects")
	projects.Post("/", projectController.CreateProject)
	projects.Get("/", projectController.ListProjects)
	projects.Get("/:id", projectController.GetProject)
	projects.Put("/:id", projectController.UpdateProject)
	projects.Delete("/:id", projectController.DeleteProject)
	projects.Post("/join/:token", projectController.JoinWithToken)

	// Members
	projects.Get("/:id/members", memberController.ListMembers)
	projects.Put("/:id/members/:memberID", memberController.UpdateMember)
	projects.Delete("/:id/members/:memberID", memberController.RemoveMember)

	// Elements and related project resources
	projects.Post("/:id/types", elementController.CreateElementType)
	projects.Post("/:id/classes", elementController.CreateClass)
	projects.Post("/:id/elements", elementController.CreateElement)
	projects.Get("/:id/elements", elementController.ListElements)
	projects.Post("/:id/campaigns", campaignController.CreateCampaign)
	projects.Get("/:id/campaigns", campaignController.ListCampaigns)

	api.Post("/images", elementController.CreateImage)
	api.Post("/providers", elementController.CreateProvider)

	// Campaign routes
	campaigns := api.Group("/campaigns")
	campaigns.Get("/:id", campaignController.GetCampaign)
	campaigns.Post("/:id/tasks", campaignController.GenerateTasks)
	campaigns.Get("/:id/tasks", campaignController.CampaignTasks)
	campaigns.Post("/:id/publish", campaignController.PublishCampaign)
	campaigns.Post("/:id/close", campaignController.CloseCampaign)
	campaigns.Post("/:id/reopen", campaignController.ReopenCampaign)
	campaigns.Post("/:id/archive", campaignController.ArchiveCampaign)
	campaigns.Post("/:id/join", middleware.JoinRateLimiter(), campaignController.JoinCampaign)
	campaigns.Post("/:id/preview", campaignController.PreviewCampaign)
	campaigns.Post("/:id/exports", exportController.StartExport)

	// Assignment routes
	tasks := api.Group("/tasks")
	tasks.Get("/:id", annotationController.GetTask)
	tasks.Post("/:id/annotate", annotationController.Annotate)
	tasks.Post("/:id/skip", annotationController.SkipTask)
	tasks.Post("/:id/moderate", annotationController.ModerateTask)
	tasks.Get("/:id/history", annotationController.TaskHistory)
	tasks.Get("/:id/comments", commentController.ListComments)
	tasks.Post("/:id/comments", commentController.CreateComment)

	// Exports
	exportsGroup := api.Group("/exports")
	exportsGroup.Get("/:id", exportController.GetExport)
	exportsGroup.Get("/:id/download", exportController.DownloadExport)

	// Live activity dashboards
	app.Get("/ws/campaigns/:id/activity", websocket.New(controller.HandleActivityWS))
}

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	SetupAuthRoutes(app, db)
	SetupAPIRoutes(app, db)
}
