package testutil

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskscribe/config"
	"taskscribe/models"
	"taskscribe/modes"
)

// NewInMemoryDB creates an in-memory SQLite DB and runs migrations.
func NewInMemoryDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := config.MigrateDB(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Fixture seeds one project with a manager, a contributor and a moderator,
// ready to hang campaigns and elements on.
type Fixture struct {
	DB          *gorm.DB
	Project     models.Project
	Manager     models.User
	Contributor models.User
	Moderator   models.User
	PageType    models.ElementType
	LineType    models.ElementType
}

func NewFixture(db *gorm.DB) (*Fixture, error) {
	f := &Fixture{DB: db}

	users := []struct {
		target *models.User
		name   string
		role   models.Role
	}{
		{&f.Manager, "manager", models.RoleManager},
		{&f.Contributor, "contributor", models.RoleContributor},
		{&f.Moderator, "moderator", models.RoleModerator},
	}

	f.Project = models.Project{Name: "Archives"}
	if err := db.Create(&f.Project).Error; err != nil {
		return nil, err
	}

	for _, u := range users {
		*u.target = models.User{
			Name:         u.name,
			Email:        u.name + "@example.com",
			PasswordHash: "x",
		}
		if err := db.Create(u.target).Error; err != nil {
			return nil, err
		}
		membership := models.Membership{
			UserID:    u.target.ID,
			ProjectID: f.Project.ID,
			Role:      u.role,
		}
		if err := db.Create(&membership).Error; err != nil {
			return nil, err
		}
	}

	f.PageType = models.ElementType{ProjectID: f.Project.ID, Name: "page"}
	if err := db.Create(&f.PageType).Error; err != nil {
		return nil, err
	}
	f.LineType = models.ElementType{ProjectID: f.Project.ID, Name: "line"}
	if err := db.Create(&f.LineType).Error; err != nil {
		return nil, err
	}

	return f, nil
}

// CreateCampaign creates a campaign on the fixture's project.
func (f *Fixture) CreateCampaign(mode modes.Mode, cfg modes.CampaignConfig) (*models.Campaign, error) {
	campaign := &models.Campaign{
		ProjectID:             f.Project.ID,
		Name:                  fmt.Sprintf("%s campaign", mode),
		Mode:                  mode,
		State:                 models.CampaignRunning,
		NbTasksAutoAssignment: 50,
		MaxUserTasks:          1,
		Configuration:         cfg,
	}
	return campaign, f.DB.Create(campaign).Error
}

// CreateElement creates a page element, optionally under a parent.
func (f *Fixture) CreateElement(name string, parentID *string) (*models.Element, error) {
	typeID := f.PageType.ID
	if parentID != nil {
		typeID = f.LineType.ID
	}
	element := &models.Element{
		ProjectID: f.Project.ID,
		Name:      name,
		TypeID:    typeID,
		ParentID:  parentID,
	}
	return element, f.DB.Create(element).Error
}

// CreateTask creates a task for an element on a campaign.
func (f *Fixture) CreateTask(campaign *models.Campaign, element *models.Element) (*models.Task, error) {
	task := &models.Task{CampaignID: campaign.ID, ElementID: element.ID}
	return task, f.DB.Create(task).Error
}

// Assign hands a task to a user in the given state.
func (f *Fixture) Assign(task *models.Task, user *models.User, state models.TaskState) (*models.TaskUser, error) {
	assignment := &models.TaskUser{TaskID: task.ID, UserID: user.ID, State: state}
	return assignment, f.DB.Create(assignment).Error
}
