package model

import (
	"fmt"
	"time"

	"github.com/thep200/readme-crawler/cfg"
	"github.com/thep200/readme-crawler/pkg/db"
	"github.com/thep200/readme-crawler/pkg/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RepoReadme struct {
	Model
	Owner         string    `json:"repo_owner" gorm:"column:repo_owner;type:varchar(255);not null;uniqueIndex:idx_owner_name"`
	Name          string    `json:"repo_name" gorm:"column:repo_name;type:varchar(255);not null;uniqueIndex:idx_owner_name"`
	Stars         int       `json:"repo_stars" gorm:"column:repo_stars;default:0"`
	Url           string    `json:"repo_url" gorm:"column:repo_url;type:varchar(512);not null"`
	Description   string    `json:"description" gorm:"column:description;type:text"`
	Collaborators int       `json:"collaborators" gorm:"column:collaborators;default:0"`
	Topics        string    `json:"topics" gorm:"column:topics;type:text"`
	Readme        string    `json:"readme" gorm:"column:readme;type:longtext"`
	CreatedAt     time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

func NewRepoReadme(config *cfg.Config, logger log.Logger, db *db.Mysql) (*RepoReadme, error) {
	repoReadme := &RepoReadme{
		Model: Model{
			Config: config,
			Logger: logger,
			Mysql:  db,
		},
	}
	return repoReadme, nil
}

func (r *RepoReadme) TableName() string {
	return "repo_readmes"
}

// CreateBatch ghi một batch bản ghi readme, upsert theo (owner, name)
func (r *RepoReadme) CreateBatch(messages []ReadmeMessage) error {
	db, err := r.Mysql.Db()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}

	records := make([]RepoReadme, 0, len(messages))
	now := time.Now()

	for _, msg := range messages {
		record := RepoReadme{
			Owner:         TruncateString(msg.Owner, 250),
			Name:          TruncateString(msg.Name, 250),
			Stars:         msg.Stars,
			Url:           TruncateString(msg.Url, 500),
			Description:   msg.Description,
			Collaborators: msg.Collaborators,
			Topics:        msg.Topics,
			Readme:        msg.Readme,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		records = append(records, record)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "repo_owner"}, {Name: "repo_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"repo_stars", "description", "collaborators", "topics", "readme", "updated_at"}),
		}).CreateInBatches(records, 100)

		if result.Error != nil {
			return fmt.Errorf("failed to batch create readme records: %w", result.Error)
		}

		return nil
	})
}
