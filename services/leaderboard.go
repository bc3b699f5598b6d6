package services

import (
	"errors"

	"eco-quest-system/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// LeaderboardService is read-only over the ledger: individual rankings,
// department aggregation, and a windowed view around one user.
type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	ExternalUserID string `json:"external_user_id"`
	Username       string `json:"username"`
	Department     string `json:"department"`
	Points         int64  `json:"points"`
	EcoLevel       string `json:"eco_level"`
}

type DepartmentStanding struct {
	Rank        int     `json:"rank"`
	Department  string  `json:"department"`
	Members     int64   `json:"members"`
	TotalPoints int64   `json:"total_points"`
	AvgPoints   float64 `json:"avg_points"`
}

// TopUsers returns the top N users by points. Ties break on username so the
// ordering is stable across refreshes.
func (s *LeaderboardService) TopUsers(limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var users []models.EcoUser
	err := s.DB.Order("points DESC, username ASC").Limit(limit).Find(&users).Error
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = LeaderboardEntry{
			Rank:           i + 1,
			ExternalUserID: u.ExternalUserID,
			Username:       u.Username,
			Department:     u.Department,
			Points:         u.Points,
			EcoLevel:       EcoLevelName(u.Points),
		}
	}
	return entries, nil
}

// AroundUser returns the leaderboard window ±window around the given user.
func (s *LeaderboardService) AroundUser(externalUserID string, window int) ([]LeaderboardEntry, error) {
	if window <= 0 {
		window = 5
	}

	var target models.EcoUser
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// rank = 1 + number of users strictly ahead
	var ahead int64
	if err := s.DB.Model(&models.EcoUser{}).
		Where("points > ? OR (points = ? AND username < ?)", target.Points, target.Points, target.Username).
		Count(&ahead).Error; err != nil {
		return nil, err
	}
	rank := int(ahead) + 1

	lower := rank - window
	if lower < 1 {
		lower = 1
	}

	var users []models.EcoUser
	err := s.DB.Order("points DESC, username ASC").
		Offset(lower - 1).
		Limit(2*window + 1).
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = LeaderboardEntry{
			Rank:           lower + i,
			ExternalUserID: u.ExternalUserID,
			Username:       u.Username,
			Department:     u.Department,
			Points:         u.Points,
			EcoLevel:       EcoLevelName(u.Points),
		}
	}
	return entries, nil
}

// DepartmentStandings groups users by department and ranks departments by
// total points.
func (s *LeaderboardService) DepartmentStandings() ([]DepartmentStanding, error) {
	var rows []DepartmentStanding
	err := s.DB.Raw(`
		SELECT department,
		       COUNT(*)    AS members,
		       SUM(points) AS total_points,
		       AVG(points) AS avg_points
		FROM eco_users
		WHERE deleted_at IS NULL AND department <> ''
		GROUP BY department
		ORDER BY total_points DESC, department ASC
	`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	titler := cases.Title(language.English)
	for i := range rows {
		rows[i].Rank = i + 1
		rows[i].Department = titler.String(rows[i].Department)
	}
	return rows, nil
}
