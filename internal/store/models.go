package store

import "time"

type User struct {
	ID        string
	Name      string
	Email     string
	Pic       string
	IsAdmin   bool
	CreatedAt time.Time
}

type Problem struct {
	ID          string
	Title       string
	Description string
	Tags        []string
	Status      string // open, in-progress, solved, closed
	OwnerID     string
	OwnerName   string
	ViewCount   int
	Solutions   []Solution
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Solution struct {
	ID         string
	ProblemID  string
	AuthorID   string
	AuthorName string
	Content    string
	Votes      int
	IsAccepted bool
	CreatedAt  time.Time
}

type ChatMessage struct {
	ID         string
	ProblemID  string
	SenderID   string
	SenderName string
	Content    string
	CreatedAt  time.Time
}

type Notification struct {
	ID            string
	RecipientID   string
	SenderID      string
	Type          string // new_message, new_solution, badge_earned, ...
	Message       string
	ProblemID     string
	RelatedItemID string
	IsRead        bool
	CreatedAt     time.Time
}

type GamificationProfile struct {
	UserID       string
	Points       int
	Level        int
	Badges       []string
	ActionCounts map[string]int
	Languages    []string
}

type LeaderboardEntry struct {
	UserID string
	Name   string
	Points int
	Badges int
}
