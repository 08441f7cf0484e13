package gamify

// Action is a point-earning activity.
type Action string

const (
	ActionJoinRoom       Action = "JOIN_ROOM"
	ActionChatMessage    Action = "CHAT_MESSAGE"
	ActionSubmitSolution Action = "SUBMIT_SOLUTION"
)

// Points per action. Chat points are additionally capped per day.
var Points = map[Action]int{
	ActionJoinRoom:       5,
	ActionChatMessage:    1,
	ActionSubmitSolution: 50,
}

// ChatDailyCap limits points from chat messages per user per day.
const ChatDailyCap = 20

// Requirement kinds for badges.
const (
	reqAction      = "action"
	reqTotalPoints = "total_points"
	reqLanguages   = "languages"
)

// Badge is a static achievement definition.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`

	requireKind   string
	requireAction Action
	requireCount  int
}

// Badges is the full catalogue, checked in order on every award.
var Badges = []Badge{
	{
		ID: "first_collaborator", Name: "First Collaborator",
		Description: "Joined your first collaboration room", Icon: "🤝",
		requireKind: reqAction, requireAction: ActionJoinRoom, requireCount: 1,
	},
	{
		ID: "chatty", Name: "Chatty",
		Description: "Sent 50 messages in problem discussions", Icon: "💬",
		requireKind: reqAction, requireAction: ActionChatMessage, requireCount: 50,
	},
	{
		ID: "points_100_club", Name: "100 Points Club",
		Description: "Reached 100 total points", Icon: "🏆",
		requireKind: reqTotalPoints, requireCount: 100,
	},
	{
		ID: "language_explorer", Name: "Language Explorer",
		Description: "Collaborated in rooms for 3 different programming languages", Icon: "🌍",
		requireKind: reqLanguages, requireCount: 3,
	},
}
