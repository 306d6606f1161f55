package match

import "time"

// Статусы записи в очереди подбора.
const (
	QueueStatusWaiting = "waiting"
	QueueStatusMatched = "matched"
)

// QueueEntry — заявка пользователя на ранговый матч.
// На одного пользователя существует не больше одной записи.
type QueueEntry struct {
	UserID    string    `json:"user_id" bson:"_id"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Status    string    `json:"status" bson:"status"`
	Rating    int       `json:"rating,omitempty" bson:"rating,omitempty"`
}

type Match struct {
	ID          string                `json:"id" bson:"_id"`
	Player1     string                `json:"player1" bson:"player1"`
	Player2     string                `json:"player2" bson:"player2"`
	ProblemID   int                   `json:"problem_id" bson:"problem_id"`
	StartTime   time.Time             `json:"start_time" bson:"start_time"`
	EndTime     *time.Time            `json:"end_time,omitempty" bson:"end_time,omitempty"`
	Status      string                `json:"status" bson:"status"`
	Submissions map[string]Submission `json:"submissions,omitempty" bson:"submissions,omitempty"`
	Winner      string                `json:"winner,omitempty" bson:"winner,omitempty"`
}

// HasPlayer reports whether userID plays in this match.
func (m Match) HasPlayer(userID string) bool {
	return m.Player1 == userID || m.Player2 == userID
}

type Submission struct {
	Code            string    `json:"code" bson:"code"`
	Language        string    `json:"language" bson:"language"`
	SubmissionTime  time.Time `json:"submission_time" bson:"submission_time"`
	TestCasesPassed int       `json:"test_cases_passed" bson:"test_cases_passed"`
	TotalTestCases  int       `json:"total_test_cases" bson:"total_test_cases"`
}

// Виды событий, которые получает слушатель подбора.
const (
	EventFound   = "found"
	EventUpdated = "updated"
)

// Event — элемент потока listen: либо первый найденный матч
// пользователя, либо обновление уже идущего.
type Event struct {
	Kind  string `json:"kind"`
	Match Match  `json:"match"`
}

// JoinResult is what Join returns: a created match id or the
// waiting sentinel when the user was put into the queue.
type JoinResult struct {
	Waiting bool   `json:"waiting"`
	MatchID string `json:"match_id,omitempty"`
}
