package problem

type Problem struct {
	ID         int    `json:"problem_id" bson:"_id"`
	Title      string `json:"title" bson:"title"`
	Difficulty string `json:"difficulty" bson:"difficulty"`
	Statement  string `json:"statement,omitempty" bson:"statement,omitempty"`
}

type ProblemsResponse struct {
	PageNum    int       `json:"page_num" bson:"page_num"`
	TotalPages int       `json:"total_pages" bson:"total_pages"`
	Problems   []Problem `json:"problems" bson:"problems"`
}
