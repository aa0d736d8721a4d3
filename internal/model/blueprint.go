package model

// Tier is one difficulty band of a blueprint.
type Tier struct {
	Count             int     `json:"count"`
	PointsPerQuestion float64 `json:"points_per_question"`
}

// Blueprint is the difficulty-tier distribution an exam must satisfy.
type Blueprint struct {
	Easy   Tier `json:"easy"`
	Medium Tier `json:"medium"`
	Hard   Tier `json:"hard"`
}

// TotalQuestions is the sum of tier counts.
func (b Blueprint) TotalQuestions() int {
	return b.Easy.Count + b.Medium.Count + b.Hard.Count
}

// TotalPoints is the sum of count × points per question over all tiers.
func (b Blueprint) TotalPoints() float64 {
	return float64(b.Easy.Count)*b.Easy.PointsPerQuestion +
		float64(b.Medium.Count)*b.Medium.PointsPerQuestion +
		float64(b.Hard.Count)*b.Hard.PointsPerQuestion
}

// MatrixCell requires Quantity questions of a topic at a cognitive level.
type MatrixCell struct {
	Topic    string         `json:"topic"`
	Level    CognitiveLevel `json:"level"`
	Quantity int            `json:"quantity"`
}

// TopicMatrix is the topic × cognitive-level blueprint. It is a separate
// contract from Blueprint and is checked independently.
type TopicMatrix struct {
	Cells []MatrixCell `json:"cells"`
}

// TotalQuestions is the sum of all cell quantities.
func (m TopicMatrix) TotalQuestions() int {
	n := 0
	for _, c := range m.Cells {
		n += c.Quantity
	}
	return n
}

// QuestionMeta is the catalog classification of a question used by matrix checks.
type QuestionMeta struct {
	QuestionID int64
	Difficulty Difficulty
	Topic      string
	Level      CognitiveLevel
}
