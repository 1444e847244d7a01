package dto

type ScoreResumeRequest struct {
	ResumeReference string `json:"resume_reference" validate:"required"`
	JobDescription  string `json:"job_description"`
}

type ScoreResumeResponse struct {
	Score         int      `json:"score"`
	MissingSkills []string `json:"missing_skills"`
	Suggestions   []string `json:"suggestions"`
}
