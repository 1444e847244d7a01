package service

import (
	"hash/fnv"
	"math"
	"strings"

	"github.com/fadilmartias/hireflow/internal/model"
)

const (
	fallbackTimeLimitSeconds = 120
	fallbackFeedbackScore    = 50
	// LocalScoreDefault is returned when the job description names none of the keywords.
	LocalScoreDefault  = 70
	localScoreBias     = 20
	localScoreCap      = 95
	localAnalysisScore = 75
)

var fallbackQuestions = []string{
	"Can you describe a challenging bug you faced recently and how you solved it?",
	"Explain the difference between SQL and NoSQL databases. When would you use each?",
	"How do you handle state management in a complex application?",
	"What is the importance of RESTful API design? Give an example of a good endpoint.",
	"Describe your experience with Git and version control in a team setting.",
	"How do you optimize a web application for performance and faster load times?",
	"Explain a concurrency problem you have run into and how you made the code safe.",
	"What are the security best practices you follow when building a backend API?",
	"Tell me about a time you had to learn a new technology quickly under pressure.",
	"How would you design monitoring and alerting for a service you own?",
}

var matchKeywords = []string{
	"react", "node", "javascript", "python", "java", "sql", "mongodb", "aws", "docker",
	"html", "css", "api", "git", "communication", "teamwork", "problem solving",
	"leadership", "agile",
}

var analysisSkills = []string{"javascript", "react", "node", "python", "sql", "aws", "java"}

// FallbackEngine produces deterministic offline substitutes for every
// gateway schema. It holds no mutable state and performs no I/O.
type FallbackEngine struct {
	questions []string
}

func NewFallbackEngine() *FallbackEngine {
	return &FallbackEngine{questions: fallbackQuestions}
}

// NextQuestion picks from the fixed bank, starting at an offset derived from
// the session id and skipping questions already asked in that session.
func (f *FallbackEngine) NextQuestion(sessionID string, asked []string) NextQuestion {
	n := len(f.questions)
	seen := make(map[string]struct{}, len(asked))
	for _, q := range asked {
		seen[q] = struct{}{}
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	offset := int(h.Sum32() % uint32(n))

	for i := 0; i < n; i++ {
		q := f.questions[(offset+len(asked)+i)%n]
		if _, ok := seen[q]; !ok {
			return NextQuestion{Question: q, TimeLimitSeconds: fallbackTimeLimitSeconds}
		}
	}

	// Bank exhausted: cycle, but never repeat the question just asked.
	q := f.questions[(offset+len(asked))%n]
	if len(asked) > 0 && q == asked[len(asked)-1] {
		q = f.questions[(offset+len(asked)+1)%n]
	}
	return NextQuestion{Question: q, TimeLimitSeconds: fallbackTimeLimitSeconds}
}

// Feedback is the neutral report used when the AI grader is unavailable.
func (f *FallbackEngine) Feedback() model.FeedbackReport {
	return model.FeedbackReport{
		Score:        fallbackFeedbackScore,
		Strengths:    []string{"Completed the interview"},
		Improvements: []string{"Review your answers against the job description while a detailed report is unavailable"},
		Summary: "Interview completed. This is an automated fallback report because the AI service was unavailable, " +
			"so the score is a neutral placeholder. Your answers were recorded successfully.",
	}
}

// LocalMatchScore scores keyword overlap between a resume and a job
// description. The result is in [0, localScoreCap].
func (f *FallbackEngine) LocalMatchScore(resumeText, jobDescription string) int {
	jd := strings.ToLower(jobDescription)
	resume := strings.ToLower(resumeText)

	target, matched := 0, 0
	for _, kw := range matchKeywords {
		if !strings.Contains(jd, kw) {
			continue
		}
		target++
		if strings.Contains(resume, kw) {
			matched++
		}
	}
	if target == 0 {
		return LocalScoreDefault
	}

	score := int(math.Round(float64(matched) / float64(target) * 100))
	return min(score+localScoreBias, localScoreCap)
}

// LocalResumeAnalysis lists required skills missing from the resume.
func (f *FallbackEngine) LocalResumeAnalysis(resumeText, jobDescription string) ResumeAnalysis {
	jd := strings.ToLower(jobDescription)
	resume := strings.ToLower(resumeText)

	missing := make([]string, 0, len(analysisSkills))
	for _, skill := range analysisSkills {
		if strings.Contains(jd, skill) && !strings.Contains(resume, skill) {
			missing = append(missing, skill)
		}
	}
	if len(missing) == 0 {
		missing = []string{"Keywords not found in text"}
	}

	return ResumeAnalysis{
		Score:         localAnalysisScore,
		MissingSkills: missing,
		Suggestions: []string{
			"Try adding more technical keywords from the job description.",
			"Ensure your contact information is clear.",
		},
	}
}
