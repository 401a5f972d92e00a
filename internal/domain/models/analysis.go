package models

// AnalysisContext labels the prompt family sent to the LLM.
type AnalysisContext string

const (
	ContextHealthDetection     AnalysisContext = "health-detection"
	ContextGrowthPrediction    AnalysisContext = "growth-prediction"
	ContextPondAnalysis        AnalysisContext = "pond_analysis"
	ContextPondRecommendations AnalysisContext = "pond_recommendations"
	ContextAssistant           AnalysisContext = "aquaculture_assistant"
)

// HealthDetection is the structured answer for ContextHealthDetection.
type HealthDetection struct {
	HealthScore float64  `json:"healthScore"`
	Status      string   `json:"status"`
	Confidence  float64  `json:"confidence"`
	Diagnosis   string   `json:"diagnosis"`
	Symptoms    []string `json:"symptoms"`
	Treatment   string   `json:"treatment"`
	Prevention  string   `json:"prevention"`
}

// GrowthForecast is the structured answer for ContextGrowthPrediction.
type GrowthForecast struct {
	GrowthRate            string `json:"growthRate"`
	HarvestRecommendation string `json:"harvestRecommendation"`
	FeedingStrategy       string `json:"feedingStrategy"`
	ExpectedYield         string `json:"expectedYield"`
	MarketTiming          string `json:"marketTiming"`
	ProfitEstimate        string `json:"profitEstimate"`
}

// AnalysisResult carries either a structured payload or, when the model's
// answer could not be parsed, the raw text under Analysis.
type AnalysisResult struct {
	Context    AnalysisContext  `json:"context"`
	Structured bool             `json:"structured"`
	Health     *HealthDetection `json:"health,omitempty"`
	Growth     *GrowthForecast  `json:"growth,omitempty"`
	Analysis   string           `json:"analysis,omitempty"`
}
