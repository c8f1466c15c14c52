package research

// Stage is one named milestone of a research job. Progress is written when the
// stage starts.
type Stage struct {
	Name     string
	Progress int
	Step     string
}

// Stage names.
const (
	StagePreparation    = "preparation"
	StageIngredients    = "ingredient_database_analysis"
	StageCorporate      = "corporate_ownership_research"
	StageSupplyChain    = "supply_chain_investigation"
	StageRegulatory     = "regulatory_history_check"
	StageAlternatives   = "alternatives_search"
	StageRecommendation = "recommendation_synthesis"
)

// Stages is the fixed, ordered catalog. Progress values strictly increase.
var Stages = []Stage{
	{StagePreparation, 10, "Preparing comprehensive analysis..."},
	{StageIngredients, 20, "Analyzing ingredients database..."},
	{StageCorporate, 30, "Researching corporate ownership..."},
	{StageSupplyChain, 50, "Investigating supply chain..."},
	{StageRegulatory, 70, "Checking regulatory history..."},
	{StageAlternatives, 85, "Finding better alternatives..."},
	{StageRecommendation, 95, "Generating recommendations..."},
}

// StepComplete is the current step of a completed job.
const StepComplete = "Complete"
