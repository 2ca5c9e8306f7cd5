package search

// Academic synonym dictionary for fallback query expansion.
//
// When no paraphrase capability is available, query variants are produced
// by substituting common scholarly vocabulary. The mapping bridges the gap
// between how a draft sentence phrases a claim and how abstracts phrase it
// ("impact" in prose, "effect" in titles).

// AcademicSynonyms maps common research vocabulary to near-equivalents.
// Only the leading entries are used per term, so the most interchangeable
// synonym comes first.
var AcademicSynonyms = map[string][]string{
	// Effect and causation
	"impact":    {"effect", "influence", "consequence"},
	"effect":    {"impact", "influence", "outcome"},
	"influence": {"effect", "impact", "role"},
	"cause":     {"driver", "determinant", "origin"},
	"affect":    {"influence", "alter", "modify"},

	// Change and trends
	"increase": {"rise", "growth", "elevation"},
	"decrease": {"decline", "reduction", "loss"},
	"change":   {"variation", "shift", "alteration"},
	"trend":    {"pattern", "trajectory", "dynamics"},
	"growth":   {"increase", "expansion", "accumulation"},

	// Methods and analysis
	"method":     {"approach", "technique", "procedure"},
	"approach":   {"method", "strategy", "framework"},
	"analysis":   {"assessment", "evaluation", "examination"},
	"model":      {"framework", "simulation", "representation"},
	"experiment": {"trial", "study", "assay"},
	"measure":    {"quantify", "assess", "estimate"},
	"estimate":   {"predict", "approximate", "project"},
	"evaluate":   {"assess", "examine", "measure"},
	"compare":    {"contrast", "benchmark", "relate"},

	// Study framing
	"study":        {"investigation", "research", "survey"},
	"research":     {"study", "investigation", "work"},
	"review":       {"survey", "synthesis", "overview"},
	"evidence":     {"findings", "data", "support"},
	"finding":      {"result", "observation", "outcome"},
	"result":       {"finding", "outcome", "observation"},
	"relationship": {"association", "correlation", "link"},
	"association":  {"relationship", "correlation", "connection"},
	"correlation":  {"association", "relationship", "dependence"},
	"significant":  {"substantial", "marked", "notable"},

	// Common domain framing
	"climate":     {"climatic", "weather", "warming"},
	"environment": {"environmental", "ecosystem", "habitat"},
	"soil":        {"ground", "land", "earth"},
	"water":       {"hydrological", "aquatic", "moisture"},
	"species":     {"taxa", "organisms", "populations"},
	"human":       {"anthropogenic", "population", "societal"},
	"disease":     {"illness", "disorder", "pathology"},
	"treatment":   {"therapy", "intervention", "application"},
	"cell":        {"cellular", "cytological", "tissue"},
	"gene":        {"genetic", "genomic", "allele"},
	"energy":      {"power", "fuel", "electricity"},
	"temperature": {"thermal", "heat", "warming"},
	"production":  {"yield", "output", "productivity"},
	"development": {"progression", "formation", "evolution"},
	"structure":   {"architecture", "organization", "composition"},
	"function":    {"role", "activity", "mechanism"},
	"mechanism":   {"process", "pathway", "function"},
	"response":    {"reaction", "sensitivity", "adaptation"},
	"risk":        {"hazard", "vulnerability", "exposure"},
	"rate":        {"frequency", "incidence", "velocity"},
}

// queryStopWords are function words stripped when building the reduced
// query variant. Kept small: over-stripping short queries hurts recall.
var queryStopWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"of": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "with": true, "by": true, "from": true, "as": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "being": true,
	"and": true, "or": true, "but": true, "not": true,
	"this": true, "that": true, "these": true, "those": true,
	"it": true, "its": true, "their": true, "our": true,
	"has": true, "have": true, "had": true,
	"can": true, "could": true, "may": true, "might": true,
	"we": true, "which": true, "what": true, "how": true,
}
