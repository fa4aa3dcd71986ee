package classify

import "github.com/zen-systems/askroute/pkg/profile"

// Keyword tables for the heuristic extractors. Matching is lowercase
// substring matching against the raw question, so multi-word entries work
// without depending on the segmenter.

// domainKeywords maps each domain to its trigger vocabulary.
var domainKeywords = map[string][]string{
	"technology": {
		"computer", "software", "hardware", "programming", "code", "algorithm",
		"api", "database", "server", "network", "machine learning", "neural",
		"artificial intelligence", "ai model", "cloud", "kubernetes", "docker",
		"linux", "encryption", "compiler", "framework", "deploy",
	},
	"science": {
		"physics", "chemistry", "biology", "experiment", "theory", "quantum",
		"molecule", "evolution", "genome", "astronomy", "particle", "hypothesis",
		"thermodynamics", "relativity", "cell", "enzyme",
	},
	"medicine": {
		"symptom", "diagnosis", "treatment", "disease", "medication", "doctor",
		"patient", "therapy", "vaccine", "surgery", "clinical", "dosage",
		"infection", "blood pressure",
	},
	"finance": {
		"invest", "stock", "market", "interest rate", "loan", "portfolio",
		"currency", "inflation", "dividend", "budget", "tax", "revenue",
		"mortgage", "crypto",
	},
	"business": {
		"company", "startup", "management", "marketing", "strategy", "customer",
		"sales", "product launch", "supply chain", "negotiation", "merger",
		"hiring",
	},
	"law": {
		"legal", "contract", "lawsuit", "regulation", "copyright", "patent",
		"liability", "compliance", "court", "statute", "gdpr",
	},
	"education": {
		"learn", "study", "course", "curriculum", "exam", "teaching", "student",
		"university", "homework", "tutorial", "lesson",
	},
	"health": {
		"diet", "exercise", "nutrition", "sleep", "fitness", "calories",
		"wellness", "stress", "workout",
	},
	"travel": {
		"flight", "hotel", "visa", "itinerary", "destination", "tourist",
		"airport", "booking", "trip",
	},
	"entertainment": {
		"movie", "music", "game", "novel", "series", "concert", "album",
		"streaming", "anime",
	},
}

// specializedDomains require domain vocabulary to answer well; matching one
// of these upgrades the domain kind.
var specializedDomains = map[string]bool{
	"technology": true,
	"science":    true,
	"finance":    true,
}

// professionalDomains carry professional-practice stakes.
var professionalDomains = map[string]bool{
	"medicine": true,
	"law":      true,
}

// domainPriority breaks score ties deterministically: earlier wins.
var domainPriority = []string{
	"technology", "science", "medicine", "finance", "business", "law",
	"education", "health", "travel", "entertainment",
}

// Urgency vocabulary, split by strength.
var (
	urgencyHighKeywords = []string{
		"urgent", "immediately", "right now", "emergency", "asap",
		"critical", "at once",
	}
	urgencyMediumKeywords = []string{
		"soon", "quickly", "fast", "today", "promptly", "shortly",
	}
	urgencyLowKeywords = []string{
		"no rush", "whenever", "eventually", "sometime", "no hurry",
		"out of curiosity",
	}
	timeSensitiveMarkers = []string{
		"deadline", "by tomorrow", "tonight", "within the hour", "this morning",
		"immediately", "right now", "expires",
	}
	remedialActions = []string{
		"fix", "recover", "restore", "repair", "resolve", "rollback",
		"mitigate",
	}
	planningActions = []string{
		"should i", "plan", "decide", "choose", "compare", "recommend",
	}
	problemContext = []string{
		"down", "broken", "crashed", "failing", "error", "failure", "outage",
		"data loss", "not working", "corrupted",
	}
)

// toolKeywords maps each tool kind to its trigger vocabulary.
var toolKeywords = map[profile.ToolKind][]string{
	profile.ToolSearch: {
		"search", "latest", "news", "current", "look up", "find out",
		"trends", "recent", "today's", "headlines", "what's new",
	},
	profile.ToolRetrieval: {
		"knowledge base", "documentation", "reference", "manual", "docs",
		"article", "paper", "wiki", "archive", "records",
	},
	profile.ToolComputation: {
		"calculate", "compute", "sum", "average", "statistics", "percentage",
		"how many", "how much", "total", "convert", "equation",
	},
	profile.ToolTranslation: {
		"translate", "translation", "in english", "in french", "in spanish",
		"in german", "in japanese", "in chinese", "meaning of",
	},
	profile.ToolScheduling: {
		"schedule", "remind", "calendar", "appointment", "meeting at",
		"book a", "reschedule",
	},
	profile.ToolFile: {
		"file", "document", "spreadsheet", "export", "save as", "attachment",
		"pdf", "csv",
	},
}

// toolBasePriority is each tool's priority before relevance upgrades.
var toolBasePriority = map[profile.ToolKind]profile.ToolPriority{
	profile.ToolSearch:      profile.PriorityHigh,
	profile.ToolRetrieval:   profile.PriorityHigh,
	profile.ToolComputation: profile.PriorityHigh,
	profile.ToolTranslation: profile.PriorityMedium,
	profile.ToolScheduling:  profile.PriorityLow,
	profile.ToolFile:        profile.PriorityLow,
}

// Freshness vocabulary by temporal class.
var (
	realtimeMarkers = []string{
		"real-time", "real time", "right now", "live", "currently",
		"as of now", "at the moment",
	}
	recentMarkers = []string{
		"latest", "newest", "recent", "today", "this week", "just released",
		"breaking",
	}
	currentMarkers = []string{
		"current", "ongoing", "nowadays", "these days", "trend",
		"state of",
	}
	periodicMarkers = []string{
		"weekly", "monthly", "quarterly", "annual", "yearly", "report",
	}
	stableMarkers = []string{
		"history", "historical", "classic", "principle", "theory",
		"definition", "concept", "fundamentals", "origin",
	}
	dynamicIndicators = []string{
		"changing", "evolving", "update", "growth", "fluctuating", "volatile",
	}
	staticIndicators = []string{
		"unchanged", "stable", "constant", "traditional", "timeless",
	}
)

// freshnessDomainBase is how quickly each domain's answers go stale.
var freshnessDomainBase = map[string]float64{
	"technology":    0.6,
	"finance":       0.8,
	"entertainment": 0.5,
	"travel":        0.5,
	"business":      0.4,
	"medicine":      0.3,
	"science":       0.2,
	"law":           0.3,
	"education":     0.2,
	"health":        0.3,
	"general":       0.2,
}

// Expertise vocabulary by audience level.
var expertiseKeywords = map[profile.Expertise][]string{
	profile.ExpertiseBeginner: {
		"beginner", "new to", "getting started", "basics", "simple terms",
		"never used", "explain like", "first time", "intro to",
	},
	profile.ExpertiseIntermediate: {
		"improve", "optimize", "better way", "best practice", "more detail",
		"deeper",
	},
	profile.ExpertiseAdvanced: {
		"architecture", "internals", "performance tuning", "deep dive",
		"implementation detail", "trade-off", "tradeoff", "under the hood",
	},
	profile.ExpertiseExpert: {
		"formal proof", "proof of", "research", "state of the art",
		"benchmark", "complexity analysis", "peer-reviewed",
	},
}

// Complexity vocabulary.
var (
	subordinateMarkers = []string{
		"because", "although", "however", "therefore", "whereas", "unless",
		"while", "despite", "so that", "in order to",
	}
	questionMarkers = []string{
		"what", "why", "how", "when", "where", "which", "who",
	}
	technicalTerms = []string{
		"algorithm", "architecture", "protocol", "quantum", "neural",
		"distributed", "asynchronous", "cryptographic", "statistical",
		"derivative", "molecular", "regression", "optimization", "compiler",
		"thermodynamic",
	}
	abstractTerms = []string{
		"concept", "principle", "philosophy", "implication", "paradigm",
		"framework", "methodology", "perspective", "essence",
	}
	causalMarkers = []string{
		"why", "cause", "reason", "lead to", "result in", "due to",
		"because",
	}
	reasoningMarkers = []string{
		"explain", "analyze", "derive", "prove", "justify", "infer",
		"step by step",
	}
	comparisonMarkers = []string{
		"compare", "difference", "versus", " vs ", "better than", "pros and cons",
		"trade-off", "tradeoff",
	}
	evaluationMarkers = []string{
		"evaluate", "assess", "critique", "judge", "weigh", "review the",
	}
	interdisciplinaryMarkers = []string{
		"interdisciplinary", "cross-domain", "combine", "intersection",
		"relationship between", "impact of", "applied to",
	}
	broadScopeMarkers = []string{
		"overview", "landscape", "comprehensive", "end-to-end", "holistic",
		"everything about", "full picture",
	}
)

// matchKeywords returns the total weight of all table entries found in q.
func matchKeywords(q Query, keywords []string) float64 {
	var score float64
	for _, kw := range keywords {
		if countOccurrences(q.Lower, kw) > 0 {
			score += keywordWeight(q, kw, 1.0)
		}
	}
	return score
}

// countMatches returns how many table entries appear in q at least once.
func countMatches(q Query, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if countOccurrences(q.Lower, kw) > 0 {
			n++
		}
	}
	return n
}
