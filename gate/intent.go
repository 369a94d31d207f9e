package gate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dominicdesy/intelia-expert-sub005/schema"
)

var (
	breedRe = regexp.MustCompile(`\b(ross\s*308|ross\s*708|cobb\s*500|cobb\s*700|hubbard(\s*(flex|classic|ja\d*))?)\b`)
	sexRe   = regexp.MustCompile(`\b(male|males|female|females|mixed|as\s*hatched|femelle|femelles|macho|hembra)\b`)
	phaseRe = regexp.MustCompile(`\b(pre-?starter|starter|grower|finisher|demarrage|croissance|finition)\b`)
)

var metricTerms = map[string]string{
	"weight": "body_weight", "poids": "body_weight", "peso": "body_weight",
	"bodyweight": "body_weight", "liveweight": "body_weight",
	"fcr": "fcr", "conversion": "fcr",
	"gain": "daily_gain", "adg": "daily_gain",
	"intake": "feed_intake", "consumption": "feed_intake", "adfi": "feed_intake",
	"mortality": "mortality", "mortalite": "mortality", "mortalidad": "mortality",
	"uniformity": "uniformity", "uniformite": "uniformity",
	"epef": "epef", "eef": "epef",
	"yield": "yield", "rendement": "yield", "rendimiento": "yield",
}

var intentSignals = map[schema.Intent][]string{
	schema.IntentEnvironment: {
		"temperature", "humidity", "humidite", "humedad", "ventilation",
		"ammonia", "ammoniac", "lighting", "eclairage", "lux", "density",
		"densite", "densidad", "brooding", "litter", "litiere",
	},
	schema.IntentDiagnosis: {
		"disease", "maladie", "enfermedad", "symptom", "symptome", "sintoma",
		"sick", "malade", "lame", "lameness", "diarrhea", "lesion",
		"coccidiosis", "coccidiose", "ascites", "ascite", "gumboro",
		"newcastle", "marek", "bronchitis", "colibacillosis", "salmonella",
		"pododermatitis", "footpad", "mortality", "mortalite",
	},
	schema.IntentEconomics: {
		"cost", "cout", "costo", "price", "prix", "precio", "margin",
		"marge", "profit", "roi", "economics", "budget",
	},
	schema.IntentProtocol: {
		"vaccine", "vaccin", "vacuna", "vaccination", "protocol",
		"protocole", "protocolo", "schedule", "program", "programme",
		"treatment", "traitement", "tratamiento", "dose", "dosage",
		"withdrawal", "biosecurity", "biosecurite",
	},
	schema.IntentMetric: {
		"weight", "poids", "peso", "bodyweight", "liveweight", "fcr",
		"conversion", "gain", "adg", "intake", "adfi", "epef", "eef",
		"uniformity", "uniformite", "yield", "rendement", "rendimiento",
		"target", "objectif", "objetivo", "standard",
	},
}

// intent evaluation order: a diagnosis or economics signal should win
// over the broad metric bucket when both fire equally.
var intentOrder = []schema.Intent{
	schema.IntentDiagnosis,
	schema.IntentEconomics,
	schema.IntentProtocol,
	schema.IntentEnvironment,
	schema.IntentMetric,
}

// classifyIntent assigns the intent category and extracts entities from
// the normalized query. It never fails: no signal yields the general
// intent with zero confidence.
func classifyIntent(normalized string) schema.IntentResult {
	entities := extractEntities(normalized)

	tokens := Tokenize(normalized)
	tokenSet := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = true
	}

	best := schema.IntentGeneral
	bestHits := 0
	for _, intent := range intentOrder {
		hits := 0
		for _, sig := range intentSignals[intent] {
			if tokenSet[sig] {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = intent, hits
		}
	}

	// A metric plus an age or breed strongly implies a metric lookup
	// even when another bucket tied on raw hits.
	if best == schema.IntentGeneral && entities["metric"] != "" {
		best = schema.IntentMetric
		bestHits = 1
	}

	conf := 0.0
	if bestHits > 0 {
		conf = 0.5 + 0.15*float64(bestHits)
		if len(entities) >= 2 {
			conf += 0.1
		}
		if conf > 0.95 {
			conf = 0.95
		}
	}

	return schema.IntentResult{
		Intent:        best,
		Confidence:    conf,
		Entities:      entities,
		ExpandedQuery: normalized,
	}
}

func extractEntities(normalized string) map[string]string {
	entities := make(map[string]string)

	if m := breedRe.FindString(normalized); m != "" {
		entities["breed"] = strings.Join(strings.Fields(m), " ")
		entities["species"] = "broiler"
	}
	if m := ageRe.FindStringSubmatch(normalized); m != nil {
		entities["age_days"] = m[1]
	} else if m := weekRe.FindStringSubmatch(normalized); m != nil {
		if w, err := strconv.Atoi(m[1]); err == nil {
			entities["age_days"] = strconv.Itoa(w * 7)
		}
	}
	if m := sexRe.FindString(normalized); m != "" {
		entities["sex"] = canonicalSex(m)
	}
	if m := phaseRe.FindString(normalized); m != "" {
		entities["phase"] = canonicalPhase(m)
	}
	for _, t := range Tokenize(normalized) {
		if metric, ok := metricTerms[t]; ok {
			entities["metric"] = metric
			break
		}
	}
	if len(entities) == 0 {
		return nil
	}
	return entities
}

func canonicalSex(s string) string {
	switch {
	case strings.HasPrefix(s, "male"), s == "macho":
		return "male"
	case strings.HasPrefix(s, "female"), strings.HasPrefix(s, "femelle"), s == "hembra":
		return "female"
	default:
		return "mixed"
	}
}

func canonicalPhase(s string) string {
	switch s {
	case "demarrage", "pre-starter", "prestarter":
		return "starter"
	case "croissance":
		return "grower"
	case "finition":
		return "finisher"
	default:
		return s
	}
}
