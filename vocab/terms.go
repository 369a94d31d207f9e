package vocab

// Built-in term tables. Terms are stored normalized (lower case, no
// diacritics) because the gate normalizes queries before lookup. The
// tables mix English, French, Spanish and German coverage; languages
// with thinner coverage lean on the language adjustment factors.

var defaultTerms = map[Tier][]string{
	TierHigh: {
		// breeds and lines
		"ross", "cobb", "hubbard", "broiler", "broilers",
		"poulet", "poulets", "pollo", "pollos", "masthuhn", "masthahnchen",
		// core production metrics
		"fcr", "adg", "epef", "eef", "liveweight", "bodyweight",
		"mortality", "mortalite", "mortalidad", "culling",
		"hatchability", "eclosabilite", "incubation",
		// feed program
		"starter", "grower", "finisher", "prestarter",
		"demarrage", "croissance", "finition",
		// health, poultry specific
		"coccidiosis", "coccidiose", "ascites", "ascite",
		"gumboro", "newcastle", "marek", "bronchitis",
		"colibacillosis", "salmonella", "campylobacter",
		"footpad", "pododermatitis", "pododermatite",
		// housing
		"brooding", "litiere", "poussiniere",
	},
	TierMedium: {
		"poultry", "avicole", "aviculture", "avicultura", "geflugel",
		"chick", "chicks", "poussin", "poussins", "pollito", "pollitos",
		"flock", "troupeau", "lote", "herde",
		"feed", "aliment", "alimento", "futter",
		"feeder", "mangeoire", "comedero",
		"drinker", "abreuvoir", "bebedero",
		"vaccine", "vaccin", "vacuna", "vaccination",
		"ventilation", "litter", "bedding",
		"hatchery", "couvoir", "incubadora",
		"weight", "poids", "peso", "gewicht",
		"gain", "conversion", "uniformity", "uniformite",
		"density", "densite", "densidad",
		"temperature", "humidity", "humidite", "humedad",
		"ammonia", "ammoniac", "amoniaco",
		"carcass", "carcasse", "yield", "rendement", "rendimiento",
		"breast", "filet", "pechuga",
	},
	TierLow: {
		"bird", "birds", "oiseau", "oiseaux", "ave", "aves", "vogel",
		"egg", "eggs", "oeuf", "oeufs", "huevo", "huevos", "ei", "eier",
		"farm", "ferme", "granja", "barn", "batiment", "galpon", "stall",
		"male", "female", "femelle", "hembra", "macho",
		"age", "day", "days", "jour", "jours", "dia", "dias", "tag", "tage",
		"week", "weeks", "semaine", "semaines", "semana", "semanas",
		"water", "eau", "agua", "wasser",
		"light", "lumiere", "luz", "lighting", "eclairage",
		"protein", "proteine", "proteina", "energy", "energie", "energia",
		"cost", "cout", "costo", "price", "prix", "precio", "margin", "marge",
		"disease", "maladie", "enfermedad", "krankheit",
		"treatment", "traitement", "tratamiento",
		"symptom", "symptome", "sintoma",
	},
	TierGeneric: {
		"target", "objectif", "objetivo", "standard", "standards",
		"performance", "production", "management", "gestion", "manejo",
		"optimal", "optimum", "recommended", "recommande", "recomendado",
		"average", "moyenne", "promedio",
		"quality", "qualite", "calidad",
		"growth", "program", "programme", "phase",
		"level", "niveau", "nivel", "rate", "taux", "tasa",
	},
}

var defaultAcronyms = map[string]string{
	"fcr":  "feed conversion ratio fcr",
	"adg":  "average daily gain adg",
	"adfi": "average daily feed intake adfi",
	"epef": "european production efficiency factor epef",
	"eef":  "european efficiency factor eef",
	"bw":   "bodyweight bw",
	"doa":  "dead on arrival doa",
	"fpd":  "footpad dermatitis fpd",
	"ib":   "infectious bronchitis ib",
	"ibd":  "gumboro infectious bursal disease ibd",
	"nd":   "newcastle disease nd",
	"me":   "metabolizable energy me",
	"cp":   "crude protein cp",
	"rh":   "relative humidity rh",
}

// Categorized block list. Two or more hits force rejection.
var defaultBlocked = map[string][]string{
	"entertainment": {
		"movie", "movies", "film", "netflix", "song", "music", "lyrics",
		"game", "gaming", "videogame", "anime", "celebrity",
	},
	"unrelated_tech": {
		"javascript", "python", "iphone", "android", "crypto", "bitcoin",
		"blockchain", "frontend", "backend", "kubernetes",
	},
	"other_species": {
		"dog", "dogs", "cat", "cats", "horse", "horses", "cattle", "cow",
		"cows", "pig", "pigs", "swine", "sheep", "goat", "fish", "shrimp",
		"chien", "chat", "cheval", "vache", "porc", "cerdo", "perro", "gato",
	},
	"human_medical": {
		"pregnancy", "pediatric", "physician", "hospital", "oncology",
		"diabetes", "grossesse",
	},
	"adult": {
		"casino", "gambling", "betting", "poker",
	},
}
