package chat

import "strings"

// Classifier decides whether a chat message asks to change the summary
// rather than ask a question about the meeting.
type Classifier interface {
	IsEditInstruction(message string) bool
}

// editKeywords is matched as lower-cased substrings, in English and Spanish.
// Short entries such as "add" also match inside longer words; that is
// accepted.
var editKeywords = []string{
	// editing
	"edit", "change", "modify", "update", "rewrite", "revise", "improve",
	"edita", "cambia", "modifica", "actualiza", "reescribe", "revisa", "mejora",

	// length and format
	"shorter", "longer", "brief", "detailed", "summarize", "expand",
	"más corto", "más largo", "breve", "detallado", "resume", "resumir", "amplía", "ampliar",

	// structure
	"bullet", "points", "list", "organize", "structure", "format",
	"viñetas", "puntos", "lista", "organiza", "organizar", "estructura", "formato",

	// direct instructions
	"make it", "hazlo", "haz que", "conviértelo", "ponlo",

	// the summary itself
	"the summary", "this summary", "el resumen", "este resumen",

	// transformations
	"translate", "traduce", "traducir", "in spanish", "in english", "en español", "en inglés",
	"highlight", "focus on", "emphasize", "destaca", "enfócate", "enfatiza",
	"remove", "add", "include", "exclude", "elimina", "agrega", "añade", "incluye", "excluye",

	// extraction
	"extract", "extrae", "show only", "muestra solo", "only show",
	"action items", "decisions", "next steps", "tareas", "decisiones", "próximos pasos",
}

// KeywordClassifier is the default Classifier: a message is an edit when it
// contains any edit keyword.
type KeywordClassifier struct{}

// IsEditInstruction implements Classifier.
func (KeywordClassifier) IsEditInstruction(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range editKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
