// Package classify contains the pure message-intent heuristics that triage a
// candidate message before any model call. Every predicate is stateless and
// deterministic over the normalized form of the message, so each one can be
// unit-tested without network behavior.
package classify

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Category is the priority-ordered intent taxonomy. When categories overlap,
// the first match wins.
type Category string

const (
	CategoryConfirmation  Category = "confirmation"
	CategoryMeta          Category = "meta"
	CategoryClarification Category = "clarification"
	CategoryQuestion      Category = "question"
	CategoryReadiness     Category = "readiness"
	CategorySubstantive   Category = "substantive"
	CategoryOther         Category = "other"
)

// minSubstantiveRunes is the single-token length at which a message is
// considered to carry enough content to plausibly be an answer.
const minSubstantiveRunes = 20

var confirmationTokens = map[string]struct{}{
	"ok": {}, "okay": {}, "k": {}, "kk": {}, "sure": {}, "yes": {}, "yep": {},
	"yeah": {}, "alright": {}, "fine": {}, "got it": {}, "sounds good": {},
	"go on": {}, "go ahead": {}, "continue": {}, "great": {}, "cool": {},
	"thanks": {}, "thank you": {}, "understood": {}, "noted": {},
	"si": {}, "vale": {}, "dale": {}, "claro": {}, "bueno": {}, "entendido": {},
	"de acuerdo": {}, "gracias": {}, "perfecto": {},
}

var metaPhrases = []string{
	"i think i answered", "i already answered", "i answered everything",
	"answered everything", "anything else", "is that all", "that is all",
	"thats all", "are we done", "we are done", "is the interview over",
	"no more questions", "did i answer", "was that enough",
	"ya respondi", "ya conteste", "creo que respondi", "eso es todo",
	"algo mas", "alguna otra pregunta", "hemos terminado", "terminamos",
	"ya termine",
}

var clarificationPhrases = []string{
	"i dont understand", "i do not understand", "dont get it",
	"what do you mean", "what does that mean", "can you explain",
	"could you explain", "please explain", "explain the question",
	"rephrase", "repeat the question", "say that again", "clarify",
	"not sure what you mean", "confused by the question",
	"no entiendo", "no comprendo", "no entendi", "puedes explicar",
	"que quieres decir", "que significa", "repite la pregunta",
	"reformula", "explica la pregunta",
}

var interrogativeStarts = []string{
	"what ", "why ", "how ", "when ", "where ", "who ", "which ",
	"can ", "could ", "would ", "should ", "do ", "does ", "is ", "are ",
	"que ", "como ", "cuando ", "donde ", "quien ", "cual ", "cuanto ",
	"por que", "puedo ", "puedes ", "es ", "hay ",
}

// readinessPhrases are recognized in every supported language regardless of
// the job's configured language. A candidate greeting a Spanish-language
// interview with "ready" still starts it.
var readinessPhrases = map[string]struct{}{
	"ready": {}, "im ready": {}, "i am ready": {}, "start": {}, "begin": {},
	"lets start": {}, "lets begin": {}, "lets go": {}, "go": {},
	"start the interview": {}, "ready to start": {}, "ready when you are": {},
	"listo": {}, "lista": {}, "estoy listo": {}, "estoy lista": {},
	"empezar": {}, "empecemos": {}, "comenzar": {}, "comencemos": {},
	"vamos": {}, "iniciar": {}, "podemos empezar": {}, "podemos comenzar": {},
	"listo para empezar": {}, "lista para empezar": {},
}

var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize returns the canonical form of a message used by every predicate:
// NFC-normalized, trimmed and lower-cased.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

// fold additionally strips diacritics so that accented and unaccented
// spellings match the same phrase lists.
func fold(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		return s
	}
	return out
}

// stripFiller removes trailing punctuation and ellipses so "ok!!" and
// "ready..." match their bare tokens.
func stripFiller(s string) string {
	return strings.TrimSpace(strings.TrimRight(s, ".!?… "))
}

// Classify maps a raw message to the first matching category of the taxonomy.
func Classify(raw string) Category {
	msg := Normalize(raw)
	switch {
	case IsConfirmationOnly(msg):
		return CategoryConfirmation
	case IsMetaNonAnswer(msg):
		return CategoryMeta
	case IsClarificationRequest(msg):
		return CategoryClarification
	case IsUserQuestion(msg):
		return CategoryQuestion
	case IsReadinessSignal(msg):
		return CategoryReadiness
	case IsSubstantive(msg):
		return CategorySubstantive
	default:
		return CategoryOther
	}
}

// IsConfirmationOnly reports whether the message is a short acknowledgement
// carrying no propositional content. Such messages are never stored as answers.
func IsConfirmationOnly(msg string) bool {
	stripped := stripFiller(fold(Normalize(msg)))
	if stripped == "" {
		return true
	}
	_, ok := confirmationTokens[stripped]
	return ok
}

// IsMetaNonAnswer reports whether the message talks about the conversation
// itself instead of the question.
func IsMetaNonAnswer(msg string) bool {
	folded := stripFiller(fold(Normalize(msg)))
	for _, phrase := range metaPhrases {
		if strings.Contains(folded, phrase) {
			return true
		}
	}
	return false
}

// IsClarificationRequest reports whether the candidate explicitly asks to
// have the question explained or re-explained.
func IsClarificationRequest(msg string) bool {
	folded := fold(Normalize(msg))
	folded = strings.ReplaceAll(folded, "'", "")
	for _, phrase := range clarificationPhrases {
		if strings.Contains(folded, phrase) {
			return true
		}
	}
	return false
}

// IsUserQuestion reports whether the message poses a question back: it ends
// in a question mark or opens with an interrogative word.
func IsUserQuestion(msg string) bool {
	folded := fold(Normalize(msg))
	if folded == "" {
		return false
	}
	if strings.HasSuffix(folded, "?") {
		return true
	}
	for _, prefix := range interrogativeStarts {
		if strings.HasPrefix(folded, prefix) {
			return true
		}
	}
	return false
}

// IsReadinessSignal reports whether the message means "begin the interview".
// Both language variants are always tested; the job's configured language
// never gates this check.
func IsReadinessSignal(msg string) bool {
	stripped := stripFiller(fold(Normalize(msg)))
	_, ok := readinessPhrases[stripped]
	return ok
}

// IsSubstantive reports whether the message carries enough content to
// plausibly answer a question. This deliberately under-rejects: it is a
// necessary-but-not-sufficient gate before the message is offered to the
// responder service as a candidate answer.
func IsSubstantive(msg string) bool {
	normalized := Normalize(msg)
	if normalized == "" {
		return false
	}
	if utf8.RuneCountInString(normalized) >= minSubstantiveRunes {
		return true
	}
	if strings.ContainsAny(normalized, " \t\n") {
		return true
	}
	return strings.ContainsAny(normalized, ",.;:0123456789")
}

// IsViableAnswer applies the non-answer exclusions used both at routing time
// and again when validating an answer the responder service proposes.
func IsViableAnswer(msg string) bool {
	normalized := Normalize(msg)
	if normalized == "" {
		return false
	}
	return !IsConfirmationOnly(normalized) &&
		!IsMetaNonAnswer(normalized) &&
		!IsClarificationRequest(normalized) &&
		!IsUserQuestion(normalized)
}
