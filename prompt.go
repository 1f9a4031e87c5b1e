package zoningqa

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	NoInformationAnswer     = "I couldn't find relevant information in the handbook for that question."
	DontKnowAnswer          = "I don't know based on the handbook context."
	ZoningUnavailableAnswer = "Sorry, I couldn't retrieve zoning information for that address right now."
	NoZoningFieldsAnswer    = "The zoning lookup for that address did not return any recognizable zoning fields."
	UnexpectedErrorPrefix   = "Sorry, an unexpected error occurred while answering your question: "

	TruncationMarker = "\n\n[... reference text truncated ...]\n\n"

	AddressPrefix = "address"

	maxDiagnosticRunes = 160
)

const systemInstruction = `You are an assistant answering questions about New York City zoning, based on the NYC Zoning Handbook.

Rules:
- Answer ONLY from the reference text supplied with each question. Do not use outside knowledge.
- Never mention that you were given documents, pages, excerpts or context. Answer as if you simply know the material.
- If the question is broader than any single zoning rule can answer, ask one short clarifying question instead of guessing.
- If the reference text does not support an answer, reply with exactly this sentence and nothing else: "` + DontKnowAnswer + `"
- Be clear and concise.`

const userInstructionTemplate = `Reference text:
%s

Question: %s

Answer clearly and concisely.`

// BuildContext formats chunks in the order given, separated by blank lines.
func BuildContext(chunks []Chunk) string {
	blocks := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		source := chunk.Source
		if source == "" {
			source = UnknownSource
		}

		page := chunk.Page
		if page == "" {
			page = UnknownPage
		}

		blocks = append(blocks, fmt.Sprintf("[%s, page %s] %s", source, page, strings.TrimSpace(chunk.Text)))
	}

	return strings.Join(blocks, "\n\n")
}

// TruncateContext keeps the first and last max/2 runes around TruncationMarker
// when context is longer than max runes.
func TruncateContext(context string, max int) string {
	if max <= 0 || utf8.RuneCountInString(context) <= max {
		return context
	}

	runes := []rune(context)
	half := max / 2

	var sb strings.Builder
	sb.WriteString(string(runes[:half]))
	sb.WriteString(TruncationMarker)
	sb.WriteString(string(runes[len(runes)-half:]))
	return sb.String()
}

func BuildMessages(question, context string) []ChatMessage {
	return []ChatMessage{
		{Role: ChatRoleSystem, Content: systemInstruction},
		{Role: ChatRoleUser, Content: fmt.Sprintf(userInstructionTemplate, context, question)},
	}
}

// ParseAddress reports whether question is an address lookup and returns
// the trimmed address that follows the prefix.
func ParseAddress(question string) (string, bool) {
	q := strings.TrimLeft(question, " \t\r\n")

	n := len(AddressPrefix)
	if len(q) <= n || !strings.EqualFold(q[:n], AddressPrefix) {
		return "", false
	}

	rest := strings.TrimLeft(q[n:], " \t")
	if !strings.HasPrefix(rest, ":") {
		return "", false
	}

	return strings.TrimSpace(rest[1:]), true
}

func ZoningAnswer(district, overlay, borough string) string {
	var sentences []string

	if district != "" {
		sentences = append(sentences, fmt.Sprintf("The primary zoning district for this address is %s.", district))
	}

	if overlay != "" {
		sentences = append(sentences, fmt.Sprintf("It has a commercial overlay of %s.", overlay))
	}

	if borough != "" {
		sentences = append(sentences, fmt.Sprintf("The property is located in %s.", borough))
	}

	if len(sentences) == 0 {
		return NoZoningFieldsAnswer
	}

	return strings.Join(sentences, " ")
}

func UnexpectedErrorAnswer(err error) string {
	diagnostic := "unknown error"
	if err != nil {
		diagnostic = strings.Join(strings.Fields(err.Error()), " ")
	}

	if utf8.RuneCountInString(diagnostic) > maxDiagnosticRunes {
		runes := []rune(diagnostic)
		diagnostic = string(runes[:maxDiagnosticRunes]) + "…"
	}

	return UnexpectedErrorPrefix + diagnostic
}
