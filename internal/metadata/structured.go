package metadata

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var structuredFields = []struct {
	pattern *regexp.Regexp
	assign  func(*Ticket, string)
}{
	{regexp.MustCompile(`(?i)Ticket ID[:\s]+#?(\d+)`), func(t *Ticket, v string) { t.TicketID = v }},
	{regexp.MustCompile(`(?i)Company[:\s]+([^\n]+)`), func(t *Ticket, v string) { t.Company = v }},
	{regexp.MustCompile(`(?i)Trading Partner[:\s]+([^\n]+)`), func(t *Ticket, v string) { t.TradingPartner = v }},
	{regexp.MustCompile(`(?i)Transaction Type[:\s]+([^\n]+)`), func(t *Ticket, v string) { t.TransactionType = v }},
	{regexp.MustCompile(`(?i)Message ID[:\s]+([^\n]+)`), func(t *Ticket, v string) { t.MessageID = v }},
	{regexp.MustCompile(`(?i)Issue Title[:\s]+([^\n]+)`), func(t *Ticket, v string) { t.IssueTitle = v }},
}

var (
	rootCauseHeading = regexp.MustCompile(`(?i)(?:Likely )?Root Cause[:\s]*`)
	stepsHeading     = regexp.MustCompile(`(?i)Recommended (?:Next )?Steps?[:\s]*`)
	labelLine        = regexp.MustCompile(`\n[ \t]*[*#]*[ \t]*[A-Za-z][\w ()/-]{0,40}:`)
	listMarker       = regexp.MustCompile(`^\s*(?:[-*•+]|\d+[.)])\s*`)
	markdownEmphasis = strings.NewReplacer("**", "", "__", "")
)

// ParseStructured reads a vision-analysis response. Structured lines win over
// an embedded JSON object, which wins over the regex cascade. A severity
// reported by the response is never replaced by keyword rules.
func ParseStructured(response string) Ticket {
	text := Normalize(response)
	plain := markdownEmphasis.Replace(text)

	t := Ticket{}
	for _, field := range structuredFields {
		if m := field.pattern.FindStringSubmatch(plain); m != nil {
			field.assign(&t, strings.TrimSpace(m[1]))
		}
	}
	if level, ok := LabeledSeverity(plain); ok {
		t.Severity = level
	}
	t.RootCause = section(plain, rootCauseHeading)
	t.RecommendedActions = listItems(section(plain, stepsHeading))

	if obj, ok := EmbeddedJSON(text); ok {
		mergeJSON(&t, obj)
	}

	filled := t
	if filled.TicketID == "" {
		filled.TicketID = DefaultTicketID
	}
	applyCascadeMissing(&filled, plain)
	if filled.Severity == "" {
		filled.Severity = KeywordSeverity(plain)
	}
	filled.KeyValues = ExtractKeyValues(plain)
	filled.RawText = text
	return filled.validated()
}

func applyCascadeMissing(t *Ticket, text string) {
	d := Defaults()
	empty := func(v, fallback string) string {
		if strings.TrimSpace(v) == "" {
			return fallback
		}
		return v
	}
	t.CustomerName = empty(t.CustomerName, d.CustomerName)
	t.Company = empty(t.Company, d.Company)
	t.TradingPartner = empty(t.TradingPartner, d.TradingPartner)
	t.TransactionType = empty(t.TransactionType, d.TransactionType)
	t.MessageID = empty(t.MessageID, d.MessageID)
	t.IssueTitle = empty(t.IssueTitle, d.IssueTitle)
	applyCascade(t, text, true)
}

// section returns the text following heading up to the next label line.
func section(text string, heading *regexp.Regexp) string {
	loc := heading.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[1]:]
	if end := labelLine.FindStringIndex(rest); end != nil {
		rest = rest[:end[0]]
	}
	return strings.TrimSpace(rest)
}

// listItems splits a section on bullet and number markers. Unmarked lines
// continue the previous item.
func listItems(sectionText string) []string {
	if sectionText == "" {
		return nil
	}
	var items []string
	for _, line := range strings.Split(sectionText, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		marked := listMarker.MatchString(line)
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		if !marked && len(items) > 0 {
			items[len(items)-1] += " " + line
			continue
		}
		items = append(items, line)
	}
	return items
}

// EmbeddedJSON decodes the first balanced object in text that parses.
func EmbeddedJSON(text string) (map[string]any, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end := balancedEnd(text, start); end > start {
			var obj map[string]any
			if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err == nil {
				return obj, true
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, false
}

func balancedEnd(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func mergeJSON(t *Ticket, obj map[string]any) {
	take := func(target *string, keys ...string) {
		if strings.TrimSpace(*target) != "" {
			return
		}
		for _, key := range keys {
			if value := jsonString(obj[key]); value != "" {
				*target = strings.TrimPrefix(value, "#")
				return
			}
		}
	}
	take(&t.TicketID, "ticket_id", "ticketId", "ticket")
	take(&t.CustomerName, "customer_name", "customer")
	take(&t.Company, "company", "company_name")
	take(&t.TradingPartner, "trading_partner", "tradingPartner", "partner")
	take(&t.TransactionType, "transaction_type", "transaction")
	take(&t.MessageID, "message_id", "messageId", "reference")
	take(&t.IssueTitle, "issue_title", "issue", "title")
	take(&t.RootCause, "root_cause", "rootCause")
	if t.Severity == "" {
		if severity, ok := ParseSeverity(jsonString(obj["severity"])); ok {
			t.Severity = severity
		}
	}
	if len(t.RecommendedActions) == 0 {
		switch actions := obj["recommended_actions"].(type) {
		case []any:
			for _, action := range actions {
				if value := jsonString(action); value != "" {
					t.RecommendedActions = append(t.RecommendedActions, value)
				}
			}
		case string:
			t.RecommendedActions = listItems(actions)
		}
	}
}

func jsonString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%.0f", v))
	case bool, json.Number:
		return fmt.Sprint(v)
	default:
		return ""
	}
}
