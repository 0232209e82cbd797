package metadata

import (
	"regexp"
	"strings"
)

// Rule is one step of a field cascade. The first rule whose pattern matches
// supplies the value.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Extract func(match []string) string
}

// SeverityRule assigns Level when Pattern matches.
type SeverityRule struct {
	Pattern *regexp.Regexp
	Level   Severity
}

func group(i int) func([]string) string {
	return func(m []string) string {
		if i < len(m) {
			return strings.TrimSpace(m[i])
		}
		return ""
	}
}

func lineRule(name, label string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(`(?i)` + label + `[:\s]+([^\n]+)`), Extract: group(1)}
}

// TicketIDRules find the 7-8 digit ticket number.
var TicketIDRules = []Rule{
	{Name: "hash", Pattern: regexp.MustCompile(`#(\d{7,8})`), Extract: group(1)},
	{Name: "ticket", Pattern: regexp.MustCompile(`(?i)Ticket[:\s#]+(\d{7,8})`), Extract: group(1)},
	{Name: "case", Pattern: regexp.MustCompile(`(?i)Case[:\s#]+(\d{7,8})`), Extract: group(1)},
}

var CustomerRules = []Rule{
	lineRule("customer", "Customer"),
	lineRule("from", "From"),
	lineRule("requester", "Requester"),
}

var CompanyRules = []Rule{
	lineRule("company", "Company"),
	lineRule("organization", "Organization"),
}

var TradingPartnerRules = []Rule{
	lineRule("trading_partner", "Trading Partner"),
	lineRule("partner", "Partner"),
	lineRule("vendor", "Vendor"),
}

// TransactionRules prefer an X12 code with its optional label ("856 ASN").
var TransactionRules = []Rule{
	{
		Name:    "x12_code",
		Pattern: regexp.MustCompile(`(?i)\b(850|810|856|997|940|945|947|204|210|214|990)\b(?:\s*(PO|Invoice|ASN|FA|Warehouse|Shipment|Status|Carrier|Freight)\b)?`),
		Extract: func(m []string) string {
			return strings.TrimSpace(m[1] + " " + m[2])
		},
	},
	{Name: "transaction", Pattern: regexp.MustCompile(`(?i)Transaction[:\s]+(\d{3})`), Extract: group(1)},
}

var MessageIDRules = []Rule{
	lineRule("message_id", "Message ID"),
	{Name: "reference", Pattern: regexp.MustCompile(`(?i)Reference[:\s#]+([^\n]+)`), Extract: group(1)},
}

// IssueTitleRules keep the whole matched line, label included.
var IssueTitleRules = []Rule{
	{Name: "error", Pattern: regexp.MustCompile(`(?i)(Error[:\s]+[^\n]+)`), Extract: group(1)},
	{Name: "issue", Pattern: regexp.MustCompile(`(?i)(Issue[:\s]+[^\n]+)`), Extract: group(1)},
	{Name: "problem", Pattern: regexp.MustCompile(`(?i)(Problem[:\s]+[^\n]+)`), Extract: group(1)},
	{Name: "subject", Pattern: regexp.MustCompile(`(?i)(Subject[:\s]+[^\n]+)`), Extract: group(1)},
}

// severityLabel matches an explicit "Severity: HIGH" line.
var severityLabel = regexp.MustCompile(`(?i)Severity[:\s]+(HIGH|MEDIUM|NORMAL|LOW)\b`)

// SeverityRules are checked in order after any explicit severity label; no
// match leaves NORMAL.
var SeverityRules = []SeverityRule{
	{Pattern: regexp.MustCompile(`(?i)\b(urgent|critical|emergency|down)\b`), Level: SeverityHigh},
	{Pattern: regexp.MustCompile(`(?i)\b(important|priority|asap)\b`), Level: SeverityMedium},
}

// FirstMatch runs rules in order and returns the first non-empty value.
func FirstMatch(rules []Rule, text string) (string, string, bool) {
	for _, rule := range rules {
		m := rule.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if value := rule.Extract(m); value != "" {
			return value, rule.Name, true
		}
	}
	return "", "", false
}

// LabeledSeverity returns the level named by an explicit severity label.
func LabeledSeverity(text string) (Severity, bool) {
	m := severityLabel.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return ParseSeverity(m[1])
}

// KeywordSeverity applies an explicit severity label, then SeverityRules.
func KeywordSeverity(text string) Severity {
	if level, ok := LabeledSeverity(text); ok {
		return level
	}
	for _, rule := range SeverityRules {
		if rule.Pattern.MatchString(text) {
			return rule.Level
		}
	}
	return SeverityNormal
}
