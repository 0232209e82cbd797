package vision

import (
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSystemPrompt is used when no prompt file is configured or present.
const DefaultSystemPrompt = "You are an EDI Specialist AI."

// TicketQuery asks for the field block the structured parser reads back.
const TicketQuery = `Analyze this EDI support ticket:

1. Ticket ID (format: #XXXXXXX)
2. Customer Company Name
3. Trading Partner
4. Transaction Type (850 PO, 810 Invoice, 856 ASN, 997 FA, 824 Rejection, etc.)
5. Issue Title
6. Severity (HIGH, MEDIUM, NORMAL, LOW)
7. Message ID or Reference Number

Format:
Ticket ID: #XXXXXXX
Company: [Company Name]
Trading Partner: [Partner Name]
Transaction Type: [Type]
Message ID: [Reference]
Issue Title: [Brief description]
Severity: [Level]

Then provide:
- Brief issue summary
- Likely root cause
- Recommended next steps
`

// LoadSystemPrompt reads path, falling back to DefaultSystemPrompt when the
// file is missing or blank.
func LoadSystemPrompt(path string) string {
	if strings.TrimSpace(path) == "" {
		return DefaultSystemPrompt
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSystemPrompt
	}
	if prompt := strings.TrimSpace(string(data)); prompt != "" {
		return prompt
	}
	return DefaultSystemPrompt
}

var mediaTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
}

// MIMEType resolves the upload content type for path.
func MIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if value, ok := mediaTypes[ext]; ok {
		return value
	}
	if value := mime.TypeByExtension(ext); value != "" {
		return value
	}
	return "application/octet-stream"
}

func displayName(path string) string {
	return filepath.Base(path)
}
