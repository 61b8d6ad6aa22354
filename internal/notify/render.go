package notify

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/bluespring/aqua-orders/internal/domain"
)

// Subject is the one-line summary for the status email.
func Subject(t *domain.OrderTracking) string {
	return fmt.Sprintf("Order %s: %s", t.OrderID, t.CurrentStatus.Description())
}

var timelineTmpl = template.Must(template.New("timeline").Parse(
	`Hello,

Your order {{.OrderID}} is now: {{.CurrentStatus.Description}}.
{{- if .TrackingNum}}

Carrier tracking number: {{.TrackingNum}}
{{- end}}

Order history:
{{- range .Activities}}
  {{.Timestamp.Format "2006-01-02 15:04 MST"}}  {{.Description}}
{{- end}}

Order total: {{.TotalAmount.StringFixed 2}}

Thank you for choosing Bluespring.
`))

type timelineData struct {
	*domain.OrderTracking
	TrackingNum string
}

// RenderTimeline renders the full activity history into a plain-text email
// body. Pure: same tracking in, same body out.
func RenderTimeline(t *domain.OrderTracking) (string, error) {
	data := timelineData{OrderTracking: t}
	if num, ok := t.TrackingNumber(); ok {
		data.TrackingNum = num
	}
	var b strings.Builder
	if err := timelineTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render timeline for %s: %w", t.OrderID, err)
	}
	return b.String(), nil
}
