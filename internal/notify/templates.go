package notify

import (
	"fmt"
	"sort"
	"strings"
)

func render(msg Message) (string, string) {
	var subject, intro string
	switch msg.Template {
	case TemplateSLABreach:
		subject = fmt.Sprintf("SLA breached on complaint %s", msg.TicketID)
		intro = "A service-level deadline has passed without the required action."
	case TemplateEscalation:
		subject = fmt.Sprintf("Complaint %s escalated", msg.TicketID)
		intro = "A complaint has been escalated and needs attention."
	case TemplateResolutionSubmitted:
		subject = fmt.Sprintf("Resolution submitted for complaint %s", msg.TicketID)
		intro = "A resolution was submitted. Please review it and verify or reject."
	case TemplateSurveyInvite:
		subject = "How did we do?"
		intro = "Your complaint has been closed. Please rate how it was handled."
	default:
		subject = fmt.Sprintf("Update on complaint %s", msg.TicketID)
		intro = "There is an update on a complaint."
	}

	var b strings.Builder
	b.WriteString(intro)
	b.WriteString("\n\n")
	if msg.TicketID != "" {
		fmt.Fprintf(&b, "Complaint: %s\n", msg.TicketID)
	}
	keys := make([]string, 0, len(msg.Payload))
	for k := range msg.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, msg.Payload[k])
	}
	return subject, b.String()
}
