package notify

import "sort"

// Template is a named message body for SMS and email. Bodies use {{var}} placeholders.
type Template struct {
	SMS     string
	Subject string
	Body    string
}

// DefaultTemplates is the built-in message catalogue.
var DefaultTemplates = map[string]Template{
	"appointment_reminder": {
		SMS:     "Hi {{customer.first_name}}, this is a reminder of your appointment on {{appointment.date}} at {{appointment.time}}. Reply C to confirm.",
		Subject: "Appointment reminder for {{appointment.date}}",
		Body:    "Hi {{customer.first_name}},\n\nThis is a reminder of your appointment on {{appointment.date}} at {{appointment.time}}.\n\nSee you then.",
	},
	"job_completed": {
		SMS:     "Hi {{customer.first_name}}, your job #{{job.number}} is complete. Thank you for your business!",
		Subject: "Job #{{job.number}} completed",
		Body:    "Hi {{customer.first_name}},\n\nYour job #{{job.number}} has been completed. Thank you for choosing us.",
	},
	"invoice_reminder": {
		SMS:     "Hi {{customer.first_name}}, invoice #{{invoice.number}} for ${{invoice.balance}} is due {{invoice.due_date}}.",
		Subject: "Reminder: invoice #{{invoice.number}} is due",
		Body:    "Hi {{customer.first_name}},\n\nInvoice #{{invoice.number}} has an outstanding balance of ${{invoice.balance}}, due {{invoice.due_date}}.",
	},
	"estimate_follow_up": {
		SMS:     "Hi {{customer.first_name}}, just following up on estimate #{{estimate.number}}. Any questions? Reply here.",
		Subject: "Following up on estimate #{{estimate.number}}",
		Body:    "Hi {{customer.first_name}},\n\nWe wanted to follow up on estimate #{{estimate.number}}. Let us know if you have any questions.",
	},
	"technician_en_route": {
		SMS:     "Hi {{customer.first_name}}, {{technician.name}} is on the way and should arrive in about {{technician.eta}}.",
		Subject: "Your technician is on the way",
		Body:    "Hi {{customer.first_name}},\n\n{{technician.name}} is on the way and should arrive in about {{technician.eta}}.",
	},
}

// TemplateNames returns the names of the built-in templates in order.
func TemplateNames() []string {
	names := make([]string, 0, len(DefaultTemplates))
	for name := range DefaultTemplates {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
