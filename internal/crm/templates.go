package crm

import "strings"

// MessageTemplate is a reusable starting point for campaign templates.
type MessageTemplate struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Type     CampaignType `json:"type"`
	Template string       `json:"template"`
}

// builtinTemplates are offered to every tenant as-is. Placeholders are
// substituted per recipient at execution time.
var builtinTemplates = []MessageTemplate{
	{
		ID:       "greeting-welcome",
		Name:     "Welcome greeting",
		Type:     TypeGreeting,
		Template: "Hi {{name}}! Thanks for your purchase. We are here if you need anything.",
	},
	{
		ID:       "survey-nps",
		Name:     "Satisfaction survey",
		Type:     TypeSurvey,
		Template: "Hi {{name}}, how was your experience with us? Reply with a score from 0 to 10.",
	},
	{
		ID:       "follow-up-checkin",
		Name:     "Post-sale follow up",
		Type:     TypeFollowUp,
		Template: "Hi {{name}}, it has been a week since your purchase. Is everything working as expected?",
	},
	{
		ID:       "promo-offer",
		Name:     "Promotional offer",
		Type:     TypePromotional,
		Template: "{{name}}, we have an exclusive offer for you this week. Reply YES to learn more.",
	},
}

// BuiltinTemplates returns the canned template catalog.
func BuiltinTemplates() []MessageTemplate {
	out := make([]MessageTemplate, len(builtinTemplates))
	copy(out, builtinTemplates)
	return out
}

// RenderTemplate substitutes the supported placeholders with the contact's
// data. Unknown placeholders pass through untouched.
func RenderTemplate(template string, c *Contact) string {
	if c == nil {
		return template
	}
	r := strings.NewReplacer(
		"{{name}}", c.Name,
		"{{phone}}", c.Phone,
		"{{email}}", c.Email,
	)
	return r.Replace(template)
}
