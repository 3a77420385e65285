package webhook

import (
	leaddomain "leadpulse/backend/internal/lead/domain"
)

// Candidate field names seen across form-platform payloads, in priority order;
// first non-empty match wins. Extend these when a new payload shape shows up.
var (
	externalLeadIDKeys = []string{
		"externalLeadId", "external_lead_id", "submission_id", "sid", "id", "uuid",
		"submission.id", "submission.sid",
	}
	formIDKeys = []string{
		"formId", "webform_id", "webform", "form_id", "submission.webform_id",
	}
	utmCampaignKeys = []string{
		"utm_campaign", "utm[campaign]", "utm_campaign[0][value]", "utm.campaign", "utmCampaign",
	}
)

// ExternalLeadID extracts the source-assigned submission id, or "" when absent.
func ExternalLeadID(fields map[string]any) string {
	return leaddomain.FirstField(fields, externalLeadIDKeys)
}

// FormID extracts the form identifier, or "" when absent.
func FormID(fields map[string]any) string {
	return leaddomain.FirstField(fields, formIDKeys)
}

// UTMCampaign extracts the UTM campaign value, or "" when absent.
func UTMCampaign(fields map[string]any) string {
	return leaddomain.FirstField(fields, utmCampaignKeys)
}
