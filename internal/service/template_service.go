// internal/service/template_service.go
package service

import (
	"strings"

	"github.com/timothysaatum/bulk-sms/internal/model"
)

func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

// RenderForContact resolves placeholders once, at message-creation time. The
// rendered text is baked into the message row; it is never re-rendered per
// attempt.
func RenderForContact(template string, contact model.Contact) string {
	data := map[string]string{
		"name":  contact.Name,
		"phone": contact.PhoneNumber,
	}
	for k, v := range contact.CustomFields {
		data[k] = v
	}
	return RenderTemplate(template, data)
}
