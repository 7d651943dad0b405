package core

import (
	"fmt"
	"strconv"
	"time"

	"leadboard-go/internal/db"
	"leadboard-go/internal/models"
)

// DecodeClient maps a client document. A missing or unparsable createdAt leaves the zero time.
func DecodeClient(doc db.Document) models.Client {
	return models.Client{
		ID:        doc.ID,
		Name:      stringField(doc.Fields, models.ClientFieldName),
		CreatedAt: timeField(doc.Fields[models.ClientFieldCreatedAt]),
	}
}

// DecodeLead maps a lead document. Leads come from another system, so every field is
// optional and any value is rendered as text.
func DecodeLead(doc db.Document) models.Lead {
	return models.Lead{
		ID:           doc.ID,
		Name:         stringField(doc.Fields, models.LeadFieldName),
		Phone:        stringField(doc.Fields, models.LeadFieldPhone),
		Email:        stringField(doc.Fields, models.LeadFieldEmail),
		NationalID:   stringField(doc.Fields, models.LeadFieldNationalID),
		Registration: stringField(doc.Fields, models.LeadFieldRegistration),
		Employer:     stringField(doc.Fields, models.LeadFieldEmployer),
		KeyPressed:   stringField(doc.Fields, models.LeadFieldKeyPressed),
		InterestedAt: stringField(doc.Fields, models.LeadFieldInterestedAt),
	}
}

func stringField(fields map[string]interface{}, name string) string {
	switch v := fields[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

func timeField(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}
