package entity

type Attendee struct {
	ID         string            `json:"id"`
	EventID    string            `json:"eventId"`
	Identifier string            `json:"identifier"`
	FirstName  string            `json:"firstName"`
	LastName   string            `json:"lastName"`
	Email      string            `json:"email,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func (a Attendee) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

type AttendeeRequest struct {
	Identifier string            `json:"identifier"`
	FirstName  string            `json:"firstName"`
	LastName   string            `json:"lastName"`
	Email      string            `json:"email,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type AttributeType string

const (
	AttributeTypeText    AttributeType = "TEXT"
	AttributeTypeNumber  AttributeType = "NUMBER"
	AttributeTypeBoolean AttributeType = "BOOLEAN"
	AttributeTypeSelect  AttributeType = "SELECT"
)

// Attribute is an organization-defined custom field attached to attendee records.
type Attribute struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Type     AttributeType `json:"type"`
	Required bool          `json:"required"`
	Options  []string      `json:"options,omitempty"`
}

type AttributeRequest struct {
	Name     string        `json:"name"`
	Type     AttributeType `json:"type"`
	Required bool          `json:"required"`
	Options  []string      `json:"options,omitempty"`
}
