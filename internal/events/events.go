package events

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Type identifies what happened in the directory.
type Type string

const (
	SchemaInitialized Type = "schema_initialized"
	ClientAdded       Type = "client_added"
	PhoneAdded        Type = "phone_added"
	PhoneExists       Type = "phone_exists"
	ClientChanged     Type = "client_changed"
	PhoneDeleted      Type = "phone_deleted"
	ClientDeleted     Type = "client_deleted"
	ClientFound       Type = "client_found"
	ClientNotFound    Type = "client_not_found"
)

// ParseTypes converts event type names, rejecting unknown ones.
func ParseTypes(names []string) ([]Type, error) {
	types := make([]Type, 0, len(names))
	for _, name := range names {
		t := Type(strings.TrimSpace(name))
		switch t {
		case SchemaInitialized, ClientAdded, PhoneAdded, PhoneExists, ClientChanged,
			PhoneDeleted, ClientDeleted, ClientFound, ClientNotFound:
			types = append(types, t)
		default:
			return nil, fmt.Errorf("unknown event type %q", name)
		}
	}
	return types, nil
}

// Event is one confirmation of a directory operation.
type Event struct {
	Type      Type      `json:"type"`
	ClientID  int64     `json:"client_id,omitempty"`
	ClientIDs []int64   `json:"client_ids,omitempty"`
	Name      string    `json:"name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Field     string    `json:"field,omitempty"`
	Value     string    `json:"value,omitempty"`
	Count     int64     `json:"count,omitempty"`
	Time      time.Time `json:"time"`
}

// Message renders the event as a single human-readable line.
func (e Event) Message() string {
	switch e.Type {
	case SchemaInitialized:
		return "Schema initialized"
	case ClientAdded:
		if e.Name != "" {
			return fmt.Sprintf("Added client %d (%s)", e.ClientID, e.Name)
		}
		return fmt.Sprintf("Added client %d", e.ClientID)
	case PhoneAdded:
		return fmt.Sprintf("Added phone %s for client %d", e.Phone, e.ClientID)
	case PhoneExists:
		return fmt.Sprintf("Phone %s already belongs to client %d", e.Phone, e.ClientID)
	case ClientChanged:
		return fmt.Sprintf("Client %d %s changed to %s", e.ClientID, fieldLabel(e.Field), e.Value)
	case PhoneDeleted:
		if e.Count == 0 {
			return fmt.Sprintf("No phone %s for client %d", e.Phone, e.ClientID)
		}
		return fmt.Sprintf("Phone %s removed from client %d", e.Phone, e.ClientID)
	case ClientDeleted:
		if e.Count == 0 {
			return fmt.Sprintf("No client %d to delete", e.ClientID)
		}
		return fmt.Sprintf("Client %d deleted", e.ClientID)
	case ClientFound:
		if len(e.ClientIDs) == 1 {
			return fmt.Sprintf("Found client %d", e.ClientIDs[0])
		}
		ids := make([]string, len(e.ClientIDs))
		for i, id := range e.ClientIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		return "Found clients " + strings.Join(ids, ", ")
	case ClientNotFound:
		return "No client found"
	default:
		return string(e.Type)
	}
}

func fieldLabel(column string) string {
	switch column {
	case "first_name":
		return "first name"
	case "last_name":
		return "last name"
	default:
		return column
	}
}

// Notifier receives directory events.
type Notifier interface {
	Notify(Event)
}

// Console prints each event as one line.
type Console struct {
	w io.Writer
}

// NewConsole returns a Notifier writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Notify(e Event) {
	fmt.Fprintln(c.w, e.Message())
}

// Multi fans an event out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(e Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(e)
		}
	}
}

// Discard drops every event.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Event) {}
