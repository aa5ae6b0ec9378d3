// Package contact is a sample plugin providing the validators and the
// submission handler of a contact form.
package contact

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/formplug/pkg/form"
	"github.com/vango-dev/formplug/pkg/plugin"
)

// Name is the plugin name. It is also the validator category and the
// definition name of the contact form.
const Name = "contact"

// Handler is the submission handler name.
const Handler = "contact.inbox"

// Message is a received submission.
type Message struct {
	ID         uuid.UUID
	Instance   string
	Values     form.Values
	ReceivedAt time.Time
}

// Inbox collects submitted messages in memory.
type Inbox struct {
	mu       sync.Mutex
	messages []Message
}

// Messages returns a copy of the received messages.
func (in *Inbox) Messages() []Message {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]Message(nil), in.messages...)
}

func (in *Inbox) add(m Message) {
	in.mu.Lock()
	in.messages = append(in.messages, m)
	in.mu.Unlock()
}

// Definition is the contact form.
func Definition() form.Definition {
	return form.Definition{
		Name: Name,
		Fields: []form.Field{
			{Name: "name", Type: "text", Required: true},
			{Name: "email", Type: "email"},
			{Name: "phone", Type: "tel", Validate: form.Ref{"phone"}},
			{Name: "subject", Type: "text", Required: true, Validate: form.Ref{"subject"}},
			{Name: "message", Type: "textarea", Required: true},
		},
		FormValidators: []string{"contactChannel"},
		Submit:         Handler,
	}
}

// New returns the contact plugin delivering submissions to inbox.
func New(inbox *Inbox, logger *slog.Logger) *plugin.Plugin {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("plugin", Name)

	return &plugin.Plugin{
		Name:        Name,
		Version:     "1.2.0",
		Description: "Contact form validators and inbox",
		FieldCustomValidators: map[string]map[string]form.FieldValidator{
			Name: {
				"phone":   form.Phone(""),
				"subject": form.Chain(form.MinLength(3, ""), form.MaxLength(120, "")),
			},
		},
		FieldTypeValidators: map[string]form.FieldValidator{
			"email": form.Email(""),
		},
		FormValidators: map[string]form.FormValidator{
			"contactChannel": form.Sync(requireChannel),
		},
		SubmissionHandlers: map[string]form.SubmissionHandler{
			Handler: func(_ context.Context, def form.Definition, instance string, values form.Values) error {
				m := Message{ID: uuid.New(), Instance: instance, Values: values, ReceivedAt: time.Now()}
				inbox.add(m)
				logger.Info("Message received.", "form", def.Name, "instance", instance, "id", m.ID.String())
				return nil
			},
		},
		Setup: func(context.Context) error {
			logger.Debug("Contact inbox ready.")
			return nil
		},
		Cleanup: func(context.Context) error {
			logger.Debug("Contact inbox closed.", "messages", len(inbox.Messages()))
			return nil
		},
	}
}

func requireChannel(values form.Values, t form.Translator) []string {
	if isBlank(values.Get("email")) && isBlank(values.Get("phone")) {
		return []string{t.T("Provide an email address or a phone number")}
	}
	return nil
}

func isBlank(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(s) == ""
	default:
		return false
	}
}
