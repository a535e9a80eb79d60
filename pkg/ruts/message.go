package ruts

import (
	"errors"
	"fmt"
	"strings"
)

// GlobalProperty holds messages not tied to a form property.
const GlobalProperty = "_global"

// UserMessage is a message for the end user. Resource messages are keys
// into a message resource; direct messages carry their final text.
type UserMessage struct {
	Key      string `json:"key"`
	Values   []any  `json:"values,omitempty"`
	Resource bool   `json:"-"`
}

// UserMessageByKey creates a resource-backed message.
func UserMessageByKey(key string, values ...any) UserMessage {
	return UserMessage{Key: key, Values: values, Resource: true}
}

// UserMessageAsDirect creates a message from final text.
func UserMessageAsDirect(text string) UserMessage {
	return UserMessage{Key: text}
}

func (m UserMessage) String() string {
	if !m.Resource {
		return "direct:" + m.Key
	}
	return fmt.Sprintf("%s%v", m.Key, m.Values)
}

// UserMessages is an ordered collection of messages grouped by property.
type UserMessages struct {
	properties []string
	messages   map[string][]UserMessage
}

// NewUserMessages creates an empty collection.
func NewUserMessages() *UserMessages {
	return &UserMessages{messages: make(map[string][]UserMessage)}
}

// Add appends message under property.
func (um *UserMessages) Add(property string, message UserMessage) *UserMessages {
	if _, ok := um.messages[property]; !ok {
		um.properties = append(um.properties, property)
	}
	um.messages[property] = append(um.messages[property], message)
	return um
}

func (um *UserMessages) IsEmpty() bool {
	return um.Size() == 0
}

func (um *UserMessages) Size() int {
	size := 0
	for _, list := range um.messages {
		size += len(list)
	}
	return size
}

// All returns every message grouped by property. Properties come in the order
// they were first added and each property keeps its own add order, so
// a:k1, b:k2, a:k3 yields k1, k3, k2.
func (um *UserMessages) All() []UserMessage {
	var all []UserMessage
	for _, property := range um.properties {
		all = append(all, um.messages[property]...)
	}
	return all
}

func (um *UserMessages) Properties() []string {
	return append([]string(nil), um.properties...)
}

func (um *UserMessages) Property(property string) []UserMessage {
	return append([]UserMessage(nil), um.messages[property]...)
}

func (um *UserMessages) HasMessageOf(property string, key string) bool {
	for _, message := range um.messages[property] {
		if message.Key == key {
			return true
		}
	}
	return false
}

// ToMap returns property to messages, for rendering.
func (um *UserMessages) ToMap() map[string][]UserMessage {
	result := make(map[string][]UserMessage, len(um.messages))
	for property, list := range um.messages {
		result[property] = append([]UserMessage(nil), list...)
	}
	return result
}

func (um *UserMessages) String() string {
	parts := make([]string, 0, len(um.properties))
	for _, property := range um.properties {
		parts = append(parts, fmt.Sprintf("%s=%v", property, um.messages[property]))
	}
	return "messages:{" + strings.Join(parts, ", ") + "}"
}

var (
	ErrNilUserMessages         = errors.New("the user messages must not be nil")
	ErrEmptyUserMessages       = errors.New("the user messages must not be empty")
	ErrNonResourceUserMessages = errors.New("the user messages must be resource-backed")
)

// MessagingApplicationError is an application error carrying user messages.
type MessagingApplicationError struct {
	*ApplicationError
	userMessages *UserMessages
}

// NewMessagingApplicationError verifies messages (not nil, not empty, all
// resource-backed) before converting any of them.
func NewMessagingApplicationError(debugMsg string, messages *UserMessages, cause error) (*MessagingApplicationError, error) {
	if messages == nil {
		return nil, ErrNilUserMessages
	}
	if messages.IsEmpty() {
		return nil, fmt.Errorf("%w: debugMsg=%s", ErrEmptyUserMessages, debugMsg)
	}
	all := messages.All()
	for _, message := range all {
		if !message.Resource {
			return nil, fmt.Errorf("%w: %s in %s", ErrNonResourceUserMessages, message, messages)
		}
	}

	converted := make([]ApplicationMessage, len(all))
	for i, message := range all {
		converted[i] = ApplicationMessage{Key: message.Key, Values: message.Values}
	}
	return &MessagingApplicationError{
		ApplicationError: &ApplicationError{DebugMsg: debugMsg, Messages: converted, Cause: cause},
		userMessages:     messages,
	}, nil
}

// UserMessages returns the messages the error was built from.
func (e *MessagingApplicationError) UserMessages() *UserMessages {
	return e.userMessages
}
