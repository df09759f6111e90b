package go_chatrooms

import (
    "encoding/json"
    "fmt"
    "strings"
)

// Events sent from the server to the sessions.
//
// Every event is framed as "<name>:<payload>", where payload is encoded as
// JSON. Messages received from the sessions aren't framed at all: the whole
// text is the message's body.
const (
    // A new message was created in the room. The payload is the
    // `ChatMessage`.
    EventNewMessage = "new_message"
    // The message sent by the session was rejected. The payload is a list of
    // `ValidationDetail`.
    EventValidationError = "validation_error"
)

// ValidationDetail describes why a field was rejected.
type ValidationDetail struct {
    // Loc is the path to the rejected field.
    Loc []string `json:"loc"`

    // Msg describes the issue to a human.
    Msg string `json:"msg"`

    // Type describes the issue to a machine.
    Type string `json:"type"`

    // Ctx holds the parameters of the failed rule.
    Ctx map[string]interface{} `json:"ctx,omitempty"`
}

// ValidationError reports a message rejected by the `Pipeline`.
type ValidationError struct {
    // Field that was rejected.
    Field string

    // Reason is either `EmptyMessage` or `MessageTooLong`.
    Reason ChatError

    // Limit is the value that the field failed to respect.
    Limit int
}

func (e *ValidationError) Error() string {
    return fmt.Sprintf("invalid %s: %s (limit: %d)", e.Field, e.Reason.Error(), e.Limit)
}

// Unwrap allow `errors.Is` to match the `ChatError` reason.
func (e *ValidationError) Unwrap() error {
    return e.Reason
}

// Details describe the error in the format sent to the remote client.
func (e *ValidationError) Details() []ValidationDetail {
    detail := ValidationDetail {
        Loc: []string{e.Field},
        Ctx: map[string]interface{} {
            "limit_value": e.Limit,
        },
    }

    switch e.Reason {
    case EmptyMessage:
        detail.Msg = fmt.Sprintf("ensure this value has at least %d characters", e.Limit)
        detail.Type = "value_error.any_str.min_length"
    case MessageTooLong:
        detail.Msg = fmt.Sprintf("ensure this value has at most %d characters", e.Limit)
        detail.Type = "value_error.any_str.max_length"
    default:
        detail.Msg = e.Reason.Error()
        detail.Type = "value_error"
    }

    return []ValidationDetail{detail}
}

// EncodeEvent frame `payload` as an event named `name`.
func EncodeEvent(name, payload string) string {
    return name + ":" + payload
}

// ParseEvent split a framed event into its name and its payload.
func ParseEvent(frame string) (string, string, error) {
    idx := strings.IndexByte(frame, ':')
    if idx <= 0 {
        return "", "", fmt.Errorf("malformed event '%s'", frame)
    }

    name := frame[:idx]
    switch name {
    case EventNewMessage, EventValidationError:
        return name, frame[idx+1:], nil
    default:
        return "", "", fmt.Errorf("unknown event '%s'", name)
    }
}

// EncodeNewMessage frame `msg` as a `new_message` event.
func EncodeNewMessage(msg ChatMessage) (string, error) {
    data, err := json.Marshal(msg)
    if err != nil {
        return "", fmt.Errorf("couldn't encode message %d: %w", msg.ID, err)
    }

    return EncodeEvent(EventNewMessage, string(data)), nil
}

// EncodeValidationError frame `verr` as a `validation_error` event.
func EncodeValidationError(verr *ValidationError) string {
    // A list of plain structs always encodes.
    data, _ := json.Marshal(verr.Details())

    return EncodeEvent(EventValidationError, string(data))
}
