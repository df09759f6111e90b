package go_chatrooms

import (
    "context"
    "fmt"
    "strings"
    "unicode/utf8"
)

// Pipeline validates and persists messages received from the sessions.
//
// It doesn't broadcast anything by itself. Sending the resulting event is up
// to the caller, so validation and persistence may be used (and tested)
// independently of the fan-out.
type Pipeline struct {
    store MessageStore
    maxLength int
}

// NewPipeline create a Pipeline that persists into `store` messages with up
// to `maxLength` characters.
func NewPipeline(store MessageStore, maxLength int) *Pipeline {
    if maxLength <= 0 {
        maxLength = defMaxMessageLength
    }

    return &Pipeline {
        store: store,
        maxLength: maxLength,
    }
}

// Validate trim `rawText` and check that it's neither empty nor longer than
// the allowed length.
func (p *Pipeline) Validate(rawText string) (string, *ValidationError) {
    text := strings.TrimSpace(rawText)

    length := utf8.RuneCountInString(text)
    if length == 0 {
        return "", &ValidationError {
            Field: "text",
            Reason: EmptyMessage,
            Limit: 1,
        }
    } else if length > p.maxLength {
        return "", &ValidationError {
            Field: "text",
            Reason: MessageTooLong,
            Limit: p.maxLength,
        }
    }

    return text, nil
}

// Submit validate `rawText` and persist it as a new message from `author` on
// `room`.
//
// If the text is rejected, the returned error is a `*ValidationError`. Any
// other error comes from the storage.
func (p *Pipeline) Submit(ctx context.Context, room RoomID, author UserID,
        rawText string) (ChatMessage, error) {

    text, verr := p.Validate(rawText)
    if verr != nil {
        return ChatMessage{}, verr
    }

    msg, err := p.store.CreateMessage(ctx, room, author, text)
    if err != nil {
        return ChatMessage{}, fmt.Errorf("couldn't persist message: %w", err)
    }

    return msg, nil
}
